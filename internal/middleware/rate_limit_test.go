package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.Limit())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRateLimiter_BurstExhausted(t *testing.T) {
	// 1 request per second, burst of 2
	rl := NewRateLimiter(1, 2)
	router := setupRateLimitedRouter(rl)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	router := setupRateLimitedRouter(rl)

	first := httptest.NewRequest("GET", "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, first)
	assert.Equal(t, http.StatusOK, w.Code)

	// A different IP gets its own bucket
	second := httptest.NewRequest("GET", "/ping", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, second)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_EvictIdleKeepsActiveBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)

	// Spend the active client's only token, then age out the idle one
	active := rl.getLimiter("10.0.0.1")
	assert.True(t, active.Allow())

	rl.getLimiter("10.0.0.2")
	rl.mu.Lock()
	rl.visitors["10.0.0.2"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.evictIdle(visitorTTL)

	rl.mu.Lock()
	_, activeKept := rl.visitors["10.0.0.1"]
	_, idleKept := rl.visitors["10.0.0.2"]
	rl.mu.Unlock()

	assert.True(t, activeKept)
	assert.False(t, idleKept)

	// The surviving bucket did not get a fresh burst
	assert.False(t, rl.getLimiter("10.0.0.1").Allow())
}
