package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slotline/booking-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
}

func setupTestRouter(jwtService *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	userID := uuid.New()
	email := "jo@company.com"
	roles := []string{"customer"}

	// Generate valid token
	token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
	require.NoError(t, err)

	// Setup protected route
	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		require.True(t, exists)
		c.JSON(http.StatusOK, gin.H{
			"message": "success",
			"user_id": userCtx.UserID,
			"email":   userCtx.Email,
		})
	})

	// Make request
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Contains(t, w.Body.String(), email)
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header is required")
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name   string
		header string
	}{
		{"Missing Bearer", "some-token"},
		{"Wrong prefix", "Basic some-token"},
		{"Empty Bearer", "Bearer "},
		{"No token", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	tests := []struct {
		name       string
		token      string
		expectCode string // Either INVALID_TOKEN or TOKEN_EXPIRED is acceptable
	}{
		{"Malformed token", "invalid.token.here", ""},       // Can be either
		{"Random string", "randomstringnotavalidtoken", ""}, // Can be either
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			// Accept either INVALID_TOKEN or TOKEN_EXPIRED error codes
			body := w.Body.String()
			hasValidError := strings.Contains(body, "INVALID_TOKEN") || strings.Contains(body, "TOKEN_EXPIRED")
			assert.True(t, hasValidError, "Expected INVALID_TOKEN or TOKEN_EXPIRED error, got: %s", body)
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	// Create service with very short expiry
	jwtService := jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		1*time.Millisecond, // Very short expiry
		24*time.Hour,
	)

	router := setupTestRouter(jwtService)

	userID := uuid.New()
	email := "jo@company.com"
	roles := []string{"customer"}

	// Generate token
	token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
	require.NoError(t, err)

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	jwtService := setupTestJWTService()

	// Create token with different secret
	wrongService := jwt.NewService(
		"wrong-secret-key",
		"wrong-refresh-secret",
		time.Hour,
		24*time.Hour,
	)

	userID := uuid.New()
	token, err := wrongService.GenerateAccessToken(userID, "jo@company.com", []string{"customer"}, true)
	require.NoError(t, err)

	router := setupTestRouter(jwtService)
	router.GET("/protected", AuthMiddleware(jwtService), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	t.Run("Context exists", func(t *testing.T) {
		expectedCtx := UserContext{
			UserID:        uuid.New(),
			Email:         "jo@company.com",
			Roles:         []string{"customer"},
			EmailVerified: true,
		}

		c.Set(UserContextKey, expectedCtx)

		userCtx, exists := GetUserContext(c)
		assert.True(t, exists)
		assert.Equal(t, expectedCtx.UserID, userCtx.UserID)
		assert.Equal(t, expectedCtx.Email, userCtx.Email)
		assert.Equal(t, expectedCtx.Roles, userCtx.Roles)
		assert.Equal(t, expectedCtx.EmailVerified, userCtx.EmailVerified)
	})

	t.Run("Context not found", func(t *testing.T) {
		c2, _ := gin.CreateTestContext(httptest.NewRecorder())
		userCtx, exists := GetUserContext(c2)
		assert.False(t, exists)
		assert.Equal(t, UserContext{}, userCtx)
	})

	t.Run("Context wrong type", func(t *testing.T) {
		c3, _ := gin.CreateTestContext(httptest.NewRecorder())
		c3.Set(UserContextKey, "wrong type")
		userCtx, exists := GetUserContext(c3)
		assert.False(t, exists)
		assert.Equal(t, UserContext{}, userCtx)
	})
}

func TestMustGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Context exists - no panic", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expectedCtx := UserContext{
			UserID: uuid.New(),
			Email:  "jo@company.com",
		}
		c.Set(UserContextKey, expectedCtx)

		assert.NotPanics(t, func() {
			userCtx := MustGetUserContext(c)
			assert.Equal(t, expectedCtx.UserID, userCtx.UserID)
		})
	})

	t.Run("Context not found - panic", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Panics(t, func() {
			MustGetUserContext(c)
		})
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	userID := uuid.New()
	email := "jo@company.com"

	t.Run("User has required role", func(t *testing.T) {
		roles := []string{"customer", "staff"}
		token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
		require.NoError(t, err)

		router.GET("/staff-only", AuthMiddleware(jwtService), RequireRole("staff"), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req := httptest.NewRequest("GET", "/staff-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
	})

	t.Run("User doesn't have required role", func(t *testing.T) {
		roles := []string{"customer"}
		token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
		require.NoError(t, err)

		router2 := setupTestRouter(jwtService)
		router2.GET("/admin-only", AuthMiddleware(jwtService), RequireRole("admin"), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		req := httptest.NewRequest("GET", "/admin-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router2.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")
	})

	t.Run("Multiple roles allowed", func(t *testing.T) {
		roles := []string{"staff"}
		token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
		require.NoError(t, err)

		router3 := setupTestRouter(jwtService)
		router3.GET("/multi-role", AuthMiddleware(jwtService), RequireRole("admin", "staff", "customer"), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req := httptest.NewRequest("GET", "/multi-role", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router3.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
	})

	t.Run("No user context", func(t *testing.T) {
		router4 := setupTestRouter(jwtService)
		// Note: RequireRole without AuthMiddleware
		router4.GET("/no-auth", RequireRole("admin"), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		req := httptest.NewRequest("GET", "/no-auth", nil)
		w := httptest.NewRecorder()

		router4.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
	})
}

func TestRequireVerifiedEmail(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	userID := uuid.New()
	email := "jo@company.com"
	roles := []string{"customer"}

	t.Run("Email is verified", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
		require.NoError(t, err)

		router.GET("/verified-only", AuthMiddleware(jwtService), RequireVerifiedEmail(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "success"})
		})

		req := httptest.NewRequest("GET", "/verified-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "success")
	})

	t.Run("Email is not verified", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(userID, email, roles, false)
		require.NoError(t, err)

		router2 := setupTestRouter(jwtService)
		router2.GET("/verified-only", AuthMiddleware(jwtService), RequireVerifiedEmail(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		req := httptest.NewRequest("GET", "/verified-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		router2.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "EMAIL_NOT_VERIFIED")
	})

	t.Run("No user context", func(t *testing.T) {
		router3 := setupTestRouter(jwtService)
		router3.GET("/no-auth", RequireVerifiedEmail(), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
		})

		req := httptest.NewRequest("GET", "/no-auth", nil)
		w := httptest.NewRecorder()

		router3.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
	})
}

func TestAuthMiddleware_Integration(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter(jwtService)

	// Simulate real user
	userID := uuid.New()
	email := "jo@company.com"
	roles := []string{"customer", "staff"}

	token, err := jwtService.GenerateAccessToken(userID, email, roles, true)
	require.NoError(t, err)

	// Setup multiple protected routes with different requirements
	router.GET("/profile", AuthMiddleware(jwtService), func(c *gin.Context) {
		userCtx := MustGetUserContext(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":        userCtx.UserID,
			"email":          userCtx.Email,
			"roles":          userCtx.Roles,
			"email_verified": userCtx.EmailVerified,
		})
	})

	router.GET("/staff-dashboard",
		AuthMiddleware(jwtService),
		RequireRole("staff"),
		RequireVerifiedEmail(),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "staff dashboard"})
		})

	router.GET("/admin-panel",
		AuthMiddleware(jwtService),
		RequireRole("admin"),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "admin panel"})
		})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		checkBody      string
	}{
		{
			name:           "Access profile - success",
			path:           "/profile",
			expectedStatus: http.StatusOK,
			checkBody:      email,
		},
		{
			name:           "Access staff dashboard - success (has role and verified email)",
			path:           "/staff-dashboard",
			expectedStatus: http.StatusOK,
			checkBody:      "staff dashboard",
		},
		{
			name:           "Access admin panel - forbidden (no admin role)",
			path:           "/admin-panel",
			expectedStatus: http.StatusForbidden,
			checkBody:      "INSUFFICIENT_PERMISSIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.checkBody != "" {
				assert.Contains(t, w.Body.String(), tt.checkBody)
			}
		})
	}
}
