package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTouchRouter(t *testing.T, userID uuid.UUID) (*gin.Engine, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}
	sessionService := services.NewSessionService(database.NewUserSessionRepository(postgresDB), 15)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(UserContextKey, UserContext{
			UserID:        userID,
			Email:         "jo@company.com",
			Roles:         []string{"customer"},
			EmailVerified: true,
		})
		c.Next()
	})
	router.Use(TouchSession(sessionService))
	router.GET("/bookings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return router, mock, func() { db.Close() }
}

func TestTouchSession_RecordsActivity(t *testing.T) {
	userID := uuid.New()
	router, mock, cleanup := setupTouchRouter(t, userID)
	defer cleanup()

	sessionCols := []string{
		"id", "user_id", "browser", "platform", "ip_address",
		"last_activity_at", "is_active", "created_at", "updated_at",
	}

	// No active session for this client yet, so one is created
	mock.ExpectQuery("SELECT (.+) FROM user_sessions").
		WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery("INSERT INTO user_sessions").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			uuid.New(), userID, "Chrome", "windows", "10.0.0.1",
			time.Now(), true, time.Now(), time.Now(),
		))

	req := httptest.NewRequest("GET", "/bookings", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchSession_SkipsBots(t *testing.T) {
	router, mock, cleanup := setupTouchRouter(t, uuid.New())
	defer cleanup()

	// No DB expectations: bot traffic never touches the sessions table
	req := httptest.NewRequest("GET", "/bookings", nil)
	req.Header.Set("User-Agent", "Googlebot/2.1 (+http://www.google.com/bot.html)")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchSession_NoUserContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	postgresDB := &database.PostgresDB{DB: sqlxDB}
	sessionService := services.NewSessionService(database.NewUserSessionRepository(postgresDB), 15)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TouchSession(sessionService))
	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest("GET", "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
