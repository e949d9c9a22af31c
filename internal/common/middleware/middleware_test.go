package middleware

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeValidation, http.StatusBadRequest},
		{errors.ErrCodeInvalidState, http.StatusBadRequest},
		{errors.ErrCodeNotEligible, http.StatusBadRequest},
		{errors.ErrCodeNoEligibleParticipants, http.StatusBadRequest},
		{errors.ErrCodeTaskNotFound, http.StatusBadRequest},
		{errors.ErrCodeGiveawayNotFound, http.StatusNotFound},
		{errors.ErrCodeParticipantNotFound, http.StatusNotFound},
		{errors.ErrCodeAlreadySelected, http.StatusConflict},
		{errors.ErrCodeConflict, http.StatusConflict},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodePersistence, http.StatusInternalServerError},
		{errors.ErrCodeUnauthorized, http.StatusUnauthorized},
		{errors.ErrCodeForbidden, http.StatusForbidden},
		{errors.ErrCodeRateLimit, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(errors.New(tt.code, "x")))
		})
	}
}

func TestHandleErrorWrapper(t *testing.T) {
	logger := zap.NewNop()
	wrap := HandleErrorWrapper(logger)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/app", wrap(func(c *gin.Context) {
		_ = c.Error(errors.NewAlreadySelectedError("g1"))
	}))
	r.GET("/plain", wrap(func(c *gin.Context) {
		_ = c.Error(stderrors.New("boom"))
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeError(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, errors.ErrCodeAlreadySelected, body.Error.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "/app", body.Path)
	assert.Equal(t, http.MethodGet, body.Method)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrCodeInternal, decodeError(t, w).Error.Code)
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestTelegramAuth(t *testing.T) {
	auth := NewTelegramAuth("123:token", time.Hour, zap.NewNop())

	r := gin.New()
	r.GET("/required", auth.Required(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/optional", auth.Optional(), func(c *gin.Context) {
		_, ok := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/required", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set(InitDataHeader, "query_id=1&user=%7B%22id%22%3A1%7D&auth_date=1&hash=deadbeef")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set(InitDataHeader, "hash=bad")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTelegramAuth_MissingToken(t *testing.T) {
	auth := NewTelegramAuth("", 0, zap.NewNop())

	r := gin.New()
	r.GET("/required", auth.Required(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/required", nil)
	req.Header.Set(InitDataHeader, "hash=abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	admins := map[int64]struct{}{7: {}}
	logger := zap.NewNop()

	asUser := func(id int64) gin.HandlerFunc {
		return func(c *gin.Context) {
			if id != 0 {
				SetUser(c, initdata.User{ID: id})
			}
			c.Next()
		}
	}

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{name: "anonymous", userID: 0, want: http.StatusUnauthorized},
		{name: "regular user", userID: 8, want: http.StatusForbidden},
		{name: "admin", userID: 7, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/admin", asUser(tt.userID), RequireAdmin(admins, logger), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2, zap.NewNop())

	r := gin.New()
	r.GET("/", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	limiter.evict(time.Now().Add(time.Hour))
	assert.Empty(t, limiter.visitors)
}
