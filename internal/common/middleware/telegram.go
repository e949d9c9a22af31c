package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/common/logger"
	"luvrix-giveaway-engine/internal/metrics"
)

// InitDataHeader carries the raw Telegram Mini App init data.
const InitDataHeader = "init_data"

// TelegramAuth validates init data signed with the bot token.
type TelegramAuth struct {
	token  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewTelegramAuth creates the validator. ttl of zero disables the expiration check.
func NewTelegramAuth(token string, ttl time.Duration, logger *zap.Logger) *TelegramAuth {
	return &TelegramAuth{token: token, ttl: ttl, logger: logger}
}

func (a *TelegramAuth) parse(raw string) (initdata.User, *errors.AppError) {
	if a.token == "" {
		l := logger.Component("auth")
		l.Error().Msg("BOT_TOKEN is not configured, rejecting init data")
		return initdata.User{}, errors.New(errors.ErrCodeInternal, "Server configuration error")
	}
	if err := initdata.Validate(raw, a.token, a.ttl); err != nil {
		metrics.AuthRejections.WithLabelValues("invalid_signature").Inc()
		return initdata.User{}, errors.NewUnauthorizedError("invalid init data")
	}
	parsed, err := initdata.Parse(raw)
	if err != nil {
		metrics.AuthRejections.WithLabelValues("malformed").Inc()
		return initdata.User{}, errors.NewUnauthorizedError("malformed init data")
	}
	if parsed.User.ID == 0 {
		metrics.AuthRejections.WithLabelValues("no_user").Inc()
		return initdata.User{}, errors.NewUnauthorizedError("init data has no user")
	}
	return parsed.User, nil
}

// Required rejects requests without valid init data.
func (a *TelegramAuth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			metrics.AuthRejections.WithLabelValues("missing").Inc()
			abort(c, errors.NewUnauthorizedError("Telegram init data required"), a.logger)
			return
		}
		user, appErr := a.parse(raw)
		if appErr != nil {
			abort(c, appErr, a.logger)
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

// Optional attaches the user when valid init data is present and lets
// anonymous requests through. Invalid init data is still rejected.
func (a *TelegramAuth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			c.Next()
			return
		}
		user, appErr := a.parse(raw)
		if appErr != nil {
			abort(c, appErr, a.logger)
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the authenticated user on the request.
func SetUser(c *gin.Context, user initdata.User) {
	c.Set(userKey, user)
	c.Set(userIDKey, user.ID)
}

// CurrentUserID returns the authenticated Telegram user id.
func CurrentUserID(c *gin.Context) (int64, bool) {
	id := getUserID(c)
	return id, id != 0
}
