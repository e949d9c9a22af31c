package http

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
)

func chain(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	out = append(out, pre...)
	return append(out, h)
}

func bindError(err error) error {
	return apperrors.NewValidationError("body", err.Error())
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return bindError(err)
	}
	return nil
}

func pagination(c *gin.Context) (limit, offset int, err error) {
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, apperrors.NewValidationError("limit", "must be an integer")
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, apperrors.NewValidationError("offset", "must be an integer")
		}
	}
	return limit, offset, nil
}
