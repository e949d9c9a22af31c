package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/common/middleware"
	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/service"
)

type SupportHandler struct {
	service service.SupportService
	wrap    func(gin.HandlerFunc) gin.HandlerFunc
}

func NewSupportHandler(svc service.SupportService, logger *zap.Logger) *SupportHandler {
	return &SupportHandler{
		service: svc,
		wrap:    middleware.HandleErrorWrapper(logger),
	}
}

// RegisterRoutes mounts the ledger. record runs behind optional auth so
// anonymous visitors may support a giveaway too.
func (h *SupportHandler) RegisterRoutes(router *gin.RouterGroup, record ...gin.HandlerFunc) {
	supports := router.Group("/giveaways/:id/supports")
	{
		supports.GET("", h.wrap(h.aggregates))
		handlers := append(append([]gin.HandlerFunc{}, record...), h.wrap(h.record))
		supports.POST("", handlers...)
	}
}

// @Summary Record support
// @Description Appends a support entry. Support never affects eligibility or winner selection.
// @Tags support
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body models.RecordSupportRequest true "Support"
// @Success 201 {object} models.Support
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/supports [post]
func (h *SupportHandler) record(c *gin.Context) {
	var input models.RecordSupportRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(apperrors.NewValidationError("body", err.Error()))
		return
	}

	var userID *int64
	if id, ok := middleware.CurrentUserID(c); ok {
		userID = &id
	}

	support, err := h.service.RecordSupport(c.Request.Context(), models.SupportInput{
		GiveawayID:  c.Param("id"),
		UserID:      userID,
		Amount:      input.Amount,
		DonorName:   input.DonorName,
		IsAnonymous: input.IsAnonymous,
		Message:     input.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, support)
}

// @Summary Support aggregates
// @Description Total, count and supporters newest first; anonymous names are withheld
// @Tags support
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.Aggregates
// @Router /giveaways/{id}/supports [get]
func (h *SupportHandler) aggregates(c *gin.Context) {
	agg, err := h.service.GetAggregates(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, agg)
}
