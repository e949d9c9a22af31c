package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/common/middleware"
	"luvrix-giveaway-engine/internal/features/giveaway/models/dto"
	giveawayservice "luvrix-giveaway-engine/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	giveaways     giveawayservice.GiveawayService
	participation giveawayservice.ParticipationService
	selection     giveawayservice.SelectionService
	wrap          func(gin.HandlerFunc) gin.HandlerFunc
}

func NewGiveawayHandler(
	giveaways giveawayservice.GiveawayService,
	participation giveawayservice.ParticipationService,
	selection giveawayservice.SelectionService,
	logger *zap.Logger,
) *GiveawayHandler {
	return &GiveawayHandler{
		giveaways:     giveaways,
		participation: participation,
		selection:     selection,
		wrap:          middleware.HandleErrorWrapper(logger),
	}
}

// Guards are the middleware chains the routes are mounted behind.
type Guards struct {
	User  []gin.HandlerFunc
	Admin []gin.HandlerFunc
	Limit []gin.HandlerFunc
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup, guards Guards) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.wrap(h.listActive))
		giveaways.GET("/:id", h.wrap(h.getByID))
		giveaways.GET("/slug/:slug", h.wrap(h.getBySlug))
		giveaways.GET("/:id/winner", h.wrap(h.getWinner))

		user := giveaways.Group("", guards.User...)
		user.POST("/:id/join", chain(guards.Limit, h.wrap(h.join))...)
		user.POST("/:id/tasks/:taskId/complete", chain(guards.Limit, h.wrap(h.completeTask))...)
		user.GET("/:id/me", h.wrap(h.myStatus))
	}

	admin := router.Group("/admin/giveaways", guards.Admin...)
	{
		admin.POST("", h.wrap(h.create))
		admin.POST("/:id/activate", h.wrap(h.activate))
		admin.POST("/:id/end", h.wrap(h.end))
		admin.POST("/:id/extend", h.wrap(h.extend))
		admin.POST("/:id/winner/random", h.wrap(h.selectRandom))
		admin.POST("/:id/winner/manual", h.wrap(h.selectManual))
		admin.POST("/:id/invites", h.wrap(h.redeemInvite))
	}
}

// @title Luvrix Giveaway API
// @version 1.0
// @description Points-based giveaways for Telegram Mini Apps
// @BasePath /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data for authentication

// @Summary List active giveaways
// @Tags giveaways
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.GiveawayResponse
// @Router /giveaways [get]
func (h *GiveawayHandler) listActive(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	list, err := h.giveaways.ListActive(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get giveaway
// @Description Giveaway header with its task catalog and participation progress
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id} [get]
func (h *GiveawayHandler) getByID(c *gin.Context) {
	g, err := h.giveaways.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Get giveaway by slug
// @Tags giveaways
// @Produce json
// @Param slug path string true "Giveaway slug"
// @Success 200 {object} models.GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/slug/{slug} [get]
func (h *GiveawayHandler) getBySlug(c *gin.Context) {
	g, err := h.giveaways.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Get winner selection
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.WinnerSelection
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/winner [get]
func (h *GiveawayHandler) getWinner(c *gin.Context) {
	sel, err := h.selection.GetSelection(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// @Summary Join giveaway
// @Description Idempotent: joining twice returns the existing record
// @Tags participation
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.JoinRequest false "Optional invite code"
// @Success 200 {object} models.Participant
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/join [post]
func (h *GiveawayHandler) join(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}
	var input dto.JoinRequest
	if err := bindOptionalJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}
	if input.InviteCode == "" {
		input.InviteCode = c.Query("ref")
	}

	p, err := h.participation.Join(c.Request.Context(), c.Param("id"), userID, input.InviteCode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Complete task
// @Description Credits the task once; repeated calls return the record unchanged
// @Tags participation
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param taskId path string true "Task ID"
// @Success 200 {object} models.Participant
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/tasks/{taskId}/complete [post]
func (h *GiveawayHandler) completeTask(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}
	p, err := h.participation.CompleteTask(c.Request.Context(), c.Param("id"), userID, c.Param("taskId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary My participation status
// @Tags participation
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.ParticipantStatusResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/me [get]
func (h *GiveawayHandler) myStatus(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		_ = c.Error(apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}
	status, err := h.participation.GetStatus(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary Create giveaway
// @Description Creates a draft giveaway with its task catalog
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body dto.GiveawayCreateRequest true "Giveaway"
// @Success 201 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /admin/giveaways [post]
func (h *GiveawayHandler) create(c *gin.Context) {
	var input dto.GiveawayCreateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	g, err := h.giveaways.Create(c.Request.Context(), &input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// @Summary Activate giveaway
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/activate [post]
func (h *GiveawayHandler) activate(c *gin.Context) {
	g, err := h.giveaways.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary End giveaway without a winner
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/end [post]
func (h *GiveawayHandler) end(c *gin.Context) {
	g, err := h.giveaways.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Extend end date
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.ExtendRequest true "New end date"
// @Success 200 {object} models.Giveaway
// @Failure 400 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/extend [post]
func (h *GiveawayHandler) extend(c *gin.Context) {
	var input dto.ExtendRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	g, err := h.giveaways.Extend(c.Request.Context(), c.Param("id"), input.EndDate)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// @Summary Draw a random winner
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} models.WinnerSelection
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/winner/random [post]
func (h *GiveawayHandler) selectRandom(c *gin.Context) {
	sel, err := h.selection.SelectRandomWinner(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// @Summary Pick an eligible winner manually
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.ManualWinnerRequest true "Winner"
// @Success 200 {object} models.WinnerSelection
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/winner/manual [post]
func (h *GiveawayHandler) selectManual(c *gin.Context) {
	var input dto.ManualWinnerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	adminID, _ := middleware.CurrentUserID(c)
	sel, err := h.selection.SelectManualWinner(c.Request.Context(), c.Param("id"), input.UserID, adminID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// @Summary Credit a referral
// @Description The referral must be validated by the caller; each referred user counts once
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.RedeemInviteRequest true "Referral"
// @Success 200 {object} models.Participant
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/giveaways/{id}/invites [post]
func (h *GiveawayHandler) redeemInvite(c *gin.Context) {
	var input dto.RedeemInviteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	p, err := h.participation.RedeemInvite(c.Request.Context(), c.Param("id"), input.InviterUserID, input.ReferredUserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}
