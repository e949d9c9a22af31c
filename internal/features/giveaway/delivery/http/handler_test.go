package http

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/config"
	"luvrix-giveaway-engine/internal/common/middleware"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository/memory"
	"luvrix-giveaway-engine/internal/features/giveaway/service"
)

const adminID = 900

// testUser authenticates requests from the X-Test-User header.
func testUser(c *gin.Context) {
	if raw := c.GetHeader("X-Test-User"); raw != "" {
		id, _ := strconv.ParseInt(raw, 10, 64)
		middleware.SetUser(c, initdata.User{ID: id})
	}
	c.Next()
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Engine.OperationTimeout = time.Second
	cfg.Engine.InviteCodeLength = 8

	store := memory.NewStore()
	d := service.Deps{
		Giveaways:    store.Giveaways(),
		Participants: store.Participants(),
		Selections:   store.Selections(),
		Config:       cfg,
		Logger:       zap.NewNop(),
	}
	logger := zap.NewNop()
	h := NewGiveawayHandler(
		service.NewGiveawayService(d),
		service.NewParticipationService(d),
		service.NewSelectionService(d, nil),
		logger,
	)

	r := gin.New()
	r.Use(middleware.RequestID(), testUser)
	h.RegisterRoutes(r.Group("/api/v1"), Guards{
		User:  []gin.HandlerFunc{requireUser},
		Admin: []gin.HandlerFunc{middleware.RequireAdmin(map[int64]struct{}{adminID: {}}, logger)},
	})
	return r
}

// requireUser stands in for TelegramAuth.Required.
func requireUser(c *gin.Context) {
	if _, ok := middleware.CurrentUserID(c); !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

func call(r *gin.Engine, method, path string, user int64, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("X-Test-User", strconv.FormatInt(user, 10))
	}
	r.ServeHTTP(w, req)
	return w
}

func createActive(t *testing.T, r *gin.Engine) models.Giveaway {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	body := `{
		"title": "Launch week",
		"start_date": "` + start + `",
		"end_date": "` + end + `",
		"required_points": 10,
		"max_extensions": 1,
		"tasks": [
			{"type": "share_post", "title": "Share", "points": 5, "required": true},
			{"type": "join_telegram", "title": "Join chat", "points": 10, "metadata": {"invite_url": "https://t.me/luvrix"}}
		]
	}`
	w := call(r, http.MethodPost, "/api/v1/admin/giveaways", adminID, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var g models.Giveaway
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))

	w = call(r, http.MethodPost, "/api/v1/admin/giveaways/"+g.ID+"/activate", adminID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return g
}

func TestParticipationFlow(t *testing.T) {
	r := newRouter(t)
	g := createActive(t, r)
	base := "/api/v1/giveaways/" + g.ID

	w := call(r, http.MethodPost, base+"/join", 1, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, base+"/tasks/"+g.Tasks[0].ID+"/complete", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = call(r, http.MethodPost, base+"/tasks/"+g.Tasks[1].ID+"/complete", 1, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, base+"/me", 1, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status models.ParticipantStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 15, status.Participant.Points)
	assert.True(t, status.Eligibility.Eligible)

	w = call(r, http.MethodPost, "/api/v1/admin/giveaways/"+g.ID+"/winner/random", adminID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/v1/admin/giveaways/"+g.ID+"/winner/random", adminID, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(r, http.MethodGet, base+"/winner", 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sel models.WinnerSelection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sel))
	assert.Equal(t, int64(1), sel.WinnerUserID)
}

func TestErrorStatusCodes(t *testing.T) {
	r := newRouter(t)
	g := createActive(t, r)
	base := "/api/v1/giveaways/" + g.ID

	tests := []struct {
		name   string
		method string
		path   string
		user   int64
		body   string
		want   int
	}{
		{name: "join unauthenticated", method: http.MethodPost, path: base + "/join", want: http.StatusUnauthorized},
		{name: "join unknown giveaway", method: http.MethodPost, path: "/api/v1/giveaways/nope/join", user: 1, want: http.StatusNotFound},
		{name: "status not joined", method: http.MethodGet, path: base + "/me", user: 2, want: http.StatusNotFound},
		{name: "complete unknown task", method: http.MethodPost, path: base + "/tasks/missing/complete", user: 2, want: http.StatusBadRequest},
		{name: "admin route as user", method: http.MethodPost, path: "/api/v1/admin/giveaways/" + g.ID + "/end", user: 2, want: http.StatusForbidden},
		{name: "random with empty pool", method: http.MethodPost, path: "/api/v1/admin/giveaways/" + g.ID + "/winner/random", user: adminID, want: http.StatusBadRequest},
		{name: "manual not eligible", method: http.MethodPost, path: "/api/v1/admin/giveaways/" + g.ID + "/winner/manual", user: adminID, body: `{"user_id": 2}`, want: http.StatusBadRequest},
		{name: "manual without body", method: http.MethodPost, path: "/api/v1/admin/giveaways/" + g.ID + "/winner/manual", user: adminID, body: `{}`, want: http.StatusBadRequest},
		{name: "bad pagination", method: http.MethodGet, path: "/api/v1/giveaways?limit=abc", want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPublicReads(t *testing.T) {
	r := newRouter(t)
	g := createActive(t, r)

	w := call(r, http.MethodGet, "/api/v1/giveaways", 0, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.GiveawayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = call(r, http.MethodGet, "/api/v1/giveaways/slug/"+g.Slug, 0, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/v1/giveaways/"+g.ID+"/winner", 0, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
