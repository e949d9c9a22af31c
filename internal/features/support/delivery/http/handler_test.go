package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/repository/memory"
	"luvrix-giveaway-engine/internal/features/support/service"
)

const giveawayID = "5f0c6a7e-8d7b-4c55-9a0e-2f1f3b6c9d01"

type allGiveaways struct{}

func (allGiveaways) Exists(_ context.Context, id string) (bool, error) {
	return id == giveawayID, nil
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewSupportService(memory.NewSupportRepository(), allGiveaways{}, nil, nil, time.Second, zap.NewNop())
	r := gin.New()
	NewSupportHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRecordAndAggregate(t *testing.T) {
	r := newRouter()
	path := "/api/v1/giveaways/" + giveawayID + "/supports"

	w := do(r, http.MethodPost, path, `{"amount":500,"donor_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, path, `{"amount":250,"donor_name":"Bob","is_anonymous":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)

	var agg models.Aggregates
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agg))
	assert.Equal(t, int64(750), agg.Total)
	assert.Equal(t, int64(2), agg.Count)
	assert.NotContains(t, w.Body.String(), "Bob")
}

func TestRecordSupport_Rejections(t *testing.T) {
	r := newRouter()

	w := do(r, http.MethodPost, "/api/v1/giveaways/"+giveawayID+"/supports", `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/giveaways/"+giveawayID+"/supports", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/giveaways/0d7e5b8c-1111-4222-8333-944455556666/supports", `{"amount":10}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
