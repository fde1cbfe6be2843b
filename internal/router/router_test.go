package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/handler"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/config"
)

func newTestEngine() http.Handler {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api"}
	metrics := service.NewMetricsService()
	auth := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "test-secret"})
	return Setup(cfg, Handlers{
		Roster:        handler.NewRosterHandler(nil, nil, nil, nil),
		Auth:          handler.NewAuthHandler(auth, nil),
		Teachers:      handler.NewTeacherHandler(nil),
		Students:      handler.NewStudentHandler(nil),
		Classes:       handler.NewClassHandler(nil),
		Registers:     handler.NewRegisterHandler(nil),
		Notifications: handler.NewNotificationHandler(nil),
		Metrics:       handler.NewMetricsHandler(metrics, nil, nil),
	}, auth, metrics, zap.NewNop())
}

func TestSetupHealthAndMetrics(t *testing.T) {
	engine := newTestEngine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestSetupAdminRoutesRequireToken(t *testing.T) {
	engine := newTestEngine()

	for _, target := range []string{"/api/admin/teachers/1", "/api/admin/notifications/1", "/api/admin/registers/1"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestSetupRosterRoutesAreMounted(t *testing.T) {
	engine := newTestEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewBufferString(`{"teacher":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/commonstudents", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetupHidesDocsInProduction(t *testing.T) {
	engine := newTestEngine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
