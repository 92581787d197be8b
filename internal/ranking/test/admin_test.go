package ranking_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/internal/auth"
	"github.com/tuanle2204/BookSwap-Group07/internal/ranking"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
)

const testCronSecret = "cron-secret-for-tests"

func newAdminRouter(svc *ranking.Service, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := ranking.NewHandler(svc)
	router := gin.New()
	adminGroup := router.Group("/admin/rankings")
	adminGroup.Use(auth.AdminTokenMiddleware(secret))
	{
		adminGroup.POST("/daily", handler.DailyUpdate)
	}
	return router
}

func postDaily(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/admin/rankings/daily", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func rankingRowCount(t *testing.T) int {
	t.Helper()
	var count int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM user_rankings`).Scan(&count); err != nil {
		t.Fatalf("count rankings: %v", err)
	}
	return count
}

func TestAdminDailyRejectsMissingToken(t *testing.T) {
	svc, cleanup := setupRankingTest(t)
	defer cleanup()
	seedUser(t, "u1", "2026-02-28 12:00:00", "2025-01-01 00:00:00")

	router := newAdminRouter(svc, testCronSecret)

	resp := postDaily(router, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401, got %d", resp.Code)
	}
	if got := rankingRowCount(t); got != 0 {
		t.Errorf("rankings written without a token: %d rows", got)
	}
}

func TestAdminDailyRejectsWrongToken(t *testing.T) {
	svc, cleanup := setupRankingTest(t)
	defer cleanup()
	seedUser(t, "u1", "2026-02-28 12:00:00", "2025-01-01 00:00:00")

	router := newAdminRouter(svc, testCronSecret)

	for _, header := range []string{
		"Bearer wrong-secret",
		"Basic " + testCronSecret,
		testCronSecret,
	} {
		resp := postDaily(router, header)
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
	if got := rankingRowCount(t); got != 0 {
		t.Errorf("rankings written despite rejected tokens: %d rows", got)
	}
}

func TestAdminDailyRunsWithCorrectToken(t *testing.T) {
	svc, cleanup := setupRankingTest(t)
	defer cleanup()
	seedUser(t, "u1", "2026-02-28 12:00:00", "2025-01-01 00:00:00")
	seedUser(t, "u2", "2026-02-27 12:00:00", "2025-01-01 00:00:00")

	router := newAdminRouter(svc, testCronSecret)

	resp := postDaily(router, "Bearer "+testCronSecret)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Success      bool `json:"success"`
		UsersUpdated int  `json:"users_updated"`
	}
	json.Unmarshal(resp.Body.Bytes(), &result)
	if !result.Success {
		t.Error("expected success=true")
	}
	if result.UsersUpdated != 2 {
		t.Errorf("users_updated = %d, want 2", result.UsersUpdated)
	}
	if got := rankingRowCount(t); got != 2 {
		t.Errorf("ranking rows = %d, want 2", got)
	}
}

func TestAdminDailyUnavailableWithoutConfiguredSecret(t *testing.T) {
	svc, cleanup := setupRankingTest(t)
	defer cleanup()
	seedUser(t, "u1", "2026-02-28 12:00:00", "2025-01-01 00:00:00")

	router := newAdminRouter(svc, "")

	// With no secret configured, not even an empty bearer gets through
	for _, header := range []string{"", "Bearer ", "Bearer anything"} {
		resp := postDaily(router, header)
		if resp.Code != http.StatusServiceUnavailable {
			t.Errorf("header %q: expected 503, got %d", header, resp.Code)
		}
	}
	if got := rankingRowCount(t); got != 0 {
		t.Errorf("rankings written on unconfigured endpoint: %d rows", got)
	}
}
