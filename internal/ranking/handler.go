package ranking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
)

// Handler exposes leaderboard reads plus the administrative triggers the
// scheduler calls.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type leaderboardQuery struct {
	Limit  int `form:"limit" binding:"min=0,max=100"`
	Offset int `form:"offset" binding:"min=0"`
}

// GetLeaderboard returns the ranked users in rank order.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	var q leaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	entries, err := h.service.GetLeaderboard(q.Limit, q.Offset)
	if err != nil {
		logger.Error("leaderboard_load_failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries, "count": len(entries)})
}

// GetUserRanking returns one user's snapshot. A user never computed is
// reported as not yet ranked, not an error.
func (h *Handler) GetUserRanking(c *gin.Context) {
	h.respondWithRanking(c, c.Param("id"))
}

// GetMyRanking returns the authenticated caller's snapshot.
func (h *Handler) GetMyRanking(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	h.respondWithRanking(c, userID)
}

func (h *Handler) respondWithRanking(c *gin.Context, userID string) {
	r, err := h.service.GetUserRanking(userID)
	if err != nil {
		logger.Error("ranking_load_failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if r == nil {
		c.JSON(http.StatusOK, gin.H{"ranked": false, "user_id": userID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranked": true, "ranking": r, "trend": r.Trend()})
}

// DailyUpdate runs the scheduled full update. Admin token checked by
// middleware before this executes. The result is always structured; a
// failed run is still a 200-level response body with success=false so the
// cron caller can react deterministically.
func (h *Handler) DailyUpdate(c *gin.Context) {
	result := h.service.DailyRankingUpdate(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// DebugUpdate is the test surface: mode=single|all|recalculate.
func (h *Handler) DebugUpdate(c *gin.Context) {
	mode := c.DefaultQuery("mode", "all")

	switch mode {
	case "single":
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required for mode=single"})
			return
		}
		if err := h.service.UpdateSingleUser(userID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User ranking updated", "user_id": userID})
	case "all":
		count, err := h.service.UpdateAllUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "All user rankings updated", "users_updated": count})
	case "recalculate":
		if err := h.service.RecalculateRankings(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Rankings recalculated"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be single, all or recalculate"})
	}
}
