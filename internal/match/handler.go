package match

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/metrics"
)

// Handler exposes the matcher over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type matchQuery struct {
	IncludeGenres bool `form:"include_genres"`
	Limit         int  `form:"limit" binding:"min=0,max=100"`
}

// GetMatches returns candidate offers for the authenticated user.
// No candidates is an empty list, never an error.
func (h *Handler) GetMatches(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var q matchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.IncrementMatchRequests()

	results, err := h.service.GetMatchingOffers(userID, Options{
		IncludeGenres: q.IncludeGenres,
		Limit:         q.Limit,
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logger.Error("matching_failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	metrics.AddMatchResults(int64(len(results)))
	c.JSON(http.StatusOK, gin.H{"matches": results, "count": len(results)})
}
