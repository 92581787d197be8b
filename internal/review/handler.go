package review

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

// Handler handles post-exchange reviews.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// CreateReview records a rating for the counterparty of a completed
// transaction. The first write for a (transaction, reviewer) pair earns
// the reviewer points; a repeat write updates the review in place and
// earns nothing. The reviewed user's average rating is recomputed as the
// exact mean over all reviews they have received.
func (h *Handler) CreateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var t models.Transaction
	err := database.DB.QueryRow(
		`SELECT id, initiator_id, receiver_id, status FROM transactions WHERE id = ?`, req.TransactionID,
	).Scan(&t.ID, &t.InitiatorID, &t.ReceiverID, &t.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	reviewedID := t.CounterpartyOf(userID)
	if reviewedID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this transaction"})
		return
	}
	if t.Status != models.TransactionCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Only completed transactions can be reviewed"})
		return
	}

	var existingID string
	err = database.DB.QueryRow(
		`SELECT id FROM reviews WHERE transaction_id = ? AND reviewer_id = ?`, req.TransactionID, userID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if existingID != "" {
		// Second submission for the same pair: update in place, no points
		_, err := database.DB.Exec(
			`UPDATE reviews SET rating = ?, comment = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			req.Rating, req.Comment, existingID,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
			return
		}
		if err := recomputeAverageRating(reviewedID); err != nil {
			logger.Warn("average_rating_recompute_failed", "user_id", reviewedID, "error", err.Error())
		}
		c.JSON(http.StatusOK, gin.H{"id": existingID, "message": "Review updated"})
		return
	}

	reviewID, err := utils.GenerateID(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate review ID"})
		return
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer dbTx.Rollback()

	_, err = dbTx.Exec(
		`INSERT INTO reviews (id, transaction_id, reviewer_id, reviewed_id, rating, comment) VALUES (?, ?, ?, ?, ?, ?)`,
		reviewID, req.TransactionID, userID, reviewedID, req.Rating, req.Comment,
	)
	if err != nil {
		// Unique constraint closes the race between the existence check
		// and this insert; the loser falls through as a conflict
		c.JSON(http.StatusConflict, gin.H{"error": "Review already exists for this transaction"})
		return
	}

	if _, err := dbTx.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, models.PointsReviewGiven, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to award points"})
		return
	}

	if err := dbTx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		return
	}

	if err := recomputeAverageRating(reviewedID); err != nil {
		logger.Warn("average_rating_recompute_failed", "user_id", reviewedID, "error", err.Error())
	}

	c.JSON(http.StatusCreated, gin.H{"id": reviewID, "message": "Review created"})
}

// GetUserReviews lists reviews a user has received.
func (h *Handler) GetUserReviews(c *gin.Context) {
	targetID := c.Param("id")

	rows, err := database.DB.Query(
		`SELECT id, transaction_id, reviewer_id, reviewed_id, rating, comment, created_at, updated_at
         FROM reviews WHERE reviewed_id = ? ORDER BY created_at DESC`, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.TransactionID, &r.ReviewerID, &r.ReviewedID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			continue
		}
		reviews = append(reviews, r)
	}

	stats := models.RatingStats{Distribution: map[string]int{}}
	for _, r := range reviews {
		stats.TotalCount++
		stats.Average += float64(r.Rating)
		switch r.Rating {
		case 1:
			stats.Distribution["1"]++
		case 2:
			stats.Distribution["2"]++
		case 3:
			stats.Distribution["3"]++
		case 4:
			stats.Distribution["4"]++
		case 5:
			stats.Distribution["5"]++
		}
	}
	if stats.TotalCount > 0 {
		stats.Average /= float64(stats.TotalCount)
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "stats": stats})
}

// recomputeAverageRating sets the user's average to the exact mean over
// every review they have received.
func recomputeAverageRating(userID string) error {
	_, err := database.DB.Exec(
		`UPDATE users SET average_rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE reviewed_id = ?) WHERE id = ?`,
		userID, userID,
	)
	return err
}
