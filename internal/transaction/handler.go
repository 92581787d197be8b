package transaction

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/metrics"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

const sqliteTime = "2006-01-02 15:04:05"

// Handler handles exchange negotiations between two users.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

const txColumns = `id, initiator_id, receiver_id, requested_book_id, offered_book_ids, exchange_location, status, created_at, updated_at, completed_at`

func scanTransaction(scan func(dest ...interface{}) error) (models.Transaction, error) {
	var t models.Transaction
	var offeredJSON string
	var completedAt sql.NullTime
	err := scan(
		&t.ID, &t.InitiatorID, &t.ReceiverID, &t.RequestedBookID, &offeredJSON,
		&t.ExchangeLocation, &t.Status, &t.CreatedAt, &t.UpdatedAt, &completedAt,
	)
	if err != nil {
		return t, err
	}
	if offeredJSON != "" {
		json.Unmarshal([]byte(offeredJSON), &t.OfferedBookIDs)
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// CreateTransaction opens a pending exchange request for another user's
// available book.
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ownerID, status string
	err := database.DB.QueryRow(`SELECT owner_id, status FROM books WHERE id = ?`, req.RequestedBookID).
		Scan(&ownerID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ownerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot request your own book"})
		return
	}
	if status != models.BookStatusAvailable {
		c.JSON(http.StatusConflict, gin.H{"error": "Book is not available"})
		return
	}

	var blockCount int
	err = database.DB.QueryRow(
		`SELECT COUNT(*) FROM blocked_users WHERE (user_id = ? AND blocked_id = ?) OR (user_id = ? AND blocked_id = ?)`,
		userID, ownerID, ownerID, userID,
	).Scan(&blockCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if blockCount > 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot start a transaction with this user"})
		return
	}

	// Offered books must belong to the initiator and be available
	for _, offeredID := range req.OfferedBookIDs {
		var offeredOwner, offeredStatus string
		err := database.DB.QueryRow(`SELECT owner_id, status FROM books WHERE id = ?`, offeredID).
			Scan(&offeredOwner, &offeredStatus)
		if err != nil || offeredOwner != userID || offeredStatus != models.BookStatusAvailable {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Offered books must be your own available listings"})
			return
		}
	}

	txID, err := utils.GenerateID(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate transaction ID"})
		return
	}
	offeredJSON, _ := json.Marshal(req.OfferedBookIDs)

	query := `INSERT INTO transactions (id, initiator_id, receiver_id, requested_book_id, offered_book_ids, exchange_location)
              VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := database.DB.Exec(query, txID, userID, ownerID, req.RequestedBookID, string(offeredJSON), req.ExchangeLocation); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": txID, "status": models.TransactionPending})
}

// GetMyTransactions lists transactions the caller participates in.
func (h *Handler) GetMyTransactions(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := `SELECT ` + txColumns + ` FROM transactions WHERE (initiator_id = ? OR receiver_id = ?)`
	args := []interface{}{userID, userID}
	if status := c.Query("status"); status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			continue
		}
		transactions = append(transactions, t)
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions, "count": len(transactions)})
}

// GetTransactionByID returns one transaction; participants only.
func (h *Handler) GetTransactionByID(c *gin.Context) {
	userID := c.GetString("user_id")
	txID := c.Param("id")

	row := database.DB.QueryRow(`SELECT `+txColumns+` FROM transactions WHERE id = ?`, txID)
	t, err := scanTransaction(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !t.IsParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this transaction"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateStatus transitions a transaction. The transition is a conditional
// update (WHERE status = current), so two concurrent completions cannot
// both succeed and points are never awarded twice.
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	txID := c.Param("id")

	var req models.UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row := database.DB.QueryRow(`SELECT `+txColumns+` FROM transactions WHERE id = ?`, txID)
	t, err := scanTransaction(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !t.IsParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this transaction"})
		return
	}

	expectedCurrent, err := validateTransition(&t, userID, req.Status)
	if err != nil {
		status := http.StatusConflict
		if te, ok := err.(*transitionError); ok && te.forbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if req.Status == models.TransactionCompleted {
		h.complete(c, &t, expectedCurrent)
		return
	}

	result, err := database.DB.Exec(
		`UPDATE transactions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		req.Status, txID, expectedCurrent,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transaction"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction status changed concurrently"})
		return
	}

	// A rejected or cancelled negotiation releases the requested book
	if req.Status == models.TransactionRejected || req.Status == models.TransactionCancelled {
		if _, err := database.DB.Exec(`UPDATE books SET status = ? WHERE id = ? AND status = ?`,
			models.BookStatusAvailable, t.RequestedBookID, models.BookStatusPending); err != nil {
			logger.Warn("book_release_failed", "book_id", t.RequestedBookID, "error", err.Error())
		}
	} else if req.Status == models.TransactionAccepted {
		if _, err := database.DB.Exec(`UPDATE books SET status = ? WHERE id = ? AND status = ?`,
			models.BookStatusPending, t.RequestedBookID, models.BookStatusAvailable); err != nil {
			logger.Warn("book_reserve_failed", "book_id", t.RequestedBookID, "error", err.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction updated", "status": req.Status})
}

// complete finishes an accepted exchange: guarded status flip, point
// awards to both parties and book handover, all in one DB transaction.
func (h *Handler) complete(c *gin.Context, t *models.Transaction, expectedCurrent string) {
	dbTx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer dbTx.Rollback()

	now := time.Now().UTC().Format(sqliteTime)
	result, err := dbTx.Exec(
		`UPDATE transactions SET status = ?, updated_at = ?, completed_at = ? WHERE id = ? AND status = ?`,
		models.TransactionCompleted, now, now, t.ID, expectedCurrent,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete transaction"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Lost the race against a concurrent completion; nothing awarded
		c.JSON(http.StatusConflict, gin.H{"error": "Transaction already completed"})
		return
	}

	if _, err := dbTx.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, models.PointsCompletedInitiator, t.InitiatorID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to award points"})
		return
	}
	if _, err := dbTx.Exec(`UPDATE users SET points = points + ? WHERE id = ?`, models.PointsCompletedReceiver, t.ReceiverID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to award points"})
		return
	}

	if _, err := dbTx.Exec(`UPDATE books SET status = ? WHERE id = ?`, models.BookStatusExchanged, t.RequestedBookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}

	if err := dbTx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete transaction"})
		return
	}

	metrics.IncrementTransactionsCompleted()
	logger.Info("transaction_completed", "transaction_id", t.ID,
		"initiator_id", t.InitiatorID, "receiver_id", t.ReceiverID)
	c.JSON(http.StatusOK, gin.H{"message": "Transaction completed", "status": models.TransactionCompleted, "completed_at": now})
}

type transitionError struct {
	msg       string
	forbidden bool
}

func (e *transitionError) Error() string { return e.msg }

// validateTransition enforces who may move a transaction where, and
// returns the status the row must still hold for the conditional update.
func validateTransition(t *models.Transaction, userID, target string) (string, error) {
	switch target {
	case models.TransactionAccepted, models.TransactionRejected:
		if userID != t.ReceiverID {
			return "", &transitionError{msg: "only the receiver can accept or reject", forbidden: true}
		}
		if t.Status != models.TransactionPending {
			return "", &transitionError{msg: "only pending transactions can be accepted or rejected"}
		}
		return models.TransactionPending, nil
	case models.TransactionCancelled:
		if userID != t.InitiatorID {
			return "", &transitionError{msg: "only the initiator can cancel", forbidden: true}
		}
		if t.Status != models.TransactionPending {
			return "", &transitionError{msg: "only pending transactions can be cancelled"}
		}
		return models.TransactionPending, nil
	case models.TransactionCompleted:
		if t.Status != models.TransactionAccepted {
			return "", &transitionError{msg: "only accepted transactions can be completed"}
		}
		return models.TransactionAccepted, nil
	default:
		return "", &transitionError{msg: "unsupported status"}
	}
}
