package message

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

// Handler handles direct messages between users. Delivery is plain REST
// polling; there is no realtime transport.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// SendMessage stores a message for another user. Blocked pairs cannot
// message each other.
func (h *Handler) SendMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ToUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot message yourself"})
		return
	}

	var exists int
	if err := database.DB.QueryRow(`SELECT 1 FROM users WHERE id = ?`, req.ToUserID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var blockCount int
	err := database.DB.QueryRow(
		`SELECT COUNT(*) FROM blocked_users WHERE (user_id = ? AND blocked_id = ?) OR (user_id = ? AND blocked_id = ?)`,
		userID, req.ToUserID, req.ToUserID, userID,
	).Scan(&blockCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if blockCount > 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot message this user"})
		return
	}

	msgID, err := utils.GenerateID(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate message ID"})
		return
	}

	query := `INSERT INTO messages (id, from_user_id, to_user_id, content) VALUES (?, ?, ?, ?)`
	if _, err := database.DB.Exec(query, msgID, userID, req.ToUserID, req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": msgID, "message": "Message sent"})
}

// GetInbox lists messages sent to the caller, newest first.
func (h *Handler) GetInbox(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.DB.Query(
		`SELECT id, from_user_id, to_user_id, content, read, created_at FROM messages WHERE to_user_id = ? ORDER BY created_at DESC LIMIT 100`,
		userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			continue
		}
		messages = append(messages, m)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

// GetConversation lists the two-way history with another user and marks
// their messages to the caller as read.
func (h *Handler) GetConversation(c *gin.Context) {
	userID := c.GetString("user_id")
	otherID := c.Param("user_id")

	rows, err := database.DB.Query(
		`SELECT id, from_user_id, to_user_id, content, read, created_at FROM messages
         WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)
         ORDER BY created_at ASC LIMIT 500`,
		userID, otherID, otherID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			continue
		}
		messages = append(messages, m)
	}

	database.DB.Exec(`UPDATE messages SET read = 1 WHERE from_user_id = ? AND to_user_id = ? AND read = 0`, otherID, userID)

	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}
