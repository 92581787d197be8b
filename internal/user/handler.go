package user

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

// Handler handles user profile, wishlist and block list operations
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// GetProfile gets the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var user models.User
	var preferencesJSON string
	query := `SELECT id, username, email, location, profile_image, bio, preferences, points, average_rating, show_email, created_at FROM users WHERE id = ?`
	err := database.DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.Location, &user.ProfileImage,
		&user.Bio, &preferencesJSON, &user.Points, &user.AverageRating,
		&user.ShowEmail, &user.CreatedAt,
	)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if preferencesJSON != "" {
		json.Unmarshal([]byte(preferencesJSON), &user.Preferences)
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the current user's profile fields
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := `UPDATE users SET `
	args := []interface{}{}
	if req.Location != "" {
		query += `location = ?, `
		args = append(args, req.Location)
	}
	if req.ProfileImage != "" {
		query += `profile_image = ?, `
		args = append(args, req.ProfileImage)
	}
	if req.Bio != "" {
		query += `bio = ?, `
		args = append(args, req.Bio)
	}
	if req.Preferences != nil {
		prefsJSON, _ := json.Marshal(req.Preferences)
		query += `preferences = ?, `
		args = append(args, string(prefsJSON))
	}
	if req.ShowEmail != nil {
		query += `show_email = ?, `
		args = append(args, boolToInt(*req.ShowEmail))
	}
	if len(args) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	query = query[:len(query)-2] + ` WHERE id = ?`
	args = append(args, userID)

	if _, err := database.DB.Exec(query, args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

// GetPublicProfile returns another user's public fields. Blocked pairs
// cannot see each other's profiles.
func (h *Handler) GetPublicProfile(c *gin.Context) {
	viewerID := c.GetString("user_id")
	targetID := c.Param("id")

	if viewerID != "" && viewerID != targetID {
		blocked, err := isBlockedEitherWay(viewerID, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if blocked {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
	}

	var p models.PublicProfile
	var email string
	var showEmail bool
	query := `SELECT id, username, email, location, profile_image, bio, average_rating, points, show_email FROM users WHERE id = ?`
	err := database.DB.QueryRow(query, targetID).Scan(
		&p.ID, &p.Username, &email, &p.Location, &p.ProfileImage, &p.Bio,
		&p.AverageRating, &p.Points, &showEmail,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if showEmail {
		p.Email = email
	}

	c.JSON(http.StatusOK, p)
}

// AddWishlistItem appends an entry to the caller's wishlist
func (h *Handler) AddWishlistItem(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.AddWishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	itemID, err := utils.GenerateID(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate item ID"})
		return
	}

	var maxPos sql.NullInt64
	if err := database.DB.QueryRow(`SELECT MAX(position) FROM wishlist_items WHERE user_id = ?`, userID).Scan(&maxPos); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	position := int(maxPos.Int64) + 1

	query := `INSERT INTO wishlist_items (id, user_id, title, author, isbn, position) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := database.DB.Exec(query, itemID, userID, req.Title, req.Author, req.ISBN, position); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add wishlist item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": itemID, "position": position})
}

// GetWishlist lists the caller's wishlist in order
func (h *Handler) GetWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.DB.Query(`SELECT id, user_id, title, author, isbn, position, created_at FROM wishlist_items WHERE user_id = ? ORDER BY position, created_at`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Author, &item.ISBN, &item.Position, &item.CreatedAt); err != nil {
			continue
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": items, "count": len(items)})
}

// ReorderWishlist rewrites the positions of the caller's wishlist. The
// request must list every item exactly once; positions are assigned from
// the request order.
func (h *Handler) ReorderWishlist(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.ReorderWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var total int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM wishlist_items WHERE user_id = ?`, userID).Scan(&total); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if total != len(req.ItemIDs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reorder must include every wishlist item exactly once"})
		return
	}
	seen := make(map[string]bool, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		if seen[id] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Duplicate wishlist item in reorder"})
			return
		}
		seen[id] = true
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	for i, itemID := range req.ItemIDs {
		result, err := tx.Exec(`UPDATE wishlist_items SET position = ? WHERE id = ? AND user_id = ?`, i+1, itemID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder wishlist"})
			return
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist item not found"})
			return
		}
	}
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder wishlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Wishlist reordered"})
}

// RemoveWishlistItem deletes one of the caller's wishlist entries
func (h *Handler) RemoveWishlistItem(c *gin.Context) {
	userID := c.GetString("user_id")
	itemID := c.Param("item_id")

	result, err := database.DB.Exec(`DELETE FROM wishlist_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove wishlist item"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wishlist item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wishlist item removed"})
}

// BlockUser adds a user to the caller's block list
func (h *Handler) BlockUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot block yourself"})
		return
	}

	var exists int
	if err := database.DB.QueryRow(`SELECT 1 FROM users WHERE id = ?`, targetID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	query := `INSERT OR IGNORE INTO blocked_users (user_id, blocked_id) VALUES (?, ?)`
	if _, err := database.DB.Exec(query, userID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to block user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

// UnblockUser removes a user from the caller's block list
func (h *Handler) UnblockUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("id")

	if _, err := database.DB.Exec(`DELETE FROM blocked_users WHERE user_id = ? AND blocked_id = ?`, userID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblock user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}

// GetBlockedUsers lists the caller's block list
func (h *Handler) GetBlockedUsers(c *gin.Context) {
	userID := c.GetString("user_id")

	rows, err := database.DB.Query(`SELECT u.id, u.username FROM blocked_users b JOIN users u ON u.id = b.blocked_id WHERE b.user_id = ? ORDER BY b.created_at`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	type blockedUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	blocked := []blockedUser{}
	for rows.Next() {
		var b blockedUser
		if err := rows.Scan(&b.ID, &b.Username); err != nil {
			continue
		}
		blocked = append(blocked, b)
	}
	c.JSON(http.StatusOK, gin.H{"blocked_users": blocked, "count": len(blocked)})
}

func isBlockedEitherWay(a, b string) (bool, error) {
	var count int
	err := database.DB.QueryRow(
		`SELECT COUNT(*) FROM blocked_users WHERE (user_id = ? AND blocked_id = ?) OR (user_id = ? AND blocked_id = ?)`,
		a, b, b, a,
	).Scan(&count)
	return count > 0, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
