package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moraes/isbn"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
	"github.com/tuanle2204/BookSwap-Group07/pkg/utils"
)

// Handler handles book listing operations
type Handler struct {
	externalSource ExternalSource
}

func NewHandler(source ExternalSource) *Handler {
	if source == nil {
		source = NewOpenLibrarySource()
	}
	return &Handler{externalSource: source}
}

const bookColumns = `id, title, author, isbn, genres, description, condition, cover_url, status, owner_id, view_count, promoted_at, promoted_until, created_at`

// ScanBook scans one row of bookColumns into a Book.
func ScanBook(scan func(dest ...interface{}) error) (models.Book, error) {
	var b models.Book
	var genresJSON string
	var promotedAt, promotedUntil sql.NullTime
	err := scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &genresJSON, &b.Description,
		&b.Condition, &b.CoverURL, &b.Status, &b.OwnerID, &b.ViewCount,
		&promotedAt, &promotedUntil, &b.CreatedAt,
	)
	if err != nil {
		return b, err
	}
	if genresJSON != "" {
		json.Unmarshal([]byte(genresJSON), &b.Genres)
	}
	if promotedAt.Valid {
		b.PromotedAt = &promotedAt.Time
	}
	if promotedUntil.Valid {
		b.PromotedUntil = &promotedUntil.Time
	}
	return b, nil
}

// SearchBooks searches listings based on filters
func (h *Handler) SearchBooks(c *gin.Context) {
	var req models.SearchBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Limit == 0 {
		req.Limit = 20
	}

	query := `SELECT ` + bookColumns + ` FROM books WHERE status != 'removed'`
	args := []interface{}{}

	if req.Title != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+req.Title+"%")
	}
	if req.Author != "" {
		query += ` AND author LIKE ?`
		args = append(args, "%"+req.Author+"%")
	}
	if req.Genre != "" {
		query += ` AND genres LIKE ?`
		args = append(args, "%"+req.Genre+"%")
	}
	if req.Status != "" {
		query += ` AND status = ?`
		args = append(args, req.Status)
	}
	if req.Owner != "" {
		query += ` AND owner_id = ?`
		args = append(args, req.Owner)
	}

	// Promoted listings surface first, then freshest
	query += ` ORDER BY CASE WHEN promoted_until > CURRENT_TIMESTAMP THEN 0 ELSE 1 END, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, req.Limit, req.Offset)

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := ScanBook(rows.Scan)
		if err != nil {
			continue
		}
		books = append(books, b)
	}

	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// GetBookByID returns a listing and bumps its view counter
func (h *Handler) GetBookByID(c *gin.Context) {
	bookID := c.Param("id")

	row := database.DB.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id = ?`, bookID)
	b, err := ScanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if _, err := database.DB.Exec(`UPDATE books SET view_count = view_count + 1 WHERE id = ?`, bookID); err != nil {
		logger.Warn("view_count_update_failed", "book_id", bookID, "error", err.Error())
	}
	b.ViewCount++

	c.JSON(http.StatusOK, b)
}

// CreateBook lists a new book owned by the caller
func (h *Handler) CreateBook(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ISBN != "" {
		normalized, err := NormalizeISBN(req.ISBN)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ISBN"})
			return
		}
		req.ISBN = normalized

		// Backfill cover/genres from Open Library when the listing is sparse
		if req.CoverURL == "" || len(req.Genres) == 0 {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			if meta, err := h.externalSource.LookupISBN(ctx, req.ISBN); err == nil {
				if req.CoverURL == "" {
					req.CoverURL = meta.CoverURL
				}
				if len(req.Genres) == 0 {
					req.Genres = meta.Genres
				}
			} else {
				logger.Debug("isbn_lookup_failed", "isbn", req.ISBN, "error", err.Error())
			}
		}
	}

	bookID, err := utils.GenerateID(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate book ID"})
		return
	}

	genresJSON, err := json.Marshal(req.Genres)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode genres"})
		return
	}

	query := `INSERT INTO books (id, title, author, isbn, genres, description, condition, cover_url, status, owner_id)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'available', ?)`
	_, err = database.DB.Exec(query, bookID, req.Title, req.Author, req.ISBN,
		string(genresJSON), req.Description, req.Condition, req.CoverURL, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": bookID, "message": "Book listed successfully"})
}

// UpdateBook updates a listing; owner only
func (h *Handler) UpdateBook(c *gin.Context) {
	userID := c.GetString("user_id")
	bookID := c.Param("id")

	var req models.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := bookOwner(bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can update this book"})
		return
	}

	query := `UPDATE books SET `
	args := []interface{}{}
	if req.Title != "" {
		query += `title = ?, `
		args = append(args, req.Title)
	}
	if req.Author != "" {
		query += `author = ?, `
		args = append(args, req.Author)
	}
	if req.ISBN != "" {
		normalized, err := NormalizeISBN(req.ISBN)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ISBN"})
			return
		}
		query += `isbn = ?, `
		args = append(args, normalized)
	}
	if req.Genres != nil {
		genresJSON, _ := json.Marshal(req.Genres)
		query += `genres = ?, `
		args = append(args, string(genresJSON))
	}
	if req.Description != "" {
		query += `description = ?, `
		args = append(args, req.Description)
	}
	if req.Condition != "" {
		query += `condition = ?, `
		args = append(args, req.Condition)
	}
	if req.CoverURL != "" {
		query += `cover_url = ?, `
		args = append(args, req.CoverURL)
	}
	if req.Status != "" {
		query += `status = ?, `
		args = append(args, req.Status)
	}
	if len(args) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}
	query = query[:len(query)-2] + ` WHERE id = ?`
	args = append(args, bookID)

	if _, err := database.DB.Exec(query, args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book updated successfully"})
}

// DeleteBook marks a listing as removed; owner only
func (h *Handler) DeleteBook(c *gin.Context) {
	userID := c.GetString("user_id")
	bookID := c.Param("id")

	ownerID, err := bookOwner(bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can remove this book"})
		return
	}

	if _, err := database.DB.Exec(`UPDATE books SET status = 'removed' WHERE id = ?`, bookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book removed successfully"})
}

// PromoteBook opens a promotion window on a listing; owner only
func (h *Handler) PromoteBook(c *gin.Context) {
	userID := c.GetString("user_id")
	bookID := c.Param("id")

	var req models.PromoteBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, err := bookOwner(bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ownerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can promote this book"})
		return
	}

	// Stored in the same text format CURRENT_TIMESTAMP produces so SQL
	// comparisons against the promotion window stay consistent.
	now := time.Now().UTC()
	until := now.AddDate(0, 0, req.Days)
	const sqliteTime = "2006-01-02 15:04:05"
	if _, err := database.DB.Exec(`UPDATE books SET promoted_at = ?, promoted_until = ? WHERE id = ?`,
		now.Format(sqliteTime), until.Format(sqliteTime), bookID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to promote book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book promoted", "promoted_until": until})
}

// GetMyBooks lists the caller's own listings
func (h *Handler) GetMyBooks(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.DB.Query(`SELECT `+bookColumns+` FROM books WHERE owner_id = ? AND status != 'removed' ORDER BY created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := ScanBook(rows.Scan)
		if err != nil {
			continue
		}
		books = append(books, b)
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func bookOwner(bookID string) (string, error) {
	var ownerID string
	err := database.DB.QueryRow(`SELECT owner_id FROM books WHERE id = ?`, bookID).Scan(&ownerID)
	return ownerID, err
}

// NormalizeISBN validates an ISBN-10 or ISBN-13 and returns the 13-digit
// form so stored codes compare exactly.
func NormalizeISBN(code string) (string, error) {
	cleaned := ""
	for _, r := range code {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			cleaned += string(r)
		}
	}
	if !isbn.Validate(cleaned) {
		return "", &InvalidISBNError{Code: code}
	}
	if len(cleaned) == 10 {
		return isbn.To13(cleaned)
	}
	return cleaned, nil
}

type InvalidISBNError struct {
	Code string
}

func (e *InvalidISBNError) Error() string { return "invalid isbn: " + e.Code }
