package models

import "time"

// Book status values. Only available books participate in matching.
const (
	BookStatusAvailable = "available"
	BookStatusPending   = "pending"
	BookStatusExchanged = "exchanged"
	BookStatusRemoved   = "removed"
)

type Book struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Author        string     `json:"author" db:"author"`
	ISBN          string     `json:"isbn,omitempty" db:"isbn"`
	Genres        []string   `json:"genres" db:"genres"`
	Description   string     `json:"description,omitempty" db:"description"`
	Condition     string     `json:"condition,omitempty" db:"condition"`
	CoverURL      string     `json:"cover_url,omitempty" db:"cover_url"`
	Status        string     `json:"status" db:"status"`
	OwnerID       string     `json:"owner_id" db:"owner_id"`
	ViewCount     int        `json:"view_count" db:"view_count"`
	PromotedAt    *time.Time `json:"promoted_at,omitempty" db:"promoted_at"`
	PromotedUntil *time.Time `json:"promoted_until,omitempty" db:"promoted_until"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsPromoted reports whether the book's paid promotion window covers now.
func (b *Book) IsPromoted(now time.Time) bool {
	return b.PromotedUntil != nil && b.PromotedUntil.After(now)
}

type CreateBookRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Author      string   `json:"author" binding:"required,max=255"`
	ISBN        string   `json:"isbn" binding:"omitempty,max=17"`
	Genres      []string `json:"genres" binding:"omitempty,max=10"`
	Description string   `json:"description" binding:"omitempty,max=4000"`
	Condition   string   `json:"condition" binding:"omitempty,max=50"`
	CoverURL    string   `json:"cover_url" binding:"omitempty,max=512"`
}

type UpdateBookRequest struct {
	Title       string   `json:"title" binding:"omitempty,max=255"`
	Author      string   `json:"author" binding:"omitempty,max=255"`
	ISBN        string   `json:"isbn" binding:"omitempty,max=17"`
	Genres      []string `json:"genres" binding:"omitempty,max=10"`
	Description string   `json:"description" binding:"omitempty,max=4000"`
	Condition   string   `json:"condition" binding:"omitempty,max=50"`
	CoverURL    string   `json:"cover_url" binding:"omitempty,max=512"`
	Status      string   `json:"status" binding:"omitempty,oneof=available pending exchanged removed"`
}

type SearchBooksRequest struct {
	Title  string `form:"title"`
	Author string `form:"author"`
	Genre  string `form:"genre"`
	Status string `form:"status"`
	Owner  string `form:"owner"`
	Limit  int    `form:"limit" binding:"min=0"`
	Offset int    `form:"offset" binding:"min=0"`
}

type PaginationMeta struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

type PromoteBookRequest struct {
	Days int `json:"days" binding:"required,min=1,max=30"`
}
