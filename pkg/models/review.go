package models

import "time"

type Review struct {
	ID            string    `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	ReviewerID    string    `json:"reviewer_id" db:"reviewer_id"`
	ReviewedID    string    `json:"reviewed_id" db:"reviewed_id"`
	Rating        int       `json:"rating" db:"rating"`
	Comment       string    `json:"comment,omitempty" db:"comment"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type CreateReviewRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"omitempty,max=2000"`
}

type RatingStats struct {
	Average      float64        `json:"average"`
	TotalCount   int            `json:"total_count"`
	Distribution map[string]int `json:"distribution"`
}
