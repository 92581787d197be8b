package models

import "time"

type User struct {
	ID            string    `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	Location      string    `json:"location" db:"location"`
	ProfileImage  string    `json:"profile_image" db:"profile_image"`
	Bio           string    `json:"bio,omitempty" db:"bio"`
	Preferences   []string  `json:"preferences" db:"preferences"`
	Points        int       `json:"points" db:"points"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	Role          string    `json:"role" db:"role"`
	ShowEmail     bool      `json:"show_email" db:"show_email"`
	LastLogin     time.Time `json:"last_login" db:"last_login"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PublicProfile is the subset of user fields visible to other users.
// Email is only included when the owner opted in via show_email.
type PublicProfile struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email,omitempty"`
	Location      string  `json:"location"`
	ProfileImage  string  `json:"profile_image"`
	Bio           string  `json:"bio,omitempty"`
	AverageRating float64 `json:"average_rating"`
	Points        int     `json:"points"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Location string `json:"location" binding:"omitempty,max=255"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"omitempty,max=255"` // Either username or email is required
	Email    string `json:"email" binding:"omitempty,email"`      // Either username or email is required
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	Location     string   `json:"location" binding:"omitempty,max=255"`
	ProfileImage string   `json:"profile_image" binding:"omitempty,max=512"`
	Bio          string   `json:"bio" binding:"omitempty,max=2000"`
	Preferences  []string `json:"preferences" binding:"omitempty,max=20"`
	ShowEmail    *bool    `json:"show_email"`
}

type WishlistItem struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author,omitempty" db:"author"`
	ISBN      string    `json:"isbn,omitempty" db:"isbn"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AddWishlistItemRequest struct {
	Title  string `json:"title" binding:"required,max=255"`
	Author string `json:"author" binding:"omitempty,max=255"`
	ISBN   string `json:"isbn" binding:"omitempty,max=17"`
}

// ReorderWishlistRequest carries the full wishlist in the desired order.
type ReorderWishlistRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required,min=1,max=200"`
}
