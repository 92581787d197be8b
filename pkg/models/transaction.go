package models

import "time"

// Transaction status values. Allowed transitions:
// pending -> accepted | rejected | cancelled, accepted -> completed.
const (
	TransactionPending   = "pending"
	TransactionAccepted  = "accepted"
	TransactionRejected  = "rejected"
	TransactionCancelled = "cancelled"
	TransactionCompleted = "completed"
)

// Point rewards granted when a transaction completes. The asymmetry
// (initiator earns more than the receiver) mirrors the original product
// behaviour and is intentionally preserved.
const (
	PointsCompletedInitiator = 10
	PointsCompletedReceiver  = 1
	PointsReviewGiven        = 5
)

type Transaction struct {
	ID               string     `json:"id" db:"id"`
	InitiatorID      string     `json:"initiator_id" db:"initiator_id"`
	ReceiverID       string     `json:"receiver_id" db:"receiver_id"`
	RequestedBookID  string     `json:"requested_book_id" db:"requested_book_id"`
	OfferedBookIDs   []string   `json:"offered_book_ids,omitempty" db:"offered_book_ids"`
	ExchangeLocation string     `json:"exchange_location,omitempty" db:"exchange_location"`
	Status           string     `json:"status" db:"status"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// IsParticipant reports whether userID is one of the two parties.
func (t *Transaction) IsParticipant(userID string) bool {
	return t.InitiatorID == userID || t.ReceiverID == userID
}

// CounterpartyOf returns the other participant's id, or "" when userID is
// not a participant. All initiator/receiver role checks go through here so
// the comparison lives in exactly one place.
func (t *Transaction) CounterpartyOf(userID string) string {
	switch userID {
	case t.InitiatorID:
		return t.ReceiverID
	case t.ReceiverID:
		return t.InitiatorID
	default:
		return ""
	}
}

type CreateTransactionRequest struct {
	RequestedBookID  string   `json:"requested_book_id" binding:"required"`
	OfferedBookIDs   []string `json:"offered_book_ids" binding:"omitempty,max=5"`
	ExchangeLocation string   `json:"exchange_location" binding:"omitempty,max=255"`
}

type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected cancelled completed"`
}
