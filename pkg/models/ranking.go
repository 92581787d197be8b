package models

import "time"

// Ranking tiers, derived purely from total score thresholds.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// RankingScores is the per-category breakdown of a user's total score.
type RankingScores struct {
	Trading    float64 `json:"trading"`
	Reputation float64 `json:"reputation"`
	Activity   float64 `json:"activity"`
}

// RankingStats are the raw counters the score is computed from.
type RankingStats struct {
	CompletedExchanges int     `json:"completed_exchanges"`
	ReviewsGiven       int     `json:"reviews_given"`
	AverageRating      float64 `json:"average_rating"`
	WeeklyExchanges    int     `json:"weekly_exchanges"`
	WeeklyReviews      int     `json:"weekly_reviews"`
}

// UserRanking is the persisted scoring snapshot for one user. Rank,
// PreviousRank and Tier are only meaningful after a full recalculation
// pass across all users.
type UserRanking struct {
	UserID         string        `json:"user_id" db:"user_id"`
	Username       string        `json:"username,omitempty"`
	TotalScore     float64       `json:"total_score" db:"total_score"`
	Scores         RankingScores `json:"scores"`
	Rank           int           `json:"rank" db:"rank"`
	PreviousRank   int           `json:"previous_rank" db:"previous_rank"`
	Tier           string        `json:"tier" db:"tier"`
	Stats          RankingStats  `json:"stats"`
	LastActivity   time.Time     `json:"last_activity" db:"last_activity"`
	LastCalculated time.Time     `json:"last_calculated" db:"last_calculated"`
}

// Trend reports rank movement since the previous recalculation:
// positive means the user climbed, negative means they dropped.
func (r *UserRanking) Trend() int {
	if r.PreviousRank == 0 {
		return 0
	}
	return r.PreviousRank - r.Rank
}

// RankingUpdateResult is what the daily driver reports to its caller.
// The driver never raises; failures land in Error with Success=false.
type RankingUpdateResult struct {
	Success      bool      `json:"success"`
	UsersUpdated int       `json:"users_updated,omitempty"`
	UsersDecayed int       `json:"users_decayed,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
