package ranking

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/metrics"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

// ErrUserNotFound is returned when a score update targets a user that
// does not exist.
var ErrUserNotFound = errors.New("user not found")

const sqliteTime = "2006-01-02 15:04:05"

// Service recomputes user scores and maintains the global rank order.
// The user_rankings table is a materialized view: every row is fully
// recomputable from transactions, reviews and login history, so a batch
// rerun after partial failure is always safe.
type Service struct {
	db    *sql.DB
	cfg   Config
	log   *logger.Logger
	nowFn func() time.Time
}

func NewService(db *sql.DB, cfg Config) *Service {
	return &Service{
		db:    db,
		cfg:   cfg,
		log:   logger.GetLogger().WithContext("component", "ranking"),
		nowFn: time.Now,
	}
}

// NewServiceWithClock pins the clock for tests.
func NewServiceWithClock(db *sql.DB, cfg Config, nowFn func() time.Time) *Service {
	s := NewService(db, cfg)
	s.nowFn = nowFn
	return s
}

// snapshot is one computed scoring record plus whether decay fired.
type snapshot struct {
	ranking models.UserRanking
	decayed bool
}

// UpdateSingleUser recomputes and persists one user's scores. Rank,
// previous_rank and tier are left untouched; they only change during a
// full recalculation pass.
func (s *Service) UpdateSingleUser(userID string) error {
	_, err := s.updateOne(userID)
	return err
}

func (s *Service) updateOne(userID string) (*snapshot, error) {
	snap, err := s.computeSnapshot(userID)
	if err != nil {
		return nil, err
	}
	if err := s.persistSnapshot(snap); err != nil {
		return nil, errors.Wrapf(err, "persist ranking for %s", userID)
	}
	metrics.IncrementRankingUpdates()
	return snap, nil
}

// computeSnapshot gathers raw signals and combines them into category
// sub-scores. The formula:
//
//	trading    = 10*completedExchanges + 5*weeklyExchanges
//	reputation = 20*averageRating + 2*reviewsGiven + 2*weeklyReviews
//	activity   = 15 when lastActivity is inside the 7-day window
//	total      = (trading + reputation + activity) * decayFactor
//
// Deterministic given the same signals, and monotone non-decreasing in
// each signal since every weight is non-negative.
func (s *Service) computeSnapshot(userID string) (*snapshot, error) {
	now := s.nowFn().UTC()

	var lastLogin, createdAt sql.NullTime
	err := s.db.QueryRow(`SELECT last_login, created_at FROM users WHERE id = ?`, userID).Scan(&lastLogin, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}

	weekAgo := now.AddDate(0, 0, -s.cfg.ActivityWindowDays).Format(sqliteTime)

	var stats models.RankingStats
	// MAX() strips the column's declared type, so the driver hands the
	// aggregate back as text; parse it ourselves.
	var lastCompletedRaw, lastReviewRaw sql.NullString

	err = s.db.QueryRow(`
        SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed_at >= ? THEN 1 ELSE 0 END), 0), MAX(completed_at)
        FROM transactions
        WHERE status = 'completed' AND (initiator_id = ? OR receiver_id = ?)`,
		weekAgo, userID, userID,
	).Scan(&stats.CompletedExchanges, &stats.WeeklyExchanges, &lastCompletedRaw)
	if err != nil {
		return nil, errors.Wrap(err, "count exchanges")
	}

	err = s.db.QueryRow(`
        SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0), MAX(created_at)
        FROM reviews WHERE reviewer_id = ?`,
		weekAgo, userID,
	).Scan(&stats.ReviewsGiven, &stats.WeeklyReviews, &lastReviewRaw)
	if err != nil {
		return nil, errors.Wrap(err, "count reviews")
	}

	lastCompleted := parseSQLiteTime(lastCompletedRaw)
	lastReview := parseSQLiteTime(lastReviewRaw)

	err = s.db.QueryRow(`SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE reviewed_id = ?`, userID).
		Scan(&stats.AverageRating)
	if err != nil {
		return nil, errors.Wrap(err, "average rating")
	}

	lastActivity := latestOf(lastLogin, createdAt, lastCompleted, lastReview)

	scores := models.RankingScores{
		Trading: s.cfg.Weights.CompletedExchange*float64(stats.CompletedExchanges) +
			s.cfg.Weights.WeeklyExchange*float64(stats.WeeklyExchanges),
		Reputation: s.cfg.Weights.AverageRating*stats.AverageRating +
			s.cfg.Weights.ReviewGiven*float64(stats.ReviewsGiven) +
			s.cfg.Weights.WeeklyReview*float64(stats.WeeklyReviews),
	}
	if !lastActivity.IsZero() && now.Sub(lastActivity) <= time.Duration(s.cfg.ActivityWindowDays)*24*time.Hour {
		scores.Activity = s.cfg.Weights.ActivityBonus
	}

	total := scores.Trading + scores.Reputation + scores.Activity
	total, decayed := s.applyDecay(total, lastActivity, now)

	return &snapshot{
		ranking: models.UserRanking{
			UserID:         userID,
			TotalScore:     total,
			Scores:         scores,
			Stats:          stats,
			LastActivity:   lastActivity,
			LastCalculated: now,
		},
		decayed: decayed,
	}, nil
}

// applyDecay reduces the score of users inactive past the threshold by a
// fixed percentage per elapsed full week. Never fires inside the window,
// never drives the score below zero.
func (s *Service) applyDecay(total float64, lastActivity time.Time, now time.Time) (float64, bool) {
	if lastActivity.IsZero() {
		return total, false
	}
	threshold := time.Duration(s.cfg.Decay.ThresholdDays) * 24 * time.Hour
	inactive := now.Sub(lastActivity)
	if inactive <= threshold {
		return total, false
	}
	weeks := int(inactive-threshold) / int(7*24*time.Hour)
	if weeks < 1 {
		return total, false
	}
	factor := math.Pow(1-s.cfg.Decay.RatePerWeek, float64(weeks))
	decayedScore := total * factor
	if decayedScore < 0 {
		decayedScore = 0
	}
	return decayedScore, true
}

func (s *Service) persistSnapshot(snap *snapshot) error {
	r := snap.ranking
	_, err := s.db.Exec(`
        INSERT INTO user_rankings (user_id, total_score, trading_score, reputation_score, activity_score,
            completed_exchanges, reviews_given, average_rating, weekly_exchanges, weekly_reviews,
            last_activity, last_calculated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            total_score = excluded.total_score,
            trading_score = excluded.trading_score,
            reputation_score = excluded.reputation_score,
            activity_score = excluded.activity_score,
            completed_exchanges = excluded.completed_exchanges,
            reviews_given = excluded.reviews_given,
            average_rating = excluded.average_rating,
            weekly_exchanges = excluded.weekly_exchanges,
            weekly_reviews = excluded.weekly_reviews,
            last_activity = excluded.last_activity,
            last_calculated = excluded.last_calculated`,
		r.UserID, r.TotalScore, r.Scores.Trading, r.Scores.Reputation, r.Scores.Activity,
		r.Stats.CompletedExchanges, r.Stats.ReviewsGiven, r.Stats.AverageRating,
		r.Stats.WeeklyExchanges, r.Stats.WeeklyReviews,
		r.LastActivity.UTC().Format(sqliteTime), r.LastCalculated.Format(sqliteTime),
	)
	return err
}

// UpdateAllUsers recomputes every user's score. A single user's failure
// is retried, then logged and skipped; it never aborts the batch. Returns
// the number of users successfully updated.
func (s *Service) UpdateAllUsers(ctx context.Context) (int, error) {
	updated, _, err := s.updateAll(ctx)
	return updated, err
}

func (s *Service) updateAll(ctx context.Context) (updated int, decayed int, err error) {
	rows, err := s.db.Query(`SELECT id FROM users`)
	if err != nil {
		return 0, 0, errors.Wrap(err, "list users")
	}
	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, 0, errors.Wrap(err, "scan user id")
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, errors.Wrap(err, "iterate users")
	}

	var updatedCount, decayedCount int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchWorkers)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			op := func() error {
				snap, err := s.updateOne(userID)
				if err != nil {
					if errors.Is(err, ErrUserNotFound) {
						// User vanished mid-batch; not retryable
						return backoff.Permanent(err)
					}
					return err
				}
				atomic.AddInt64(&updatedCount, 1)
				if snap.decayed {
					atomic.AddInt64(&decayedCount, 1)
				}
				return nil
			}
			policy := backoff.WithContext(
				backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.cfg.BatchRetries)), ctx)
			if err := backoff.Retry(op, policy); err != nil {
				metrics.IncrementRankingFailures()
				s.log.Warn("user_ranking_update_failed", "user_id", userID, "error", err.Error())
			}
			// Per-user failures are counted, never propagated
			return nil
		})
	}
	g.Wait()

	return int(atomic.LoadInt64(&updatedCount)), int(atomic.LoadInt64(&decayedCount)), nil
}

// rankedRow is the slice of a ranking row needed for reordering.
type rankedRow struct {
	userID     string
	totalScore float64
	rank       int
}

// RecalculateRankings loads every ranking snapshot, sorts by total score
// descending (ties broken by user id ascending, so equal scores always
// produce the same order), and persists rank, previous rank and tier in
// one transaction. Single-user updates landing mid-pass are reflected on
// the next pass; that staleness is accepted.
func (s *Service) RecalculateRankings() error {
	rows, err := s.db.Query(`SELECT user_id, total_score, rank FROM user_rankings`)
	if err != nil {
		return errors.Wrap(err, "load rankings")
	}
	var ranked []rankedRow
	for rows.Next() {
		var r rankedRow
		if err := rows.Scan(&r.userID, &r.totalScore, &r.rank); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan ranking")
		}
		ranked = append(ranked, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate rankings")
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].totalScore != ranked[j].totalScore {
			return ranked[i].totalScore > ranked[j].totalScore
		}
		return ranked[i].userID < ranked[j].userID
	})

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin rank transaction")
	}
	stmt, err := tx.Prepare(`UPDATE user_rankings SET rank = ?, previous_rank = ?, tier = ? WHERE user_id = ?`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare rank update")
	}
	defer stmt.Close()

	for i, r := range ranked {
		newRank := i + 1
		tier := s.cfg.TierFor(r.totalScore)
		if _, err := stmt.Exec(newRank, r.rank, tier, r.userID); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "update rank for %s", r.userID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit rank transaction")
	}

	s.log.Info("rankings_recalculated", "users", len(ranked))
	return nil
}

// DailyRankingUpdate is the scheduled driver: full score recompute
// followed by a rank recalculation. It never raises past its boundary;
// every failure lands in the result.
func (s *Service) DailyRankingUpdate(ctx context.Context) (result models.RankingUpdateResult) {
	result.Timestamp = s.nowFn().UTC()
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
			s.log.Error("daily_ranking_update_panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()

	s.log.Info("daily_ranking_update_started")

	updated, decayed, err := s.updateAll(ctx)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		s.log.Error("daily_ranking_update_failed", "stage", "update_all", "error", err.Error())
		return result
	}

	if err := s.RecalculateRankings(); err != nil {
		result.Success = false
		result.Error = err.Error()
		result.UsersUpdated = updated
		result.UsersDecayed = decayed
		s.log.Error("daily_ranking_update_failed", "stage", "recalculate", "error", err.Error())
		return result
	}

	result.Success = true
	result.UsersUpdated = updated
	result.UsersDecayed = decayed
	s.log.Info("daily_ranking_update_finished", "users_updated", updated, "users_decayed", decayed)
	return result
}

// GetUserRanking returns one user's snapshot, or (nil, nil) when the user
// has never been ranked. Callers surface that as "not yet ranked", not an
// error.
func (s *Service) GetUserRanking(userID string) (*models.UserRanking, error) {
	var r models.UserRanking
	var lastActivity, lastCalculated sql.NullTime
	err := s.db.QueryRow(`
        SELECT ur.user_id, u.username, ur.total_score, ur.trading_score, ur.reputation_score, ur.activity_score,
               ur.rank, ur.previous_rank, ur.tier, ur.completed_exchanges, ur.reviews_given, ur.average_rating,
               ur.weekly_exchanges, ur.weekly_reviews, ur.last_activity, ur.last_calculated
        FROM user_rankings ur JOIN users u ON u.id = ur.user_id
        WHERE ur.user_id = ?`, userID).Scan(
		&r.UserID, &r.Username, &r.TotalScore, &r.Scores.Trading, &r.Scores.Reputation, &r.Scores.Activity,
		&r.Rank, &r.PreviousRank, &r.Tier, &r.Stats.CompletedExchanges, &r.Stats.ReviewsGiven,
		&r.Stats.AverageRating, &r.Stats.WeeklyExchanges, &r.Stats.WeeklyReviews,
		&lastActivity, &lastCalculated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load user ranking")
	}
	if lastActivity.Valid {
		r.LastActivity = lastActivity.Time
	}
	if lastCalculated.Valid {
		r.LastCalculated = lastCalculated.Time
	}
	return &r, nil
}

// GetLeaderboard returns ranked users ordered by rank.
func (s *Service) GetLeaderboard(limit, offset int) ([]models.UserRanking, error) {
	rows, err := s.db.Query(`
        SELECT ur.user_id, u.username, ur.total_score, ur.trading_score, ur.reputation_score, ur.activity_score,
               ur.rank, ur.previous_rank, ur.tier, ur.completed_exchanges, ur.reviews_given, ur.average_rating,
               ur.weekly_exchanges, ur.weekly_reviews, ur.last_activity, ur.last_calculated
        FROM user_rankings ur JOIN users u ON u.id = ur.user_id
        WHERE ur.rank > 0
        ORDER BY ur.rank LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "load leaderboard")
	}
	defer rows.Close()

	entries := []models.UserRanking{}
	for rows.Next() {
		var r models.UserRanking
		var lastActivity, lastCalculated sql.NullTime
		err := rows.Scan(
			&r.UserID, &r.Username, &r.TotalScore, &r.Scores.Trading, &r.Scores.Reputation, &r.Scores.Activity,
			&r.Rank, &r.PreviousRank, &r.Tier, &r.Stats.CompletedExchanges, &r.Stats.ReviewsGiven,
			&r.Stats.AverageRating, &r.Stats.WeeklyExchanges, &r.Stats.WeeklyReviews,
			&lastActivity, &lastCalculated,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan leaderboard entry")
		}
		if lastActivity.Valid {
			r.LastActivity = lastActivity.Time
		}
		if lastCalculated.Valid {
			r.LastCalculated = lastCalculated.Time
		}
		entries = append(entries, r)
	}
	return entries, rows.Err()
}

// latestOf picks the most recent of the valid timestamps.
func latestOf(times ...sql.NullTime) time.Time {
	var latest time.Time
	for _, t := range times {
		if t.Valid && t.Time.After(latest) {
			latest = t.Time
		}
	}
	return latest
}

func parseSQLiteTime(raw sql.NullString) sql.NullTime {
	if !raw.Valid || raw.String == "" {
		return sql.NullTime{}
	}
	for _, layout := range []string{sqliteTime, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw.String); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}
