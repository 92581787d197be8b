package ranking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tuanle2204/BookSwap-Group07/pkg/config"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

// Weights are the fixed multipliers combining activity signals into the
// composite score. Every weight is non-negative, which keeps the total
// monotonically non-decreasing in each signal.
type Weights struct {
	CompletedExchange float64 `yaml:"completed_exchange"`
	WeeklyExchange    float64 `yaml:"weekly_exchange"`
	AverageRating     float64 `yaml:"average_rating"`
	ReviewGiven       float64 `yaml:"review_given"`
	WeeklyReview      float64 `yaml:"weekly_review"`
	ActivityBonus     float64 `yaml:"activity_bonus"`
}

// Decay controls the score reduction applied to inactive users.
type Decay struct {
	// ThresholdDays is the inactivity window; no decay fires inside it.
	ThresholdDays int `yaml:"threshold_days"`
	// RatePerWeek is the fractional reduction per full week past the
	// threshold (0.05 = 5% per week).
	RatePerWeek float64 `yaml:"rate_per_week"`
}

// Tiers are the score cutoffs for each bucket. A score below Silver is
// bronze; at or above Platinum is platinum.
type Tiers struct {
	Silver   float64 `yaml:"silver"`
	Gold     float64 `yaml:"gold"`
	Platinum float64 `yaml:"platinum"`
}

type Config struct {
	Weights Weights `yaml:"weights"`
	Decay   Decay   `yaml:"decay"`
	Tiers   Tiers   `yaml:"tiers"`
	// ActivityWindowDays bounds the "recently active" bonus and the
	// weekly rolling counters.
	ActivityWindowDays int `yaml:"activity_window_days"`
	// BatchWorkers bounds concurrent per-user updates in the batch pass.
	BatchWorkers int `yaml:"batch_workers"`
	// BatchRetries is the number of retries per user on transient store
	// errors before the user is counted as failed.
	BatchRetries int `yaml:"batch_retries"`
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			CompletedExchange: 10,
			WeeklyExchange:    5,
			AverageRating:     20,
			ReviewGiven:       2,
			WeeklyReview:      2,
			ActivityBonus:     15,
		},
		Decay: Decay{
			ThresholdDays: 30,
			RatePerWeek:   0.05,
		},
		Tiers: Tiers{
			Silver:   100,
			Gold:     250,
			Platinum: 500,
		},
		ActivityWindowDays: 7,
		BatchWorkers:       4,
		BatchRetries:       2,
	}
}

// LoadConfig reads an optional YAML file and applies environment
// overrides on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read ranking config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse ranking config: %w", err)
		}
	}

	cfg.Decay.ThresholdDays = config.GetEnvInt("RANKING_DECAY_THRESHOLD_DAYS", cfg.Decay.ThresholdDays)
	cfg.Decay.RatePerWeek = config.GetEnvFloat("RANKING_DECAY_RATE", cfg.Decay.RatePerWeek)
	cfg.BatchWorkers = config.GetEnvInt("RANKING_BATCH_WORKERS", cfg.BatchWorkers)
	cfg.BatchRetries = config.GetEnvInt("RANKING_BATCH_RETRIES", cfg.BatchRetries)
	return cfg, nil
}

// TierFor buckets a total score. Tier depends only on the score, never on
// rank position.
func (c Config) TierFor(score float64) string {
	switch {
	case score >= c.Tiers.Platinum:
		return models.TierPlatinum
	case score >= c.Tiers.Gold:
		return models.TierGold
	case score >= c.Tiers.Silver:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}
