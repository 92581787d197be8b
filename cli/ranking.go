package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tuanle2204/BookSwap-Group07/cli/config"
)

var leaderboardLimit int

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Leaderboard and ranking commands",
	Long:  `View the community leaderboard and your own ranking.`,
}

var rankingLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the leaderboard",
	Long:  `Show the top ranked users by total score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: bookswap init")
			return err
		}

		client := http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(fmt.Sprintf("%s/rankings/leaderboard?limit=%d", serverURL, leaderboardLimit))
		if err != nil {
			printError("Failed to fetch leaderboard: Server connection error")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Failed to fetch leaderboard: %s", apiError(body)))
			return fmt.Errorf("leaderboard failed")
		}

		var result struct {
			Leaderboard []struct {
				Rank       int     `json:"rank"`
				Username   string  `json:"username"`
				TotalScore float64 `json:"total_score"`
				Tier       string  `json:"tier"`
			} `json:"leaderboard"`
			Count int `json:"count"`
		}
		json.Unmarshal(body, &result)

		if result.Count == 0 {
			fmt.Println("Leaderboard is empty. Rankings have not been calculated yet.")
			return nil
		}

		fmt.Println("BookSwap Leaderboard")
		fmt.Println("--------------------")
		for _, e := range result.Leaderboard {
			fmt.Printf("  #%-4d %-20s %8.1f  [%s]\n", e.Rank, e.Username, e.TotalScore, e.Tier)
		}
		return nil
	},
}

var rankingMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your ranking",
	Long:  `Show your current rank, score breakdown, and tier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, body, err := authorizedRequest(http.MethodGet, "/rankings/me", nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			printError(fmt.Sprintf("Failed to fetch ranking: %s", apiError(body)))
			return fmt.Errorf("ranking failed")
		}

		var result struct {
			Ranked  bool `json:"ranked"`
			Ranking struct {
				Rank       int     `json:"rank"`
				TotalScore float64 `json:"total_score"`
				Tier       string  `json:"tier"`
				Scores     struct {
					Trading    float64 `json:"trading"`
					Reputation float64 `json:"reputation"`
					Activity   float64 `json:"activity"`
				} `json:"scores"`
			} `json:"ranking"`
		}
		json.Unmarshal(body, &result)

		if !result.Ranked {
			fmt.Println("You have not been ranked yet.")
			fmt.Println("Rankings are calculated daily; complete an exchange to get started.")
			return nil
		}

		r := result.Ranking
		fmt.Println("Your Ranking")
		fmt.Println("------------")
		fmt.Printf("  Rank:  #%d\n", r.Rank)
		fmt.Printf("  Tier:  %s\n", r.Tier)
		fmt.Printf("  Score: %.1f\n", r.TotalScore)
		fmt.Println("\nBreakdown:")
		fmt.Printf("  Trading:    %.1f\n", r.Scores.Trading)
		fmt.Printf("  Reputation: %.1f\n", r.Scores.Reputation)
		fmt.Printf("  Activity:   %.1f\n", r.Scores.Activity)
		return nil
	},
}

var rankingUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Trigger the daily ranking update",
	Long:  `Trigger the daily ranking update on the server. Requires the admin cron secret in config (admin.cron_secret).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("Configuration not initialized")
			return err
		}
		if cfg.Admin.CronSecret == "" {
			printError("admin.cron_secret is not set in config")
			fmt.Println("Set it: bookswap config set admin.cron_secret <secret>")
			return fmt.Errorf("missing cron secret")
		}

		serverURL, _ := config.GetServerURL()
		req, _ := http.NewRequest(http.MethodPost, serverURL+"/admin/rankings/daily", nil)
		req.Header.Set("Authorization", "Bearer "+cfg.Admin.CronSecret)

		client := http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			printError("Update failed: Server connection error")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)

		var result struct {
			Success      bool   `json:"success"`
			UsersUpdated int    `json:"users_updated"`
			UsersDecayed int    `json:"users_decayed"`
			Error        string `json:"error"`
		}
		json.Unmarshal(body, &result)

		if !result.Success {
			printError(fmt.Sprintf("Ranking update failed: %s", result.Error))
			return fmt.Errorf("update failed")
		}

		printSuccess("Ranking update complete!")
		fmt.Printf("  Users updated: %d\n", result.UsersUpdated)
		fmt.Printf("  Users decayed: %d\n", result.UsersDecayed)
		return nil
	},
}

func init() {
	rankingLeaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 20, "Number of entries to show")

	rankingCmd.AddCommand(rankingLeaderboardCmd)
	rankingCmd.AddCommand(rankingMeCmd)
	rankingCmd.AddCommand(rankingUpdateCmd)
}
