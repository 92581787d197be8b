package cli

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	matchGenres bool
	matchLimit  int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find books matching your wishlist",
	Long:  `Match your wishlist against books other users have made available.`,
}

var matchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List current matches",
	Long:  `Show available books that match your wishlist by title or ISBN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/matches?limit=%d", matchLimit)
		if matchGenres {
			path += "&include_genres=true"
		}

		status, body, err := authorizedRequest(http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			printError(fmt.Sprintf("Failed to fetch matches: %s", apiError(body)))
			return fmt.Errorf("match failed")
		}

		var result struct {
			Matches []struct {
				Book struct {
					ID     string `json:"id"`
					Title  string `json:"title"`
					Author string `json:"author"`
				} `json:"book"`
				Owner struct {
					Username string `json:"username"`
					Email    string `json:"email,omitempty"`
				} `json:"owner"`
				MatchType string `json:"match_type"`
				MatchedOn string `json:"matched_on"`
			} `json:"matches"`
			Count int `json:"count"`
		}
		json.Unmarshal(body, &result)

		if result.Count == 0 {
			fmt.Println("No matches right now.")
			fmt.Println("Add wishlist entries and check back later.")
			return nil
		}

		fmt.Printf("Found %d match(es):\n\n", result.Count)
		for _, m := range result.Matches {
			fmt.Printf("  %s by %s\n", m.Book.Title, m.Book.Author)
			fmt.Printf("    Owner:   %s", m.Owner.Username)
			if m.Owner.Email != "" {
				fmt.Printf(" <%s>", m.Owner.Email)
			}
			fmt.Println()
			fmt.Printf("    Matched: %s (%s)\n", m.MatchedOn, m.MatchType)
			fmt.Printf("    Book ID: %s\n\n", m.Book.ID)
		}
		return nil
	},
}

func init() {
	matchListCmd.Flags().BoolVar(&matchGenres, "genres", false, "Include genre-based suggestions")
	matchListCmd.Flags().IntVar(&matchLimit, "limit", 20, "Maximum number of matches")

	matchCmd.AddCommand(matchListCmd)
}
