package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tuanle2204/BookSwap-Group07/cli/config"
)

var (
	bookTitle     string
	bookAuthor    string
	bookISBN      string
	bookGenres    string
	bookCondition string
	promoteDays   int
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage book listings",
	Long:  `Search the catalog and manage your own book listings.`,
}

var bookSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search available books",
	Long:  `Search the catalog by title. Promoted listings appear first.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: bookswap init")
			return err
		}

		query := strings.Join(args, " ")
		client := http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(serverURL + "/books?title=" + url.QueryEscape(query))
		if err != nil {
			printError("Search failed: Server connection error")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Search failed: %s", apiError(body)))
			return fmt.Errorf("search failed")
		}

		var result struct {
			Books []struct {
				ID     string `json:"id"`
				Title  string `json:"title"`
				Author string `json:"author"`
				ISBN   string `json:"isbn"`
				Status string `json:"status"`
			} `json:"books"`
			Count int `json:"count"`
		}
		json.Unmarshal(body, &result)

		if result.Count == 0 {
			fmt.Println("No books found.")
			return nil
		}

		fmt.Printf("Found %d book(s):\n\n", result.Count)
		for _, b := range result.Books {
			fmt.Printf("  %s\n", b.Title)
			fmt.Printf("    Author: %s\n", b.Author)
			if b.ISBN != "" {
				fmt.Printf("    ISBN:   %s\n", b.ISBN)
			}
			fmt.Printf("    ID:     %s\n\n", b.ID)
		}
		return nil
	},
}

var bookAddCmd = &cobra.Command{
	Use:   "add",
	Short: "List a book for exchange",
	Long:  `Add a book to your listings. If an ISBN is given, missing details are filled in from Open Library.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bookTitle == "" && bookISBN == "" {
			return fmt.Errorf("title or isbn is required (--title / --isbn)")
		}

		payload := map[string]interface{}{
			"title":     bookTitle,
			"author":    bookAuthor,
			"isbn":      bookISBN,
			"condition": bookCondition,
		}
		if bookGenres != "" {
			payload["genres"] = strings.Split(bookGenres, ",")
		}

		status, body, err := authorizedRequest(http.MethodPost, "/books", payload)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			printError(fmt.Sprintf("Failed to add book: %s", apiError(body)))
			return fmt.Errorf("add failed")
		}

		var res struct {
			ID string `json:"id"`
		}
		json.Unmarshal(body, &res)

		printSuccess("Book listed!")
		fmt.Printf("Book ID: %s\n", res.ID)
		return nil
	},
}

var bookMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your books",
	Long:  `Show all books you have listed, including pending and exchanged ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, body, err := authorizedRequest(http.MethodGet, "/users/me/books", nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			printError(fmt.Sprintf("Failed to list books: %s", apiError(body)))
			return fmt.Errorf("list failed")
		}

		var result struct {
			Books []struct {
				ID     string `json:"id"`
				Title  string `json:"title"`
				Author string `json:"author"`
				Status string `json:"status"`
			} `json:"books"`
			Count int `json:"count"`
		}
		json.Unmarshal(body, &result)

		if result.Count == 0 {
			fmt.Println("You have no listed books.")
			fmt.Println("Add one: bookswap book add --title \"...\" --author \"...\"")
			return nil
		}

		fmt.Printf("Your books (%d):\n\n", result.Count)
		for _, b := range result.Books {
			fmt.Printf("  [%s] %s by %s (%s)\n", b.Status, b.Title, b.Author, b.ID)
		}
		return nil
	},
}

var bookPromoteCmd = &cobra.Command{
	Use:   "promote [book-id]",
	Short: "Promote a listing",
	Long:  `Promote one of your listings so it ranks ahead of regular results for a number of days.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]interface{}{"days": promoteDays}
		status, body, err := authorizedRequest(http.MethodPost, "/books/"+args[0]+"/promote", payload)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			printError(fmt.Sprintf("Failed to promote book: %s", apiError(body)))
			return fmt.Errorf("promote failed")
		}

		printSuccess(fmt.Sprintf("Book promoted for %d day(s)!", promoteDays))
		return nil
	},
}

func init() {
	bookAddCmd.Flags().StringVar(&bookTitle, "title", "", "Book title")
	bookAddCmd.Flags().StringVar(&bookAuthor, "author", "", "Book author")
	bookAddCmd.Flags().StringVar(&bookISBN, "isbn", "", "ISBN-10 or ISBN-13")
	bookAddCmd.Flags().StringVar(&bookGenres, "genres", "", "Comma-separated genres")
	bookAddCmd.Flags().StringVar(&bookCondition, "condition", "good", "Condition (new, like_new, good, fair, poor)")
	bookPromoteCmd.Flags().IntVar(&promoteDays, "days", 7, "Days to promote the listing")

	bookCmd.AddCommand(bookSearchCmd)
	bookCmd.AddCommand(bookAddCmd)
	bookCmd.AddCommand(bookMineCmd)
	bookCmd.AddCommand(bookPromoteCmd)
}
