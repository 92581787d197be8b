package book

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

// ExternalSource backfills book metadata from a public catalog when a
// listing is created with an ISBN but sparse fields.
type ExternalSource interface {
	LookupISBN(ctx context.Context, isbn string) (*models.Book, error)
}

type OpenLibrarySource struct {
	BaseURL string
	Client  *http.Client
}

func NewOpenLibrarySource() *OpenLibrarySource {
	return &OpenLibrarySource{
		BaseURL: "https://openlibrary.org",
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type openLibraryBookRes struct {
	Title   string `json:"title"`
	Covers  []int  `json:"covers"`
	Authors []struct {
		Key string `json:"key"`
	} `json:"authors"`
	Subjects []string `json:"subjects"`
}

// LookupISBN fetches title, subjects and cover for a normalized ISBN.
// Author resolution needs a second request per author key, which is not
// worth it for a backfill; the caller's author field wins.
func (s *OpenLibrarySource) LookupISBN(ctx context.Context, isbnCode string) (*models.Book, error) {
	url := fmt.Sprintf("%s/isbn/%s.json", s.BaseURL, strings.TrimSpace(isbnCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("isbn %s not found", isbnCode)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open library returned status %d", res.StatusCode)
	}

	var body openLibraryBookRes
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode open library response: %w", err)
	}

	book := &models.Book{
		Title: body.Title,
		ISBN:  isbnCode,
	}
	if len(body.Covers) > 0 {
		book.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", body.Covers[0])
	}
	// Subjects are noisy; keep the first few as genre hints
	for i, subject := range body.Subjects {
		if i >= 5 {
			break
		}
		book.Genres = append(book.Genres, subject)
	}
	return book, nil
}
