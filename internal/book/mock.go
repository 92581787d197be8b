package book

import (
	"context"
	"fmt"

	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

// MockExternalSource implements ExternalSource for testing
type MockExternalSource struct {
	Books map[string]*models.Book

	// Control flag for testing error scenarios
	ShouldFailLookup bool
}

func NewMockExternalSource() *MockExternalSource {
	return &MockExternalSource{
		Books: map[string]*models.Book{
			"9780441172719": {
				Title:    "Dune",
				ISBN:     "9780441172719",
				Genres:   []string{"Science Fiction"},
				CoverURL: "https://covers.openlibrary.org/b/id/11481354-L.jpg",
			},
		},
	}
}

func (m *MockExternalSource) LookupISBN(ctx context.Context, isbn string) (*models.Book, error) {
	if m.ShouldFailLookup {
		return nil, fmt.Errorf("mock lookup error")
	}
	b, ok := m.Books[isbn]
	if !ok {
		return nil, fmt.Errorf("isbn %s not found", isbn)
	}
	return b, nil
}
