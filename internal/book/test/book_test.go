package book_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tuanle2204/BookSwap-Group07/internal/book"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
)

func setupBookTest(t *testing.T) (*book.MockExternalSource, *gin.Engine, func()) {
	tmpDir := t.TempDir()
	if err := database.InitDatabase(tmpDir + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	logger.Init(logger.INFO, false, nil)
	gin.SetMode(gin.TestMode)

	database.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('alice', 'alice', 'alice@example.com', 'hash')`)
	database.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('bob', 'bob', 'bob@example.com', 'hash')`)

	mock := book.NewMockExternalSource()
	handler := book.NewHandler(mock)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "alice")
		c.Next()
	})
	router.GET("/books", handler.SearchBooks)
	router.GET("/books/:id", handler.GetBookByID)
	router.POST("/books", handler.CreateBook)
	router.PUT("/books/:id", handler.UpdateBook)
	router.DELETE("/books/:id", handler.DeleteBook)
	router.POST("/books/:id/promote", handler.PromoteBook)

	return mock, router, func() { database.Close() }
}

func postJSON(router *gin.Engine, path string, payload map[string]interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestNormalizeISBN(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"9780441172719", "9780441172719", false},
		{"978-0-441-17271-9", "9780441172719", false},
		{"0-441-17271-7", "9780441172719", false}, // ISBN-10 upgrades to 13
		{"044117271X", "", true},                  // bad check digit
		{"12345", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := book.NormalizeISBN(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeISBN(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeISBN(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeISBN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateBookBackfillsFromExternalSource(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	resp := postJSON(router, "/books", map[string]interface{}{
		"title":  "Dune",
		"author": "Frank Herbert",
		"isbn":   "0-441-17271-7",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(resp.Body.Bytes(), &created)

	var isbn, genres, coverURL string
	err := database.DB.QueryRow(`SELECT isbn, genres, cover_url FROM books WHERE id = ?`, created.ID).
		Scan(&isbn, &genres, &coverURL)
	if err != nil {
		t.Fatalf("load created book: %v", err)
	}
	if isbn != "9780441172719" {
		t.Errorf("stored isbn = %s, want normalized 9780441172719", isbn)
	}
	if coverURL == "" {
		t.Error("cover_url was not backfilled from the external source")
	}
	if genres == "" || genres == "[]" || genres == "null" {
		t.Errorf("genres were not backfilled: %q", genres)
	}
}

func TestCreateBookSurvivesLookupFailure(t *testing.T) {
	mock, router, cleanup := setupBookTest(t)
	defer cleanup()
	mock.ShouldFailLookup = true

	resp := postJSON(router, "/books", map[string]interface{}{
		"title":  "Dune",
		"author": "Frank Herbert",
		"isbn":   "9780441172719",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("lookup failure must not block listing: got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateBookRejectsInvalidISBN(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	resp := postJSON(router, "/books", map[string]interface{}{
		"title":  "Dune",
		"author": "Frank Herbert",
		"isbn":   "044117271X",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid isbn, got %d", resp.Code)
	}
}

func TestSearchRanksPromotedListingsFirst(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	// The promoted listing is older than the plain one
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, created_at) VALUES ('plain', 'Dune', 'bob', 'available', '2026-02-28 12:00:00')`)
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, created_at, promoted_until)
         VALUES ('promoted', 'Dune Messiah', 'bob', 'available', '2026-01-01 12:00:00', '2999-01-01 00:00:00')`)

	req := httptest.NewRequest("GET", "/books?title=Dune", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result struct {
		Books []struct {
			ID string `json:"id"`
		} `json:"books"`
		Count int `json:"count"`
	}
	json.Unmarshal(resp.Body.Bytes(), &result)
	if result.Count != 2 {
		t.Fatalf("expected 2 books, got %d", result.Count)
	}
	if result.Books[0].ID != "promoted" {
		t.Errorf("expected promoted listing first, got %s", result.Books[0].ID)
	}
}

func TestSearchExcludesRemovedBooks(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	database.DB.Exec(`INSERT INTO books (id, title, owner_id, status) VALUES ('gone', 'Dune', 'bob', 'removed')`)
	database.DB.Exec(`INSERT INTO books (id, title, owner_id, status) VALUES ('here', 'Dune', 'bob', 'available')`)

	req := httptest.NewRequest("GET", "/books?title=Dune", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var result struct {
		Books []struct {
			ID string `json:"id"`
		} `json:"books"`
	}
	json.Unmarshal(resp.Body.Bytes(), &result)
	if len(result.Books) != 1 || result.Books[0].ID != "here" {
		t.Errorf("removed books must not be searchable: %+v", result.Books)
	}
}

func TestOwnerOnlyMutations(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	// Owned by bob, caller is alice
	database.DB.Exec(`INSERT INTO books (id, title, owner_id, status) VALUES ('bobs', 'Dune', 'bob', 'available')`)

	body, _ := json.Marshal(map[string]interface{}{"title": "Hijacked"})
	req := httptest.NewRequest("PUT", "/books/bobs", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Errorf("update: expected 403, got %d", resp.Code)
	}

	req = httptest.NewRequest("DELETE", "/books/bobs", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Errorf("delete: expected 403, got %d", resp.Code)
	}

	if r := postJSON(router, "/books/bobs/promote", map[string]interface{}{"days": 7}); r.Code != http.StatusForbidden {
		t.Errorf("promote: expected 403, got %d", r.Code)
	}
}

func TestGetBookBumpsViewCount(t *testing.T) {
	_, router, cleanup := setupBookTest(t)
	defer cleanup()

	database.DB.Exec(`INSERT INTO books (id, title, owner_id, status) VALUES ('bk1', 'Dune', 'bob', 'available')`)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/books/bk1", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	}

	var views int
	database.DB.QueryRow(`SELECT view_count FROM books WHERE id = 'bk1'`).Scan(&views)
	if views != 3 {
		t.Errorf("view_count = %d, want 3", views)
	}
}
