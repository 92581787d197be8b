package match_test

import (
	"testing"
	"time"

	"github.com/tuanle2204/BookSwap-Group07/internal/match"
	"github.com/tuanle2204/BookSwap-Group07/pkg/database"
	"github.com/tuanle2204/BookSwap-Group07/pkg/logger"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

func setupMatchTest(t *testing.T) func() {
	tmpDir := t.TempDir()
	if err := database.InitDatabase(tmpDir + "/test.db"); err != nil {
		t.Fatalf("init db: %v", err)
	}
	logger.Init(logger.INFO, false, nil)
	return func() { database.Close() }
}

func addUser(t *testing.T, id, email string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, 'hash')`,
		id, id, email)
	if err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}

func addBook(t *testing.T, id, ownerID, title, isbn, status string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO books (id, title, author, isbn, status, owner_id) VALUES (?, ?, 'Author', ?, ?, ?)`,
		id, title, isbn, status, ownerID)
	if err != nil {
		t.Fatalf("insert book %s: %v", id, err)
	}
}

func addWish(t *testing.T, userID, title, isbn string) {
	t.Helper()
	_, err := database.DB.Exec(
		`INSERT INTO wishlist_items (id, user_id, title, isbn) VALUES (?, ?, ?, ?)`,
		userID+"-wish-"+title+isbn, userID, title, isbn)
	if err != nil {
		t.Fatalf("insert wishlist item: %v", err)
	}
}

func TestMatch_TitleSubstringCaseInsensitive(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "b1", "bob", "DUNE MESSIAH", "", "available")
	addWish(t, "alice", "dune", "")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Book.ID != "b1" {
		t.Errorf("expected book b1, got %s", results[0].Book.ID)
	}
	if results[0].MatchType != models.MatchTypeWishlist {
		t.Errorf("expected wishlist match, got %s", results[0].MatchType)
	}
	if results[0].MatchedOn != "dune" {
		t.Errorf("expected matched_on 'dune', got %q", results[0].MatchedOn)
	}
}

func TestMatch_ISBN10MatchesISBN13(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	// Same edition, one side lists the ISBN-10, the other the ISBN-13
	addBook(t, "b1", "bob", "Some Retitled Edition", "9780441172719", "available")
	addWish(t, "alice", "", "0-441-17271-7")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match via ISBN normalization, got %d", len(results))
	}
}

func TestMatch_ExcludesOwnAndUnavailableBooks(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "own", "alice", "Dune", "", "available")
	addBook(t, "pending", "bob", "Dune", "", "pending")
	addBook(t, "exchanged", "bob", "Dune", "", "exchanged")
	addBook(t, "ok", "bob", "Dune", "", "available")
	addWish(t, "alice", "Dune", "")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the available book, got %d matches", len(results))
	}
	if results[0].Book.ID != "ok" {
		t.Errorf("expected book 'ok', got %s", results[0].Book.ID)
	}
}

func TestMatch_BlockedUsersExcludedBothDirections(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "blocker", "blocker@example.com")
	addUser(t, "blocked", "blocked@example.com")
	addBook(t, "b1", "blocker", "Dune", "", "available")
	addBook(t, "b2", "blocked", "Dune", "", "available")
	addWish(t, "alice", "Dune", "")

	// alice blocked one owner; the other owner blocked alice
	database.DB.Exec(`INSERT INTO blocked_users (user_id, blocked_id) VALUES ('alice', 'blocked')`)
	database.DB.Exec(`INSERT INTO blocked_users (user_id, blocked_id) VALUES ('blocker', 'alice')`)

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches across block relationships, got %d", len(results))
	}
}

func TestMatch_BookAppearsOnceForMultipleEntries(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "b1", "bob", "Dune", "9780441172719", "available")
	// Both entries hit the same book
	addWish(t, "alice", "Dune", "")
	addWish(t, "alice", "", "9780441172719")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected book to appear exactly once, got %d results", len(results))
	}
}

func TestMatch_PromotedBooksRankFirst(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The plain book is newer; the promoted one must still come first
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, created_at) VALUES ('plain', 'Dune', 'bob', 'available', '2026-02-28 12:00:00')`)
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, created_at, promoted_at, promoted_until)
         VALUES ('promoted', 'Dune', 'bob', 'available', '2026-02-01 12:00:00', '2026-02-27 12:00:00', '2026-03-06 12:00:00')`)
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, created_at, promoted_at, promoted_until)
         VALUES ('expired', 'Dune', 'bob', 'available', '2026-02-27 12:00:00', '2026-01-01 12:00:00', '2026-01-08 12:00:00')`)
	addWish(t, "alice", "Dune", "")

	svc := match.NewServiceWithClock(database.DB, func() time.Time { return now })
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(results))
	}
	if results[0].Book.ID != "promoted" {
		t.Errorf("expected promoted book first, got %s", results[0].Book.ID)
	}
	// Expired promotions fall back to recency ordering
	if results[1].Book.ID != "plain" || results[2].Book.ID != "expired" {
		t.Errorf("expected [plain expired] after promoted, got [%s %s]", results[1].Book.ID, results[2].Book.ID)
	}
}

func TestMatch_UnknownUserReturnsError(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	svc := match.NewService(database.DB)
	_, err := svc.GetMatchingOffers("ghost", match.Options{})
	if err != match.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMatch_ResolvesUserByEmail(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "b1", "bob", "Dune", "", "available")
	addWish(t, "alice", "Dune", "")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice@example.com", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 match via email lookup, got %d", len(results))
	}
}

func TestMatch_EmptyWishlistYieldsEmptyList(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "b1", "bob", "Dune", "", "available")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches, got %d", len(results))
	}
}

func TestMatch_GenreSuggestionsAppendedAfterWishlistHits(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	_, err := database.DB.Exec(
		`INSERT INTO users (id, username, email, password_hash, preferences) VALUES ('alice', 'alice', 'alice@example.com', 'hash', '["Science Fiction"]')`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	addUser(t, "bob", "bob@example.com")
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, genres) VALUES ('wish-hit', 'Dune', 'bob', 'available', '["Science Fiction"]')`)
	database.DB.Exec(
		`INSERT INTO books (id, title, owner_id, status, genres) VALUES ('genre-hit', 'Hyperion', 'bob', 'available', '["Science Fiction"]')`)
	addWish(t, "alice", "Dune", "")

	svc := match.NewService(database.DB)

	// Without the option only the wishlist hit shows up
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 wishlist match, got %d", len(results))
	}

	results, err = svc.GetMatchingOffers("alice", match.Options{IncludeGenres: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected wishlist + genre match, got %d", len(results))
	}
	if results[0].MatchType != models.MatchTypeWishlist {
		t.Errorf("expected wishlist match first, got %s", results[0].MatchType)
	}
	if results[1].MatchType != models.MatchTypeGenre {
		t.Errorf("expected genre suggestion second, got %s", results[1].MatchType)
	}
	if results[1].Book.ID != "genre-hit" {
		t.Errorf("expected genre-hit book, got %s", results[1].Book.ID)
	}
}

func TestMatch_OwnerEmailHiddenUnlessOptedIn(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	database.DB.Exec(
		`INSERT INTO users (id, username, email, password_hash, show_email) VALUES ('open', 'open', 'open@example.com', 'hash', 1)`)
	database.DB.Exec(
		`INSERT INTO users (id, username, email, password_hash, show_email) VALUES ('private', 'private', 'private@example.com', 'hash', 0)`)
	addBook(t, "b1", "open", "Dune", "", "available")
	addBook(t, "b2", "private", "Dune", "", "available")
	addWish(t, "alice", "Dune", "")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	for _, r := range results {
		switch r.Owner.ID {
		case "open":
			if r.Owner.Email != "open@example.com" {
				t.Errorf("expected opted-in owner email, got %q", r.Owner.Email)
			}
		case "private":
			if r.Owner.Email != "" {
				t.Errorf("expected private owner email hidden, got %q", r.Owner.Email)
			}
		}
	}
}

func TestMatch_LimitCapsResults(t *testing.T) {
	cleanup := setupMatchTest(t)
	defer cleanup()

	addUser(t, "alice", "alice@example.com")
	addUser(t, "bob", "bob@example.com")
	addBook(t, "b1", "bob", "Dune", "", "available")
	addBook(t, "b2", "bob", "Dune Messiah", "", "available")
	addBook(t, "b3", "bob", "Children of Dune", "", "available")
	addWish(t, "alice", "Dune", "")

	svc := match.NewService(database.DB)
	results, err := svc.GetMatchingOffers("alice", match.Options{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(results))
	}
}
