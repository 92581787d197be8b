package match

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/moraes/isbn"
	"github.com/pkg/errors"
	"github.com/tuanle2204/BookSwap-Group07/pkg/models"
)

// ErrUserNotFound is returned when the requesting user identifier does not
// resolve to an existing account.
var ErrUserNotFound = errors.New("user not found")

// Options tune a matching pass.
type Options struct {
	// IncludeGenres appends genre-based suggestions (books whose genres
	// intersect the requester's preference genres) after the wishlist hits.
	IncludeGenres bool
	// Limit caps the number of results; 0 means no cap.
	Limit int
}

// Service produces candidate exchange offers for a user's wishlist.
// Matching is a pure read: it never writes and reflects store state at
// call time.
type Service struct {
	db    *sql.DB
	nowFn func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, nowFn: time.Now}
}

// NewServiceWithClock is used by tests to pin the promotion-window clock.
func NewServiceWithClock(db *sql.DB, nowFn func() time.Time) *Service {
	return &Service{db: db, nowFn: nowFn}
}

type requester struct {
	ID          string
	Preferences []string
}

// GetMatchingOffers matches the user's wishlist against other users'
// available books.
//
// Matching policy (documented design choices):
//   - A wishlist entry matches a book when the entry title is a
//     case-insensitive substring of the book title, or when both carry an
//     ISBN and the codes are equal after normalizing to ISBN-13.
//   - A book appears at most once even if several wishlist entries hit it.
//   - Ordering: promoted books (promoted_until > now) first, then most
//     recently listed. The ORDER BY runs in SQL so the Go-side filter
//     preserves it.
//
// The identifier may be a user id or an email address.
func (s *Service) GetMatchingOffers(identifier string, opts Options) ([]models.MatchResult, error) {
	req, err := s.resolveUser(identifier)
	if err != nil {
		return nil, err
	}

	wishlist, err := s.loadWishlist(req.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load wishlist")
	}

	candidates, err := s.loadCandidates(req.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load candidate books")
	}

	results := []models.MatchResult{}
	seen := map[string]bool{}

	for _, cand := range candidates {
		for _, entry := range wishlist {
			matched, matchedOn := entryMatches(entry, &cand.book)
			if !matched {
				continue
			}
			if seen[cand.book.ID] {
				break
			}
			seen[cand.book.ID] = true
			results = append(results, models.MatchResult{
				Book:      cand.book,
				Owner:     cand.owner,
				MatchType: models.MatchTypeWishlist,
				MatchedOn: matchedOn,
			})
			break
		}
	}

	if opts.IncludeGenres && len(req.Preferences) > 0 {
		for _, cand := range candidates {
			if seen[cand.book.ID] {
				continue
			}
			if genre, ok := genresIntersect(req.Preferences, cand.book.Genres); ok {
				seen[cand.book.ID] = true
				results = append(results, models.MatchResult{
					Book:      cand.book,
					Owner:     cand.owner,
					MatchType: models.MatchTypeGenre,
					MatchedOn: genre,
				})
			}
		}
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (s *Service) resolveUser(identifier string) (*requester, error) {
	column := "id"
	if strings.Contains(identifier, "@") {
		column = "email"
	}
	var r requester
	var prefsJSON string
	err := s.db.QueryRow(`SELECT id, preferences FROM users WHERE `+column+` = ?`, identifier).
		Scan(&r.ID, &prefsJSON)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolve user")
	}
	if prefsJSON != "" {
		json.Unmarshal([]byte(prefsJSON), &r.Preferences)
	}
	return &r, nil
}

func (s *Service) loadWishlist(userID string) ([]models.WishlistItem, error) {
	rows, err := s.db.Query(`SELECT id, user_id, title, author, isbn, position, created_at FROM wishlist_items WHERE user_id = ? ORDER BY position, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Author, &item.ISBN, &item.Position, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type candidate struct {
	book  models.Book
	owner models.MatchOwner
}

// loadCandidates returns every available book not owned by the requester
// and not owned by anyone in either direction of the block relationship,
// ordered promoted-first then freshest-first.
func (s *Service) loadCandidates(userID string) ([]candidate, error) {
	query := `
        SELECT b.id, b.title, b.author, b.isbn, b.genres, b.description, b.condition,
               b.cover_url, b.status, b.owner_id, b.view_count, b.promoted_at, b.promoted_until, b.created_at,
               u.id, u.username, u.email, u.location, u.profile_image, u.average_rating, u.show_email
        FROM books b
        JOIN users u ON u.id = b.owner_id
        WHERE b.status = 'available'
          AND b.owner_id != ?
          AND b.owner_id NOT IN (SELECT blocked_id FROM blocked_users WHERE user_id = ?)
          AND b.owner_id NOT IN (SELECT user_id FROM blocked_users WHERE blocked_id = ?)
        ORDER BY CASE WHEN b.promoted_until > ? THEN 0 ELSE 1 END, b.created_at DESC`

	now := s.nowFn().UTC().Format("2006-01-02 15:04:05")
	rows, err := s.db.Query(query, userID, userID, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var c candidate
		var genresJSON string
		var promotedAt, promotedUntil sql.NullTime
		var ownerEmail string
		var showEmail bool
		err := rows.Scan(
			&c.book.ID, &c.book.Title, &c.book.Author, &c.book.ISBN, &genresJSON,
			&c.book.Description, &c.book.Condition, &c.book.CoverURL, &c.book.Status,
			&c.book.OwnerID, &c.book.ViewCount, &promotedAt, &promotedUntil, &c.book.CreatedAt,
			&c.owner.ID, &c.owner.Username, &ownerEmail, &c.owner.Location,
			&c.owner.ProfileImage, &c.owner.AverageRating, &showEmail,
		)
		if err != nil {
			return nil, err
		}
		if genresJSON != "" {
			json.Unmarshal([]byte(genresJSON), &c.book.Genres)
		}
		if promotedAt.Valid {
			c.book.PromotedAt = &promotedAt.Time
		}
		if promotedUntil.Valid {
			c.book.PromotedUntil = &promotedUntil.Time
		}
		// Owner email stays private unless the owner opted in
		if showEmail {
			c.owner.Email = ownerEmail
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// entryMatches applies the match predicate for one wishlist entry against
// one candidate book. Empty fields never match.
func entryMatches(entry models.WishlistItem, b *models.Book) (bool, string) {
	if entry.Title != "" && strings.Contains(strings.ToLower(b.Title), strings.ToLower(entry.Title)) {
		return true, entry.Title
	}
	if entry.ISBN != "" && b.ISBN != "" {
		if normalizeISBN(entry.ISBN) == normalizeISBN(b.ISBN) {
			return true, entry.ISBN
		}
	}
	return false, ""
}

// normalizeISBN strips separators and converts valid ISBN-10s to ISBN-13
// so stored and wished codes compare exactly. Invalid codes pass through
// cleaned, which simply never matches a valid one.
func normalizeISBN(code string) string {
	var cleaned strings.Builder
	for _, r := range code {
		if (r >= '0' && r <= '9') || r == 'X' || r == 'x' {
			cleaned.WriteRune(r)
		}
	}
	c := cleaned.String()
	if len(c) == 10 && isbn.Validate10(c) {
		if c13, err := isbn.To13(c); err == nil {
			return c13
		}
	}
	return c
}

func genresIntersect(prefs, genres []string) (string, bool) {
	for _, p := range prefs {
		for _, g := range genres {
			if strings.EqualFold(p, g) {
				return g, true
			}
		}
	}
	return "", false
}
