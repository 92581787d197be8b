package models

// Match types describe why a candidate book was surfaced. They are
// presentation metadata, not a ranking weight.
const (
	MatchTypeWishlist = "wishlist"
	MatchTypeGenre    = "genre"
)

// MatchOwner is the public subset of the owning user attached to a match.
type MatchOwner struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email,omitempty"`
	Location      string  `json:"location"`
	ProfileImage  string  `json:"profile_image"`
	AverageRating float64 `json:"average_rating"`
}

// MatchResult is an ephemeral candidate offer. Never persisted.
type MatchResult struct {
	Book      Book       `json:"book"`
	Owner     MatchOwner `json:"owner"`
	MatchType string     `json:"match_type"`
	MatchedOn string     `json:"matched_on,omitempty"` // wishlist entry title or genre that matched
}
