package domain

import (
	"fmt"
	"net/url"
	"time"
)

// Shoe is a catalog entry. The catalog is maintained outside this service and
// is never written here.
type Shoe struct {
	ShoeID          string   `json:"shoe_id"`
	Brand           string   `json:"brand"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	WeightLabOz     *float64 `json:"weight_lab_oz"`
	HeelStackMM     *float64 `json:"heel_stack_mm"`
	ForefootStackMM *float64 `json:"forefoot_stack_mm"`
	DropMM          *float64 `json:"drop_mm"`
	DurabilityScore *float64 `json:"durability_score"`
	CushioningScore *float64 `json:"cushioning_score"`
	StabilityScore  *float64 `json:"stability_score"`
	ImgURL          string   `json:"img_url"`
}

// Review is a user's rating of a shoe. Rating is stored as submitted.
type Review struct {
	ID         string    `json:"id"`
	ShoeID     string    `json:"shoe_id"`
	UserID     int64     `json:"user_id"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"review_text"`
	CreatedAt  time.Time `json:"created_at"`
	// Date is the calendar day of the stored timestamp, YYYY-MM-DD, taken
	// as written by the store rather than after a zone conversion.
	Date string `json:"-"`
}

// Favorite marks a shoe as saved by a user. A (UserID, ShoeID) pair is unique.
type Favorite struct {
	UserID    int64     `json:"user_id"`
	ShoeID    string    `json:"shoe_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ShoeView is a shoe enriched for the requesting viewer.
type ShoeView struct {
	Shoe
	Rating     float64 `json:"rating"`
	IsFavorite bool    `json:"isFavorite"`
}

// ShoeDetail is a ShoeView with its formatted reviews.
type ShoeDetail struct {
	ShoeView
	Reviews []ReviewEntry `json:"reviews"`
}

// ReviewEntry is a review as presented on the shoe detail page.
type ReviewEntry struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Avatar string `json:"avatar"`
	Date   string `json:"date"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// Viewer identifies who is making a request. The zero value is anonymous.
type Viewer struct {
	UserID        int64
	Authenticated bool
}

// Anonymous returns a viewer with no identity.
func Anonymous() Viewer { return Viewer{} }

// AuthenticatedViewer returns a viewer for the given user.
func AuthenticatedViewer(userID int64) Viewer {
	return Viewer{UserID: userID, Authenticated: true}
}

// FallbackDisplayName is the label shown for reviewers whose account cannot
// be resolved.
func FallbackDisplayName(userID int64) string {
	return fmt.Sprintf("User %d", userID)
}

// AvatarURL returns a generated avatar image URL for a display name.
func AvatarURL(displayName string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(displayName) + "&background=random"
}

// ReviewDate renders a review timestamp as YYYY-MM-DD in its own offset. An
// unknown timestamp renders as an empty string.
func ReviewDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
