package domain

import (
	"slices"
	"time"
)

// Foot widths accepted on a profile.
const (
	FootWidthNarrow  = "Narrow"
	FootWidthRegular = "Regular"
	FootWidthWide    = "Wide"
)

// Arch types accepted on a profile.
const (
	ArchTypeFlat   = "Flat"
	ArchTypeNormal = "Normal"
	ArchTypeHigh   = "High"
)

var (
	footWidths = []string{FootWidthNarrow, FootWidthRegular, FootWidthWide}
	archTypes  = []string{ArchTypeFlat, ArchTypeNormal, ArchTypeHigh}
)

// User is a registered account. IsActive stays false until the email OTP
// has been verified.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"-"`
	DateJoined   time.Time `json:"date_joined"`
	UpdatedAt    time.Time `json:"-"`
}

// Profile holds the runner's fit preferences. There is at most one per user.
type Profile struct {
	UserID        int64     `json:"-"`
	FootWidth     string    `json:"foot_width"`
	ArchType      string    `json:"arch_type"`
	UsesOrthotics bool      `json:"uses_orthotics"`
	UpdatedAt     time.Time `json:"-"`
}

// UserDetail is the account as shown to its owner.
type UserDetail struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
	Profile    *Profile  `json:"profile"`
}

// RefreshToken is a stored, hashed refresh token.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IsValidFootWidth reports whether w is one of the accepted foot widths.
func IsValidFootWidth(w string) bool {
	return slices.Contains(footWidths, w)
}

// IsValidArchType reports whether a is one of the accepted arch types.
func IsValidArchType(a string) bool {
	return slices.Contains(archTypes, a)
}

// Detail combines a user with an optional profile.
func (u *User) Detail(p *Profile) *UserDetail {
	return &UserDetail{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		DateJoined: u.DateJoined,
		Profile:    p,
	}
}
