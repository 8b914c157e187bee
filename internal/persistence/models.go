package persistence

import "time"

// User is a Google account that has signed in at least once.
type User struct {
	ID        string
	Name      string
	Email     string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Auth is the OAuth token bundle stored for a user. Token strings are stored
// encrypted; repositories hand back whatever the cipher layer wrote.
type Auth struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	IDToken      string
	Scope        string
	TokenType    string
	Expiry       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ConferenceRoom is a cached Admin Directory room resource.
type ConferenceRoom struct {
	ID          string
	Domain      string
	Name        string
	Email       string
	Seats       int
	Floor       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
