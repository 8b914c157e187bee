package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Email  string
	Domain string
}

// User is a person who signed in with Google.
type User struct {
	ID        string
	Name      string
	Email     string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenBundle is the OAuth token set Google returned at login.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Scope        string
	TokenType    string
	Expiry       time.Time
}

// GoogleProfile is the userinfo answer for a token.
type GoogleProfile struct {
	Subject      string
	Email        string
	Name         string
	HostedDomain string
}

// ConferenceRoom is a bookable room resource of a Workspace domain.
type ConferenceRoom struct {
	ID          string
	Domain      string
	Name        string
	Email       string
	Seats       int
	Floor       string
	Description string
}

// Attendee is one guest of a calendar event.
type Attendee struct {
	Email          string
	Resource       bool
	ResponseStatus string
}

// CalendarEvent is an event as the calendar provider reports it.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []Attendee
	Organizer   string
	HTMLLink    string
}

// EventDraft carries the fields of an event to insert.
type EventDraft struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []Attendee
}

// EventPatch carries the fields to change on an existing event. Nil fields are
// left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	End         *time.Time
	Attendees   []Attendee
}

// Event is a room booking as returned to clients.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Room        ConferenceRoom
	Organizer   string
	HTMLLink    string
}

// LoginResult is returned once the OAuth callback completed.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// AvailableRoomsParams wraps a room availability search.
type AvailableRoomsParams struct {
	Principal Principal
	Start     time.Time
	End       time.Time
	Seats     int
	Floor     string
}

// ListEventsParams wraps a listing of the caller's room events. Zero bounds
// fall back to now and now plus the configured lookahead.
type ListEventsParams struct {
	Principal Principal
	Start     time.Time
	End       time.Time
}

// BookRoomParams wraps a booking request. With RoomID set only that room is
// considered; otherwise the first available candidate is booked.
type BookRoomParams struct {
	Principal   Principal
	Start       time.Time
	End         time.Time
	Seats       int
	Floor       string
	RoomID      string
	Title       string
	Description string
	Attendees   []string
}

// UpdateEventParams wraps a change to an existing booking. Nil fields are kept.
type UpdateEventParams struct {
	Principal   Principal
	EventID     string
	End         *time.Time
	RoomID      *string
	Title       *string
	Description *string
	Attendees   *[]string
}
