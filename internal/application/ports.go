package application

import (
	"context"
	"time"

	"github.com/example/room-booker/internal/auth"
	"github.com/example/room-booker/internal/scheduler"
)

// UserStore persists signed-in users.
type UserStore interface {
	UpsertUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
}

// AuthStore persists the OAuth token bundle of each user.
type AuthStore interface {
	UpsertAuth(ctx context.Context, userID string, tokens TokenBundle) error
	GetAuth(ctx context.Context, userID string) (TokenBundle, error)
	DeleteAuth(ctx context.Context, userID string) error
}

// RoomStore is the relational room cache.
type RoomStore interface {
	ReplaceRooms(ctx context.Context, domain string, rooms []ConferenceRoom) error
	ListRooms(ctx context.Context, domain string) ([]ConferenceRoom, error)
	GetRoom(ctx context.Context, domain, id string) (ConferenceRoom, error)
	ListFloors(ctx context.Context, domain string) ([]string, error)
	CountRooms(ctx context.Context, domain string) (int, error)
}

// IdentityProvider runs the Google OAuth code exchange.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (TokenBundle, error)
	UserInfo(ctx context.Context, tokens TokenBundle) (GoogleProfile, error)
}

// SessionIssuer signs and verifies session tokens.
type SessionIssuer interface {
	Generate(identity auth.Identity) (string, time.Time, error)
	Validate(token string) (auth.Identity, error)
}

// TokenCipher protects token strings at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(value string) (string, error)
}

// Calendar is one user's view of Google Calendar.
type Calendar interface {
	QueryFreeBusy(ctx context.Context, emails []string, start, end time.Time) (map[string]scheduler.CalendarBusy, error)
	ListEvents(ctx context.Context, start, end time.Time) ([]CalendarEvent, error)
	GetEvent(ctx context.Context, id string) (CalendarEvent, error)
	InsertEvent(ctx context.Context, draft EventDraft) (CalendarEvent, error)
	PatchEvent(ctx context.Context, id string, patch EventPatch) (CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// CalendarProvider binds a Calendar to a user's tokens.
type CalendarProvider interface {
	CalendarFor(ctx context.Context, tokens TokenBundle) (Calendar, error)
}

// Directory lists the room resources of the caller's Workspace.
type Directory interface {
	ListRoomResources(ctx context.Context, tokens TokenBundle) ([]ConferenceRoom, error)
}

// SelectionRecorder observes the outcome of room selection.
type SelectionRecorder interface {
	RecordRoomSelection(result string)
}
