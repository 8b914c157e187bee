package persistence

import "context"

// UserRepository stores signed-in users.
type UserRepository interface {
	UpsertUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// AuthRepository stores one OAuth token bundle per user.
type AuthRepository interface {
	UpsertAuth(ctx context.Context, auth Auth) error
	GetAuth(ctx context.Context, userID string) (Auth, error)
	DeleteAuth(ctx context.Context, userID string) error
}

// ConferenceRoomRepository caches room resources per domain.
type ConferenceRoomRepository interface {
	// ReplaceRoomsForDomain upserts rooms and removes the domain's rooms that are
	// no longer present, atomically.
	ReplaceRoomsForDomain(ctx context.Context, domain string, rooms []ConferenceRoom) error
	ListRoomsByDomain(ctx context.Context, domain string) ([]ConferenceRoom, error)
	GetRoom(ctx context.Context, domain, id string) (ConferenceRoom, error)
	GetRoomByEmail(ctx context.Context, domain, email string) (ConferenceRoom, error)
	ListFloors(ctx context.Context, domain string) ([]string, error)
	CountRoomsByDomain(ctx context.Context, domain string) (int, error)
}
