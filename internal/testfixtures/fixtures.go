package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booker/internal/persistence"
)

// Domain is the Google Workspace domain fixtures belong to by default.
const Domain = "example.com"

var (
	userCounter uint64
	roomCounter uint64
)

var referenceTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the baseline instant shared by fixtures: a Monday, 09:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption customises NewUser.
type UserOption func(*persistence.User)

// WithUserDomain places the user in another domain.
func WithUserDomain(domain string) UserOption {
	return func(u *persistence.User) {
		u.Domain = domain
	}
}

// NewUser returns a unique user in Domain.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := persistence.User{
		ID:        fmt.Sprintf("10%016d", idx),
		Name:      fmt.Sprintf("User %03d", idx),
		Email:     fmt.Sprintf("user%03d@%s", idx, Domain),
		Domain:    Domain,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// NewAuth returns a token bundle for userID.
func NewAuth(userID string) persistence.Auth {
	return persistence.Auth{
		UserID:       userID,
		AccessToken:  "ya29.access-" + userID,
		RefreshToken: "1//refresh-" + userID,
		IDToken:      "eyJ.id-" + userID,
		Scope:        "openid email profile https://www.googleapis.com/auth/calendar",
		TokenType:    "Bearer",
		Expiry:       referenceTime.Add(time.Hour),
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
}

// RoomOption customises NewRoom.
type RoomOption func(*persistence.ConferenceRoom)

// WithSeats sets the room capacity.
func WithSeats(seats int) RoomOption {
	return func(r *persistence.ConferenceRoom) {
		r.Seats = seats
	}
}

// WithFloor sets the room floor.
func WithFloor(floor string) RoomOption {
	return func(r *persistence.ConferenceRoom) {
		r.Floor = floor
	}
}

// WithRoomName sets the room name.
func WithRoomName(name string) RoomOption {
	return func(r *persistence.ConferenceRoom) {
		r.Name = name
	}
}

// NewRoom returns a unique conference room in Domain.
func NewRoom(opts ...RoomOption) persistence.ConferenceRoom {
	idx := atomic.AddUint64(&roomCounter, 1)
	room := persistence.ConferenceRoom{
		ID:          fmt.Sprintf("room-%03d", idx),
		Domain:      Domain,
		Name:        fmt.Sprintf("Room %03d", idx),
		Email:       fmt.Sprintf("c_room%03d@resource.calendar.google.com", idx),
		Seats:       4,
		Floor:       "1",
		Description: "",
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}
