package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// RoomService serves the cached room catalog and availability searches.
type RoomService struct {
	rooms     RoomStore
	creds     credentials
	directory Directory
	calendars CalendarProvider
	logger    *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomStore, authStore AuthStore, cipher TokenCipher, directory Directory, calendars CalendarProvider) *RoomService {
	return NewRoomServiceWithLogger(rooms, authStore, cipher, directory, calendars, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomStore, authStore AuthStore, cipher TokenCipher, directory Directory, calendars CalendarProvider, logger *slog.Logger) *RoomService {
	return &RoomService{
		rooms:     rooms,
		creds:     credentials{store: authStore, cipher: cipher},
		directory: directory,
		calendars: calendars,
		logger:    defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// ListFloors returns the distinct floors of the caller's domain, numeric
// floors first in numeric order.
func (s *RoomService) ListFloors(ctx context.Context, principal Principal) ([]string, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room store not configured")
	}
	if principal.Domain == "" {
		return nil, ErrUnauthorized
	}

	floors, err := s.rooms.ListFloors(ctx, principal.Domain)
	if err != nil {
		s.loggerWith(ctx, "ListFloors").ErrorContext(ctx, "failed to list floors", "error", err)
		return nil, err
	}
	sort.SliceStable(floors, func(i, j int) bool {
		return floorLess(floors[i], floors[j])
	})
	return floors, nil
}

func floorLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimSpace(a))
	nb, errB := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

// ListRooms returns the cached rooms of the caller's domain.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) ([]ConferenceRoom, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room store not configured")
	}
	if principal.Domain == "" {
		return nil, ErrUnauthorized
	}
	return s.rooms.ListRooms(ctx, principal.Domain)
}

// SyncRooms replaces the cached rooms of the caller's domain with the Admin
// Directory listing.
func (s *RoomService) SyncRooms(ctx context.Context, principal Principal) (rooms []ConferenceRoom, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil || s.directory == nil {
		err = fmt.Errorf("room sync not configured")
		return
	}

	logger := s.loggerWith(ctx, "SyncRooms",
		"principal_id", principal.UserID,
		"domain", principal.Domain,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "room sync failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rooms", len(rooms)).InfoContext(ctx, "rooms synced")
	}()

	if principal.Domain == "" {
		err = ErrUnauthorized
		return
	}

	var tokens TokenBundle
	tokens, err = s.creds.load(ctx, principal.UserID)
	if err != nil {
		return
	}

	rooms, err = s.directory.ListRoomResources(ctx, tokens)
	if err != nil {
		return
	}
	for i := range rooms {
		rooms[i].Domain = principal.Domain
	}
	if err = s.rooms.ReplaceRooms(ctx, principal.Domain, rooms); err != nil {
		return
	}

	rooms, err = s.rooms.ListRooms(ctx, principal.Domain)
	return
}

// AvailableRooms returns every candidate room that is free for the requested
// interval, smallest adequate room first. All candidates are checked with a
// single free/busy query.
func (s *RoomService) AvailableRooms(ctx context.Context, params AvailableRoomsParams) (rooms []ConferenceRoom, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil || s.calendars == nil {
		err = fmt.Errorf("availability search not configured")
		return
	}

	logger := s.loggerWith(ctx, "AvailableRooms",
		"principal_id", params.Principal.UserID,
		"seats", params.Seats,
		"floor", params.Floor,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("available", len(rooms)).InfoContext(ctx, "availability resolved")
	}()

	vErr := &ValidationError{}
	validateWindow(vErr, params.Start, params.End)
	if params.Seats < 0 {
		vErr.add("seats", "seats cannot be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if params.Principal.Domain == "" {
		err = ErrUnauthorized
		return
	}

	var cached []ConferenceRoom
	cached, err = s.rooms.ListRooms(ctx, params.Principal.Domain)
	if err != nil {
		return
	}

	candidates := candidatesFor(cached, params.Seats, strings.TrimSpace(params.Floor))
	if len(candidates) == 0 {
		rooms = []ConferenceRoom{}
		return
	}

	var tokens TokenBundle
	tokens, err = s.creds.load(ctx, params.Principal.UserID)
	if err != nil {
		return
	}
	var cal Calendar
	cal, err = s.calendars.CalendarFor(ctx, tokens)
	if err != nil {
		return
	}

	rooms, err = availableAmong(ctx, cal, candidates, params.Start, params.End)
	if rooms == nil && err == nil {
		rooms = []ConferenceRoom{}
	}
	return
}
