package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/room-booker/internal/scheduler"
)

func toSchedulerRoom(room ConferenceRoom) scheduler.Room {
	return scheduler.Room{
		ID:    room.ID,
		Name:  room.Name,
		Email: room.Email,
		Seats: room.Seats,
		Floor: room.Floor,
	}
}

// candidatesFor applies the seat and floor filter and returns the rooms in
// selection order.
func candidatesFor(rooms []ConferenceRoom, seats int, floor string) []ConferenceRoom {
	byID := make(map[string]ConferenceRoom, len(rooms))
	schedRooms := make([]scheduler.Room, 0, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
		schedRooms = append(schedRooms, toSchedulerRoom(room))
	}

	filtered := scheduler.FilterCandidates(schedRooms, scheduler.Criteria{Seats: seats, Floor: floor})
	out := make([]ConferenceRoom, 0, len(filtered))
	for _, candidate := range filtered {
		out = append(out, byID[candidate.ID])
	}
	return out
}

// availableAmong issues one free/busy query for every candidate and keeps the
// ones with no blocking interval, preserving candidate order.
func availableAmong(ctx context.Context, cal Calendar, candidates []ConferenceRoom, start, end time.Time) ([]ConferenceRoom, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	byID := make(map[string]ConferenceRoom, len(candidates))
	schedRooms := make([]scheduler.Room, 0, len(candidates))
	for _, room := range candidates {
		byID[room.ID] = room
		schedRooms = append(schedRooms, toSchedulerRoom(room))
	}

	busy, err := cal.QueryFreeBusy(ctx, scheduler.Emails(schedRooms), start, end)
	if err != nil {
		return nil, err
	}

	selected := scheduler.SelectAvailable(schedRooms, busy, start, end)
	out := make([]ConferenceRoom, 0, len(selected))
	for _, room := range selected {
		out = append(out, byID[room.ID])
	}
	return out, nil
}

func validateWindow(vErr *ValidationError, start, end time.Time) {
	switch err := scheduler.ValidateRange(start, end); {
	case err == nil:
	case errors.Is(err, scheduler.ErrMissingBounds):
		if start.IsZero() {
			vErr.add("start", "start is required")
		}
		if end.IsZero() {
			vErr.add("end", "end is required")
		}
	default:
		vErr.add("end", "end must be after start")
	}
}
