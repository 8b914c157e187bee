// Package scheduler holds the room availability rules: the half-open interval
// overlap test, candidate filtering by seats and floor, greedy selection over a
// free/busy answer, and the delta check used when an event grows.
package scheduler

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	// ErrMissingBounds is returned when either end of a range is the zero time.
	ErrMissingBounds = errors.New("scheduler: start and end are required")
	// ErrInvertedRange is returned when end is not after start.
	ErrInvertedRange = errors.New("scheduler: end must be after start")
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Blocks reports whether the interval overlaps the requested range [start, end).
// Touching endpoints do not overlap.
func (i Interval) Blocks(start, end time.Time) bool {
	return start.Before(i.End) && end.After(i.Start)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ValidateRange rejects zero and inverted ranges.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrMissingBounds
	}
	if !end.After(start) {
		return ErrInvertedRange
	}
	return nil
}

// IsRoomAvailable reports whether none of the busy intervals blocks [start, end).
func IsRoomAvailable(busy []Interval, start, end time.Time) bool {
	for _, b := range busy {
		if b.Blocks(start, end) {
			return false
		}
	}
	return true
}

// Room is the subset of a conference room the selection rules look at.
type Room struct {
	ID    string
	Name  string
	Email string
	Seats int
	Floor string
}

// Criteria narrows the candidate rooms. An empty Floor matches every floor and a
// non-positive Seats matches every room.
type Criteria struct {
	Seats int
	Floor string
}

// Matches applies the seat and floor rules to a single room.
func (c Criteria) Matches(room Room) bool {
	if room.Seats < c.Seats {
		return false
	}
	floor := strings.TrimSpace(c.Floor)
	if floor == "" {
		return true
	}
	return strings.TrimSpace(room.Floor) == floor
}

// FilterCandidates returns the rooms matching the criteria, smallest adequate
// room first. Ties fall back to name and then id so the order is stable.
func FilterCandidates(rooms []Room, criteria Criteria) []Room {
	out := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		if strings.TrimSpace(room.Email) == "" {
			continue
		}
		if criteria.Matches(room) {
			out = append(out, room)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seats != out[j].Seats {
			return out[i].Seats < out[j].Seats
		}
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CalendarBusy is the free/busy answer for one calendar. Failed marks a
// calendar the provider could not report on.
type CalendarBusy struct {
	Busy   []Interval
	Failed bool
}

// Emails returns the calendar addresses to put in a single free/busy query.
func Emails(rooms []Room) []string {
	out := make([]string, 0, len(rooms))
	seen := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		key := strings.ToLower(room.Email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, room.Email)
	}
	return out
}

// SelectAvailable keeps the candidates whose calendar has no interval blocking
// [start, end), preserving candidate order. Calendars that failed or are absent
// from the answer count as unavailable.
func SelectAvailable(candidates []Room, busy map[string]CalendarBusy, start, end time.Time) []Room {
	lookup := make(map[string]CalendarBusy, len(busy))
	for email, answer := range busy {
		lookup[strings.ToLower(email)] = answer
	}

	out := make([]Room, 0, len(candidates))
	for _, room := range candidates {
		answer, ok := lookup[strings.ToLower(room.Email)]
		if !ok || answer.Failed {
			continue
		}
		if IsRoomAvailable(answer.Busy, start, end) {
			out = append(out, room)
		}
	}
	return out
}

// PickFirst returns the first available room.
func PickFirst(available []Room) (Room, bool) {
	if len(available) == 0 {
		return Room{}, false
	}
	return available[0], true
}

// GrowthDelta returns the interval that must be free before an event ending at
// oldEnd can be extended to newEnd. Shrinking or unchanged durations need no
// check and return false.
func GrowthDelta(oldEnd, newEnd time.Time) (Interval, bool) {
	if !newEnd.After(oldEnd) {
		return Interval{}, false
	}
	return Interval{Start: oldEnd, End: newEnd}, true
}
