package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booker/internal/persistence"
	"github.com/example/room-booker/internal/scheduler"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var baseTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type memoryUsers struct {
	users map[string]User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]User{}}
}

func (m *memoryUsers) UpsertUser(_ context.Context, user User) error {
	if existing, ok := m.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) GetUser(_ context.Context, id string) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

type memoryAuth struct {
	tokens map[string]TokenBundle
}

func newMemoryAuth() *memoryAuth {
	return &memoryAuth{tokens: map[string]TokenBundle{}}
}

func (m *memoryAuth) UpsertAuth(_ context.Context, userID string, tokens TokenBundle) error {
	m.tokens[userID] = tokens
	return nil
}

func (m *memoryAuth) GetAuth(_ context.Context, userID string) (TokenBundle, error) {
	tokens, ok := m.tokens[userID]
	if !ok {
		return TokenBundle{}, persistence.ErrNotFound
	}
	return tokens, nil
}

func (m *memoryAuth) DeleteAuth(_ context.Context, userID string) error {
	delete(m.tokens, userID)
	return nil
}

type memoryRooms struct {
	byDomain map[string][]ConferenceRoom
	replaced int
}

func newMemoryRooms(rooms ...ConferenceRoom) *memoryRooms {
	m := &memoryRooms{byDomain: map[string][]ConferenceRoom{}}
	for _, room := range rooms {
		m.byDomain[room.Domain] = append(m.byDomain[room.Domain], room)
	}
	return m
}

func (m *memoryRooms) ReplaceRooms(_ context.Context, domain string, rooms []ConferenceRoom) error {
	m.replaced++
	m.byDomain[domain] = append([]ConferenceRoom(nil), rooms...)
	return nil
}

func (m *memoryRooms) ListRooms(_ context.Context, domain string) ([]ConferenceRoom, error) {
	rooms := append([]ConferenceRoom(nil), m.byDomain[domain]...)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

func (m *memoryRooms) GetRoom(_ context.Context, domain, id string) (ConferenceRoom, error) {
	for _, room := range m.byDomain[domain] {
		if room.ID == id {
			return room, nil
		}
	}
	return ConferenceRoom{}, persistence.ErrNotFound
}

func (m *memoryRooms) ListFloors(_ context.Context, domain string) ([]string, error) {
	seen := map[string]struct{}{}
	var floors []string
	for _, room := range m.byDomain[domain] {
		if room.Floor == "" {
			continue
		}
		if _, ok := seen[room.Floor]; ok {
			continue
		}
		seen[room.Floor] = struct{}{}
		floors = append(floors, room.Floor)
	}
	sort.Strings(floors)
	return floors, nil
}

func (m *memoryRooms) CountRooms(_ context.Context, domain string) (int, error) {
	return len(m.byDomain[domain]), nil
}

type stubIdentity struct {
	tokens  TokenBundle
	profile GoogleProfile
	err     error
}

func (s *stubIdentity) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (s *stubIdentity) Exchange(_ context.Context, code string) (TokenBundle, error) {
	if s.err != nil {
		return TokenBundle{}, s.err
	}
	return s.tokens, nil
}

func (s *stubIdentity) UserInfo(_ context.Context, _ TokenBundle) (GoogleProfile, error) {
	return s.profile, nil
}

type stubDirectory struct {
	rooms []ConferenceRoom
	err   error
	calls int
	seen  TokenBundle
}

func (s *stubDirectory) ListRoomResources(_ context.Context, tokens TokenBundle) ([]ConferenceRoom, error) {
	s.calls++
	s.seen = tokens
	if s.err != nil {
		return nil, s.err
	}
	return append([]ConferenceRoom(nil), s.rooms...), nil
}

// freeBusyCall records one QueryFreeBusy invocation.
type freeBusyCall struct {
	Emails []string
	Start  time.Time
	End    time.Time
}

// stubCalendar is an in-memory calendar keyed by event id. Busy intervals are
// per resource email; failed lists calendars the provider reports errors for.
type stubCalendar struct {
	mu       sync.Mutex
	busy     map[string][]scheduler.Interval
	failed   map[string]bool
	events   map[string]CalendarEvent
	freeBusy []freeBusyCall
	patches  []EventPatch
	inserted []EventDraft
	deleted  []string
	err      error
	nextID   int
}

func newStubCalendar() *stubCalendar {
	return &stubCalendar{
		busy:   map[string][]scheduler.Interval{},
		failed: map[string]bool{},
		events: map[string]CalendarEvent{},
	}
}

func (c *stubCalendar) QueryFreeBusy(_ context.Context, emails []string, start, end time.Time) (map[string]scheduler.CalendarBusy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freeBusy = append(c.freeBusy, freeBusyCall{Emails: append([]string(nil), emails...), Start: start, End: end})
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]scheduler.CalendarBusy, len(emails))
	for _, email := range emails {
		out[email] = scheduler.CalendarBusy{Busy: c.busy[strings.ToLower(email)], Failed: c.failed[strings.ToLower(email)]}
	}
	return out, nil
}

func (c *stubCalendar) ListEvents(_ context.Context, start, end time.Time) ([]CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []CalendarEvent
	for _, event := range c.events {
		if event.Start.Before(end) && event.End.After(start) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (c *stubCalendar) GetEvent(_ context.Context, id string) (CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	event, ok := c.events[id]
	if !ok {
		return CalendarEvent{}, &UpstreamError{StatusCode: 404, Operation: "events.get", Err: fmt.Errorf("event %s not found", id)}
	}
	return event, nil
}

func (c *stubCalendar) InsertEvent(_ context.Context, draft EventDraft) (CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserted = append(c.inserted, draft)
	c.nextID++
	event := CalendarEvent{
		ID:          fmt.Sprintf("evt-%d", c.nextID),
		Title:       draft.Title,
		Description: draft.Description,
		Start:       draft.Start,
		End:         draft.End,
		Attendees:   draft.Attendees,
		Organizer:   "alice@example.com",
		HTMLLink:    "https://calendar.google.com/event?eid=" + fmt.Sprint(c.nextID),
	}
	c.events[event.ID] = event
	return event, nil
}

func (c *stubCalendar) PatchEvent(_ context.Context, id string, patch EventPatch) (CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patches = append(c.patches, patch)
	event, ok := c.events[id]
	if !ok {
		return CalendarEvent{}, &UpstreamError{StatusCode: 404, Operation: "events.patch"}
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.End != nil {
		event.End = *patch.End
	}
	if patch.Attendees != nil {
		event.Attendees = patch.Attendees
	}
	c.events[id] = event
	return event, nil
}

func (c *stubCalendar) DeleteEvent(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, id)
	delete(c.events, id)
	return nil
}

type stubCalendarProvider struct {
	calendar *stubCalendar
	tokens   []TokenBundle
}

func (p *stubCalendarProvider) CalendarFor(_ context.Context, tokens TokenBundle) (Calendar, error) {
	p.tokens = append(p.tokens, tokens)
	return p.calendar, nil
}

type countingRecorder struct {
	results []string
}

func (r *countingRecorder) RecordRoomSelection(result string) {
	r.results = append(r.results, result)
}

func room(id, name string, seats int, floor string) ConferenceRoom {
	return ConferenceRoom{
		ID:     id,
		Domain: "example.com",
		Name:   name,
		Email:  id + "@resource.calendar.google.com",
		Seats:  seats,
		Floor:  floor,
	}
}

func alice() Principal {
	return Principal{UserID: "1001", Email: "alice@example.com", Domain: "example.com"}
}
