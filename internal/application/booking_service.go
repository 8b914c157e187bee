package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booker/internal/scheduler"
)

// BookingDependencies groups the collaborators of BookingService.
type BookingDependencies struct {
	Rooms     RoomStore
	Auth      AuthStore
	Cipher    TokenCipher
	Calendars CalendarProvider
	Recorder  SelectionRecorder
	Lookahead time.Duration
	Now       func() time.Time
}

// BookingService books, edits and cancels room events on the caller's calendar.
type BookingService struct {
	rooms     RoomStore
	creds     credentials
	calendars CalendarProvider
	recorder  SelectionRecorder
	lookahead time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(deps BookingDependencies) *BookingService {
	return NewBookingServiceWithLogger(deps, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(deps BookingDependencies, logger *slog.Logger) *BookingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	lookahead := deps.Lookahead
	if lookahead <= 0 {
		lookahead = 7 * 24 * time.Hour
	}
	return &BookingService{
		rooms:     deps.Rooms,
		creds:     credentials{store: deps.Auth, cipher: deps.Cipher},
		calendars: deps.Calendars,
		recorder:  deps.Recorder,
		lookahead: lookahead,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

func (s *BookingService) ready() error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.rooms == nil || s.calendars == nil {
		return fmt.Errorf("booking service not configured")
	}
	return nil
}

// calendarFor loads the caller's tokens and binds a calendar client to them.
func (s *BookingService) calendarFor(ctx context.Context, principal Principal) (Calendar, error) {
	tokens, err := s.creds.load(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.calendars.CalendarFor(ctx, tokens)
}

// roomIndex maps lower-cased resource emails of the caller's domain to rooms.
func (s *BookingService) roomIndex(ctx context.Context, domain string) (map[string]ConferenceRoom, error) {
	rooms, err := s.rooms.ListRooms(ctx, domain)
	if err != nil {
		return nil, err
	}
	index := make(map[string]ConferenceRoom, len(rooms))
	for _, room := range rooms {
		index[strings.ToLower(room.Email)] = room
	}
	return index, nil
}

// roomOf finds the conference room among the event's attendees.
func roomOf(event CalendarEvent, index map[string]ConferenceRoom) (ConferenceRoom, bool) {
	for _, attendee := range event.Attendees {
		if room, ok := index[strings.ToLower(attendee.Email)]; ok {
			return room, true
		}
	}
	return ConferenceRoom{}, false
}

func toEvent(event CalendarEvent, room ConferenceRoom) Event {
	attendees := make([]string, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		if attendee.Resource || strings.EqualFold(attendee.Email, room.Email) {
			continue
		}
		attendees = append(attendees, attendee.Email)
	}
	return Event{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Start:       event.Start,
		End:         event.End,
		Attendees:   attendees,
		Room:        room,
		Organizer:   event.Organizer,
		HTMLLink:    event.HTMLLink,
	}
}

// ListEvents returns the caller's events within the window that have a room
// of the caller's domain attached.
func (s *BookingService) ListEvents(ctx context.Context, params ListEventsParams) (events []Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	start, end := params.Start, params.End
	if start.IsZero() {
		start = s.now()
	}
	if end.IsZero() {
		end = start.Add(s.lookahead)
	}

	logger := s.loggerWith(ctx, "ListEvents",
		"principal_id", params.Principal.UserID,
		"start", start,
		"end", end,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list room events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("events", len(events)).DebugContext(ctx, "room events listed")
	}()

	vErr := &ValidationError{}
	validateWindow(vErr, start, end)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var index map[string]ConferenceRoom
	index, err = s.roomIndex(ctx, params.Principal.Domain)
	if err != nil {
		return
	}
	var cal Calendar
	cal, err = s.calendarFor(ctx, params.Principal)
	if err != nil {
		return
	}
	var raw []CalendarEvent
	raw, err = cal.ListEvents(ctx, start, end)
	if err != nil {
		return
	}

	events = make([]Event, 0, len(raw))
	for _, event := range raw {
		if room, ok := roomOf(event, index); ok {
			events = append(events, toEvent(event, room))
		}
	}
	return
}

// GetEvent returns one room event of the caller.
func (s *BookingService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if err := s.ready(); err != nil {
		return Event{}, err
	}
	if strings.TrimSpace(eventID) == "" {
		vErr := &ValidationError{}
		vErr.add("id", "event id is required")
		return Event{}, vErr
	}

	index, err := s.roomIndex(ctx, principal.Domain)
	if err != nil {
		return Event{}, err
	}
	cal, err := s.calendarFor(ctx, principal)
	if err != nil {
		return Event{}, err
	}
	event, err := cal.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	room, ok := roomOf(event, index)
	if !ok {
		return Event{}, ErrNotFound
	}
	return toEvent(event, room), nil
}

// BookRoom creates an event on the caller's calendar with a free room attached.
// With RoomID set only that room is checked; otherwise the candidates matching
// seats and floor are checked with one free/busy query and the first free one
// is booked.
func (s *BookingService) BookRoom(ctx context.Context, params BookRoomParams) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "BookRoom",
		"principal_id", params.Principal.UserID,
		"seats", params.Seats,
		"floor", params.Floor,
		"requested_room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID, "room_id", event.Room.ID).InfoContext(ctx, "room booked")
	}()

	vErr := &ValidationError{}
	validateWindow(vErr, params.Start, params.End)
	if params.Seats < 0 {
		vErr.add("seats", "seats cannot be negative")
	}
	guests, guestErr := normalizeAttendees(params.Attendees)
	if guestErr != "" {
		vErr.add("attendees", guestErr)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if params.Principal.Domain == "" {
		err = ErrUnauthorized
		return
	}

	var candidates []ConferenceRoom
	roomID := strings.TrimSpace(params.RoomID)
	if roomID != "" {
		var room ConferenceRoom
		room, err = s.rooms.GetRoom(ctx, params.Principal.Domain, roomID)
		if err != nil {
			err = mapStoreError(err)
			return
		}
		candidates = []ConferenceRoom{room}
	} else {
		var cached []ConferenceRoom
		cached, err = s.rooms.ListRooms(ctx, params.Principal.Domain)
		if err != nil {
			return
		}
		candidates = candidatesFor(cached, params.Seats, strings.TrimSpace(params.Floor))
		if len(candidates) == 0 {
			s.record("none_available")
			err = ErrNoRoomAvailable
			return
		}
	}

	var cal Calendar
	cal, err = s.calendarFor(ctx, params.Principal)
	if err != nil {
		return
	}

	var available []ConferenceRoom
	available, err = availableAmong(ctx, cal, candidates, params.Start, params.End)
	if err != nil {
		return
	}
	byID := make(map[string]ConferenceRoom, len(available))
	schedRooms := make([]scheduler.Room, 0, len(available))
	for _, room := range available {
		byID[room.ID] = room
		schedRooms = append(schedRooms, toSchedulerRoom(room))
	}
	picked, ok := scheduler.PickFirst(schedRooms)
	if !ok {
		s.record("none_available")
		if roomID != "" {
			err = ErrRoomUnavailable
		} else {
			err = ErrNoRoomAvailable
		}
		return
	}
	room := byID[picked.ID]

	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = room.Name
	}
	attendees := make([]Attendee, 0, len(guests)+1)
	for _, email := range guests {
		if strings.EqualFold(email, room.Email) {
			continue
		}
		attendees = append(attendees, Attendee{Email: email})
	}
	attendees = append(attendees, Attendee{Email: room.Email, Resource: true})

	var created CalendarEvent
	created, err = cal.InsertEvent(ctx, EventDraft{
		Title:       title,
		Description: params.Description,
		Start:       params.Start,
		End:         params.End,
		Attendees:   attendees,
	})
	if err != nil {
		return
	}

	s.record("booked")
	event = toEvent(created, room)
	return
}

// UpdateEvent changes the duration, room, title, description or guests of a
// room event. Shrinking is unconditional; growing checks the added interval
// for the current room; moving checks the target room over the whole event.
func (s *BookingService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent",
		"principal_id", params.Principal.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", event.Room.ID).InfoContext(ctx, "event updated")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.EventID) == "" {
		vErr.add("id", "event id is required")
	}
	if params.End != nil && params.End.IsZero() {
		vErr.add("end", "end must be a valid time")
	}
	var guests []string
	if params.Attendees != nil {
		var guestErr string
		guests, guestErr = normalizeAttendees(*params.Attendees)
		if guestErr != "" {
			vErr.add("attendees", guestErr)
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var index map[string]ConferenceRoom
	index, err = s.roomIndex(ctx, params.Principal.Domain)
	if err != nil {
		return
	}
	var cal Calendar
	cal, err = s.calendarFor(ctx, params.Principal)
	if err != nil {
		return
	}

	var current CalendarEvent
	current, err = cal.GetEvent(ctx, params.EventID)
	if err != nil {
		return
	}
	if !isOrganizer(current, params.Principal) {
		err = ErrUnauthorized
		return
	}
	currentRoom, ok := roomOf(current, index)
	if !ok {
		err = ErrNotFound
		return
	}

	newEnd := current.End
	if params.End != nil {
		newEnd = *params.End
		if !newEnd.After(current.Start) {
			vErr.add("end", "end must be after start")
			err = vErr
			return
		}
	}

	target := currentRoom
	roomChanged := false
	if params.RoomID != nil && strings.TrimSpace(*params.RoomID) != "" && strings.TrimSpace(*params.RoomID) != currentRoom.ID {
		target, err = s.rooms.GetRoom(ctx, params.Principal.Domain, strings.TrimSpace(*params.RoomID))
		if err != nil {
			err = mapStoreError(err)
			return
		}
		roomChanged = true
	}

	switch delta, grows := scheduler.GrowthDelta(current.End, newEnd); {
	case roomChanged:
		err = s.requireFree(ctx, cal, target, current.Start, newEnd)
	case grows:
		err = s.requireFree(ctx, cal, currentRoom, delta.Start, delta.End)
	}
	if err != nil {
		return
	}

	patch := EventPatch{Title: params.Title, Description: params.Description}
	if !newEnd.Equal(current.End) {
		patch.End = &newEnd
	}
	if roomChanged || params.Attendees != nil {
		patch.Attendees = rebuildAttendees(current.Attendees, guests, params.Attendees != nil, currentRoom, target)
	}

	var updated CalendarEvent
	updated, err = cal.PatchEvent(ctx, params.EventID, patch)
	if err != nil {
		return
	}
	event = toEvent(updated, target)
	return
}

// DeleteEvent cancels a room event organised by the caller.
func (s *BookingService) DeleteEvent(ctx context.Context, principal Principal, eventID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteEvent",
		"principal_id", principal.UserID,
		"event_id", eventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted")
	}()

	if strings.TrimSpace(eventID) == "" {
		vErr := &ValidationError{}
		vErr.add("id", "event id is required")
		err = vErr
		return
	}

	var index map[string]ConferenceRoom
	index, err = s.roomIndex(ctx, principal.Domain)
	if err != nil {
		return
	}
	var cal Calendar
	cal, err = s.calendarFor(ctx, principal)
	if err != nil {
		return
	}
	var current CalendarEvent
	current, err = cal.GetEvent(ctx, eventID)
	if err != nil {
		return
	}
	if !isOrganizer(current, principal) {
		err = ErrUnauthorized
		return
	}
	if _, ok := roomOf(current, index); !ok {
		err = ErrNotFound
		return
	}
	err = cal.DeleteEvent(ctx, eventID)
	return
}

func (s *BookingService) requireFree(ctx context.Context, cal Calendar, room ConferenceRoom, start, end time.Time) error {
	available, err := availableAmong(ctx, cal, []ConferenceRoom{room}, start, end)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return ErrRoomUnavailable
	}
	return nil
}

func (s *BookingService) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordRoomSelection(result)
	}
}

func isOrganizer(event CalendarEvent, principal Principal) bool {
	return event.Organizer == "" || strings.EqualFold(event.Organizer, principal.Email)
}

// rebuildAttendees swaps the room attendee and optionally replaces the guests.
// Existing response statuses are kept for guests that stay.
func rebuildAttendees(existing []Attendee, guests []string, replaceGuests bool, from, to ConferenceRoom) []Attendee {
	out := make([]Attendee, 0, len(existing)+1)
	if replaceGuests {
		status := make(map[string]string, len(existing))
		for _, attendee := range existing {
			status[strings.ToLower(attendee.Email)] = attendee.ResponseStatus
		}
		for _, email := range guests {
			if strings.EqualFold(email, from.Email) || strings.EqualFold(email, to.Email) {
				continue
			}
			out = append(out, Attendee{Email: email, ResponseStatus: status[strings.ToLower(email)]})
		}
	} else {
		for _, attendee := range existing {
			if strings.EqualFold(attendee.Email, from.Email) || strings.EqualFold(attendee.Email, to.Email) {
				continue
			}
			out = append(out, attendee)
		}
	}
	return append(out, Attendee{Email: to.Email, Resource: true})
}

// normalizeAttendees lower-cases, trims and de-duplicates guest emails.
func normalizeAttendees(raw []string) ([]string, string) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		email := strings.ToLower(strings.TrimSpace(value))
		if email == "" {
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Sprintf("%q is not a valid email address", value)
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out, ""
}
