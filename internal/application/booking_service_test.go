package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/room-booker/internal/scheduler"
)

type bookingFixture struct {
	service  *BookingService
	rooms    *memoryRooms
	auth     *memoryAuth
	calendar *stubCalendar
	recorder *countingRecorder
}

func newBookingFixture(rooms ...ConferenceRoom) *bookingFixture {
	f := &bookingFixture{
		rooms:    newMemoryRooms(rooms...),
		auth:     newMemoryAuth(),
		calendar: newStubCalendar(),
		recorder: &countingRecorder{},
	}
	f.auth.tokens["1001"] = TokenBundle{AccessToken: "ya29.alice"}
	f.service = NewBookingServiceWithLogger(BookingDependencies{
		Rooms:     f.rooms,
		Auth:      f.auth,
		Calendars: &stubCalendarProvider{calendar: f.calendar},
		Recorder:  f.recorder,
		Lookahead: 24 * time.Hour,
		Now:       func() time.Time { return baseTime },
	}, quietLogger())
	return f
}

func (f *bookingFixture) seedEvent(id string, start, end time.Time, r ConferenceRoom, guests ...string) {
	attendees := make([]Attendee, 0, len(guests)+1)
	for _, g := range guests {
		attendees = append(attendees, Attendee{Email: g, ResponseStatus: "accepted"})
	}
	attendees = append(attendees, Attendee{Email: r.Email, Resource: true, ResponseStatus: "accepted"})
	f.calendar.events[id] = CalendarEvent{
		ID:        id,
		Title:     "Standup",
		Start:     start,
		End:       end,
		Attendees: attendees,
		Organizer: "alice@example.com",
	}
}

func TestBookingService_BookRoomPicksFirstAvailable(t *testing.T) {
	t.Parallel()

	f := newBookingFixture(
		room("small", "Alps", 4, "2"),
		room("mid", "Andes", 6, "2"),
		room("big", "Everest", 10, "2"),
	)
	start, end := baseTime, baseTime.Add(time.Hour)
	f.calendar.busy["small@resource.calendar.google.com"] = []scheduler.Interval{{Start: start, End: end}}

	event, err := f.service.BookRoom(context.Background(), BookRoomParams{
		Principal: alice(),
		Start:     start,
		End:       end,
		Seats:     3,
		Floor:     "2",
		Title:     "Planning",
		Attendees: []string{"Bob@example.com", "bob@example.com", " carol@example.com "},
	})
	if err != nil {
		t.Fatalf("BookRoom returned error: %v", err)
	}

	if event.Room.ID != "mid" {
		t.Fatalf("expected the smallest free room, got %q", event.Room.ID)
	}
	if !reflect.DeepEqual(event.Attendees, []string{"bob@example.com", "carol@example.com"}) {
		t.Fatalf("unexpected attendees %v", event.Attendees)
	}
	if len(f.calendar.freeBusy) != 1 {
		t.Fatalf("expected one free/busy query, got %d", len(f.calendar.freeBusy))
	}

	draft := f.calendar.inserted[0]
	last := draft.Attendees[len(draft.Attendees)-1]
	if last.Email != "mid@resource.calendar.google.com" || !last.Resource {
		t.Fatalf("expected the room to be added as a resource attendee, got %+v", last)
	}
	if !reflect.DeepEqual(f.recorder.results, []string{"booked"}) {
		t.Fatalf("unexpected selection records %v", f.recorder.results)
	}
}

func TestBookingService_BookRoomNoneAvailable(t *testing.T) {
	t.Parallel()

	f := newBookingFixture(room("only", "Alps", 4, "2"))
	start, end := baseTime, baseTime.Add(time.Hour)
	f.calendar.busy["only@resource.calendar.google.com"] = []scheduler.Interval{{Start: start.Add(-time.Hour), End: start.Add(time.Minute)}}

	_, err := f.service.BookRoom(context.Background(), BookRoomParams{Principal: alice(), Start: start, End: end})
	if !errors.Is(err, ErrNoRoomAvailable) {
		t.Fatalf("expected ErrNoRoomAvailable, got %v", err)
	}
	if len(f.calendar.inserted) != 0 {
		t.Fatalf("expected no event to be inserted")
	}

	_, err = f.service.BookRoom(context.Background(), BookRoomParams{Principal: alice(), Start: start, End: end, Seats: 50})
	if !errors.Is(err, ErrNoRoomAvailable) {
		t.Fatalf("expected ErrNoRoomAvailable without candidates, got %v", err)
	}
	if len(f.calendar.freeBusy) != 1 {
		t.Fatalf("expected no free/busy query without candidates")
	}
}

func TestBookingService_BookSpecificRoom(t *testing.T) {
	t.Parallel()

	f := newBookingFixture(room("small", "Alps", 4, "2"), room("big", "Everest", 10, "2"))
	start, end := baseTime, baseTime.Add(time.Hour)

	event, err := f.service.BookRoom(context.Background(), BookRoomParams{Principal: alice(), Start: start, End: end, RoomID: "big"})
	if err != nil {
		t.Fatalf("BookRoom returned error: %v", err)
	}
	if event.Room.ID != "big" || event.Title != "Everest" {
		t.Fatalf("expected requested room with default title, got %+v", event)
	}

	f.calendar.busy["big@resource.calendar.google.com"] = []scheduler.Interval{{Start: start, End: end}}
	if _, err := f.service.BookRoom(context.Background(), BookRoomParams{Principal: alice(), Start: start, End: end, RoomID: "big"}); !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}
	if _, err := f.service.BookRoom(context.Background(), BookRoomParams{Principal: alice(), Start: start, End: end, RoomID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_BookRoomValidation(t *testing.T) {
	t.Parallel()

	f := newBookingFixture()
	_, err := f.service.BookRoom(context.Background(), BookRoomParams{
		Principal: alice(),
		Start:     baseTime.Add(time.Hour),
		End:       baseTime,
		Attendees: []string{"not an email"},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.FieldErrors["end"] == "" || vErr.FieldErrors["attendees"] == "" {
		t.Fatalf("unexpected field errors %v", vErr.FieldErrors)
	}
}

func TestBookingService_ShrinkIsUnconditional(t *testing.T) {
	t.Parallel()

	r := room("alps", "Alps", 4, "2")
	f := newBookingFixture(r)
	f.seedEvent("evt", baseTime, baseTime.Add(2*time.Hour), r)
	f.calendar.busy[r.Email] = []scheduler.Interval{{Start: baseTime, End: baseTime.Add(2 * time.Hour)}}

	newEnd := baseTime.Add(time.Hour)
	event, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", End: &newEnd})
	if err != nil {
		t.Fatalf("UpdateEvent returned error: %v", err)
	}
	if !event.End.Equal(newEnd) {
		t.Fatalf("expected end %s, got %s", newEnd, event.End)
	}
	if len(f.calendar.freeBusy) != 0 {
		t.Fatalf("expected no availability check when shrinking")
	}
}

func TestBookingService_GrowthChecksOnlyDelta(t *testing.T) {
	t.Parallel()

	r := room("alps", "Alps", 4, "2")
	f := newBookingFixture(r)
	oldEnd := baseTime.Add(time.Hour)
	f.seedEvent("evt", baseTime, oldEnd, r)
	// the event itself shows up as busy for the room
	f.calendar.busy[r.Email] = []scheduler.Interval{{Start: baseTime, End: oldEnd}}

	newEnd := baseTime.Add(90 * time.Minute)
	if _, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", End: &newEnd}); err != nil {
		t.Fatalf("UpdateEvent returned error: %v", err)
	}
	call := f.calendar.freeBusy[0]
	if !call.Start.Equal(oldEnd) || !call.End.Equal(newEnd) {
		t.Fatalf("expected delta query [%s, %s), got [%s, %s)", oldEnd, newEnd, call.Start, call.End)
	}

	f.calendar.busy[r.Email] = append(f.calendar.busy[r.Email], scheduler.Interval{Start: newEnd.Add(15 * time.Minute), End: newEnd.Add(time.Hour)})
	longer := newEnd.Add(30 * time.Minute)
	_, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", End: &longer})
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}
	if got := f.calendar.events["evt"].End; !got.Equal(newEnd) {
		t.Fatalf("expected event to keep end %s, got %s", newEnd, got)
	}
}

func TestBookingService_ChangeRoom(t *testing.T) {
	t.Parallel()

	from := room("alps", "Alps", 4, "2")
	to := room("andes", "Andes", 6, "2")
	f := newBookingFixture(from, to)
	f.seedEvent("evt", baseTime, baseTime.Add(time.Hour), from, "bob@example.com")

	target := "andes"
	event, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", RoomID: &target})
	if err != nil {
		t.Fatalf("UpdateEvent returned error: %v", err)
	}
	if event.Room.ID != "andes" {
		t.Fatalf("expected new room, got %q", event.Room.ID)
	}

	patch := f.calendar.patches[0]
	emails := make([]string, 0, len(patch.Attendees))
	for _, a := range patch.Attendees {
		emails = append(emails, a.Email)
	}
	if !reflect.DeepEqual(emails, []string{"bob@example.com", to.Email}) {
		t.Fatalf("expected old room swapped for new one, got %v", emails)
	}
	if patch.Attendees[0].ResponseStatus != "accepted" {
		t.Fatalf("expected guest response status to be kept")
	}

	call := f.calendar.freeBusy[0]
	if !reflect.DeepEqual(call.Emails, []string{to.Email}) || !call.Start.Equal(baseTime) || !call.End.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("expected full interval check of the target room, got %+v", call)
	}
}

func TestBookingService_ChangeRoomConflict(t *testing.T) {
	t.Parallel()

	from := room("alps", "Alps", 4, "2")
	to := room("andes", "Andes", 6, "2")
	f := newBookingFixture(from, to)
	f.seedEvent("evt", baseTime, baseTime.Add(time.Hour), from)
	f.calendar.busy[to.Email] = []scheduler.Interval{{Start: baseTime.Add(30 * time.Minute), End: baseTime.Add(2 * time.Hour)}}

	target := "andes"
	_, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", RoomID: &target})
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}
	if len(f.calendar.patches) != 0 {
		t.Fatalf("expected no patch on conflict")
	}
}

func TestBookingService_UpdateRequiresOrganizerAndRoom(t *testing.T) {
	t.Parallel()

	r := room("alps", "Alps", 4, "2")
	f := newBookingFixture(r)
	f.seedEvent("evt", baseTime, baseTime.Add(time.Hour), r)
	f.calendar.events["plain"] = CalendarEvent{ID: "plain", Start: baseTime, End: baseTime.Add(time.Hour), Organizer: "alice@example.com"}

	title := "Renamed"
	bob := Principal{UserID: "1001", Email: "bob@example.com", Domain: "example.com"}
	if _, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: bob, EventID: "evt", Title: &title}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non organizer, got %v", err)
	}
	if _, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "plain", Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for event without room, got %v", err)
	}

	before := baseTime.Add(-time.Minute)
	_, err := f.service.UpdateEvent(context.Background(), UpdateEventParams{Principal: alice(), EventID: "evt", End: &before})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["end"] == "" {
		t.Fatalf("expected end validation error, got %v", err)
	}
}

func TestBookingService_ListAndGetEvents(t *testing.T) {
	t.Parallel()

	r := room("alps", "Alps", 4, "2")
	f := newBookingFixture(r)
	f.seedEvent("room-event", baseTime.Add(time.Hour), baseTime.Add(2*time.Hour), r, "bob@example.com")
	f.calendar.events["lunch"] = CalendarEvent{ID: "lunch", Start: baseTime.Add(3 * time.Hour), End: baseTime.Add(4 * time.Hour)}
	f.seedEvent("far-away", baseTime.Add(48*time.Hour), baseTime.Add(49*time.Hour), r)

	events, err := f.service.ListEvents(context.Background(), ListEventsParams{Principal: alice()})
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "room-event" {
		t.Fatalf("expected only the room event within the lookahead, got %+v", events)
	}
	if events[0].Room.ID != "alps" || !reflect.DeepEqual(events[0].Attendees, []string{"bob@example.com"}) {
		t.Fatalf("unexpected event %+v", events[0])
	}

	event, err := f.service.GetEvent(context.Background(), alice(), "room-event")
	if err != nil || event.Room.ID != "alps" {
		t.Fatalf("GetEvent = %+v, %v", event, err)
	}
	if _, err := f.service.GetEvent(context.Background(), alice(), "lunch"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingService_DeleteEvent(t *testing.T) {
	t.Parallel()

	r := room("alps", "Alps", 4, "2")
	f := newBookingFixture(r)
	f.seedEvent("evt", baseTime, baseTime.Add(time.Hour), r)

	bob := Principal{UserID: "1001", Email: "bob@example.com", Domain: "example.com"}
	if err := f.service.DeleteEvent(context.Background(), bob, "evt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.service.DeleteEvent(context.Background(), alice(), "evt"); err != nil {
		t.Fatalf("DeleteEvent returned error: %v", err)
	}
	if !reflect.DeepEqual(f.calendar.deleted, []string{"evt"}) {
		t.Fatalf("unexpected deletions %v", f.calendar.deleted)
	}

	err := f.service.DeleteEvent(context.Background(), alice(), "evt")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status() != 404 {
		t.Fatalf("expected upstream 404 for a deleted event, got %v", err)
	}
}

func TestBookingService_DeleteEventWithoutRoom(t *testing.T) {
	t.Parallel()

	f := newBookingFixture(room("alps", "Alps", 4, "2"))
	f.calendar.events["dentist"] = CalendarEvent{
		ID:        "dentist",
		Start:     baseTime.Add(time.Hour),
		End:       baseTime.Add(2 * time.Hour),
		Organizer: "alice@example.com",
	}

	if _, err := f.service.GetEvent(context.Background(), alice(), "dentist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from GetEvent, got %v", err)
	}
	if err := f.service.DeleteEvent(context.Background(), alice(), "dentist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from DeleteEvent, got %v", err)
	}
	if len(f.calendar.deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", f.calendar.deleted)
	}
	if _, ok := f.calendar.events["dentist"]; !ok {
		t.Fatalf("event without a room must stay on the calendar")
	}
}
