package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booker/internal/application"
)

var (
	testPrincipal = application.Principal{UserID: "1001", Email: "alice@example.com", Domain: "example.com"}
	baseTime      = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tokyoRoom     = application.ConferenceRoom{ID: "r-1", Domain: "example.com", Name: "Tokyo", Email: "tokyo@resource.calendar.google.com", Seats: 6, Floor: "3"}
)

type stubAuthService struct {
	result    application.LoginResult
	err       error
	codes     []string
	states    []string
	logoutErr error
	loggedOut []application.Principal
}

func (s *stubAuthService) AuthCodeURL(state string) (string, error) {
	s.states = append(s.states, state)
	return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
}

func (s *stubAuthService) HandleCallback(ctx context.Context, code string) (application.LoginResult, error) {
	s.codes = append(s.codes, code)
	return s.result, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, principal application.Principal) error {
	s.loggedOut = append(s.loggedOut, principal)
	return s.logoutErr
}

type stubRoomService struct {
	floors    []string
	rooms     []application.ConferenceRoom
	err       error
	available []application.AvailableRoomsParams
}

func (s *stubRoomService) ListFloors(ctx context.Context, principal application.Principal) ([]string, error) {
	return s.floors, s.err
}

func (s *stubRoomService) ListRooms(ctx context.Context, principal application.Principal) ([]application.ConferenceRoom, error) {
	return s.rooms, s.err
}

func (s *stubRoomService) SyncRooms(ctx context.Context, principal application.Principal) ([]application.ConferenceRoom, error) {
	return s.rooms, s.err
}

func (s *stubRoomService) AvailableRooms(ctx context.Context, params application.AvailableRoomsParams) ([]application.ConferenceRoom, error) {
	s.available = append(s.available, params)
	return s.rooms, s.err
}

type stubBookingService struct {
	event   application.Event
	events  []application.Event
	err     error
	listed  []application.ListEventsParams
	booked  []application.BookRoomParams
	updated []application.UpdateEventParams
	deleted []string
}

func (s *stubBookingService) ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error) {
	s.listed = append(s.listed, params)
	return s.events, s.err
}

func (s *stubBookingService) GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error) {
	return s.event, s.err
}

func (s *stubBookingService) BookRoom(ctx context.Context, params application.BookRoomParams) (application.Event, error) {
	s.booked = append(s.booked, params)
	return s.event, s.err
}

func (s *stubBookingService) UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error) {
	s.updated = append(s.updated, params)
	return s.event, s.err
}

func (s *stubBookingService) DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return s.err
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

type routerFixture struct {
	auth     *stubAuthService
	rooms    *stubRoomService
	bookings *stubBookingService
	handler  http.Handler
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		auth:     &stubAuthService{},
		rooms:    &stubRoomService{},
		bookings: &stubBookingService{},
	}
	logger := quietLogger()
	f.handler = NewRouter(RouterConfig{
		Auth:     NewAuthHandler(f.auth, logger),
		Rooms:    NewRoomHandler(f.rooms, logger),
		Bookings: NewBookingHandler(f.bookings, logger),
		Sessions: &fakeAuthenticator{principal: testPrincipal},
		Logger:   logger,
		Health:   HealthHandler(stubPinger{}, logger),
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func bookedEvent() application.Event {
	return application.Event{
		ID:        "evt-1",
		Title:     "Planning",
		Start:     baseTime,
		End:       baseTime.Add(time.Hour),
		Attendees: []string{"bob@example.com"},
		Room:      tokyoRoom,
		Organizer: "alice@example.com",
		HTMLLink:  "https://calendar.google.com/event?eid=1",
	}
}

func TestAuthHandler_Callback(t *testing.T) {
	t.Run("query code issues a session", func(t *testing.T) {
		f := newRouterFixture(t)
		f.auth.result = application.LoginResult{
			Token:     "jwt",
			ExpiresAt: baseTime.Add(24 * time.Hour),
			User:      application.User{ID: "1001", Email: "alice@example.com", Name: "Alice", Domain: "example.com"},
		}

		rec := f.do(t, http.MethodGet, "/oauth2callback?code=abc&scope=email", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body loginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "jwt", body.Token)
		assert.Equal(t, "2025-03-11T09:00:00Z", body.ExpiresAt)
		assert.Equal(t, "example.com", body.User.Domain)
		assert.Equal(t, []string{"abc"}, f.auth.codes)
	})

	t.Run("posted code is accepted", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/oauth2callback", `{"code":" xyz "}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"xyz"}, f.auth.codes)
	})

	t.Run("denied consent is reported without exchanging", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/oauth2callback?error=access_denied", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.auth.codes)
	})

	t.Run("google rejection keeps its status", func(t *testing.T) {
		f := newRouterFixture(t)
		f.auth.err = &application.UpstreamError{StatusCode: http.StatusBadRequest, Operation: "oauth2.exchange", Err: errors.New("invalid_grant")}
		rec := f.do(t, http.MethodGet, "/oauth2callback?code=used", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, codeUpstream, decodeError(t, rec).ErrorCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/oauth2callback", `{"code":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_ConsentURL(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodGet, "/oauth2/url", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body consentURLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body.State)
	assert.Contains(t, body.URL, "state="+body.State)
}

func TestAuthHandler_Logout(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(t, http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []application.Principal{testPrincipal}, f.auth.loggedOut)

	rec = f.do(t, http.MethodGet, "/logout", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_RequiresSession(t *testing.T) {
	f := newRouterFixture(t)
	for _, target := range []string{"/rooms", "/room?id=1", "/available-rooms", "/floors", "/conference-rooms"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Equal(t, codeAuthRequired, decodeError(t, rec).ErrorCode, target)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoomHandler_Available(t *testing.T) {
	t.Run("parses the query", func(t *testing.T) {
		f := newRouterFixture(t)
		f.rooms.rooms = []application.ConferenceRoom{tokyoRoom}

		rec := f.do(t, http.MethodGet, "/available-rooms?start=2025-03-10T09:00:00Z&end=2025-03-10T10:00:00Z&seats=4&floor=3", "")
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, f.rooms.available, 1)
		params := f.rooms.available[0]
		assert.Equal(t, testPrincipal, params.Principal)
		assert.True(t, params.Start.Equal(baseTime))
		assert.True(t, params.End.Equal(baseTime.Add(time.Hour)))
		assert.Equal(t, 4, params.Seats)
		assert.Equal(t, "3", params.Floor)

		var body roomsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, []roomDTO{{ID: "r-1", Name: "Tokyo", Email: "tokyo@resource.calendar.google.com", Seats: 6, Floor: "3"}}, body.Rooms)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/available-rooms?start=2025-03-10T09:00:00Z&end=2025-03-10T10:00:00Z", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"rooms":[]}`, rec.Body.String())
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodGet, "/available-rooms?start=tomorrow", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = f.do(t, http.MethodGet, "/available-rooms?seats=many", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.rooms.available)
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		f := newRouterFixture(t)
		f.rooms.err = &application.ValidationError{FieldErrors: map[string]string{"start": "start is required"}}

		rec := f.do(t, http.MethodGet, "/available-rooms", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, codeValidation, body.ErrorCode)
		assert.Equal(t, "start is required", body.Errors["start"])
	})
}

func TestRoomHandler_FloorsAndCache(t *testing.T) {
	f := newRouterFixture(t)
	f.rooms.floors = []string{"2", "3"}
	f.rooms.rooms = []application.ConferenceRoom{tokyoRoom}

	rec := f.do(t, http.MethodGet, "/floors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"floors":["2","3"]}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/conference-rooms", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/conference-rooms/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/floors", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestRoomHandler_SyncWithoutAdminAccess(t *testing.T) {
	f := newRouterFixture(t)
	f.rooms.err = &application.UpstreamError{StatusCode: http.StatusForbidden, Operation: "directory.resources.calendars.list"}

	rec := f.do(t, http.MethodPost, "/conference-rooms/sync", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeUpstream, decodeError(t, rec).ErrorCode)
}

func TestBookingHandler_List(t *testing.T) {
	f := newRouterFixture(t)
	f.bookings.events = []application.Event{bookedEvent()}

	rec := f.do(t, http.MethodGet, "/rooms?start=2025-03-10T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.bookings.listed, 1)
	assert.True(t, f.bookings.listed[0].Start.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.bookings.listed[0].End.IsZero())

	assert.JSONEq(t, `{"events":[{
		"id":"evt-1",
		"title":"Planning",
		"start":"2025-03-10T09:00:00Z",
		"end":"2025-03-10T10:00:00Z",
		"attendees":["bob@example.com"],
		"room":{"id":"r-1","name":"Tokyo","email":"tokyo@resource.calendar.google.com","seats":6,"floor":"3"},
		"organizer":"alice@example.com",
		"html_link":"https://calendar.google.com/event?eid=1"
	}]}`, rec.Body.String())
}

func TestBookingHandler_Book(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.event = bookedEvent()

		rec := f.do(t, http.MethodPost, "/room", `{
			"start":"2025-03-10T09:00:00Z",
			"end":"2025-03-10T10:00:00Z",
			"seats":4,
			"floor":" 3 ",
			"title":"Planning",
			"attendees":["bob@example.com"]
		}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		require.Len(t, f.bookings.booked, 1)
		params := f.bookings.booked[0]
		assert.Equal(t, testPrincipal, params.Principal)
		assert.Equal(t, 4, params.Seats)
		assert.Equal(t, "3", params.Floor)
		assert.Empty(t, params.RoomID)
		assert.Equal(t, []string{"bob@example.com"}, params.Attendees)
	})

	t.Run("no room available", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.err = application.ErrNoRoomAvailable

		rec := f.do(t, http.MethodPost, "/room", `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, codeNoRoomAvailable, decodeError(t, rec).ErrorCode)
	})

	t.Run("rate limited by google", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.err = &application.UpstreamError{StatusCode: http.StatusTooManyRequests, Operation: "calendar.freebusy.query"}

		rec := f.do(t, http.MethodPost, "/room", `{"start":"2025-03-10T09:00:00Z","end":"2025-03-10T10:00:00Z"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, codeRateLimited, decodeError(t, rec).ErrorCode)
	})

	t.Run("malformed timestamps", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPost, "/room", `{"start":"monday"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, codeBadRequest, decodeError(t, rec).ErrorCode)
		assert.Empty(t, f.bookings.booked)
	})
}

func TestBookingHandler_Update(t *testing.T) {
	t.Run("passes only supplied fields", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.event = bookedEvent()

		rec := f.do(t, http.MethodPut, "/room?id=evt-1", `{"end":"2025-03-10T10:30:00Z","room_id":" r-2 "}`)
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, f.bookings.updated, 1)
		params := f.bookings.updated[0]
		assert.Equal(t, "evt-1", params.EventID)
		require.NotNil(t, params.End)
		assert.True(t, params.End.Equal(baseTime.Add(90*time.Minute)))
		require.NotNil(t, params.RoomID)
		assert.Equal(t, "r-2", *params.RoomID)
		assert.Nil(t, params.Title)
		assert.Nil(t, params.Description)
		assert.Nil(t, params.Attendees)
	})

	t.Run("requires an id", func(t *testing.T) {
		f := newRouterFixture(t)
		rec := f.do(t, http.MethodPut, "/room", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.bookings.updated)
	})

	t.Run("room taken", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.err = application.ErrRoomUnavailable
		rec := f.do(t, http.MethodPut, "/room?id=evt-1", `{"end":"2025-03-10T11:00:00Z"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, codeRoomUnavailable, decodeError(t, rec).ErrorCode)
	})

	t.Run("not the organizer", func(t *testing.T) {
		f := newRouterFixture(t)
		f.bookings.err = application.ErrUnauthorized
		rec := f.do(t, http.MethodPut, "/room?id=evt-1", `{"title":"Mine"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestBookingHandler_GetAndDelete(t *testing.T) {
	f := newRouterFixture(t)
	f.bookings.event = bookedEvent()

	rec := f.do(t, http.MethodGet, "/room?id=evt-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/room?id=evt-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"evt-1"}, f.bookings.deleted)
	assert.Empty(t, rec.Body.String())

	f.bookings.err = application.ErrNotFound
	rec = f.do(t, http.MethodGet, "/room?id=gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPatch, "/room?id=evt-1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	handler := HealthHandler(stubPinger{err: errors.New("connection refused")}, quietLogger())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","database":"unreachable"}`, rec.Body.String())
}
