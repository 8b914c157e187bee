package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booker/internal/application"
)

type bookingService interface {
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	BookRoom(ctx context.Context, params application.BookRoomParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// List returns the caller's events that hold a conference room.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	start, end, err := parseWindow(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "List")
	events, err := h.service.ListEvents(r.Context(), application.ListEventsParams{
		Principal: principal,
		Start:     start,
		End:       end,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(events)).InfoContext(r.Context(), "events listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDParam(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), principal, eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).ErrorContext(r.Context(), "event fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

// Book reserves a room. Without room_id the smallest free room matching
// seats and floor is chosen.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Book", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Book", "seats", req.Seats, "floor", req.Floor, "room_id", req.RoomID)
	event, err := h.service.BookRoom(r.Context(), req.toParams(principal))
	if err != nil {
		logger.ErrorContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID, "booked_room", event.Room.ID).InfoContext(r.Context(), "room booked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

// Update changes the end, room or text of a booking. Omitted fields are kept.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDParam(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "event_id", eventID)
	event, err := h.service.UpdateEvent(r.Context(), req.toParams(principal, eventID))
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(event))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := eventIDParam(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "event_id", eventID)
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		logger.ErrorContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func eventIDParam(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	return id, id != ""
}

type bookRequest struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Seats       int       `json:"seats"`
	Floor       string    `json:"floor"`
	RoomID      string    `json:"room_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Attendees   []string  `json:"attendees"`
}

func (r bookRequest) toParams(principal application.Principal) application.BookRoomParams {
	return application.BookRoomParams{
		Principal:   principal,
		Start:       r.Start,
		End:         r.End,
		Seats:       r.Seats,
		Floor:       strings.TrimSpace(r.Floor),
		RoomID:      strings.TrimSpace(r.RoomID),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Attendees:   r.Attendees,
	}
}

type updateRequest struct {
	End         *time.Time `json:"end"`
	RoomID      *string    `json:"room_id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Attendees   *[]string  `json:"attendees"`
}

func (r updateRequest) toParams(principal application.Principal, eventID string) application.UpdateEventParams {
	params := application.UpdateEventParams{
		Principal:   principal,
		EventID:     eventID,
		End:         r.End,
		Description: r.Description,
		Attendees:   r.Attendees,
	}
	if r.RoomID != nil {
		roomID := strings.TrimSpace(*r.RoomID)
		params.RoomID = &roomID
	}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		params.Title = &title
	}
	return params
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees"`
	Room        roomDTO  `json:"room"`
	Organizer   string   `json:"organizer,omitempty"`
	HTMLLink    string   `json:"html_link,omitempty"`
}

func toEventDTO(event application.Event) eventDTO {
	attendees := event.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return eventDTO{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Start:       event.Start.Format(time.RFC3339),
		End:         event.End.Format(time.RFC3339),
		Attendees:   attendees,
		Room:        toRoomDTO(event.Room),
		Organizer:   event.Organizer,
		HTMLLink:    event.HTMLLink,
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}
