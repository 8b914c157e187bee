package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-booker/internal/application"
)

type roomService interface {
	ListFloors(ctx context.Context, principal application.Principal) ([]string, error)
	ListRooms(ctx context.Context, principal application.Principal) ([]application.ConferenceRoom, error)
	SyncRooms(ctx context.Context, principal application.Principal) ([]application.ConferenceRoom, error)
	AvailableRooms(ctx context.Context, params application.AvailableRoomsParams) ([]application.ConferenceRoom, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Floors(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Floors")

	floors, err := h.service.ListFloors(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "floor list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if floors == nil {
		floors = []string{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, floorsResponse{Floors: floors})
}

// Available lists the rooms free for the whole requested window.
func (h *RoomHandler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	start, end, err := parseWindow(query)
	if err != nil {
		h.log(r.Context(), "Available", "error_kind", "bad_request").WarnContext(r.Context(), "invalid availability query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	seats, err := parseSeats(query.Get("seats"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	floor := strings.TrimSpace(query.Get("floor"))

	logger := h.log(r.Context(), "Available", "seats", seats, "floor", floor)
	rooms, err := h.service.AvailableRooms(r.Context(), application.AvailableRoomsParams{
		Principal: principal,
		Start:     start,
		End:       end,
		Seats:     seats,
		Floor:     floor,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "available rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	rooms, err := h.service.ListRooms(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomsResponse{Rooms: toRoomDTOs(rooms)})
}

// Sync refreshes the cached rooms of the caller's domain from the directory.
func (h *RoomHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Sync", "domain", principal.Domain)

	rooms, err := h.service.SyncRooms(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "room sync failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "rooms synced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomsResponse{Rooms: toRoomDTOs(rooms)})
}

type floorsResponse struct {
	Floors []string `json:"floors"`
}

type roomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Seats       int    `json:"seats"`
	Floor       string `json:"floor,omitempty"`
	Description string `json:"description,omitempty"`
}

func toRoomDTO(room application.ConferenceRoom) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Email:       room.Email,
		Seats:       room.Seats,
		Floor:       room.Floor,
		Description: room.Description,
	}
}

func toRoomDTOs(rooms []application.ConferenceRoom) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

// parseWindow reads the optional start and end query parameters as RFC 3339.
func parseWindow(query url.Values) (start, end time.Time, err error) {
	if start, err = parseTimeParam(query, "start"); err != nil {
		return
	}
	end, err = parseTimeParam(query, "end")
	return
}

func parseTimeParam(query url.Values, name string) (time.Time, error) {
	value := strings.TrimSpace(query.Get(name))
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("query parameter %s must be an RFC 3339 timestamp", name)
	}
	return parsed, nil
}

func parseSeats(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	seats, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("query parameter seats must be an integer")
	}
	return seats, nil
}
