package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booker/internal/persistence"
)

// ConferenceRoomRepository implements persistence.ConferenceRoomRepository.
type ConferenceRoomRepository struct {
	pool   *ConnectionPool
	mapper ErrorMapper
	now    func() time.Time
}

// NewConferenceRoomRepository creates a room repository backed by pool.
func NewConferenceRoomRepository(pool *ConnectionPool) *ConferenceRoomRepository {
	return &ConferenceRoomRepository{pool: pool, now: time.Now}
}

type roomRow struct {
	ID          string `db:"id"`
	Domain      string `db:"domain"`
	Name        string `db:"name"`
	Email       string `db:"email"`
	Seats       int    `db:"seats"`
	Floor       string `db:"floor"`
	Description string `db:"description"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func (r roomRow) toModel() (persistence.ConferenceRoom, error) {
	createdAt, err := parseTime("created_at", r.CreatedAt)
	if err != nil {
		return persistence.ConferenceRoom{}, err
	}
	updatedAt, err := parseTime("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.ConferenceRoom{}, err
	}
	return persistence.ConferenceRoom{
		ID:          r.ID,
		Domain:      r.Domain,
		Name:        r.Name,
		Email:       r.Email,
		Seats:       r.Seats,
		Floor:       r.Floor,
		Description: r.Description,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

const roomColumns = `id, domain, name, email, seats, floor, description, created_at, updated_at`

const upsertRoomSQL = `
	INSERT INTO conference_rooms (` + roomColumns + `)
	VALUES (:id, :domain, :name, :email, :seats, :floor, :description, :created_at, :updated_at)
	ON CONFLICT (domain, id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		seats = excluded.seats,
		floor = excluded.floor,
		description = excluded.description,
		updated_at = excluded.updated_at`

// ReplaceRoomsForDomain makes the cached rooms of domain equal to rooms.
func (r *ConferenceRoomRepository) ReplaceRoomsForDomain(ctx context.Context, domain string, rooms []persistence.ConferenceRoom) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	rows := make([]roomRow, 0, len(rooms))
	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		if strings.TrimSpace(room.ID) == "" || strings.TrimSpace(room.Email) == "" || room.Seats < 0 {
			return persistence.ErrConstraintViolation
		}
		rows = append(rows, roomRow{
			ID:          room.ID,
			Domain:      domain,
			Name:        room.Name,
			Email:       strings.ToLower(room.Email),
			Seats:       room.Seats,
			Floor:       strings.TrimSpace(room.Floor),
			Description: room.Description,
			CreatedAt:   formatTime(now),
			UpdatedAt:   formatTime(now),
		})
		ids = append(ids, room.ID)
	}

	err := r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := pruneRooms(ctx, tx, domain, ids); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, upsertRoomSQL, row); err != nil {
				return err
			}
		}
		return nil
	})
	return r.mapper.MapError(err)
}

func pruneRooms(ctx context.Context, tx *sqlx.Tx, domain string, keep []string) error {
	if len(keep) == 0 {
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM conference_rooms WHERE domain = ?`), domain)
		return err
	}
	query, args, err := sqlx.In(`DELETE FROM conference_rooms WHERE domain = ? AND id NOT IN (?)`, domain, keep)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return err
}

// ListRoomsByDomain returns the cached rooms of domain ordered by name.
func (r *ConferenceRoomRepository) ListRoomsByDomain(ctx context.Context, domain string) ([]persistence.ConferenceRoom, error) {
	db := r.pool.DB()
	query := db.Rebind(`SELECT ` + roomColumns + ` FROM conference_rooms WHERE domain = ? ORDER BY name ASC, id ASC`)

	var rows []roomRow
	if err := db.SelectContext(ctx, &rows, query, strings.ToLower(domain)); err != nil {
		return nil, r.mapper.MapError(err)
	}

	rooms := make([]persistence.ConferenceRoom, 0, len(rows))
	for _, row := range rows {
		room, err := row.toModel()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// GetRoom returns one cached room by resource id.
func (r *ConferenceRoomRepository) GetRoom(ctx context.Context, domain, id string) (persistence.ConferenceRoom, error) {
	if id == "" {
		return persistence.ConferenceRoom{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, domain, "id", id)
}

// GetRoomByEmail returns one cached room by resource calendar address.
func (r *ConferenceRoomRepository) GetRoomByEmail(ctx context.Context, domain, email string) (persistence.ConferenceRoom, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return persistence.ConferenceRoom{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, domain, "email", email)
}

func (r *ConferenceRoomRepository) getBy(ctx context.Context, domain, column, value string) (persistence.ConferenceRoom, error) {
	db := r.pool.DB()
	query := db.Rebind(`SELECT ` + roomColumns + ` FROM conference_rooms WHERE domain = ? AND ` + column + ` = ?`)

	var row roomRow
	if err := db.GetContext(ctx, &row, query, strings.ToLower(domain), value); err != nil {
		return persistence.ConferenceRoom{}, r.mapper.MapError(err)
	}
	return row.toModel()
}

// ListFloors returns the distinct non-empty floors of domain.
func (r *ConferenceRoomRepository) ListFloors(ctx context.Context, domain string) ([]string, error) {
	db := r.pool.DB()
	query := db.Rebind(`SELECT DISTINCT floor FROM conference_rooms WHERE domain = ? AND floor <> '' ORDER BY floor ASC`)

	var floors []string
	if err := db.SelectContext(ctx, &floors, query, strings.ToLower(domain)); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return floors, nil
}

// CountRoomsByDomain reports how many rooms are cached for domain.
func (r *ConferenceRoomRepository) CountRoomsByDomain(ctx context.Context, domain string) (int, error) {
	db := r.pool.DB()
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM conference_rooms WHERE domain = ?`), strings.ToLower(domain)); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}
