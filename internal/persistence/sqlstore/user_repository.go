package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/example/room-booker/internal/persistence"
)

// UserRepository implements persistence.UserRepository.
type UserRepository struct {
	pool   *ConnectionPool
	mapper ErrorMapper
	now    func() time.Time
}

// NewUserRepository creates a user repository backed by pool.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

type userRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Domain    string `db:"domain"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r userRow) toModel() (persistence.User, error) {
	createdAt, err := parseTime("created_at", r.CreatedAt)
	if err != nil {
		return persistence.User{}, err
	}
	updatedAt, err := parseTime("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Domain:    r.Domain,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

const upsertUserSQL = `
	INSERT INTO users (id, name, email, domain, created_at, updated_at)
	VALUES (:id, :name, :email, :domain, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		domain = excluded.domain,
		updated_at = excluded.updated_at`

// UpsertUser inserts the user or refreshes its profile fields. CreatedAt of an
// existing row is preserved.
func (r *UserRepository) UpsertUser(ctx context.Context, user persistence.User) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	row := userRow{
		ID:        user.ID,
		Name:      user.Name,
		Email:     strings.ToLower(user.Email),
		Domain:    strings.ToLower(user.Domain),
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
	if _, err := r.pool.DB().NamedExecContext(ctx, upsertUserSQL, row); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetUser retrieves a user by Google subject.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (persistence.User, error) {
	db := r.pool.DB()
	query := db.Rebind(`SELECT id, name, email, domain, created_at, updated_at FROM users WHERE ` + column + ` = ?`)

	var row userRow
	if err := db.GetContext(ctx, &row, query, value); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return row.toModel()
}
