package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/example/room-booker/internal/persistence"
)

// AuthRepository implements persistence.AuthRepository.
type AuthRepository struct {
	pool   *ConnectionPool
	mapper ErrorMapper
	now    func() time.Time
}

// NewAuthRepository creates an auth repository backed by pool.
func NewAuthRepository(pool *ConnectionPool) *AuthRepository {
	return &AuthRepository{pool: pool, now: time.Now}
}

type authRow struct {
	UserID       string `db:"user_id"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	IDToken      string `db:"id_token"`
	Scope        string `db:"scope"`
	TokenType    string `db:"token_type"`
	Expiry       string `db:"expiry"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r authRow) toModel() (persistence.Auth, error) {
	expiry, err := parseTime("expiry", r.Expiry)
	if err != nil {
		return persistence.Auth{}, err
	}
	createdAt, err := parseTime("created_at", r.CreatedAt)
	if err != nil {
		return persistence.Auth{}, err
	}
	updatedAt, err := parseTime("updated_at", r.UpdatedAt)
	if err != nil {
		return persistence.Auth{}, err
	}
	return persistence.Auth{
		UserID:       r.UserID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		IDToken:      r.IDToken,
		Scope:        r.Scope,
		TokenType:    r.TokenType,
		Expiry:       expiry,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// A login without a refresh token keeps the one stored from an earlier consent.
const upsertAuthSQL = `
	INSERT INTO auth (user_id, access_token, refresh_token, id_token, scope, token_type, expiry, created_at, updated_at)
	VALUES (:user_id, :access_token, :refresh_token, :id_token, :scope, :token_type, :expiry, :created_at, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = CASE WHEN excluded.refresh_token = '' THEN auth.refresh_token ELSE excluded.refresh_token END,
		id_token = excluded.id_token,
		scope = excluded.scope,
		token_type = excluded.token_type,
		expiry = excluded.expiry,
		updated_at = excluded.updated_at`

// UpsertAuth stores the token bundle for a user, replacing the previous one.
func (r *AuthRepository) UpsertAuth(ctx context.Context, auth persistence.Auth) error {
	if strings.TrimSpace(auth.UserID) == "" || auth.AccessToken == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	if auth.CreatedAt.IsZero() {
		auth.CreatedAt = now
	}
	if auth.UpdatedAt.IsZero() {
		auth.UpdatedAt = now
	}

	row := authRow{
		UserID:       auth.UserID,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		IDToken:      auth.IDToken,
		Scope:        auth.Scope,
		TokenType:    auth.TokenType,
		Expiry:       formatTime(auth.Expiry),
		CreatedAt:    formatTime(auth.CreatedAt),
		UpdatedAt:    formatTime(auth.UpdatedAt),
	}
	if _, err := r.pool.DB().NamedExecContext(ctx, upsertAuthSQL, row); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetAuth returns the token bundle for userID.
func (r *AuthRepository) GetAuth(ctx context.Context, userID string) (persistence.Auth, error) {
	if userID == "" {
		return persistence.Auth{}, persistence.ErrNotFound
	}
	db := r.pool.DB()
	query := db.Rebind(`
		SELECT user_id, access_token, refresh_token, id_token, scope, token_type, expiry, created_at, updated_at
		FROM auth WHERE user_id = ?`)

	var row authRow
	if err := db.GetContext(ctx, &row, query, userID); err != nil {
		return persistence.Auth{}, r.mapper.MapError(err)
	}
	return row.toModel()
}

// DeleteAuth removes the token bundle for userID. Deleting a missing row is
// not an error.
func (r *AuthRepository) DeleteAuth(ctx context.Context, userID string) error {
	db := r.pool.DB()
	if _, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM auth WHERE user_id = ?`), userID); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}
