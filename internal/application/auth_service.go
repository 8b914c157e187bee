package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booker/internal/auth"
	"github.com/example/room-booker/internal/logging"
)

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Users     UserStore
	Auth      AuthStore
	Rooms     RoomStore
	Identity  IdentityProvider
	Directory Directory
	Sessions  SessionIssuer
	Cipher    TokenCipher
	Now       func() time.Time
}

// AuthService coordinates the Google login, session verification and logout.
type AuthService struct {
	users     UserStore
	creds     credentials
	rooms     RoomStore
	identity  IdentityProvider
	directory Directory
	sessions  SessionIssuer
	now       func() time.Time
	logger    *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthDependencies) *AuthService {
	return NewAuthServiceWithLogger(deps, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(deps AuthDependencies, logger *slog.Logger) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:     deps.Users,
		creds:     credentials{store: deps.Auth, cipher: deps.Cipher},
		rooms:     deps.Rooms,
		identity:  deps.Identity,
		directory: deps.Directory,
		sessions:  deps.Sessions,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// AuthCodeURL returns the Google consent URL for state.
func (s *AuthService) AuthCodeURL(state string) (string, error) {
	if s == nil || s.identity == nil {
		return "", fmt.Errorf("identity provider not configured")
	}
	return s.identity.AuthCodeURL(state), nil
}

// HandleCallback exchanges an authorization code, records the user and its
// tokens, seeds the room cache of a new domain and issues a session token.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.identity == nil || s.sessions == nil || s.users == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "HandleCallback")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"domain", result.User.Domain,
			logging.UserHash(result.User.Email),
		).InfoContext(ctx, "login succeeded")
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		vErr := &ValidationError{}
		vErr.add("code", "authorization code is required")
		err = vErr
		return
	}

	var tokens TokenBundle
	tokens, err = s.identity.Exchange(ctx, code)
	if err != nil {
		return
	}

	var profile GoogleProfile
	profile, err = s.identity.UserInfo(ctx, tokens)
	if err != nil {
		return
	}
	if profile.Subject == "" || profile.Email == "" {
		err = fmt.Errorf("userinfo response is missing subject or email")
		return
	}

	domain := strings.ToLower(strings.TrimSpace(profile.HostedDomain))
	if domain == "" {
		domain = logging.DomainOf(profile.Email)
	}

	now := s.now()
	user := User{
		ID:        profile.Subject,
		Name:      strings.TrimSpace(profile.Name),
		Email:     strings.ToLower(strings.TrimSpace(profile.Email)),
		Domain:    domain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.users.UpsertUser(ctx, user); err != nil {
		return
	}
	if err = s.creds.save(ctx, user.ID, tokens); err != nil {
		return
	}

	s.seedRooms(ctx, logger, domain, tokens)

	var token string
	var expiresAt time.Time
	token, expiresAt, err = s.sessions.Generate(auth.Identity{UserID: user.ID, Email: user.Email, Domain: user.Domain})
	if err != nil {
		return
	}

	result = LoginResult{Token: token, ExpiresAt: expiresAt, User: user}
	return
}

// seedRooms syncs the room cache the first time someone of domain logs in.
// Failures are logged only: users without directory access can still sign in.
func (s *AuthService) seedRooms(ctx context.Context, logger *slog.Logger, domain string, tokens TokenBundle) {
	if s.rooms == nil || s.directory == nil {
		return
	}
	count, err := s.rooms.CountRooms(ctx, domain)
	if err != nil {
		logger.WarnContext(ctx, "failed to count cached rooms", "error", err)
		return
	}
	if count > 0 {
		return
	}

	rooms, err := s.directory.ListRoomResources(ctx, tokens)
	if err != nil {
		logger.WarnContext(ctx, "initial room sync failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	for i := range rooms {
		rooms[i].Domain = domain
	}
	if err := s.rooms.ReplaceRooms(ctx, domain, rooms); err != nil {
		logger.WarnContext(ctx, "failed to store synced rooms", "error", err)
		return
	}
	logger.InfoContext(ctx, "room cache seeded", "rooms", len(rooms))
}

// Authenticate verifies a session token and returns its principal. Tokens of
// users who logged out are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil {
		return Principal{}, ErrUnauthenticated
	}

	identity, err := s.sessions.Validate(token)
	if err != nil {
		s.loggerWith(ctx, "Authenticate").DebugContext(ctx, "session token rejected",
			"token", logging.SanitizeToken(token),
			"error", err,
		)
		return Principal{}, ErrUnauthenticated
	}

	if s.creds.store != nil {
		if _, err := s.creds.store.GetAuth(ctx, identity.UserID); err != nil {
			if errors.Is(mapStoreError(err), ErrNotFound) {
				return Principal{}, ErrUnauthenticated
			}
			return Principal{}, err
		}
	}

	return Principal{UserID: identity.UserID, Email: identity.Email, Domain: identity.Domain}, nil
}

// Logout forgets the caller's Google tokens, which also invalidates every
// outstanding session token of the user.
func (s *AuthService) Logout(ctx context.Context, principal Principal) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.creds.store == nil {
		return fmt.Errorf("auth store not configured")
	}

	logger := s.loggerWith(ctx, "Logout", "user_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "logged out")
	}()

	if principal.UserID == "" {
		return ErrUnauthenticated
	}
	err = mapStoreError(s.creds.store.DeleteAuth(ctx, principal.UserID))
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	return err
}
