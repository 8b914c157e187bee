package main

import (
	"context"

	"github.com/example/room-booker/internal/application"
	"github.com/example/room-booker/internal/persistence"
)

// userStore adapts persistence.UserRepository to application.UserStore.
type userStore struct {
	repo persistence.UserRepository
}

func newUserStore(repo persistence.UserRepository) *userStore {
	return &userStore{repo: repo}
}

func (s *userStore) UpsertUser(ctx context.Context, user application.User) error {
	return s.repo.UpsertUser(ctx, persistence.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Domain:    user.Domain,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

func (s *userStore) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return application.User{
		ID:        stored.ID,
		Name:      stored.Name,
		Email:     stored.Email,
		Domain:    stored.Domain,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// authStore adapts persistence.AuthRepository to application.AuthStore.
type authStore struct {
	repo persistence.AuthRepository
}

func newAuthStore(repo persistence.AuthRepository) *authStore {
	return &authStore{repo: repo}
}

func (s *authStore) UpsertAuth(ctx context.Context, userID string, tokens application.TokenBundle) error {
	return s.repo.UpsertAuth(ctx, persistence.Auth{
		UserID:       userID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		Scope:        tokens.Scope,
		TokenType:    tokens.TokenType,
		Expiry:       tokens.Expiry,
	})
}

func (s *authStore) GetAuth(ctx context.Context, userID string) (application.TokenBundle, error) {
	stored, err := s.repo.GetAuth(ctx, userID)
	if err != nil {
		return application.TokenBundle{}, err
	}
	return application.TokenBundle{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		IDToken:      stored.IDToken,
		Scope:        stored.Scope,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}, nil
}

func (s *authStore) DeleteAuth(ctx context.Context, userID string) error {
	return s.repo.DeleteAuth(ctx, userID)
}

// roomStore adapts persistence.ConferenceRoomRepository to application.RoomStore.
type roomStore struct {
	repo persistence.ConferenceRoomRepository
}

func newRoomStore(repo persistence.ConferenceRoomRepository) *roomStore {
	return &roomStore{repo: repo}
}

func (s *roomStore) ReplaceRooms(ctx context.Context, domain string, rooms []application.ConferenceRoom) error {
	models := make([]persistence.ConferenceRoom, 0, len(rooms))
	for _, room := range rooms {
		models = append(models, persistence.ConferenceRoom{
			ID:          room.ID,
			Domain:      domain,
			Name:        room.Name,
			Email:       room.Email,
			Seats:       room.Seats,
			Floor:       room.Floor,
			Description: room.Description,
		})
	}
	return s.repo.ReplaceRoomsForDomain(ctx, domain, models)
}

func (s *roomStore) ListRooms(ctx context.Context, domain string) ([]application.ConferenceRoom, error) {
	models, err := s.repo.ListRoomsByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.ConferenceRoom, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (s *roomStore) GetRoom(ctx context.Context, domain, id string) (application.ConferenceRoom, error) {
	stored, err := s.repo.GetRoom(ctx, domain, id)
	if err != nil {
		return application.ConferenceRoom{}, err
	}
	return toApplicationRoom(stored), nil
}

func (s *roomStore) ListFloors(ctx context.Context, domain string) ([]string, error) {
	return s.repo.ListFloors(ctx, domain)
}

func (s *roomStore) CountRooms(ctx context.Context, domain string) (int, error) {
	return s.repo.CountRoomsByDomain(ctx, domain)
}

func toApplicationRoom(model persistence.ConferenceRoom) application.ConferenceRoom {
	return application.ConferenceRoom{
		ID:          model.ID,
		Domain:      model.Domain,
		Name:        model.Name,
		Email:       model.Email,
		Seats:       model.Seats,
		Floor:       model.Floor,
		Description: model.Description,
	}
}
