package application

import (
	"context"
	"errors"
	"fmt"
)

// credentials stores token bundles through an AuthStore, sealing the token
// strings with the configured cipher.
type credentials struct {
	store  AuthStore
	cipher TokenCipher
}

// save stores the bundle. Google omits the refresh token when the user has
// already consented, so an empty one keeps the stored value.
func (c credentials) save(ctx context.Context, userID string, tokens TokenBundle) error {
	if c.store == nil {
		return fmt.Errorf("auth store not configured")
	}
	if tokens.RefreshToken == "" {
		previous, err := c.load(ctx, userID)
		switch {
		case err == nil:
			tokens.RefreshToken = previous.RefreshToken
		case !errors.Is(err, ErrUnauthenticated):
			return err
		}
	}
	sealed, err := c.transform(tokens, c.encrypt)
	if err != nil {
		return err
	}
	return c.store.UpsertAuth(ctx, userID, sealed)
}

// load returns the caller's tokens. A missing row means the user logged out
// and is reported as ErrUnauthenticated.
func (c credentials) load(ctx context.Context, userID string) (TokenBundle, error) {
	if c.store == nil {
		return TokenBundle{}, fmt.Errorf("auth store not configured")
	}
	stored, err := c.store.GetAuth(ctx, userID)
	if err != nil {
		if errors.Is(mapStoreError(err), ErrNotFound) {
			return TokenBundle{}, ErrUnauthenticated
		}
		return TokenBundle{}, err
	}
	return c.transform(stored, c.decrypt)
}

func (c credentials) encrypt(value string) (string, error) {
	if c.cipher == nil {
		return value, nil
	}
	return c.cipher.Encrypt(value)
}

func (c credentials) decrypt(value string) (string, error) {
	if c.cipher == nil {
		return value, nil
	}
	return c.cipher.Decrypt(value)
}

func (c credentials) transform(tokens TokenBundle, fn func(string) (string, error)) (TokenBundle, error) {
	var err error
	if tokens.AccessToken, err = fn(tokens.AccessToken); err != nil {
		return TokenBundle{}, fmt.Errorf("access token: %w", err)
	}
	if tokens.RefreshToken, err = fn(tokens.RefreshToken); err != nil {
		return TokenBundle{}, fmt.Errorf("refresh token: %w", err)
	}
	if tokens.IDToken, err = fn(tokens.IDToken); err != nil {
		return TokenBundle{}, fmt.Errorf("id token: %w", err)
	}
	return tokens, nil
}
