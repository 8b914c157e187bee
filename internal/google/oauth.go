package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	calendar "google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"

	"github.com/example/room-booker/internal/application"
)

// Scopes requested at consent time.
var Scopes = []string{
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
	calendar.CalendarScope,
	admin.AdminDirectoryResourceCalendarReadonlyScope,
}

// OAuthConfig holds the OAuth client registration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides google.Endpoint.
	Endpoint oauth2.Endpoint
}

// OAuth implements application.IdentityProvider.
type OAuth struct {
	config *oauth2.Config
	opts   Options
}

// NewOAuth returns an identity provider for the registered client.
func NewOAuth(cfg OAuthConfig, opts Options) *OAuth {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleoauth.Endpoint
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		opts: opts,
	}
}

// AuthCodeURL returns the consent URL asking for offline access.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (application.TokenBundle, error) {
	if o.opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.opts.HTTPClient)
	}

	var token *oauth2.Token
	err := o.opts.observe(ctx, "oauth2", "exchange", func(ctx context.Context) error {
		var err error
		token, err = o.config.Exchange(ctx, code)
		return err
	})
	if err != nil {
		return application.TokenBundle{}, err
	}

	bundle := application.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		bundle.IDToken = idToken
	}
	if scope, ok := token.Extra("scope").(string); ok {
		bundle.Scope = scope
	}
	if bundle.AccessToken == "" {
		return application.TokenBundle{}, errors.New("token response carries no access token")
	}
	return bundle, nil
}

// UserInfo returns the Google profile behind tokens.
func (o *OAuth) UserInfo(ctx context.Context, tokens application.TokenBundle) (application.GoogleProfile, error) {
	svc, err := oauth2api.NewService(ctx, o.opts.clientOptions(ctx, tokens)...)
	if err != nil {
		return application.GoogleProfile{}, fmt.Errorf("failed to create oauth2 service: %w", err)
	}

	var info *oauth2api.Userinfo
	err = o.opts.observe(ctx, "oauth2", "userinfo.get", func(ctx context.Context) error {
		var err error
		info, err = svc.Userinfo.Get().Context(ctx).Do()
		return err
	})
	if err != nil {
		return application.GoogleProfile{}, err
	}

	return application.GoogleProfile{
		Subject:      info.Id,
		Email:        strings.ToLower(info.Email),
		Name:         info.Name,
		HostedDomain: strings.ToLower(info.Hd),
	}, nil
}
