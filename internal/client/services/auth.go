// Package services contains the application services of the chest client:
// the sync coordinator and the OAuth authorizer for the remote drive.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/gophchest/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophchest/internal/common"
	"github.com/dmitrijs2005/gophchest/internal/dbx"
	"github.com/dmitrijs2005/gophchest/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Mode selects how Authorize obtains a token.
type Mode int

const (
	// ModeImmediate never talks to the user: it uses the cached token and
	// refreshes it silently when expired.
	ModeImmediate Mode = iota
	// ModePrompt runs the device authorization flow and asks the user to
	// confirm access in a browser.
	ModePrompt
)

func (m Mode) String() string {
	if m == ModePrompt {
		return "prompt"
	}
	return "immediate"
}

var ErrNoCachedToken = errors.New("no cached token")

// AuthService hands out OAuth tokens for the remote drive.
//
// Contract:
//   - Authorize: obtain a token in the given mode and cache it locally.
//   - TokenSource: a source that refreshes tok and caches refreshed tokens.
//   - Email: the account email from the cached id_token, "" if unknown.
//   - SignOut: drop the cached token.
type AuthService interface {
	Authorize(ctx context.Context, mode Mode) (*oauth2.Token, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
	Email(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// cachedToken is the JSON stored under metadata.KeyOAuthToken. The id_token
// lives in the token's extra data, which oauth2.Token does not serialize.
type cachedToken struct {
	Token   *oauth2.Token `json:"token"`
	IDToken string        `json:"id_token,omitempty"`
}

type authService struct {
	cfg    *oauth2.Config
	db     *sql.DB
	out    io.Writer
	logger logging.Logger
}

// NewAuthService returns an AuthService caching tokens in db. Device flow
// instructions are written to out.
func NewAuthService(cfg *oauth2.Config, db *sql.DB, out io.Writer, logger logging.Logger) AuthService {
	return &authService{cfg: cfg, db: db, out: out, logger: logger.With("component", "auth")}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Authorize(ctx context.Context, mode Mode) (*oauth2.Token, error) {
	switch mode {
	case ModeImmediate:
		return a.authorizeImmediate(ctx)
	case ModePrompt:
		return a.authorizePrompt(ctx)
	}
	return nil, fmt.Errorf("%w: unknown auth mode %d", common.ErrorValidation, int(mode))
}

func (a *authService) authorizeImmediate(ctx context.Context) (*oauth2.Token, error) {
	cached, err := a.loadToken(ctx)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, ErrNoCachedToken)
	}

	tok, err := a.cfg.TokenSource(ctx, cached.Token).Token()
	if err != nil {
		a.logger.Warn(ctx, "silent token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: token refresh: %w", common.ErrorUnauthorized, err)
	}

	if tok.AccessToken != cached.Token.AccessToken {
		if err := a.saveToken(ctx, tok, cached.IDToken); err != nil {
			return nil, err
		}
	}
	return withIDToken(tok, cached.IDToken), nil
}

func (a *authService) authorizePrompt(ctx context.Context) (*oauth2.Token, error) {
	da, err := a.cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization error: %w", err)
	}

	if da.VerificationURIComplete != "" {
		fmt.Fprintf(a.out, "Open %s to grant access to your chests.\n", da.VerificationURIComplete)
	} else {
		fmt.Fprintf(a.out, "Open %s and enter code %s to grant access to your chests.\n", da.VerificationURI, da.UserCode)
	}

	tok, err := a.cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("%w: device token: %w", common.ErrorUnauthorized, err)
	}

	if err := a.saveToken(ctx, tok, idTokenOf(tok, "")); err != nil {
		return nil, err
	}
	a.logger.Info(ctx, "authorized via device flow")
	return tok, nil
}

func (a *authService) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return &persistingSource{
		base: a.cfg.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) {
			if err := a.saveToken(ctx, t, idTokenOf(t, idTokenOf(tok, ""))); err != nil {
				a.logger.Warn(ctx, "cannot cache refreshed token", "error", err)
			}
		},
	}
}

func (a *authService) Email(ctx context.Context) (string, error) {
	v, err := a.getMetadataRepo().Get(ctx, metadata.KeyAccountEmail)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (a *authService) SignOut(ctx context.Context) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, metadata.KeyOAuthToken); err != nil {
			return err
		}
		return repo.Delete(ctx, metadata.KeyAccountEmail)
	})
}

func (a *authService) loadToken(ctx context.Context) (*cachedToken, error) {
	var c cachedToken
	ok, err := metadata.GetJSON(ctx, a.getMetadataRepo(), metadata.KeyOAuthToken, &c)
	if errors.Is(err, metadata.ErrCorrupt) || (ok && c.Token == nil) {
		a.logger.Warn(ctx, "discarding unreadable cached token")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading cached token: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// saveToken stores the token and the account email in one transaction.
func (a *authService) saveToken(ctx context.Context, tok *oauth2.Token, idToken string) error {
	email := EmailFromIDToken(idToken)

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := metadata.SetJSON(ctx, repo, metadata.KeyOAuthToken, cachedToken{Token: tok, IDToken: idToken}); err != nil {
			return err
		}
		if email == "" {
			return nil
		}
		return repo.Set(ctx, metadata.KeyAccountEmail, []byte(email))
	})
	if err != nil {
		return fmt.Errorf("error caching token: %w", err)
	}
	return nil
}

// EmailFromIDToken reads the email claim of an OpenID Connect id_token.
// The signature is not verified; the value is for display only.
func EmailFromIDToken(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

func idTokenOf(tok *oauth2.Token, fallback string) string {
	if tok == nil {
		return fallback
	}
	if s, ok := tok.Extra("id_token").(string); ok && s != "" {
		return s
	}
	return fallback
}

func withIDToken(tok *oauth2.Token, idToken string) *oauth2.Token {
	if idToken == "" || idTokenOf(tok, "") != "" {
		return tok
	}
	return tok.WithExtra(map[string]any{"id_token": idToken})
}

// persistingSource caches every token that differs from the last one seen.
type persistingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	last string
	save func(*oauth2.Token)
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	changed := tok.AccessToken != p.last
	p.last = tok.AccessToken
	p.mu.Unlock()

	if changed {
		p.save(tok)
	}
	return tok, nil
}
