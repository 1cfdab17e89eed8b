package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"io"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type sessionStore interface {
	Upsert(ctx context.Context, userID, token string) error
	InsertIfAbsent(ctx context.Context, userID, token string) (bool, error)
	Find(ctx context.Context, userID string) (*models.Session, error)
}

const sessionTokenBytes = 32

// SessionRegistry keeps exactly one live session token per user.
type SessionRegistry struct {
	store  sessionStore
	random io.Reader
}

// NewSessionRegistry constructs a registry backed by store.
func NewSessionRegistry(store sessionStore) *SessionRegistry {
	return &SessionRegistry{store: store, random: rand.Reader}
}

// Rotate issues a fresh token for the user, replacing any previous one.
func (r *SessionRegistry) Rotate(ctx context.Context, userID string) (string, error) {
	token, err := r.newToken()
	if err != nil {
		return "", err
	}
	if err := r.store.Upsert(ctx, userID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Current returns the user's live token or sql.ErrNoRows.
func (r *SessionRegistry) Current(ctx context.Context, userID string) (string, error) {
	session, err := r.store.Find(ctx, userID)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

// Ensure records token as current when the user has no session row. An
// existing row is never overwritten.
func (r *SessionRegistry) Ensure(ctx context.Context, userID, token string) error {
	_, err := r.store.InsertIfAbsent(ctx, userID, token)
	return err
}

// Invalidate rotates to a token no client holds.
func (r *SessionRegistry) Invalidate(ctx context.Context, userID string) error {
	_, err := r.Rotate(ctx, userID)
	return err
}

// Check accepts sid when it is the user's current token. A user without a
// session row gets sid registered. Any other sid is ErrSessionRevoked.
func (r *SessionRegistry) Check(ctx context.Context, userID, sid string) error {
	if sid == "" {
		return appErrors.Clone(appErrors.ErrSessionRevoked, "")
	}
	current, err := r.Current(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return internalError(err, "failed to load session")
		}
		if err := r.Ensure(ctx, userID, sid); err != nil {
			return internalError(err, "failed to register session")
		}
		current, err = r.Current(ctx, userID)
		if err != nil {
			return internalError(err, "failed to load session")
		}
	}
	if current != sid {
		return appErrors.Clone(appErrors.ErrSessionRevoked, "")
	}
	return nil
}

func (r *SessionRegistry) newToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := io.ReadFull(r.random, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
