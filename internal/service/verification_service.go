package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/mail"
)

type verificationTokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

type verifiedUserRepository interface {
	SetVerified(ctx context.Context, id string) error
}

// VerificationConfig tunes verification links.
type VerificationConfig struct {
	// LinkURL is the absolute URL of the verify endpoint; the token is appended as a query parameter.
	LinkURL  string
	TokenTTL time.Duration
}

// VerificationService mails one-time links that mark an account verified.
type VerificationService struct {
	tokens verificationTokenStore
	users  verifiedUserRepository
	mailer mail.Mailer
	config VerificationConfig
	logger *zap.Logger
	random io.Reader
}

// NewVerificationService constructs the service.
func NewVerificationService(tokens verificationTokenStore, users verifiedUserRepository, mailer mail.Mailer, config VerificationConfig, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 48 * time.Hour
	}
	return &VerificationService{tokens: tokens, users: users, mailer: mailer, config: config, logger: logger, random: rand.Reader}
}

// Send stores a fresh token for the user and mails the link.
func (s *VerificationService) Send(ctx context.Context, user *models.User) error {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return internalError(err, "failed to create verification token")
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.tokens.Save(ctx, token, user.ID, s.config.TokenTTL); err != nil {
		return internalError(err, "failed to store verification token")
	}

	link, err := s.link(token)
	if err != nil {
		return internalError(err, "failed to build verification link")
	}
	msg := mail.VerificationMessage(mail.Address{Name: user.Name, Address: user.Email}, link)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return internalError(err, "failed to send verification mail")
	}
	s.logger.Info("verification mail sent", zap.String("user_id", user.ID))
	return nil
}

// Confirm consumes token and marks its user verified.
func (s *VerificationService) Confirm(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "verification token is invalid or expired")
		}
		return "", internalError(err, "failed to read verification token")
	}
	if err := s.users.SetVerified(ctx, userID); err != nil {
		return "", lookupError(err, "user not found", "failed to verify user")
	}
	return userID, nil
}

func (s *VerificationService) link(token string) (string, error) {
	u, err := url.Parse(s.config.LinkURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
