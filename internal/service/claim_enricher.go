package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/models"
)

type enricherUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type subscriptionRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Subscription, error)
}

// ClaimEnricher refreshes the volatile token claims from the database.
type ClaimEnricher struct {
	users         enricherUserRepository
	subscriptions subscriptionRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewClaimEnricher constructs an enricher.
func NewClaimEnricher(users enricherUserRepository, subscriptions subscriptionRepository, logger *zap.Logger) *ClaimEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimEnricher{users: users, subscriptions: subscriptions, logger: logger, now: time.Now}
}

// Enrich returns a copy of claims with role, activity, verification, profile
// and subscription reloaded. On any failure the input claims are returned as is.
func (e *ClaimEnricher) Enrich(ctx context.Context, claims *models.JWTClaims) *models.JWTClaims {
	if claims == nil {
		return nil
	}

	user, err := e.loadUser(ctx, claims)
	if err != nil {
		e.logger.Warn("claim enrichment skipped", zap.String("user_id", claims.UserID), zap.Error(err))
		return claims
	}

	subscribed := false
	if e.subscriptions != nil {
		sub, err := e.subscriptions.FindByEmail(ctx, user.Email)
		switch {
		case err == nil:
			subscribed = sub.ActiveAt(e.now())
		case errors.Is(err, sql.ErrNoRows):
		default:
			e.logger.Warn("claim enrichment skipped", zap.String("user_id", claims.UserID), zap.Error(err))
			return claims
		}
	}

	enriched := *claims
	enriched.UserID = user.ID
	enriched.Email = user.Email
	enriched.Name = user.Name
	enriched.Role = user.Role
	enriched.Active = user.Active
	enriched.Verified = user.Verified
	enriched.ProfilePicture = user.ProfilePicture
	enriched.IsSubscribed = subscribed
	return &enriched
}

func (e *ClaimEnricher) loadUser(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	if claims.UserID != "" {
		user, err := e.users.FindByID(ctx, claims.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) || claims.Email == "" {
			return nil, err
		}
	}
	return e.users.FindByEmail(ctx, claims.Email)
}
