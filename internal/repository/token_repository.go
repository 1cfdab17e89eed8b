package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "auth:verify_token:"

// ErrTokenNotFound reports an unknown or expired verification token.
var ErrTokenNotFound = errors.New("verification token not found")

// VerificationTokenRepository keeps one-time email verification tokens in Redis.
type VerificationTokenRepository struct {
	client *redis.Client
}

// NewVerificationTokenRepository constructs the repository.
func NewVerificationTokenRepository(client *redis.Client) *VerificationTokenRepository {
	return &VerificationTokenRepository{client: client}
}

// Save maps token to userID for ttl.
func (r *VerificationTokenRepository) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, verificationKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("save verification token: %w", err)
	}
	return nil
}

// Consume returns the user id bound to token and removes it atomically.
func (r *VerificationTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, verificationKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("consume verification token: %w", err)
	}
	return userID, nil
}
