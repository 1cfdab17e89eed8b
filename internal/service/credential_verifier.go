package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type credentialUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// The dummy hash is compared against when no usable hash exists so that
// unknown emails cost the same as wrong passwords.
var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

func loadDummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storyninja-unusable-password"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// CredentialVerifier checks an email/password pair against stored bcrypt hashes.
type CredentialVerifier struct {
	users credentialUserRepository
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users credentialUserRepository) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify returns the identity behind a matching pair. Every mismatch fails
// with ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.Identity, error) {
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load user")
		}
		user = nil
	}

	if user == nil || user.PasswordHash == nil || *user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(loadDummyHash(), []byte(password))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	return &models.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		Active:   user.Active,
		Verified: user.Verified,
	}, nil
}
