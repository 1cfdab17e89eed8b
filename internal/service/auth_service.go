package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type credentialChecker interface {
	Verify(ctx context.Context, email, password string) (*models.Identity, error)
}

type sessionManager interface {
	Rotate(ctx context.Context, userID string) (string, error)
	Current(ctx context.Context, userID string) (string, error)
	Ensure(ctx context.Context, userID, token string) error
	Invalidate(ctx context.Context, userID string) error
}

type claimsEnricher interface {
	Enrich(ctx context.Context, claims *models.JWTClaims) *models.JWTClaims
}

type verificationSender interface {
	Send(ctx context.Context, user *models.User) error
	Confirm(ctx context.Context, token string) (string, error)
}

type authUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

// AuthConfig defines configuration for access tokens.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Verifier     credentialChecker
	Sessions     sessionManager
	Enricher     claimsEnricher
	Users        authUserRepository
	Verification verificationSender
	Audit        auditRecorder
}

// AuthService provides sign-in, sign-up and session use cases.
type AuthService struct {
	deps      AuthDeps
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(deps AuthDeps, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{deps: deps, validator: validate, logger: logger, config: config}
}

// Login verifies credentials, rotates the caller's session and issues a token bound to it.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	identity, err := s.deps.Verifier.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !identity.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	sid, err := s.deps.Sessions.Rotate(ctx, identity.ID)
	if err != nil {
		return nil, internalError(err, "failed to start session")
	}

	claims := &models.JWTClaims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		Role:      identity.Role,
		Active:    identity.Active,
		Verified:  identity.Verified,
		SessionID: sid,
	}
	resp, err := s.issue(s.deps.Enricher.Enrich(ctx, claims))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, identity.ID, models.AuditActionLogin, `{"status":"success"}`, dto.RequestMeta{IP: req.IP, UserAgent: req.UserAgent})
	return resp, nil
}

// Signup registers an unverified student account and mails a verification link.
func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid signup payload")
	}

	exists, err := s.deps.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, internalError(err, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}
	passwordHash := string(hash)

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: &passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Username:     strings.TrimSpace(req.Username),
		Role:         models.RoleStudent,
		Active:       true,
		NinjaLevel:   1,
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}

	if s.deps.Verification != nil {
		if err := s.deps.Verification.Send(ctx, user); err != nil {
			s.logger.Warn("failed to send verification mail", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return user, nil
}

// Refresh issues a new token from freshly enriched claims. A token without a
// session id gets one; a session id the registry has never seen is registered.
func (s *AuthService) Refresh(ctx context.Context, claims *models.JWTClaims) (*dto.TokenResponse, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	enriched := s.deps.Enricher.Enrich(ctx, claims)

	// A token without sid only reaches here when single-session enforcement is
	// off; with it on, Authenticate rejects such tokens as revoked first.
	if enriched.SessionID == "" {
		sid, err := s.deps.Sessions.Rotate(ctx, enriched.UserID)
		if err != nil {
			return nil, internalError(err, "failed to start session")
		}
		enriched.SessionID = sid
	} else if _, err := s.deps.Sessions.Current(ctx, enriched.UserID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, internalError(err, "failed to load session")
		}
		if err := s.deps.Sessions.Ensure(ctx, enriched.UserID, enriched.SessionID); err != nil {
			return nil, internalError(err, "failed to register session")
		}
	}

	return s.issue(enriched)
}

// Logout invalidates the caller's session so no outstanding token stays usable.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta dto.RequestMeta) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.deps.Sessions.Invalidate(ctx, claims.UserID); err != nil {
		return internalError(err, "failed to end session")
	}
	s.audit(ctx, claims.UserID, models.AuditActionLogout, `{"status":"logout"}`, meta)
	return nil
}

// Session returns the caller's claims refreshed from the database.
func (s *AuthService) Session(ctx context.Context, claims *models.JWTClaims) (*models.JWTClaims, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	return s.deps.Enricher.Enrich(ctx, claims), nil
}

// Verify consumes an email verification token.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	if s.deps.Verification == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "verification is not available")
	}
	_, err := s.deps.Verification.Confirm(ctx, token)
	return err
}

// ChangePassword replaces the caller's password and rotates their session;
// the returned token is the only one that stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, claims *models.JWTClaims, req dto.ChangePasswordRequest, meta dto.RequestMeta) (*dto.TokenResponse, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid change password payload")
	}

	user, err := s.deps.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.OldPassword)) != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}
	if err := s.deps.Users.UpdatePassword(ctx, user.ID, string(newHash), time.Now().UTC()); err != nil {
		return nil, internalError(err, "failed to update password")
	}

	sid, err := s.deps.Sessions.Rotate(ctx, user.ID)
	if err != nil {
		return nil, internalError(err, "failed to rotate session")
	}
	next := *claims
	next.SessionID = sid
	resp, err := s.issue(s.deps.Enricher.Enrich(ctx, &next))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, models.AuditActionPasswordChange, `{"status":"changed"}`, meta)
	return resp, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) issue(claims *models.JWTClaims) (*dto.TokenResponse, error) {
	issuedAt := time.Now().UTC()
	out := *claims
	out.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiry)),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &out).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, internalError(err, "failed to create access token")
	}
	return &dto.TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.Expiry.Seconds()),
		User:        &out,
	}, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action, payload string, meta dto.RequestMeta) {
	if s.deps.Audit == nil {
		return
	}
	if err := s.deps.Audit.Create(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(payload),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}
