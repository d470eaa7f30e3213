package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

const (
	sessionTokenBytes      = 32
	sessionIssueAttempts   = 3
	verificationCodeDigits = 6
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	MarkEmailVerified(ctx context.Context, email string) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

type accountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	FindCredential(ctx context.Context, userID string) (*models.Account, error)
	FindByProviderAccount(ctx context.Context, providerID, accountID string) (*models.Account, error)
	ListByUser(ctx context.Context, userID string) ([]models.Account, error)
	UpdateTokens(ctx context.Context, id string, accessToken, refreshToken, scope *string) error
}

type verificationRepository interface {
	Create(ctx context.Context, verification *models.Verification) error
	FindLatestByIdentifier(ctx context.Context, identifier string) (*models.Verification, error)
	Delete(ctx context.Context, id string) error
}

// SignUpRequest captures registration fields. Role defaults to student when
// omitted.
type SignUpRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=student teacher admin"`
	Image    *string `json:"image" validate:"omitempty,url"`
}

// SignInRequest captures credential login fields.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest carries a challenge code back for consumption.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// SessionMeta records where a session was established from.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// AuthResult bundles the authenticated user with their issued session.
type AuthResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// AuthService implements credential sign-up, sign-in and opaque session
// validation.
type AuthService struct {
	users           userRepository
	sessions        sessionRepository
	accounts        accountRepository
	verifications   verificationRepository
	sessionTTL      time.Duration
	verificationTTL time.Duration
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewAuthService constructs AuthService.
func NewAuthService(
	users userRepository,
	sessions sessionRepository,
	accounts accountRepository,
	verifications verificationRepository,
	sessionTTL, verificationTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	if verificationTTL <= 0 {
		verificationTTL = time.Hour
	}
	return &AuthService{
		users:           users,
		sessions:        sessions,
		accounts:        accounts,
		verifications:   verifications,
		sessionTTL:      sessionTTL,
		verificationTTL: verificationTTL,
		validator:       validate,
		logger:          logger,
	}
}

// SignUp registers a user with a password credential and signs them in. The
// email unique index is the authority on duplicates; a losing race surfaces
// the same conflict as a plain duplicate.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest, meta SessionMeta) (*AuthResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-up payload")
	}

	role := models.RoleStudent
	if req.Role != nil {
		role = models.UserRole(*req.Role)
	}
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Name:  req.Name,
		Email: req.Email,
		Image: req.Image,
		Role:  role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, storeFailure(err, "failed to create user")
	}

	password := string(hash)
	account := &models.Account{
		UserID:     user.ID,
		ProviderID: models.ProviderCredential,
		AccountID:  user.Email,
		Password:   &password,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccount) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "credential already linked")
		}
		return nil, storeFailure(err, "failed to create credential account")
	}

	session, err := s.issueSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &AuthResult{User: user, Session: session}, nil
}

// SignIn verifies a password credential and issues a fresh session. A missing
// user, a missing credential account and a wrong password all produce the
// same response so auth failures do not reveal which part was wrong.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest, meta SessionMeta) (*AuthResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sign-in payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, storeFailure(err, "failed to load user")
	}

	account, err := s.accounts.FindCredential(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, storeFailure(err, "failed to load credential")
	}
	if account.Password == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	session, err := s.issueSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return &AuthResult{User: user, Session: session}, nil
}

// ValidateSession resolves an opaque token into its session and user. The
// lookup is a pure read with no side effects; expired sessions are rejected,
// not refreshed.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, *models.Session, error) {
	if token == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid session token")
		}
		return nil, nil, storeFailure(err, "failed to load session")
	}
	if session.Expired(time.Now().UTC()) {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "session expired")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "session user no longer exists")
		}
		return nil, nil, storeFailure(err, "failed to load session user")
	}

	return user, session, nil
}

// SignOut revokes the session behind the token. Revoking an unknown token is
// an idempotent no-op.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return storeFailure(err, "failed to revoke session")
	}
	return nil
}

// LinkAccountRequest links an external provider identity to a user. Password
// credentials are created at sign-up and cannot be linked here.
type LinkAccountRequest struct {
	ProviderID   string  `json:"provider_id" validate:"required,max=64"`
	AccountID    string  `json:"account_id" validate:"required,max=255"`
	AccessToken  *string `json:"access_token" validate:"omitempty"`
	RefreshToken *string `json:"refresh_token" validate:"omitempty"`
	Scope        *string `json:"scope" validate:"omitempty"`
}

// LinkAccount attaches a provider identity to the user. The unique
// (provider, account) index decides duplicates.
func (s *AuthService) LinkAccount(ctx context.Context, userID string, req LinkAccountRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if req.ProviderID == models.ProviderCredential {
		return nil, appErrors.Clone(appErrors.ErrValidation, "credential accounts are created at sign-up")
	}

	account := &models.Account{
		UserID:       userID,
		ProviderID:   req.ProviderID,
		AccountID:    req.AccountID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Scope:        req.Scope,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if !errors.Is(err, repository.ErrDuplicateAccount) {
			return nil, storeFailure(err, "failed to link account")
		}

		// The pair already exists. Re-linking by the same user is a token
		// refresh; another user holding the pair is a conflict.
		existing, findErr := s.accounts.FindByProviderAccount(ctx, req.ProviderID, req.AccountID)
		if findErr != nil {
			return nil, storeFailure(findErr, "failed to load linked account")
		}
		if existing.UserID != userID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "account already linked")
		}
		if err := s.accounts.UpdateTokens(ctx, existing.ID, req.AccessToken, req.RefreshToken, req.Scope); err != nil {
			return nil, storeFailure(err, "failed to refresh account tokens")
		}
		existing.AccessToken = req.AccessToken
		existing.RefreshToken = req.RefreshToken
		existing.Scope = req.Scope
		account = existing
	}

	s.logger.Info("account linked", zap.String("user_id", userID), zap.String("provider_id", req.ProviderID))
	return account, nil
}

// ListAccounts returns the linked accounts for a user.
func (s *AuthService) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeFailure(err, "failed to list accounts")
	}
	return accounts, nil
}

// IssueVerification creates an email verification challenge for the user. The
// code is returned to the caller for delivery; it is never logged.
func (s *AuthService) IssueVerification(ctx context.Context, email string) (*models.Verification, error) {
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, storeFailure(err, "failed to load user")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
	}

	verification := &models.Verification{
		Identifier: email,
		Value:      code,
		ExpiresAt:  time.Now().UTC().Add(s.verificationTTL),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return nil, storeFailure(err, "failed to store verification")
	}
	return verification, nil
}

// ConsumeVerification checks a challenge code and marks the email verified.
// Consumed challenges are deleted so a code only works once.
func (s *AuthService) ConsumeVerification(ctx context.Context, req VerifyEmailRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	verification, err := s.verifications.FindLatestByIdentifier(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid or expired verification code")
		}
		return storeFailure(err, "failed to load verification")
	}
	if time.Now().UTC().After(verification.ExpiresAt) {
		return appErrors.Clone(appErrors.ErrConflict, "verification expired")
	}
	if subtle.ConstantTimeCompare([]byte(verification.Value), []byte(req.Code)) != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "verification code mismatch")
	}

	if err := s.users.MarkEmailVerified(ctx, req.Email); err != nil {
		return storeFailure(err, "failed to mark email verified")
	}
	if err := s.verifications.Delete(ctx, verification.ID); err != nil {
		return storeFailure(err, "failed to consume verification")
	}
	return nil
}

// issueSession mints an opaque token and persists the session, regenerating
// on the off chance the token collides with an existing one.
func (s *AuthService) issueSession(ctx context.Context, userID string, meta SessionMeta) (*models.Session, error) {
	for attempt := 0; attempt < sessionIssueAttempts; attempt++ {
		token, err := generateSessionToken()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate session token")
		}

		session := &models.Session{
			UserID:    userID,
			Token:     token,
			ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		}
		err = s.sessions.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return nil, storeFailure(err, "failed to create session")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "failed to issue session token")
}

func generateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func generateVerificationCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < verificationCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("read random int: %w", err)
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n), nil
}
