package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gopher-auth/internal/model"
	"gopher-auth/internal/pkg/jwtutil"
	"gopher-auth/internal/repository"
)

const (
	msgMissingSignupFields = "Missing one or more of required info (full_name, username, email, password)"
	msgMissingLoginFields  = "Missing one or more of required info (username, password)"

	sideEffectTimeout = 2 * time.Second
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("Username is alredy in use")
	ErrEmailExists       = errors.New("Email is alredy in use")
	ErrInvalidCredential = errors.New("Invalid Credentials")
	ErrUserNotFound      = errors.New("user not found")
)

// inputError carries a client facing validation message and matches ErrInvalidInput.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }

func invalidInput(msg string) error {
	return &inputError{msg: msg}
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetProfileByID(ctx context.Context, id string) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

type FieldPolicy interface {
	ValidateFullName(fullName string) error
	ValidateUsername(username string) error
	ValidatePassword(password string) error
	ValidateEmail(email string) error
}

type ProfileCache interface {
	Get(ctx context.Context, userID string) (*model.User, bool, error)
	Set(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, userID string) error
}

type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.AccountEvent) error
}

type AuthServiceConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
	BcryptCost    int
}

type AuthService struct {
	userRepo     UserStore
	policy       FieldPolicy
	profileCache ProfileCache
	revoker      TokenRevoker
	publisher    EventPublisher
	cfg          AuthServiceConfig
	logger       zerolog.Logger

	// dummyHash is compared against on unknown-username logins.
	dummyHash []byte
}

// Principal is the authenticated caller resolved from the session token.
type Principal struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type SignupInput struct {
	FullName string
	Username string
	Email    string
	Password string
	ClientIP string
}

type LoginInput struct {
	Username string
	Password string
	ClientIP string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

func NewAuthService(
	userRepo UserStore,
	policy FieldPolicy,
	profileCache ProfileCache,
	revoker TokenRevoker,
	publisher EventPublisher,
	cfg AuthServiceConfig,
	logger zerolog.Logger,
) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:     userRepo,
		policy:       policy,
		profileCache: profileCache,
		revoker:      revoker,
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger.With().Str("component", "auth_service").Logger(),
		dummyHash:    placeholderHash(cfg.BcryptCost),
	}
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	fullName := strings.TrimSpace(input.FullName)
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	password := input.Password

	if fullName == "" || username == "" || email == "" || password == "" {
		return nil, invalidInput(msgMissingSignupFields)
	}
	if err := s.policy.ValidateUsername(username); err != nil {
		return nil, invalidInput(err.Error())
	}
	if err := s.policy.ValidatePassword(password); err != nil {
		return nil, invalidInput(err.Error())
	}
	if err := s.policy.ValidateEmail(email); err != nil {
		return nil, invalidInput(err.Error())
	}
	if err := s.policy.ValidateFullName(fullName); err != nil {
		return nil, invalidInput(err.Error())
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameExists
	}

	taken, err = s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameExists
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailExists
		}
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.AccountEventCreated, user.ID, user.Username, input.ClientIP)
	return result, nil
}

// Login reports ErrInvalidCredential for both an unknown username and a wrong
// password, and spends a bcrypt comparison in both cases.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, invalidInput(msgMissingLoginFields)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("compare password failed: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.AccountEventLogin, user.ID, user.Username, input.ClientIP)
	return result, nil
}

// Logout revokes the presented token when it is still valid. A missing or
// unparsable token is not an error: logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	claims, err := jwtutil.ParseToken(s.cfg.JWTSecret, token)
	if err != nil {
		return
	}
	s.revoke(ctx, Principal{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
	})
}

// CurrentUser returns the caller's account without its password hash.
func (s *AuthService) CurrentUser(ctx context.Context, principal Principal) (*model.User, error) {
	if principal.UserID == "" {
		return nil, ErrInvalidInput
	}

	if s.profileCache != nil {
		user, ok, err := s.profileCache.Get(ctx, principal.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", principal.UserID).Msg("profile cache read failed")
		} else if ok {
			return user, nil
		}
	}

	user, err := s.userRepo.GetProfileByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.PasswordHash = ""

	if s.profileCache != nil {
		if err := s.profileCache.Set(ctx, user); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("profile cache write failed")
		}
	}
	return user, nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, principal Principal) error {
	if principal.UserID == "" {
		return ErrInvalidInput
	}

	if err := s.userRepo.DeleteByID(ctx, principal.UserID); err != nil {
		return err
	}

	if s.profileCache != nil {
		if err := s.profileCache.Delete(ctx, principal.UserID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", principal.UserID).Msg("profile cache evict failed")
		}
	}
	s.revoke(ctx, principal)
	s.publish(ctx, model.AccountEventDeleted, principal.UserID, "", "")
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, claims, err := jwtutil.GenerateToken(s.cfg.JWTSecret, s.cfg.JWTExpiration, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		ExpiresAt: claims.Expiry(),
		User:      user,
	}, nil
}

func (s *AuthService) revoke(ctx context.Context, principal Principal) {
	if s.revoker == nil || principal.TokenID == "" {
		return
	}
	if err := s.revoker.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		s.logger.Warn().Err(err).Str("user_id", principal.UserID).Msg("revoke token failed")
	}
}

func (s *AuthService) publish(ctx context.Context, eventType, userID, username, clientIP string) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	event := model.AccountEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Username:   username,
		ClientIP:   clientIP,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("user_id", userID).Msg("publish account event failed")
	}
}

// placeholderHash hashes a random secret at the given cost. An out of range
// cost falls back to the default so the unknown-user path never skips bcrypt.
func placeholderHash(cost int) []byte {
	secret := []byte(uuid.NewString())
	hash, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		hash, _ = bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
	}
	return hash
}
