package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-identity/domains/identity/be/repo"
	"github.com/zenGate-Global/palmyra-identity/platform/go/auth"
	"github.com/zenGate-Global/palmyra-identity/platform/go/credentials"
	"github.com/zenGate-Global/palmyra-identity/platform/go/metrics"
	"github.com/zenGate-Global/palmyra-identity/platform/go/notify"
)

// Domain sentinel errors.
var (
	// ErrNoSuchUser is returned when no user is registered under the given
	// email. It is deliberately distinguishable from ErrIncorrectPassword;
	// see DESIGN.md for the trade-off.
	ErrNoSuchUser = errors.New("no user registered with that email")
	// ErrIncorrectPassword is returned when credential verification fails.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrAccountLocked is returned once too many consecutive logins failed.
	// It takes precedence over ErrIncorrectPassword on the locking attempt.
	ErrAccountLocked = errors.New("account locked after too many failed login attempts")
	// ErrDuplicateUser is returned when signup targets an existing email.
	ErrDuplicateUser = errors.New("a user with that email already exists")
	// ErrUserNotFound is returned by id-based lookups and deletes.
	ErrUserNotFound = errors.New("user not found")
)

// User is the domain view of a user record. The credential hash stays inside
// the service and is never part of this struct.
type User struct {
	ID            uuid.UUID
	TenantID      string
	Email         string
	FailedLogins  int
	AccountLocked bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthToken wraps a signed bearer token returned by a successful login.
type AuthToken struct {
	Token string
}

// SignupInput represents the payload required to create a new user.
type SignupInput struct {
	TenantID string
	Email    string
	Password string
}

// Service defines the identity operations exposed to the transport layer.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (User, error)
	Login(ctx context.Context, email, password string) (AuthToken, error)
	ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (User, error)
	ResetPassword(ctx context.Context, email string) (User, error)
	Authenticate(token string) (*auth.Claims, error)
	Me(ctx context.Context, userID uuid.UUID) (User, error)
	ListUsers(ctx context.Context, tenantID string) ([]User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (User, error)
}

type service struct {
	repo     repo.Repository
	hasher   credentials.Hasher
	issuer   *auth.Issuer
	notifier notify.Notifier
	logger   *zap.Logger
}

// New constructs the identity Service. All collaborators are injected; the
// service holds no ambient state.
func New(r repo.Repository, hasher credentials.Hasher, issuer *auth.Issuer, notifier notify.Notifier, logger *zap.Logger) Service {
	if r == nil {
		panic("identity repository is required")
	}
	if issuer == nil {
		panic("token issuer is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, hasher: hasher, issuer: issuer, notifier: notifier, logger: logger}
}

func (s *service) Signup(ctx context.Context, input SignupInput) (User, error) {
	email := strings.TrimSpace(input.Email)

	// Explicit duplicate precheck; the store's unique index is the backstop
	// for races.
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrDuplicateUser
	} else if !errors.Is(err, persistenceNotFound) {
		return User{}, err
	}

	hash := ""
	if input.Password != "" {
		hashed, err := s.hasher.Hash(input.Password)
		if err != nil {
			return User{}, err
		}
		hash = hashed
	}

	record, err := s.repo.Create(ctx, createUserParams(input.TenantID, email, hash))
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	s.logger.Info("user created",
		zap.String("user_id", record.UserID.String()),
		zap.String("tenant_id", record.TenantID),
	)
	return mapUser(record), nil
}

// Login runs the per-attempt state machine: lookup, lock check, credential
// check, then either the failed-attempt transition or the reset transition,
// each persisted atomically by the record store.
func (s *service) Login(ctx context.Context, email, password string) (AuthToken, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, persistenceNotFound) {
			metrics.Logins.WithLabelValues(metrics.LoginUnknownUser).Inc()
			return AuthToken{}, ErrNoSuchUser
		}
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return AuthToken{}, err
	}

	state := LockState{FailedLogins: user.FailedLogins, AccountLocked: user.AccountLocked}
	if state.Rejects() {
		metrics.Logins.WithLabelValues(metrics.LoginAccountLocked).Inc()
		return AuthToken{}, ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.CredentialHash) {
		// Apply the full failed-attempt transition or none of it: bail out
		// before the write if the caller is gone.
		if err := ctx.Err(); err != nil {
			return AuthToken{}, err
		}

		updated, recordErr := s.repo.RecordFailedLogin(ctx, user.UserID, LockoutThreshold)
		if recordErr != nil {
			metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
			return AuthToken{}, recordErr
		}

		if updated.AccountLocked {
			if !user.AccountLocked {
				metrics.Lockouts.Inc()
				s.logger.Warn("account locked",
					zap.String("user_id", user.UserID.String()),
					zap.Int("failed_logins", updated.FailedLogins),
				)
			}
			metrics.Logins.WithLabelValues(metrics.LoginAccountLocked).Inc()
			return AuthToken{}, ErrAccountLocked
		}

		metrics.Logins.WithLabelValues(metrics.LoginIncorrectPassword).Inc()
		return AuthToken{}, ErrIncorrectPassword
	}

	if err := ctx.Err(); err != nil {
		return AuthToken{}, err
	}

	if _, err := s.repo.ResetLoginFailures(ctx, user.UserID); err != nil {
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return AuthToken{}, err
	}

	token, err := s.issuer.Issue(user.TenantID, user.UserID.String(), user.Email)
	if err != nil {
		metrics.Logins.WithLabelValues(metrics.LoginError).Inc()
		return AuthToken{}, err
	}

	metrics.Logins.WithLabelValues(metrics.LoginSuccess).Inc()
	return AuthToken{Token: token}, nil
}

func (s *service) ChangePassword(ctx context.Context, email, currentPassword, newPassword string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, persistenceNotFound) {
			return User{}, ErrNoSuchUser
		}
		return User{}, err
	}

	// This path is only reachable by an authenticated caller, so a wrong
	// current password does not feed the lockout counter.
	if !s.hasher.Verify(currentPassword, user.CredentialHash) {
		return User{}, ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return User{}, err
	}

	updated, err := s.repo.UpdateCredential(ctx, user.UserID, hash)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	s.logger.Info("password changed", zap.String("user_id", user.UserID.String()))
	return mapUser(updated), nil
}

// ResetPassword rotates the user's credential to a hashed one-time temporary
// password and mails the plaintext to the registered address. The rotation is
// not rolled back if delivery fails; the caller sees the delivery error.
func (s *service) ResetPassword(ctx context.Context, email string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, persistenceNotFound) {
			return User{}, ErrNoSuchUser
		}
		return User{}, err
	}

	tempPassword := credentials.NewTempPassword()
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return User{}, err
	}

	updated, err := s.repo.UpdateCredential(ctx, user.UserID, hash)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}
	metrics.PasswordResets.Inc()

	subject := fmt.Sprintf("Password reset request for %s", user.Email)
	body := "Temporary password: " + tempPassword
	if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Error("reset notification failed", zap.String("user_id", user.UserID.String()), zap.Error(err))
		return User{}, err
	}

	s.logger.Info("password reset issued", zap.String("user_id", user.UserID.String()))
	return mapUser(updated), nil
}

func (s *service) Authenticate(token string) (*auth.Claims, error) {
	return s.issuer.Verify(token)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (User, error) {
	if userID == uuid.Nil {
		return User{}, ErrUserNotFound
	}

	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}
	return mapUser(record), nil
}

func (s *service) ListUsers(ctx context.Context, tenantID string) ([]User, error) {
	records, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(records))
	for _, record := range records {
		users = append(users, mapUser(record))
	}
	return users, nil
}

func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrUserNotFound
	}

	record, err := s.repo.Delete(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	return mapUser(record), nil
}
