package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const UsersTable = "users"

// Minimum effective lengths enforced at write time.
const (
	MinEmailLength      = 4
	MinCredentialLength = 4
)

// User represents a row in the users table. CredentialHash never leaves the
// identity service; it carries no json tag on purpose.
type User struct {
	UserID         uuid.UUID `db:"user_id" json:"userId"`
	TenantID       string    `db:"tenant_id" json:"tenantId"`
	Email          string    `db:"email" json:"email"`
	CredentialHash string    `db:"credential_hash" json:"-"`
	FailedLogins   int       `db:"failed_logins" json:"failedLogins"`
	AccountLocked  bool      `db:"account_locked" json:"accountLocked"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store instance bound to the shared pool.
func NewUserStore(pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &UserStore{pool: pool}, nil
}

// CreateUserParams captures the fields required to insert a new user record.
type CreateUserParams struct {
	UserID         uuid.UUID
	TenantID       string
	Email          string
	CredentialHash string
}

func validateCreateUser(params CreateUserParams) error {
	fields := FieldErrors{}

	if strings.TrimSpace(params.TenantID) == "" {
		fields.add("tenantId", "missing required tenant id")
	}

	email := strings.TrimSpace(params.Email)
	if email == "" {
		fields.add("email", "missing required email address")
	} else if len(email) < MinEmailLength {
		fields.add("email", "email address is too short")
	}

	if params.CredentialHash == "" {
		fields.add("password", "missing required password")
	} else if len(params.CredentialHash) < MinCredentialLength {
		fields.add("password", "password is too short")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateUser inserts a new user and returns the persisted record. Constraint
// checks run before the insert so violations surface as *ValidationError.
func (s *UserStore) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if params.UserID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}
	if err := validateCreateUser(params); err != nil {
		return User{}, err
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (user_id, tenant_id, email, credential_hash, failed_logins, account_locked)
        VALUES ($1, $2, $3, $4, 0, FALSE)
        RETURNING user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
    `, UsersTable),
		params.UserID,
		strings.TrimSpace(params.TenantID),
		strings.TrimSpace(params.Email),
		params.CredentialHash,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		return User{}, err
	}

	return user, nil
}

// GetUser returns a single user by identifier.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
        FROM %s WHERE user_id = $1
    `, UsersTable), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// GetUserByEmail returns a single user by login identifier.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
        FROM %s WHERE email = $1
    `, UsersTable), strings.TrimSpace(email))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// ListUsers returns all users belonging to the given tenant, oldest first.
func (s *UserStore) ListUsers(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
        FROM %s WHERE tenant_id = $1
        ORDER BY created_at ASC
    `, UsersTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan user: %w", scanErr)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateCredential replaces the stored credential hash for the given user.
func (s *UserStore) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) (User, error) {
	if credentialHash == "" || len(credentialHash) < MinCredentialLength {
		return User{}, &ValidationError{Fields: FieldErrors{"password": {"password is too short"}}}
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET credential_hash = $1, updated_at = NOW()
        WHERE user_id = $2
        RETURNING user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
    `, UsersTable), credentialHash, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// RecordFailedLogin advances the failed-login counter in a single atomic
// read-modify-write and engages the lock once the counter exceeds threshold.
// Concurrent failed attempts therefore cannot lose updates.
func (s *UserStore) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET failed_logins = failed_logins + 1,
            account_locked = account_locked OR failed_logins + 1 > $2,
            updated_at = NOW()
        WHERE user_id = $1
        RETURNING user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
    `, UsersTable), id, threshold)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// ResetLoginFailures clears the failed-login counter and the lock flag.
func (s *UserStore) ResetLoginFailures(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET failed_logins = 0, account_locked = FALSE, updated_at = NOW()
        WHERE user_id = $1
        RETURNING user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
    `, UsersTable), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// DeleteUser removes a user by identifier and returns the deleted record.
func (s *UserStore) DeleteUser(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrUserNotFound
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE user_id = $1
        RETURNING user_id, tenant_id, email, credential_hash, failed_logins, account_locked, created_at, updated_at
    `, UsersTable), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("delete user: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User

	if err := row.Scan(
		&user.UserID,
		&user.TenantID,
		&user.Email,
		&user.CredentialHash,
		&user.FailedLogins,
		&user.AccountLocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	return user, nil
}
