package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// MemoryRepository is an in-memory implementation suitable for tests and
// early development. It enforces the same constraints as the postgres store,
// including the atomic failed-login increment.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]persistence.User
	byEmail map[string]uuid.UUID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[uuid.UUID]persistence.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	fields := persistence.FieldErrors{}
	if strings.TrimSpace(params.TenantID) == "" {
		fields["tenantId"] = append(fields["tenantId"], "missing required tenant id")
	}
	email := strings.TrimSpace(params.Email)
	if email == "" {
		fields["email"] = append(fields["email"], "missing required email address")
	} else if len(email) < persistence.MinEmailLength {
		fields["email"] = append(fields["email"], "email address is too short")
	}
	if params.CredentialHash == "" {
		fields["password"] = append(fields["password"], "missing required password")
	} else if len(params.CredentialHash) < persistence.MinCredentialLength {
		fields["password"] = append(fields["password"], "password is too short")
	}
	if len(fields) > 0 {
		return persistence.User{}, &persistence.ValidationError{Fields: fields}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return persistence.User{}, persistence.ErrUserConflict
	}

	now := time.Now().UTC()
	user := persistence.User{
		UserID:         params.UserID,
		TenantID:       strings.TrimSpace(params.TenantID),
		Email:          email,
		CredentialHash: params.CredentialHash,
		FailedLogins:   0,
		AccountLocked:  false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.byID[user.UserID] = user
	r.byEmail[email] = user.UserID
	return user, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	return user, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[strings.TrimSpace(email)]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) List(ctx context.Context, tenantID string) ([]persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]persistence.User, 0)
	for _, user := range r.byID {
		if user.TenantID == tenantID {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *MemoryRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) (persistence.User, error) {
	if len(credentialHash) < persistence.MinCredentialLength {
		return persistence.User{}, &persistence.ValidationError{
			Fields: persistence.FieldErrors{"password": {"password is too short"}},
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	user.CredentialHash = credentialHash
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return user, nil
}

func (r *MemoryRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	user.FailedLogins++
	if user.FailedLogins > threshold {
		user.AccountLocked = true
	}
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return user, nil
}

func (r *MemoryRepository) ResetLoginFailures(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	user.FailedLogins = 0
	user.AccountLocked = false
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return user, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return persistence.User{}, persistence.ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, user.Email)
	return user, nil
}
