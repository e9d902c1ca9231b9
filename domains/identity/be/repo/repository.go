package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// Repository defines the record store operations required by the identity service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.User, error)
	GetByEmail(ctx context.Context, email string) (persistence.User, error)
	List(ctx context.Context, tenantID string) ([]persistence.User, error)
	UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) (persistence.User, error)
	// RecordFailedLogin must be an atomic read-modify-write so concurrent
	// failed attempts cannot lose counter updates.
	RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int) (persistence.User, error)
	ResetLoginFailures(ctx context.Context, id uuid.UUID) (persistence.User, error)
	Delete(ctx context.Context, id uuid.UUID) (persistence.User, error)
}

type postgresRepository struct {
	store *persistence.UserStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.UserStore) Repository {
	if store == nil {
		panic("user store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateUserParams) (persistence.User, error) {
	return r.store.CreateUser(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.GetUser(ctx, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.store.GetUserByEmail(ctx, email)
}

func (r *postgresRepository) List(ctx context.Context, tenantID string) ([]persistence.User, error) {
	return r.store.ListUsers(ctx, tenantID)
}

func (r *postgresRepository) UpdateCredential(ctx context.Context, id uuid.UUID, credentialHash string) (persistence.User, error) {
	return r.store.UpdateCredential(ctx, id, credentialHash)
}

func (r *postgresRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID, threshold int) (persistence.User, error) {
	return r.store.RecordFailedLogin(ctx, id, threshold)
}

func (r *postgresRepository) ResetLoginFailures(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.ResetLoginFailures(ctx, id)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.DeleteUser(ctx, id)
}
