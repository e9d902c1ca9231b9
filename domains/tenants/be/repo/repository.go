package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// Repository defines the persistence operations required by the tenants service.
type Repository interface {
	Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	FindByName(ctx context.Context, name string) (persistence.Tenant, error)
	List(ctx context.Context) ([]persistence.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
}

type postgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TenantStore) Repository {
	if store == nil {
		panic("tenant store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	return r.store.CreateTenant(ctx, id, name)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.store.GetTenant(ctx, id)
}

func (r *postgresRepository) FindByName(ctx context.Context, name string) (persistence.Tenant, error) {
	return r.store.FindTenantByName(ctx, name)
}

func (r *postgresRepository) List(ctx context.Context) ([]persistence.Tenant, error) {
	return r.store.ListTenants(ctx)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.store.DeleteTenant(ctx, id)
}
