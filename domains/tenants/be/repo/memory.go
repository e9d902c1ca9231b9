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
// early development.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]persistence.Tenant
	byName map[string]uuid.UUID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]persistence.Tenant),
		byName: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, id uuid.UUID, name string) (persistence.Tenant, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return persistence.Tenant{}, &persistence.ValidationError{
			Fields: persistence.FieldErrors{"name": {"missing required tenant name"}},
		}
	}
	if len(trimmed) < persistence.MinTenantNameLength {
		return persistence.Tenant{}, &persistence.ValidationError{
			Fields: persistence.FieldErrors{"name": {"tenant name is too short"}},
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[trimmed]; exists {
		return persistence.Tenant{}, persistence.ErrTenantConflict
	}

	now := time.Now().UTC()
	tenant := persistence.Tenant{TenantID: id, Name: trimmed, CreatedAt: now, UpdatedAt: now}
	r.byID[id] = tenant
	r.byName[trimmed] = id
	return tenant, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.byID[id]
	if !ok {
		return persistence.Tenant{}, persistence.ErrTenantNotFound
	}
	return tenant, nil
}

func (r *MemoryRepository) FindByName(ctx context.Context, name string) (persistence.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return persistence.Tenant{}, persistence.ErrTenantNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]persistence.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenants := make([]persistence.Tenant, 0, len(r.byID))
	for _, tenant := range r.byID {
		tenants = append(tenants, tenant)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].CreatedAt.Before(tenants[j].CreatedAt) })
	return tenants, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.byID[id]
	if !ok {
		return persistence.Tenant{}, persistence.ErrTenantNotFound
	}
	delete(r.byID, id)
	delete(r.byName, tenant.Name)
	return tenant, nil
}
