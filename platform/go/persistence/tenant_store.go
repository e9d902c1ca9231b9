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

const TenantsTable = "tenants"

// MinTenantNameLength is enforced at write time.
const MinTenantNameLength = 4

// Tenant represents a row in the tenants table.
type Tenant struct {
	TenantID  uuid.UUID `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TenantStore exposes persistence helpers for the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore returns a store instance bound to the shared pool.
func NewTenantStore(pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

// CreateTenant inserts a new tenant and returns the persisted record.
func (s *TenantStore) CreateTenant(ctx context.Context, id uuid.UUID, name string) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, errors.New("tenant id is required")
	}

	trimmed := strings.TrimSpace(name)
	fields := FieldErrors{}
	if trimmed == "" {
		fields.add("name", "missing required tenant name")
	} else if len(trimmed) < MinTenantNameLength {
		fields.add("name", "tenant name is too short")
	}
	if len(fields) > 0 {
		return Tenant{}, &ValidationError{Fields: fields}
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (tenant_id, name)
        VALUES ($1, $2)
        RETURNING tenant_id, name, created_at, updated_at
    `, TenantsTable), id, trimmed)

	tenant, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Tenant{}, ErrTenantConflict
		}
		return Tenant{}, err
	}

	return tenant, nil
}

// GetTenant returns a single tenant by identifier.
func (s *TenantStore) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT tenant_id, name, created_at, updated_at
        FROM %s WHERE tenant_id = $1
    `, TenantsTable), id)

	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}

	return tenant, nil
}

// FindTenantByName returns a single tenant by its unique name.
func (s *TenantStore) FindTenantByName(ctx context.Context, name string) (Tenant, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT tenant_id, name, created_at, updated_at
        FROM %s WHERE name = $1
    `, TenantsTable), strings.TrimSpace(name))

	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}

	return tenant, nil
}

// ListTenants returns all tenants, oldest first.
func (s *TenantStore) ListTenants(ctx context.Context) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT tenant_id, name, created_at, updated_at
        FROM %s ORDER BY created_at ASC
    `, TenantsTable))
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]Tenant, 0)
	for rows.Next() {
		tenant, scanErr := scanTenant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan tenant: %w", scanErr)
		}
		tenants = append(tenants, tenant)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}

	return tenants, nil
}

// DeleteTenant removes a tenant by identifier and returns the deleted record.
func (s *TenantStore) DeleteTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrTenantNotFound
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE tenant_id = $1
        RETURNING tenant_id, name, created_at, updated_at
    `, TenantsTable), id)

	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, fmt.Errorf("delete tenant: %w", err)
	}

	return tenant, nil
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var tenant Tenant

	if err := row.Scan(&tenant.TenantID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		return Tenant{}, err
	}

	return tenant, nil
}
