package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-identity/domains/tenants/be/repo"
	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// Domain sentinel errors.
var (
	ErrNotFound  = errors.New("tenant not found")
	ErrDuplicate = errors.New("a tenant with that name already exists")
)

// Tenant represents the domain view of a tenant record.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service defines the business operations for the tenants domain.
type Service interface {
	Create(ctx context.Context, name string) (Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	FindByName(ctx context.Context, name string) (Tenant, error)
}

type service struct {
	repo   repo.Repository
	logger *zap.Logger
}

// New constructs a tenants Service backed by the provided repository.
func New(r repo.Repository, logger *zap.Logger) Service {
	if r == nil {
		panic("tenants repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{repo: r, logger: logger}
}

func (s *service) Create(ctx context.Context, name string) (Tenant, error) {
	trimmed := strings.TrimSpace(name)

	// Explicit duplicate precheck; the store's unique index backstops races.
	if _, err := s.repo.FindByName(ctx, trimmed); err == nil {
		return Tenant{}, ErrDuplicate
	} else if !errors.Is(err, persistence.ErrTenantNotFound) {
		return Tenant{}, err
	}

	record, err := s.repo.Create(ctx, uuid.New(), trimmed)
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}

	s.logger.Info("tenant created", zap.String("tenant_id", record.TenantID.String()))
	return mapTenant(record), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (Tenant, error) {
	if id == uuid.Nil {
		return Tenant{}, ErrNotFound
	}

	record, err := s.repo.Delete(ctx, id)
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}

	s.logger.Info("tenant deleted", zap.String("tenant_id", id.String()))
	return mapTenant(record), nil
}

func (s *service) List(ctx context.Context) ([]Tenant, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	tenants := make([]Tenant, 0, len(records))
	for _, record := range records {
		tenants = append(tenants, mapTenant(record))
	}
	return tenants, nil
}

func (s *service) FindByName(ctx context.Context, name string) (Tenant, error) {
	record, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}
	return mapTenant(record), nil
}

func mapTenant(record persistence.Tenant) Tenant {
	return Tenant{
		ID:        record.TenantID,
		Name:      record.Name,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrTenantConflict):
		return ErrDuplicate
	default:
		return err
	}
}
