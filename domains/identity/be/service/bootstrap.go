package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// TenantDirectory is the narrow slice of the tenants domain the bootstrap
// needs: find-or-create by unique name.
type TenantDirectory interface {
	FindByName(ctx context.Context, name string) (string, error)
	Create(ctx context.Context, name string) (string, error)
}

// ErrTenantExists is returned by TenantDirectory.Create when the name is
// already taken; bootstrap swallows it and re-reads.
var ErrTenantExists = errors.New("tenant already exists")

// BootstrapConfig names the default tenant and admin user created at startup.
type BootstrapConfig struct {
	TenantName    string
	AdminEmail    string
	AdminPassword string
}

// Bootstrap ensures the default tenant and admin user exist. It is idempotent
// and safe to race against itself: duplicate-creation failures are treated as
// "already exists" and resolved by re-reading.
func Bootstrap(ctx context.Context, svc Service, tenants TenantDirectory, cfg BootstrapConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	tenantID, err := tenants.FindByName(ctx, cfg.TenantName)
	if err != nil {
		tenantID, err = tenants.Create(ctx, cfg.TenantName)
		if errors.Is(err, ErrTenantExists) {
			tenantID, err = tenants.FindByName(ctx, cfg.TenantName)
		}
		if err != nil {
			return err
		}
		logger.Info("bootstrap tenant created", zap.String("tenant_id", tenantID))
	}

	_, err = svc.Signup(ctx, SignupInput{
		TenantID: tenantID,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	switch {
	case err == nil:
		logger.Info("bootstrap admin user created", zap.String("tenant_id", tenantID))
	case errors.Is(err, ErrDuplicateUser):
		// Already provisioned; nothing to do.
	default:
		return err
	}

	return nil
}
