package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenGate-Global/palmyra-identity/domains/identity/be/repo"
	"github.com/zenGate-Global/palmyra-identity/platform/go/auth"
	"github.com/zenGate-Global/palmyra-identity/platform/go/credentials"
)

// fakeDirectory is an in-memory TenantDirectory keyed by tenant name.
type fakeDirectory struct {
	tenants map[string]string
	creates int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{tenants: make(map[string]string)}
}

var errNoSuchTenant = errors.New("no such tenant")

func (d *fakeDirectory) FindByName(ctx context.Context, name string) (string, error) {
	id, ok := d.tenants[name]
	if !ok {
		return "", errNoSuchTenant
	}
	return id, nil
}

func (d *fakeDirectory) Create(ctx context.Context, name string) (string, error) {
	d.creates++
	if _, ok := d.tenants[name]; ok {
		return "", ErrTenantExists
	}
	id := "tenant-" + name
	d.tenants[name] = id
	return id, nil
}

func newBootstrapService(t *testing.T) (Service, *repo.MemoryRepository) {
	t.Helper()

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	memRepo := repo.NewMemoryRepository()
	svc := New(memRepo, credentials.NewHasher(bcrypt.MinCost), issuer, &captureNotifier{}, nil)
	return svc, memRepo
}

func TestBootstrapCreatesTenantAndAdmin(t *testing.T) {
	t.Parallel()

	svc, memRepo := newBootstrapService(t)
	directory := newFakeDirectory()
	cfg := BootstrapConfig{TenantName: "Project Lion", AdminEmail: "lion@projectlion.com", AdminPassword: "lion"}

	require.NoError(t, Bootstrap(context.Background(), svc, directory, cfg, nil))

	admin, err := memRepo.GetByEmail(context.Background(), "lion@projectlion.com")
	require.NoError(t, err)
	require.Equal(t, "tenant-Project Lion", admin.TenantID)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, memRepo := newBootstrapService(t)
	directory := newFakeDirectory()
	cfg := BootstrapConfig{TenantName: "Project Lion", AdminEmail: "lion@projectlion.com", AdminPassword: "lion"}

	require.NoError(t, Bootstrap(context.Background(), svc, directory, cfg, nil))
	require.NoError(t, Bootstrap(context.Background(), svc, directory, cfg, nil))

	require.Equal(t, 1, directory.creates)

	users, err := memRepo.List(context.Background(), "tenant-Project Lion")
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestBootstrapResolvesCreateRace(t *testing.T) {
	t.Parallel()

	svc, _ := newBootstrapService(t)
	directory := newFakeDirectory()
	// Tenant appears between the failed lookup and the create attempt.
	directory.tenants["Project Lion"] = "tenant-Project Lion"
	findMisses := 0
	racy := &racingDirectory{inner: directory, findMisses: &findMisses}

	cfg := BootstrapConfig{TenantName: "Project Lion", AdminEmail: "lion@projectlion.com", AdminPassword: "lion"}
	require.NoError(t, Bootstrap(context.Background(), svc, racy, cfg, nil))
	require.Equal(t, 1, findMisses)
}

// racingDirectory misses the first FindByName so Bootstrap takes the
// create-then-reread path against an already populated directory.
type racingDirectory struct {
	inner      *fakeDirectory
	findMisses *int
}

func (d *racingDirectory) FindByName(ctx context.Context, name string) (string, error) {
	if *d.findMisses == 0 {
		*d.findMisses++
		return "", errNoSuchTenant
	}
	return d.inner.FindByName(ctx, name)
}

func (d *racingDirectory) Create(ctx context.Context, name string) (string, error) {
	return d.inner.Create(ctx, name)
}
