package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zenGate-Global/palmyra-identity/domains/identity/be/repo"
	"github.com/zenGate-Global/palmyra-identity/platform/go/auth"
	"github.com/zenGate-Global/palmyra-identity/platform/go/credentials"
	"github.com/zenGate-Global/palmyra-identity/platform/go/notify"
	"github.com/zenGate-Global/palmyra-identity/platform/go/persistence"
)

// captureNotifier records the last message instead of delivering it.
type captureNotifier struct {
	to      string
	subject string
	body    string
	err     error
	calls   int
}

func (n *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.to = to
	n.subject = subject
	n.body = body
	return nil
}

type fixture struct {
	svc      Service
	repo     *repo.MemoryRepository
	notifier *captureNotifier
	issuer   *auth.Issuer
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	memRepo := repo.NewMemoryRepository()
	notifier := &captureNotifier{}
	svc := New(memRepo, credentials.NewHasher(bcrypt.MinCost), issuer, notifier, nil)

	return fixture{svc: svc, repo: memRepo, notifier: notifier, issuer: issuer}
}

func mustSignup(t *testing.T, f fixture, tenantID, email, password string) User {
	t.Helper()

	user, err := f.svc.Signup(context.Background(), SignupInput{
		TenantID: tenantID,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")
	require.Equal(t, "a@x.com", created.Email)
	require.Equal(t, "T1", created.TenantID)
	require.Equal(t, 0, created.FailedLogins)
	require.False(t, created.AccountLocked)

	token, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	claims, err := f.issuer.Verify(token.Token)
	require.NoError(t, err)
	require.Equal(t, "T1", claims.TenantID)
	require.Equal(t, created.ID.String(), claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestSignupStoresHashNotPlaintext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	record, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, record.UserID)
	require.NotEqual(t, "pw", record.CredentialHash)

	hasher := credentials.NewHasher(bcrypt.MinCost)
	require.True(t, hasher.Verify("pw", record.CredentialHash))
}

func TestSignupDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mustSignup(t, f, "T1", "a@x.com", "pw")

	_, err := f.svc.Signup(context.Background(), SignupInput{TenantID: "T2", Email: "a@x.com", Password: "other"})
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), SignupInput{TenantID: "T1", Email: "", Password: "pw"})

	var validationErr *persistence.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")

	_, err = f.svc.Signup(context.Background(), SignupInput{TenantID: "", Email: "a@x.com", Password: "pw"})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "tenantId")

	_, err = f.svc.Signup(context.Background(), SignupInput{TenantID: "T1", Email: "b@x.com", Password: ""})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "password")
}

func TestLoginUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), "nobody@x.com", "pw")
	require.ErrorIs(t, err, ErrNoSuchUser)
}

func TestLoginWrongPasswordLadder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	// Attempts 1-5 fail with incorrect password and advance the counter.
	for i := 1; i <= 5; i++ {
		_, err := f.svc.Login(context.Background(), "a@x.com", "wrong")
		require.ErrorIs(t, err, ErrIncorrectPassword, "attempt %d", i)

		record, err := f.repo.Get(context.Background(), created.ID)
		require.NoError(t, err)
		require.Equal(t, i, record.FailedLogins)
		require.False(t, record.AccountLocked)
	}

	// The 6th failure crosses the threshold and reports the lock, not the
	// password mismatch.
	_, err := f.svc.Login(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	record, err := f.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 6, record.FailedLogins)
	require.True(t, record.AccountLocked)
}

func TestLockedAccountRejectsCorrectPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	for i := 0; i < 6; i++ {
		_, _ = f.svc.Login(context.Background(), "a@x.com", "wrong")
	}

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, ErrAccountLocked)

	// The locked attempt must not advance the counter further.
	record, err := f.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 6, record.FailedLogins)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	for i := 0; i < 3; i++ {
		_, _ = f.svc.Login(context.Background(), "a@x.com", "wrong")
	}

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	record, err := f.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 0, record.FailedLogins)
	require.False(t, record.AccountLocked)
}

func TestLoginCancelledBeforeTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, context.Canceled)

	// Cancelled attempt must not half-apply the failed-attempt transition.
	record, err := f.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 0, record.FailedLogins)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mustSignup(t, f, "T1", "a@x.com", "pw")

	_, err := f.svc.ChangePassword(context.Background(), "a@x.com", "wrong", "newpw")
	require.ErrorIs(t, err, ErrIncorrectPassword)

	// A wrong current password on this path never feeds the lockout counter.
	record, err := f.repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 0, record.FailedLogins)

	_, err = f.svc.ChangePassword(context.Background(), "a@x.com", "pw", "newpw")
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = f.svc.Login(context.Background(), "a@x.com", "newpw")
	require.NoError(t, err)
}

func TestChangePasswordUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.ChangePassword(context.Background(), "nobody@x.com", "pw", "newpw")
	require.ErrorIs(t, err, ErrNoSuchUser)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mustSignup(t, f, "T1", "a@x.com", "pw")

	_, err := f.svc.ResetPassword(context.Background(), "a@x.com")
	require.NoError(t, err)

	require.Equal(t, "a@x.com", f.notifier.to)
	require.Contains(t, f.notifier.subject, "a@x.com")
	require.Contains(t, f.notifier.body, "Temporary password: ")

	// Old password no longer verifies.
	_, err = f.svc.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, ErrIncorrectPassword)

	// The delivered temporary credential does.
	tempPassword := f.notifier.body[len("Temporary password: "):]
	token, err := f.svc.Login(context.Background(), "a@x.com", tempPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
}

func TestResetPasswordUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.ResetPassword(context.Background(), "nobody@x.com")
	require.ErrorIs(t, err, ErrNoSuchUser)
	require.Equal(t, 0, f.notifier.calls)
}

func TestResetPasswordDeliveryFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	mustSignup(t, f, "T1", "a@x.com", "pw")
	f.notifier.err = notify.ErrDelivery

	_, err := f.svc.ResetPassword(context.Background(), "a@x.com")
	require.ErrorIs(t, err, notify.ErrDelivery)

	// The credential was already rotated before delivery failed.
	_, err = f.svc.Login(context.Background(), "a@x.com", "pw")
	require.ErrorIs(t, err, ErrIncorrectPassword)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := mustSignup(t, f, "T1", "a@x.com", "pw")

	token, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	claims, err := f.svc.Authenticate(token.Token)
	require.NoError(t, err)
	require.Equal(t, created.ID.String(), claims.UserID)

	_, err = f.svc.Authenticate("garbage")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMeAndListAndDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := mustSignup(t, f, "T1", "a@x.com", "pw")
	mustSignup(t, f, "T1", "b@x.com", "pw")
	mustSignup(t, f, "T2", "c@x.com", "pw")

	me, err := f.svc.Me(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", me.Email)

	_, err = f.svc.Me(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)

	users, err := f.svc.ListUsers(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, users, 2)

	deleted, err := f.svc.DeleteUser(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", deleted.Email)

	_, err = f.svc.DeleteUser(context.Background(), first.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	users, err = f.svc.ListUsers(context.Background(), "T1")
	require.NoError(t, err)
	require.Len(t, users, 1)
}
