package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/db"
	"github.com/vbonduro/vlogadmin/internal/domain"
	"github.com/vbonduro/vlogadmin/internal/logging"
	"github.com/vbonduro/vlogadmin/internal/session"
	"github.com/vbonduro/vlogadmin/internal/store"
)

type fixture struct {
	svc      *Service
	set      *store.Set
	sessions *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	set := store.NewSQLSet(d, db.SQLite)
	sessions := session.NewMemoryStore(time.Hour)
	svc := NewService(set.Users, set.Credentials, sessions, time.Hour, logging.Discard())
	svc.cost = bcrypt.MinCost
	return &fixture{svc: svc, set: set, sessions: sessions}
}

func validRegistration() Registration {
	return Registration{
		Name:            "Kasun Perera",
		NIC:             "901234567V",
		ContactNumber:   "0771234567",
		Email:           "Admin@Example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		ProfileImageURL: "https://cdn/avatar.png",
	}
}

func TestRegistrationValidate(t *testing.T) {
	errs := Registration{Email: "nope", Password: "123", ConfirmPassword: "321"}.Validate()

	assert.Equal(t, "Name is required", errs["name"])
	assert.Equal(t, "NIC is required", errs["nic"])
	assert.Equal(t, "Contact Number is required", errs["contactNumber"])
	assert.Equal(t, "Email is not valid", errs["email"])
	assert.Equal(t, "Password must be at least 6 characters", errs["password"])
	assert.Equal(t, "Passwords do not match", errs["confirmPassword"])

	assert.Empty(t, validRegistration().Validate())
}

func TestRegisterAndSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	cred, err := f.set.Credentials.GetByID(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, user.ID, cred.UID)
	assert.NotEqual(t, "secret1", cred.PasswordHash)

	token, p, err := f.svc.SignIn(ctx, " ADMIN@example.com ", "secret1")
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, user.ID, p.UID)
	assert.Equal(t, "Kasun Perera", p.Name)
	assert.Equal(t, "https://cdn/avatar.png", p.ImageURL)
	assert.Equal(t, DefaultRole, p.Role)
	assert.Equal(t, HashToken(token), p.SessionID)

	// only the hash is stored
	_, err = f.sessions.Lookup(ctx, token)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.sessions.Lookup(ctx, HashToken(token))
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, validRegistration())
	require.Error(t, err)
	assert.Equal(t, "Email is already registered", apperr.FieldErrors(err)["email"])
}

func TestRegisterInvalidWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := validRegistration()
	r.Password = "short"
	r.ConfirmPassword = "short"
	_, err := f.svc.Register(ctx, r)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	n, err := f.set.Users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, _, err = f.svc.SignIn(ctx, "admin@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.SignIn(ctx, "", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	token, _, err := f.svc.SignIn(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)

	p, err := f.svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Kasun Perera", p.Name)

	p, err = f.svc.Resolve(ctx, "not-a-session")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = f.svc.Resolve(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestResolveMissingProfileUsesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	token, p, err := f.svc.SignIn(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.set.Users.Delete(ctx, p.UID))

	got, err := f.svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, DefaultName, got.Name)
	assert.Equal(t, DefaultImage, got.ImageURL)
	assert.Equal(t, DefaultRole, got.Role)
}

type brokenSessions struct{ session.Store }

func (brokenSessions) Lookup(context.Context, string) (session.Data, error) {
	return session.Data{}, errors.New("connection refused")
}

func TestResolveBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.sessions = brokenSessions{}

	p, err := f.svc.Resolve(context.Background(), "token")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestSignOutRevokesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	var events []Event
	unsubscribe := f.svc.Subscribe(func(ev Event) { events = append(events, ev) })

	token, p, err := f.svc.SignIn(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx, token))

	require.Len(t, events, 2)
	assert.Equal(t, SignedIn, events[0].Kind)
	assert.Equal(t, SignedOut, events[1].Kind)
	assert.Equal(t, p.SessionID, events[1].SessionID)
	assert.Equal(t, p.UID, events[1].UID)

	resolved, err := f.svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	unsubscribe()
	unsubscribe()
	_, _, err = f.svc.SignIn(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSignOutEmptyToken(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.svc.SignOut(context.Background(), ""))
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestCredentialIDIsLowercasedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	all, err := f.set.Credentials.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "admin@example.com", all[0].ID)
	assert.IsType(t, &domain.Credential{}, all[0])
}
