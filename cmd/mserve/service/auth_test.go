package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medium-stack/mstack/common/cache"
	"github.com/medium-stack/mstack/common/config"
	"github.com/medium-stack/mstack/common/errs"
	"github.com/medium-stack/mstack/common/logger"
	"github.com/medium-stack/mstack/common/models"
)

type fakeBlacklist struct {
	mu   sync.Mutex
	keys map[string]string
}

func (f *fakeBlacklist) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = map[string]string{}
	}
	f.keys[key] = value
	return nil
}

func (f *fakeBlacklist) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[key]
	return ok, nil
}

func authFixture(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	log := logger.New("error", "text")

	svc := NewAuthService(store, &fakeBlacklist{}, cache.NewMemoryCache(log), config.AuthConfig{
		Secret:   "test-secret",
		Issuer:   "mserve-test",
		TokenTTL: time.Hour,
	}, log)
	return svc, store
}

func TestRegisterCreatesUserAndHash(t *testing.T) {
	svc, store := authFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.UserCreator{
		Email:     "reg@example.com",
		FirstName: "Reg",
		LastName:  "Istrant",
		Password:  "a-solid-password",
	})
	require.NoError(t, err)
	assert.False(t, user.Cid.IsZero())

	assert.Equal(t, 1, store.count(models.CollectionUsers))
	assert.Equal(t, 1, store.count(models.CollectionPasswordHash))
}

func TestRegisterDuplicateUserRejected(t *testing.T) {
	svc, _ := authFixture(t)
	ctx := context.Background()

	creator := models.UserCreator{
		Email:     "dup@example.com",
		FirstName: "Du",
		LastName:  "Plicate",
		Password:  "a-solid-password",
	}

	_, err := svc.Register(ctx, creator)
	require.NoError(t, err)

	// Same identity fields derive the same cid.
	_, err = svc.Register(ctx, creator)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBadInput))
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := authFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.UserCreator{
		Email:     "login@example.com",
		FirstName: "Log",
		LastName:  "In",
		Password:  "a-solid-password",
	})
	require.NoError(t, err)

	token, loggedIn, err := svc.Login(ctx, "login@example.com", "a-solid-password")
	require.NoError(t, err)
	assert.True(t, loggedIn.Cid.Equal(user.Cid))
	require.NotEmpty(t, token)

	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, authed.Cid.Equal(user.Cid))

	// Second call should come from cache and still resolve.
	authed, err = svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, authed.Cid.Equal(user.Cid))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.UserCreator{
		Email:     "wrong@example.com",
		FirstName: "Wr",
		LastName:  "Ong",
		Password:  "a-solid-password",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "wrong@example.com", "not-the-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))

	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever-pass")
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := authFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.UserCreator{
		Email:     "out@example.com",
		FirstName: "Log",
		LastName:  "Out",
		Password:  "a-solid-password",
	})
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "out@example.com", "a-solid-password")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Authenticate(ctx, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))
}

func TestDeleteAccountRemovesUserAndHash(t *testing.T) {
	svc, store := authFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.UserCreator{
		Email:     "gone@example.com",
		FirstName: "Go",
		LastName:  "Ne",
		Password:  "a-solid-password",
	})
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, "gone@example.com", "a-solid-password")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, user))

	assert.Equal(t, 0, store.count(models.CollectionUsers))
	assert.Equal(t, 0, store.count(models.CollectionPasswordHash))

	// The token's subject no longer resolves.
	_, err = svc.Authenticate(ctx, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))
}

func TestAuthenticateGarbageToken(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Authenticate(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))
}
