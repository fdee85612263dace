// ABOUTME: Tests for the authentication store
// ABOUTME: Walks the state machine and checks session persistence across restarts
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/storage"
)

type fakeBackend struct {
	mu       sync.Mutex
	loginErr error
	meErr    error
	user     *models.User
	embed    bool
	meCalls  int
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*models.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	tok := &models.Token{AccessToken: "tok-" + email, TokenType: "bearer"}
	if f.embed {
		tok.User = f.user
	}
	return tok, nil
}

func (f *fakeBackend) Me(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

type fakeHolder struct {
	mu    sync.Mutex
	token string
}

func (h *fakeHolder) SetToken(t string) { h.mu.Lock(); h.token = t; h.mu.Unlock() }
func (h *fakeHolder) ClearToken()       { h.SetToken("") }
func (h *fakeHolder) get() string       { h.mu.Lock(); defer h.mu.Unlock(); return h.token }

func newStore(t *testing.T, kv KV, backend *fakeBackend) (*Store, *fakeHolder) {
	t.Helper()
	holder := &fakeHolder{}
	return New(backend, holder, kv, nil), holder
}

func memKV(t *testing.T) *storage.Store {
	t.Helper()
	kv, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestLoginSuccess(t *testing.T) {
	kv := memKV(t)
	backend := &fakeBackend{user: &models.User{ID: uuid.New(), Email: "ada@example.com"}}
	store, holder := newStore(t, kv, backend)

	var states []State
	store.OnChange(func(s Snapshot) { states = append(states, s.State) })

	require.NoError(t, store.Login(context.Background(), "ada@example.com", "pw"))

	assert.Equal(t, []State{Authenticating, Authenticated}, states)
	snap := store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.False(t, snap.IsAdmin())
	assert.Equal(t, "tok-ada@example.com", holder.get())
	assert.Equal(t, 1, backend.meCalls, "user fetched when the token response omits it")

	token, err := kv.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-ada@example.com", string(token))
}

func TestLoginUsesEmbeddedUser(t *testing.T) {
	backend := &fakeBackend{user: &models.User{ID: uuid.New(), IsAdmin: true}, embed: true}
	store, _ := newStore(t, memKV(t), backend)
	require.NoError(t, store.Login(context.Background(), "root@example.com", "pw"))
	assert.Equal(t, 0, backend.meCalls)
	assert.True(t, store.Snapshot().IsAdmin())
}

func TestLoginFailureThenAcknowledge(t *testing.T) {
	kv := memKV(t)
	backend := &fakeBackend{loginErr: &api.Error{Status: 401, Detail: "Incorrect email or password"}}
	store, holder := newStore(t, kv, backend)

	var states []State
	store.OnChange(func(s Snapshot) { states = append(states, s.State) })

	err := store.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	snap := store.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, "Incorrect email or password", snap.Error)
	assert.Empty(t, holder.get())

	store.Acknowledge()
	assert.Equal(t, []State{Authenticating, Failed, Anonymous}, states)
	assert.Empty(t, store.Snapshot().Error)
}

func TestRestoreRehydratesSession(t *testing.T) {
	kv := memKV(t)
	user := &models.User{ID: uuid.New(), Email: "ada@example.com"}
	backend := &fakeBackend{user: user}

	first, _ := newStore(t, kv, backend)
	require.NoError(t, first.Login(context.Background(), "ada@example.com", "pw"))

	// A fresh process reading the same local storage.
	second, holder := newStore(t, kv, backend)
	require.NoError(t, second.Restore(context.Background()))

	snap := second.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, user.ID, snap.User.ID)
	assert.Equal(t, "tok-ada@example.com", holder.get())
}

func TestRestoreRejectedTokenRevertsToAnonymous(t *testing.T) {
	kv := memKV(t)
	require.NoError(t, kv.Set(KeyToken, []byte("expired")))
	require.NoError(t, kv.Set(KeyUser, []byte(`{"email":"ada@example.com"}`)))
	backend := &fakeBackend{meErr: &api.Error{Status: 401}}
	store, holder := newStore(t, kv, backend)

	var sawCachedUser bool
	store.OnChange(func(s Snapshot) {
		if s.State == Authenticating && s.User != nil && s.User.Email == "ada@example.com" {
			sawCachedUser = true
		}
	})

	err := store.Restore(context.Background())
	assert.True(t, errors.Is(err, api.ErrUnauthorized))
	assert.True(t, sawCachedUser)
	assert.Equal(t, Anonymous, store.Snapshot().State)
	assert.Empty(t, holder.get())

	_, err = kv.Get(KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreUnreachableServerKeepsSavedSession(t *testing.T) {
	kv := memKV(t)
	require.NoError(t, kv.Set(KeyToken, []byte("tok")))
	require.NoError(t, kv.Set(KeyUser, []byte(`{"email":"ada@example.com"}`)))
	backend := &fakeBackend{meErr: fmt.Errorf("%w: GET /auth/me: connection refused", api.ErrNetwork)}
	store, holder := newStore(t, kv, backend)

	err := store.Restore(context.Background())
	require.Error(t, err)
	assert.Equal(t, Anonymous, store.Snapshot().State)
	assert.Empty(t, holder.get())

	token, err := kv.Get(KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(token))

	// The next start, with the server back, picks the session up again.
	backend.mu.Lock()
	backend.meErr = nil
	backend.user = &models.User{ID: uuid.New(), Email: "ada@example.com"}
	backend.mu.Unlock()
	next, _ := newStore(t, kv, backend)
	require.NoError(t, next.Restore(context.Background()))
	assert.True(t, next.Snapshot().IsAuthenticated())
}

func TestRestoreForbiddenTokenClearsSession(t *testing.T) {
	kv := memKV(t)
	require.NoError(t, kv.Set(KeyToken, []byte("tok")))
	store, _ := newStore(t, kv, &fakeBackend{meErr: &api.Error{Status: 403}})

	err := store.Restore(context.Background())
	assert.True(t, errors.Is(err, api.ErrForbidden))
	_, err = kv.Get(KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRestoreWithoutTokenIsAnonymous(t *testing.T) {
	backend := &fakeBackend{}
	store, _ := newStore(t, memKV(t), backend)
	require.NoError(t, store.Restore(context.Background()))
	assert.Equal(t, Anonymous, store.Snapshot().State)
	assert.Equal(t, 0, backend.meCalls)
}

func TestLogoutClearsEverythingAndRunsHooks(t *testing.T) {
	kv := memKV(t)
	backend := &fakeBackend{user: &models.User{ID: uuid.New()}}
	store, holder := newStore(t, kv, backend)
	require.NoError(t, store.Login(context.Background(), "ada@example.com", "pw"))

	var tornDown bool
	store.OnLogout(func() { tornDown = true })
	store.Logout()

	assert.True(t, tornDown)
	assert.Equal(t, Anonymous, store.Snapshot().State)
	assert.Nil(t, store.Snapshot().User)
	assert.Empty(t, holder.get())
	for _, key := range []string{KeyToken, KeyUser, KeyIsAuthenticated} {
		_, err := kv.Get(key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}
}

func TestFetchUserRequiresToken(t *testing.T) {
	store, _ := newStore(t, memKV(t), &fakeBackend{})
	assert.ErrorIs(t, store.FetchUser(context.Background()), ErrNotAuthenticated)
}
