// ABOUTME: Authentication store holding the session user and token
// ABOUTME: Persists the session to local storage and drives the sign-in state machine
package auth

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/harperreed/leadlab/api"
	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/storage"
)

// Local storage keys. These are the only values the client persists.
const (
	KeyToken           = "leadlab.auth.token"
	KeyUser            = "leadlab.auth.user"
	KeyIsAuthenticated = "leadlab.auth.is_authenticated"
)

var ErrNotAuthenticated = errors.New("not signed in")

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "error"
	}
	return "anonymous"
}

// Backend is the slice of the auth service the store needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.Token, error)
	Me(ctx context.Context) (*models.User, error)
}

// TokenHolder receives the default Authorization header.
type TokenHolder interface {
	SetToken(token string)
	ClearToken()
}

// KV is where the session is persisted.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(keys ...string) error
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	State State
	User  *models.User
	Error string
}

func (s Snapshot) IsAuthenticated() bool { return s.State == Authenticated && s.User != nil }

func (s Snapshot) IsAdmin() bool { return s.IsAuthenticated() && s.User.IsAdmin }

// Pending is true while a login or user fetch is in flight.
func (s Snapshot) Pending() bool { return s.State == Authenticating }

type Store struct {
	backend Backend
	client  TokenHolder
	kv      KV
	logger  *log.Logger

	mu    sync.RWMutex
	state State
	user  *models.User
	token string
	err   string

	hookMu    sync.Mutex
	listeners []func(Snapshot)
	onLogout  []func()
}

func New(backend Backend, client TokenHolder, kv KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{backend: backend, client: client, kv: kv, logger: logger}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{State: s.state, User: s.user, Error: s.err}
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// OnChange registers fn to run after every state transition.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.hookMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.hookMu.Unlock()
}

// OnLogout registers teardown work that runs on every logout.
func (s *Store) OnLogout(fn func()) {
	s.hookMu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.hookMu.Unlock()
}

// Login runs anonymous -> authenticating -> authenticated, or ends in the
// error state with a message for the sign-in screen.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.transition(Authenticating, nil, "", "")

	tok, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return s.fail(err, "sign in")
	}
	s.client.SetToken(tok.AccessToken)

	user := tok.User
	if user == nil {
		if user, err = s.backend.Me(ctx); err != nil {
			return s.fail(err, "load your profile")
		}
	}

	if err := s.persist(tok.AccessToken, user); err != nil {
		s.logger.Warn("failed to persist session", "err", err)
	}
	s.transition(Authenticated, user, tok.AccessToken, "")
	s.logger.Info("signed in", "user", user.Email)
	return nil
}

// Restore re-hydrates a persisted session on startup. A missing token
// leaves the store anonymous. A token the server rejects clears
// everything; any other failure leaves the saved session for the next
// start.
func (s *Store) Restore(ctx context.Context) error {
	tokenBytes, err := s.kv.Get(KeyToken)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(tokenBytes) == 0) {
		s.transition(Anonymous, nil, "", "")
		return nil
	}
	if err != nil {
		return err
	}
	token := string(tokenBytes)

	// Show the cached user while the fetch is in flight.
	var cached *models.User
	var u models.User
	if storage.GetJSON(s.kv, KeyUser, &u) == nil {
		cached = &u
	}
	s.client.SetToken(token)
	s.transition(Authenticating, cached, token, "")
	return s.FetchUser(ctx)
}

// FetchUser refreshes the current user for the held token.
func (s *Store) FetchUser(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	user, err := s.backend.Me(ctx)
	switch {
	case err == nil:
	case rejected(err):
		s.logger.Info("stored session rejected", "err", err)
		s.clear()
		s.transition(Anonymous, nil, "", "")
		return err
	case s.Snapshot().State == Authenticated:
		return err
	default:
		s.logger.Warn("could not verify stored session", "err", err)
		s.client.ClearToken()
		s.transition(Anonymous, nil, "", "")
		return err
	}
	if err := s.persist(token, user); err != nil {
		s.logger.Warn("failed to persist session", "err", err)
	}
	s.transition(Authenticated, user, token, "")
	return nil
}

// Logout ends the session locally without a server round-trip and runs
// every registered teardown hook.
func (s *Store) Logout() {
	s.clear()
	s.transition(Anonymous, nil, "", "")

	s.hookMu.Lock()
	hooks := append([]func(){}, s.onLogout...)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Acknowledge returns a failed login to anonymous once the error was shown.
func (s *Store) Acknowledge() {
	if s.Snapshot().State == Failed {
		s.transition(Anonymous, nil, "", "")
	}
}

func (s *Store) fail(err error, action string) error {
	s.clear()
	s.transition(Failed, nil, "", api.UserMessage(err, action))
	return err
}

// rejected reports whether the server refused the token itself, as
// opposed to being unreachable or failing.
func rejected(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden)
}

func (s *Store) clear() {
	s.client.ClearToken()
	if err := s.kv.Delete(KeyToken, KeyUser, KeyIsAuthenticated); err != nil {
		s.logger.Warn("failed to clear stored session", "err", err)
	}
}

func (s *Store) persist(token string, user *models.User) error {
	if err := s.kv.Set(KeyToken, []byte(token)); err != nil {
		return err
	}
	if err := storage.SetJSON(s.kv, KeyUser, user); err != nil {
		return err
	}
	return s.kv.Set(KeyIsAuthenticated, []byte("true"))
}

func (s *Store) transition(state State, user *models.User, token, errMsg string) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.token = token
	s.err = errMsg
	snap := Snapshot{State: state, User: user, Error: errMsg}
	s.mu.Unlock()

	s.hookMu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.hookMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
