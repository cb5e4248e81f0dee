// Package session owns the lifecycle of the authenticated session:
// restoring it from stored credentials on startup, establishing it on
// login, and tearing it down on logout.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taxbook/taxbook-go/api"
	"github.com/taxbook/taxbook-go/credentials"
)

// State is the session machine's position. A process starts in
// Bootstrapping exactly once; after that the session flips between
// Authenticated and Unauthenticated via Login/Logout.
type State int

const (
	StateBootstrapping State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Listener receives every state transition. Listeners are invoked outside
// the manager's lock, in subscription order.
type Listener func(State)

// Manager drives the session state machine. It is the sole owner of the
// derived user profile; the credential store only ever holds token bytes.
type Manager struct {
	api   *api.Client
	creds credentials.Store
	log   zerolog.Logger

	lock      sync.Mutex
	state     State
	user      *api.UserProfile
	gen       uint64 // bumped on logout so stale bootstraps discard
	listeners []Listener
}

type Option func(*Manager)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

func New(apiClient *api.Client, creds credentials.Store, options ...Option) (*Manager, error) {
	if apiClient == nil {
		return nil, errors.New("[session.New] api client is required")
	}
	if creds == nil {
		return nil, errors.New("[session.New] credentials store is required")
	}

	m := &Manager{
		api:   apiClient,
		creds: creds,
		log:   zerolog.Nop(),
		state: StateBootstrapping,
	}
	for _, opt := range options {
		opt(m)
	}

	apiClient.OnUnauthorized(m.sessionExpired)
	return m, nil
}

// sessionExpired runs when the api client surfaces a terminal 401 on an
// authenticated call. The failed refresh already cleared the credential
// store; flipping to Unauthenticated here keeps the guard from rendering
// against a session the backend no longer honours.
func (m *Manager) sessionExpired() {
	m.lock.Lock()
	if m.state != StateAuthenticated {
		m.lock.Unlock()
		return
	}
	gen := m.gen
	m.lock.Unlock()

	m.log.Info().Msg("session expired, signing out")
	m.clearCredentials()
	m.transition(gen, StateUnauthenticated, nil)
}

// State returns the current machine state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// CurrentUser returns the profile of the authenticated user, or nil.
func (m *Manager) CurrentUser() *api.UserProfile {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.user
}

// Authenticated reports whether a user is signed in.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// Subscribe registers a listener for state transitions. There is no
// unsubscribe; subscribers live as long as the manager.
func (m *Manager) Subscribe(fn Listener) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Bootstrap restores a session from the stored refresh token. It never
// returns an error: every failure path (no token, refresh rejected,
// profile fetch failed) lands in Unauthenticated with credentials cleared,
// because a failed silent restore must not break application startup.
func (m *Manager) Bootstrap(ctx context.Context) State {
	gen := m.generation()

	if _, ok := m.creds.Refresh(); !ok {
		m.transition(gen, StateUnauthenticated, nil)
		return m.State()
	}

	if err := m.api.RefreshCredentials(ctx); err != nil {
		// RefreshCredentials already cleared the store.
		m.log.Debug().Err(err).Msg("bootstrap refresh failed")
		m.transition(gen, StateUnauthenticated, nil)
		return m.State()
	}

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("bootstrap profile fetch failed")
		m.clearCredentials()
		m.transition(gen, StateUnauthenticated, nil)
		return m.State()
	}

	m.transition(gen, StateAuthenticated, user)
	return m.State()
}

// Login authenticates with email and password. On failure the state is
// left untouched and the typed error propagates for display.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	gen := m.generation()

	pair, err := m.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	if err := m.creds.SetTokens(pair.Access, pair.Refresh); err != nil {
		return errors.Wrap(err, "[Login] persisting tokens")
	}

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.clearCredentials()
		return err
	}

	m.transition(gen, StateAuthenticated, user)
	m.log.Info().Str("email", user.Email).Msg("logged in")
	return nil
}

// Logout invalidates the refresh token server-side on a best-effort basis
// and always clears local state. Calling it with no stored tokens, or
// twice in a row, is safe.
func (m *Manager) Logout(ctx context.Context) {
	if refresh, ok := m.creds.Refresh(); ok {
		if err := m.api.Logout(ctx, refresh); err != nil {
			// Local logout proceeds regardless; the token expires on
			// its own server-side.
			m.log.Debug().Err(err).Msg("server-side token invalidation failed")
		}
	}

	m.lock.Lock()
	m.gen++
	gen := m.gen
	m.lock.Unlock()

	m.clearCredentials()
	m.transition(gen, StateUnauthenticated, nil)
}

func (m *Manager) generation() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.gen
}

func (m *Manager) clearCredentials() {
	if err := m.creds.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear credentials")
	}
}

// transition applies a state change unless a logout happened since gen was
// taken; a stale bootstrap or login result must not resurrect a session
// the user already ended.
func (m *Manager) transition(gen uint64, state State, user *api.UserProfile) {
	m.lock.Lock()
	if gen != m.gen {
		m.lock.Unlock()
		m.log.Debug().Stringer("dropped_state", state).Msg("discarding stale session transition")
		return
	}
	m.state = state
	m.user = user
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.lock.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
