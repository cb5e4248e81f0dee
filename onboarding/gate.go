// Package onboarding caches the server-declared setup progression and
// answers the one question the navigation layer asks: is this organization
// allowed past the onboarding flow yet?
package onboarding

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taxbook/taxbook-go/api"
	"github.com/taxbook/taxbook-go/session"
)

// GateState is the gate's tri-state answer plus its transient positions.
type GateState int

const (
	// StateUnknown means no authenticated session, so the question does
	// not apply.
	StateUnknown GateState = iota
	// StateLoading means a status fetch is in flight.
	StateLoading
	StateCompleted
	StateIncomplete
)

func (s GateState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateLoading:
		return "loading"
	case StateCompleted:
		return "completed"
	case StateIncomplete:
		return "incomplete"
	}
	return "invalid"
}

// Gate fetches and caches the onboarding status. It refetches whenever the
// session flips between authenticated and unauthenticated.
type Gate struct {
	api     *api.Client
	session *session.Manager
	log     zerolog.Logger

	lock   sync.RWMutex
	state  GateState
	status api.OnboardingStatus
}

type Option func(*Gate)

func WithLogger(log zerolog.Logger) Option {
	return func(g *Gate) {
		g.log = log
	}
}

// New wires the gate to the session manager: every session transition
// triggers a refetch so the cached answer never outlives the session it
// was computed for.
func New(apiClient *api.Client, sess *session.Manager, options ...Option) (*Gate, error) {
	if apiClient == nil {
		return nil, errors.New("[onboarding.New] api client is required")
	}
	if sess == nil {
		return nil, errors.New("[onboarding.New] session manager is required")
	}

	g := &Gate{
		api:     apiClient,
		session: sess,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(g)
	}

	sess.Subscribe(func(session.State) {
		g.Refetch(context.Background())
	})
	return g, nil
}

// State returns the cached gate state.
func (g *Gate) State() GateState {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.state
}

// Status returns the raw progression enum from the last successful fetch.
func (g *Gate) Status() api.OnboardingStatus {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return g.status
}

func (g *Gate) set(state GateState) GateState {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.state = state
	return state
}

// Completed reports whether setup is finished. It is false for every state
// except StateCompleted.
func (g *Gate) Completed() bool {
	return g.State() == StateCompleted
}

// Refetch recomputes the gate from the backend. Without an authenticated
// session it short-circuits to Unknown with no network call. A fetch
// failure counts as incomplete: an error must never grant access.
func (g *Gate) Refetch(ctx context.Context) GateState {
	if !g.session.Authenticated() {
		g.lock.Lock()
		g.state = StateUnknown
		g.status = ""
		g.lock.Unlock()
		return StateUnknown
	}

	g.set(StateLoading)

	status, err := g.api.OrganizationStatus(ctx)
	if err != nil {
		g.log.Debug().Err(err).Msg("onboarding status fetch failed, treating as incomplete")
		return g.set(StateIncomplete)
	}

	g.lock.Lock()
	g.status = status.OnboardingStatus
	g.lock.Unlock()

	if status.IsCompleted {
		return g.set(StateCompleted)
	}
	return g.set(StateIncomplete)
}
