// Package devserver is an in-memory stand-in for the TaxBook backend. It
// implements the REST surface the client consumes — JWT login/refresh/
// logout, user profile, organization onboarding, finance CRUD, activity
// catalog, tax reports, AI consult — so the CLI and the integration tests
// run without a real deployment. State lives in process memory and is gone
// on restart.
package devserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type Server struct {
	router *mux.Router
	log    zerolog.Logger
	tokens *tokenMinter
	store  *memoryStore

	// rotateRefresh mirrors the backend's ROTATE_REFRESH_TOKENS setting:
	// when set, every refresh response carries a new refresh token and
	// the spent one is revoked.
	rotateRefresh bool
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithTokenTTLs overrides the access/refresh lifetimes (tests use tiny
// access TTLs to force the refresh path).
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = access
		s.tokens.refreshTTL = refresh
	}
}

// WithNowFunc overrides the clock used for token minting and validation.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.tokens.now = now
	}
}

func WithRefreshRotation(rotate bool) Option {
	return func(s *Server) {
		s.rotateRefresh = rotate
	}
}

func New(secret string, options ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		log:    zerolog.Nop(),
		tokens: newTokenMinter([]byte(secret)),
		store:  newMemoryStore(),
	}

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SeedUser registers an account directly, bypassing the register endpoint.
func (s *Server) SeedUser(email, password, firstName, lastName string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.store.createAccount(email, hash, firstName, lastName)
	return nil
}

func (s *Server) initRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware, s.recoverMiddleware)

	api.HandleFunc("/token/", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/token/refresh/", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/users/register/", s.handleRegister).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireAuth)

	authed.HandleFunc("/users/me/", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/users/profile/", s.handleProfile).Methods(http.MethodGet)
	authed.HandleFunc("/users/profile/", s.handleUpdateProfile).Methods(http.MethodPatch)
	authed.HandleFunc("/users/logout/", s.handleLogout).Methods(http.MethodPost)

	authed.HandleFunc("/organization/status/", s.handleOrgStatus).Methods(http.MethodGet)
	authed.HandleFunc("/organization/profile/", s.handleOrgProfile).Methods(http.MethodGet)
	authed.HandleFunc("/organization/profile/", s.handleOrgProfileUpdate).Methods(http.MethodPatch)
	authed.HandleFunc("/organization/activities/", s.handleOrgActivitiesList).Methods(http.MethodGet)
	authed.HandleFunc("/organization/activities/", s.handleOrgActivityCreate).Methods(http.MethodPost)
	authed.HandleFunc("/organization/activities/{id:[0-9]+}/", s.handleOrgActivityUpdate).Methods(http.MethodPatch)
	authed.HandleFunc("/organization/activities/{id:[0-9]+}/", s.handleOrgActivityDelete).Methods(http.MethodDelete)
	authed.HandleFunc("/organization/finalize/", s.handleFinalize).Methods(http.MethodPatch)

	authed.HandleFunc("/finance/categories/", s.handleCategoriesList).Methods(http.MethodGet)
	authed.HandleFunc("/finance/categories/", s.handleCategoryCreate).Methods(http.MethodPost)
	authed.HandleFunc("/finance/categories/{id:[0-9]+}/", s.handleCategoryUpdate).Methods(http.MethodPatch)
	authed.HandleFunc("/finance/categories/{id:[0-9]+}/", s.handleCategoryDelete).Methods(http.MethodDelete)
	authed.HandleFunc("/finance/transactions/", s.handleTransactionsList).Methods(http.MethodGet)
	authed.HandleFunc("/finance/transactions/", s.handleTransactionCreate).Methods(http.MethodPost)
	authed.HandleFunc("/finance/transactions/{id:[0-9]+}/", s.handleTransactionDelete).Methods(http.MethodDelete)

	authed.HandleFunc("/activities/", s.handleActivityCodes).Methods(http.MethodGet)
	authed.HandleFunc("/tax/generate-unified-tax/", s.handleUnifiedTax).Methods(http.MethodPost)
	authed.HandleFunc("/aichat/consult/", s.handleConsult).Methods(http.MethodPost)
	authed.HandleFunc("/telegram/link-token/", s.handleTelegramLink).Methods(http.MethodGet)
}
