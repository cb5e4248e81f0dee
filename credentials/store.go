// Package credentials holds the persisted token pair for the TaxBook API.
// The store is intentionally dumb: it owns the token bytes and nothing else.
// All refresh/retry/logout policy lives in the api and session packages.
package credentials

// Store persists an access/refresh token pair across process restarts.
// Reads never fail; implementations keep an in-memory snapshot and surface
// persistence problems only on writes.
type Store interface {
	// Access returns the stored access token, if any.
	Access() (string, bool)
	// Refresh returns the stored refresh token, if any.
	Refresh() (string, bool)
	// SetTokens stores the access token unconditionally. The refresh token
	// is stored only when non-empty, so an access-only renewal keeps the
	// existing refresh token.
	SetTokens(access, refresh string) error
	// Clear removes both tokens. Clearing an empty store is a no-op.
	Clear() error
}
