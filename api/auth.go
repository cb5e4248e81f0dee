package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token pair via POST /api/token/.
// The call is unauthenticated and does not persist anything; the session
// manager owns storing the pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	var pair TokenPair
	err := c.public(ctx, http.MethodPost, "/token/", req, &pair)
	return pair, err
}

// Register creates an account via POST /api/users/register/. Validation
// failures carry per-field messages (password, password2, email).
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.public(ctx, http.MethodPost, "/users/register/", req, nil)
}

// CurrentUser fetches the authenticated user via GET /api/users/me/.
func (c *Client) CurrentUser(ctx context.Context) (*UserProfile, error) {
	var user UserProfile
	if err := c.Get(ctx, "/users/me/", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile fetches the editable profile via GET /api/users/profile/.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var user UserProfile
	if err := c.Get(ctx, "/users/profile/", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate is the PATCH /api/users/profile/ body; nil fields are left
// unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*UserProfile, error) {
	var user UserProfile
	if err := c.Patch(ctx, "/users/profile/", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout asks the backend to blacklist the given refresh token via
// POST /api/users/logout/. The request is authenticated but skips the
// 401 recovery cycle: refreshing here could rotate in a replacement
// refresh token that the blacklist request would then miss.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	payload, err := marshalBody(refreshRequest{Refresh: refresh})
	if err != nil {
		return err
	}
	status, data, err := c.roundTrip(ctx, http.MethodPost, "/users/logout/", payload, true)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return errorFromResponse(status, data)
	}
	return nil
}
