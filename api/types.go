package api

// TokenPair is the JWT pair issued by POST /api/token/. The refresh token
// is optional in refresh responses (present only when the backend rotates
// refresh tokens on use).
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginRequest is the body of POST /api/token/. Email is the username
// field.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/users/register/.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UserProfile is the current user as returned by GET /api/users/me/.
type UserProfile struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	TelegramID *string `json:"telegram_id"`
	DateJoined string  `json:"date_joined"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}
