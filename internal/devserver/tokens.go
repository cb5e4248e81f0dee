package devserver

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type tokenMinter struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenMinter(secret []byte) *tokenMinter {
	return &tokenMinter{
		secret:     secret,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
}

func (m *tokenMinter) mint(tokenType string, userID string, email string, ttl time.Duration) (string, string, error) {
	now := m.now()
	jti := uuid.New().String()

	claims := &tokenClaims{
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", errors.Wrap(err, "signing token")
	}
	return signed, jti, nil
}

// mintPair issues a fresh access+refresh pair for the user.
func (m *tokenMinter) mintPair(userID, email string) (access, refresh, refreshJTI string, err error) {
	access, _, err = m.mint(tokenTypeAccess, userID, email, m.accessTTL)
	if err != nil {
		return "", "", "", err
	}
	refresh, refreshJTI, err = m.mint(tokenTypeRefresh, userID, email, m.refreshTTL)
	if err != nil {
		return "", "", "", err
	}
	return access, refresh, refreshJTI, nil
}

func (m *tokenMinter) verify(tokenString, wantType string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != wantType {
		return nil, errors.Errorf("token is not a %s token", wantType)
	}
	return claims, nil
}
