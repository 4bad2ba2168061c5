package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousUser is the identity assigned when no JWT secret is configured
const AnonymousUser = "anonymous"

var (
	// ErrMissingToken is returned when a request carries no credentials
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned when a token fails verification
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey struct{}

// Manager verifies identity-provider JWTs (HMAC signed)
type Manager struct {
	secret []byte
	issuer string
}

// NewManager creates a manager. An empty secret disables verification; a
// non-empty issuer is enforced on every token.
func NewManager(secret, issuer string) *Manager {
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Enabled reports whether tokens are verified
func (m *Manager) Enabled() bool {
	return len(m.secret) > 0
}

// ValidateToken verifies tokenString and returns the user ID from the
// "user_id" claim, falling back to "sub"
func (m *Manager) ValidateToken(tokenString string) (string, error) {
	if !m.Enabled() {
		return AnonymousUser, nil
	}
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("%w: user_id not found in token", ErrInvalidToken)
}

// ExtractTokenFromHeader extracts the token from an Authorization header.
// Both "Bearer <token>" and a bare token are accepted.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.Fields(authHeader)
	switch len(parts) {
	case 1:
		return parts[0], nil
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return "", fmt.Errorf("invalid authorization scheme %q", parts[0])
		}
		return parts[1], nil
	}
	return "", fmt.Errorf("invalid authorization header format")
}

// WithUserID returns a context carrying the authenticated user ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user ID from ctx, if any
func UserID(ctx context.Context) string {
	if userID, ok := ctx.Value(contextKey{}).(string); ok {
		return userID
	}
	return ""
}
