package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/shared/utils"
)

// contextKey is a custom type for context keys used with context.WithValue.
// A custom type avoids collisions with keys defined in other packages.
type contextKey string

const principalKey contextKey = "principal"

// Principal carries the authenticated subject through the request context.
// Resolution to a tenant entity happens later, inside the workflow core.
type Principal struct {
	Subject string
	Email   string
}

// JWTAuthConfig holds the signing configuration for token verification
type JWTAuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Validate checks that the configuration is complete
func (c *JWTAuthConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Issuer == "" {
		return fmt.Errorf("JWT issuer is required")
	}
	return nil
}

// NewJWTAuthConfigFromEnv builds the configuration from environment variables
func NewJWTAuthConfigFromEnv() *JWTAuthConfig {
	return &JWTAuthConfig{
		Secret:   utils.GetEnvOrDefault("JWT_SECRET", ""),
		Issuer:   utils.GetEnvOrDefault("JWT_ISSUER", "workorder-core"),
		Audience: utils.GetEnvOrDefault("JWT_AUDIENCE", ""),
	}
}

// JWTAuthMiddleware provides HTTP middleware for JWT authentication
type JWTAuthMiddleware struct {
	config *JWTAuthConfig
}

// NewJWTAuthMiddleware creates a new JWT authentication middleware
func NewJWTAuthMiddleware(config *JWTAuthConfig) (*JWTAuthMiddleware, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &JWTAuthMiddleware{config: config}, nil
}

// Authenticate validates the bearer token and stores the principal in the
// request context
func (m *JWTAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.RespondWithError(w, apierrors.New(apierrors.KindUnresolvedIdentity,
				"Authorization header is required", http.StatusUnauthorized))
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			utils.RespondWithError(w, apierrors.New(apierrors.KindUnresolvedIdentity,
				"Invalid authorization format. Expected 'Bearer <token>'", http.StatusUnauthorized))
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		principal, err := m.verifyToken(tokenString)
		if err != nil {
			slog.Warn("Token verification failed", "error", err)
			utils.RespondWithError(w, apierrors.New(apierrors.KindUnresolvedIdentity,
				"Invalid or expired token", http.StatusUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *JWTAuthMiddleware) verifyToken(tokenString string) (*Principal, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	}
	if m.config.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(m.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.config.Secret), nil
	}, parserOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	subject, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	if subject == "" && email == "" {
		return nil, fmt.Errorf("token carries neither subject nor email")
	}

	return &Principal{Subject: subject, Email: email}, nil
}

// IssueToken signs a token for the given principal. Used by tests and by the
// development login endpoint.
func (m *JWTAuthMiddleware) IssueToken(subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iss":   m.config.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if m.config.Audience != "" {
		claims["aud"] = m.config.Audience
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}

// GetPrincipalFromContext extracts the authenticated principal from the
// request context
func GetPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return principal, ok
}

// PrincipalIdentifier returns the lookup key for identity resolution: the
// token subject when present, otherwise the email claim.
func (p *Principal) PrincipalIdentifier() string {
	if p.Subject != "" {
		return p.Subject
	}
	return p.Email
}
