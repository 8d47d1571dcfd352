package auth

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength matches the config validation for security.jwt.secret.
const MinSecretLength = 32

// Issuer is stamped on every token and required when parsing.
const Issuer = "graylogic-facility"

const defaultTTLMinutes = 15

// Claims extends the registered JWT claims with role and site scope.
type Claims struct {
	jwt.RegisteredClaims
	Role    Role     `json:"role"`
	SiteIDs []string `json:"sites,omitempty"`
}

// CanAccessSite reports whether the token is scoped to siteID.
// An empty scope grants every site.
func (c *Claims) CanAccessSite(siteID string) bool {
	return len(c.SiteIDs) == 0 || slices.Contains(c.SiteIDs, siteID)
}

// GenerateToken signs an access token for id. A non-positive ttlMinutes
// uses the 15 minute default.
func GenerateToken(id Identity, secret string, ttlMinutes int) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrWeakSecret
	}
	if id.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !IsValidRole(id.Role) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, id.Role)
	}
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTTLMinutes
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Role:    id.Role,
		SiteIDs: id.SiteIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry and issuer, and returns the claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: role %q", ErrTokenInvalid, claims.Role)
	}
	return claims, nil
}
