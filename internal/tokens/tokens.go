// Package tokens issues and verifies the HS256 access and refresh tokens.
// Both kinds share one claim layout and differ by the "type" claim, which
// verification always checks, so one can never stand in for the other.
package tokens

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// RefreshToken is a freshly signed refresh token together with the values
// the caller needs to persist it.
type RefreshToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func NewJTI() string { return uuid.NewString() }

func sign(userID, typ string, ttl time.Duration, secret []byte) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        NewJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func IssueAccessToken(userID string, secret []byte) (string, error) {
	token, _, err := sign(userID, TypeAccess, AccessTTL, secret)
	return token, err
}

func IssueRefreshToken(userID string, secret []byte) (*RefreshToken, error) {
	token, claims, err := sign(userID, TypeRefresh, RefreshTTL, secret)
	if err != nil {
		return nil, err
	}
	return &RefreshToken{
		Token:     token,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func parse(tokenStr string, secret []byte) *Claims {
	if tokenStr == "" || len(secret) == 0 {
		return nil
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !tkn.Valid {
		return nil
	}
	return &claims
}

// VerifyAccessToken returns the claims of a valid access token, or nil.
// Bad signature, expiry, malformed input and a wrong type all look the same.
func VerifyAccessToken(tokenStr string, secret []byte) *Claims {
	claims := parse(tokenStr, secret)
	if claims == nil || claims.Type != TypeAccess || claims.Subject == "" {
		return nil
	}
	return claims
}

// VerifyRefreshToken returns the claims of a valid refresh token, or nil.
func VerifyRefreshToken(tokenStr string, secret []byte) *Claims {
	claims := parse(tokenStr, secret)
	if claims == nil || !wellFormedRefresh(claims) {
		return nil
	}
	return claims
}

func wellFormedRefresh(c *Claims) bool {
	return c.Type == TypeRefresh &&
		c.Subject != "" &&
		c.ID != "" &&
		c.IssuedAt != nil &&
		c.ExpiresAt != nil
}

// HashJTI is the lookup key for stored refresh tokens.
func HashJTI(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
