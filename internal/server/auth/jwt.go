// Package auth validates principal tokens issued by the external
// authentication service. The server never issues tokens itself; it only
// verifies the HS256 signature and extracts the caller's identity and
// quota ceiling.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkonsky/cloudvault/internal/common"
)

// Claims includes the standard registered claims plus the fields the
// auth service embeds for every user.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	QuotaBytes int64  `json:"quota_bytes"`
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	ID    string
	Quota int64
}

// ParsePrincipal verifies tokenString against secretKey and returns the
// embedded principal. Any parse, signature, or expiry failure maps to
// common.ErrInvalidToken so callers can treat all of them as a 401.
func ParsePrincipal(tokenString string, secretKey []byte) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Principal{ID: claims.UserID, Quota: claims.QuotaBytes}, nil
}

// GenerateToken signs a principal token. The server itself does not issue
// tokens; this exists for tests and local tooling.
func GenerateToken(p *Principal, secretKey []byte, expiresAt *jwt.NumericDate) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: expiresAt},
		UserID:           p.ID,
		QuotaBytes:       p.Quota,
	})
	return token.SignedString(secretKey)
}
