package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateEditorToken creates an HS256 token that passes the write guard of
// the catalog API for subject sub.
func GenerateEditorToken(secret, sub string, ttl time.Duration) (string, error) {
	if sub == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return Sign(secret, claims)
}

// Sign issues an HS256 token carrying claims.
func Sign(secret string, claims jwt.MapClaims) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}
