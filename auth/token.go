package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign session tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("kaichat_session_signing_key_2026")

// SessionClaims defines the data stored inside the success token
// returned by login.
type SessionClaims struct {
	IdentityID string `json:"identity_id"`
	Handle     string `json:"handle"`
	jwt.RegisteredClaims
}

// GenerateToken creates the signed success token for a logged-in
// identity.
func GenerateToken(identityID, handle string, duration time.Duration) (string, error) {
	expirationTime := time.Now().Add(duration)

	claims := &SessionClaims{
		IdentityID: identityID,
		Handle:     handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "kaichat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a
// session token string.
func ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
