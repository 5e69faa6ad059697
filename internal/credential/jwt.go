package credential

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes what can be read from a token without verifying it.
type TokenInfo struct {
	IsJWT     bool
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the token carries an exp claim earlier than now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// InspectToken decodes a JWT without checking its signature. Opaque tokens
// return IsJWT=false and no error; the token is only ever forwarded, never trusted.
func InspectToken(token string) TokenInfo {
	tok := strings.TrimSpace(token)
	if strings.Count(tok, ".") != 2 {
		return TokenInfo{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return TokenInfo{}
	}
	info := TokenInfo{IsJWT: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}
