package sessions

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var (
	ErrMalformedToken = errors.New("malformed access token")
	ErrTokenExpired   = errors.New("access token expired")
)

// TokenValidator decides whether a persisted access token may back an authenticated session
type TokenValidator func(rawToken string) error

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// SyntaxValidator accepts any token that decodes as a compact JWT. The signature is not
// checked; only the backend can do that.
func SyntaxValidator() TokenValidator {
	return func(rawToken string) error {
		_, err := parseUnverified(rawToken)
		return err
	}
}

// ExpiryValidator is SyntaxValidator plus a client-side check of the exp claim.
// Tokens without exp are accepted.
func ExpiryValidator(leeway time.Duration) TokenValidator {
	return func(rawToken string) error {
		claims, err := parseUnverified(rawToken)
		if err != nil {
			return err
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return errors.Wrap(ErrMalformedToken, err.Error())
		}
		if exp != nil && NowTimeFunc().After(exp.Add(leeway)) {
			return ErrTokenExpired
		}
		return nil
	}
}

func parseUnverified(rawToken string) (jwtlib.MapClaims, error) {
	if strings.TrimSpace(rawToken) == "" || strings.ContainsAny(rawToken, " \t\r\n") {
		return nil, ErrMalformedToken
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}
	return claims, nil
}
