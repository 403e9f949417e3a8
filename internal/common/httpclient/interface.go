package httpclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Configurator defines the interface for providing server configuration and authentication details.
type Configurator interface {
	GetServerURL() string
	GetAPIKey() string
	GetToken() string
	GetTokenExpiry() time.Time
}

// StaticConfig is a Configurator over fixed values. The token expiry is read from the
// token's exp claim.
type StaticConfig struct {
	ServerURL string
	APIKey    string
	Token     string
}

func (s StaticConfig) GetServerURL() string { return s.ServerURL }
func (s StaticConfig) GetAPIKey() string    { return s.APIKey }
func (s StaticConfig) GetToken() string     { return s.Token }

func (s StaticConfig) GetTokenExpiry() time.Time {
	return TokenExpiry(s.Token)
}

// TokenExpiry returns the exp claim of a JWT session token. The signature is not verified;
// the server does that. Opaque tokens and tokens without exp yield the zero time, which is
// treated as never expiring.
func TokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
