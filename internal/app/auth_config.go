package app

import (
	"github.com/charlesng35/quizapi/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// TokenServiceConfig converts AuthConfig into TokenService parameters.
func (c AuthConfig) TokenServiceConfig() auth.TokenServiceConfig {
	length := c.Session.RefreshLength
	if length <= 0 {
		length = auth.DefaultRefreshTokenBytes
	}

	ttl := c.Session.RefreshTTL
	if ttl < 0 {
		ttl = 0
	}

	return auth.TokenServiceConfig{
		RefreshTokenTTL: ttl,
		RefreshLength:   length,
	}
}
