package accounts

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// Config holds the runtime configuration for the account flows.
type Config struct {
	// SigningKey signs minted session tokens
	SigningKey string `env:"ACCOUNTS_SIGNING_KEY"`

	// SessionTTL bounds the lifetime of minted sessions
	SessionTTL time.Duration `env:"ACCOUNTS_SESSION_TTL" envDefault:"168h"`

	// SessionIssuer is the iss claim on minted sessions
	SessionIssuer string `env:"ACCOUNTS_SESSION_ISSUER" envDefault:"go-accounts"`

	// JWKSURL serves the identity platform's verification keys
	JWKSURL string `env:"ACCOUNTS_JWKS_URL"`

	// TokenIssuer is the expected iss claim on provider identity tokens
	TokenIssuer string `env:"ACCOUNTS_TOKEN_ISSUER"`

	// TokenAudience is the expected aud claim on provider identity tokens
	TokenAudience string `env:"ACCOUNTS_TOKEN_AUDIENCE"`

	// SessionEndpointURL receives identity tokens during session exchange
	SessionEndpointURL string `env:"ACCOUNTS_SESSION_ENDPOINT_URL"`

	// SignInStrategy selects the interaction mode: "popup" or "redirect"
	SignInStrategy string `env:"ACCOUNTS_SIGNIN_STRATEGY" envDefault:"popup"`

	// PhoneRegion parses national phone numbers
	PhoneRegion string `env:"ACCOUNTS_PHONE_REGION" envDefault:"US"`

	// CookieName for the minted session token
	CookieName string `env:"ACCOUNTS_COOKIE_NAME" envDefault:"session"`

	// CookieSecure sets the Secure flag on session cookies
	CookieSecure bool `env:"ACCOUNTS_COOKIE_SECURE" envDefault:"true"`

	// Debug enables request payload dumps
	Debug bool `env:"ACCOUNTS_DEBUG" envDefault:"false"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment")
	}
	return cfg, nil
}

// Strategy parses the configured sign-in strategy, falling back to popup
// when unset or invalid.
func (c Config) Strategy() Strategy {
	strategy, err := ParseStrategy(c.SignInStrategy)
	if err != nil {
		return StrategyPopup
	}
	return strategy
}

// IssuerConfig builds the session issuer configuration.
func (c Config) IssuerConfig() SessionIssuerConfig {
	return SessionIssuerConfig{
		JWKSURL:       c.JWKSURL,
		Issuer:        c.TokenIssuer,
		Audience:      c.TokenAudience,
		SigningKey:    []byte(c.SigningKey),
		SessionTTL:    c.SessionTTL,
		SessionIssuer: c.SessionIssuer,
	}
}
