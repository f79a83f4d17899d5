package accounts

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ProviderClaims is the subset of the identity provider's token payload the
// issuer carries over into the session artifact.
type ProviderClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Provider    string `json:"sign_in_provider,omitempty"`
}

// SessionIssuerConfig configures session minting.
type SessionIssuerConfig struct {
	// JWKSURL is the provider's key set used to verify identity tokens.
	// Optional when KeyFunc is supplied directly.
	JWKSURL string

	// Issuer/Audience expected on incoming provider tokens. Empty values
	// skip the respective check.
	Issuer   string
	Audience string

	// SigningKey signs the minted session artifact (HS256).
	SigningKey []byte

	// SessionTTL bounds the minted session. Defaults to 7 days.
	SessionTTL time.Duration

	// SessionIssuer is the iss claim on minted sessions.
	SessionIssuer string

	// KeyFunc overrides JWKS resolution, mainly for tests.
	KeyFunc jwt.Keyfunc
}

// SessionIssuer is the server-side half of the token exchange: it verifies
// a provider identity token against the platform key set and mints the
// session artifact as a signed JWT.
type SessionIssuer struct {
	config  SessionIssuerConfig
	keyFunc jwt.Keyfunc
	logger  Logger
}

// IssuerOption configures a SessionIssuer.
type IssuerOption func(*SessionIssuer)

// WithIssuerLogger sets the logger.
func WithIssuerLogger(logger Logger) IssuerOption {
	return func(s *SessionIssuer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionIssuer builds an issuer, resolving the provider JWKS when no
// key func was supplied.
func NewSessionIssuer(config SessionIssuerConfig, opts ...IssuerOption) (*SessionIssuer, error) {
	if len(config.SigningKey) == 0 {
		return nil, errors.New("session signing key is required", errors.CategoryBadInput)
	}
	if config.SessionTTL == 0 {
		config.SessionTTL = 7 * 24 * time.Hour
	}

	issuer := &SessionIssuer{
		config:  config,
		keyFunc: config.KeyFunc,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}

	if issuer.keyFunc == nil {
		if config.JWKSURL == "" {
			return nil, errors.New("either a JWKS URL or a key func is required", errors.CategoryBadInput)
		}

		jwks, err := keyfunc.Get(config.JWKSURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				issuer.logger.Error("failed to refresh provider JWK set: %v", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load provider JWK set: %w", err)
		}
		issuer.keyFunc = jwks.Keyfunc
	}

	return issuer, nil
}

// Issue verifies idToken and mints a session JWT for it.
func (s *SessionIssuer) Issue(idToken string) (string, *SessionClaims, error) {
	provider, err := s.verify(idToken)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.SessionIssuer,
			Subject:   provider.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.SessionTTL)),
		},
		UID:         provider.Subject,
		Email:       provider.Email,
		Name:        provider.Name,
		Picture:     provider.Picture,
		PhoneNumber: provider.PhoneNumber,
		Provider:    provider.Provider,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.SigningKey)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign session")
	}

	return signed, claims, nil
}

// Validate parses and validates a minted session artifact.
func (s *SessionIssuer) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.config.SigningKey, nil
	})
	if err != nil {
		return nil, wrapCollaboratorError(ErrSessionCreateFailed, "validate_session", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, wrapCollaboratorError(ErrSessionCreateFailed, "validate_session", fmt.Errorf("could not decode claims"))
	}

	return claims, nil
}

func (s *SessionIssuer) verify(idToken string) (*ProviderClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if s.config.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.ParseWithClaims(idToken, &ProviderClaims{}, s.keyFunc, parserOptions...)
	if err != nil {
		return nil, wrapCollaboratorError(ErrIDTokenFailed, "verify_id_token", err)
	}

	claims, ok := token.Claims.(*ProviderClaims)
	if !ok || !token.Valid {
		s.logger.Error("could not decode provider token claims")
		return nil, wrapCollaboratorError(ErrIDTokenFailed, "verify_id_token", fmt.Errorf("could not decode claims"))
	}

	return claims, nil
}
