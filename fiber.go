package accounts

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// SessionContextKey is the default locals key holding the validated session.
const SessionContextKey = "session"

// ErrSessionNotFound is returned when the request carries no session.
var ErrSessionNotFound = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrSessionDecode is returned when the stored session has the wrong shape.
var ErrSessionDecode = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// GetSession retrieves the validated session claims stored in the request
// locals by RequireSession.
func GetSession(c *fiber.Ctx, key string) (*SessionClaims, error) {
	value := c.Locals(key)
	if value == nil {
		return nil, ErrSessionNotFound
	}

	claims, ok := value.(*SessionClaims)
	if claims == nil || !ok {
		return nil, ErrSessionDecode
	}

	return claims, nil
}

// RequireSessionConfig configures the session middleware.
type RequireSessionConfig struct {
	// CookieName holding the session token (default: "session")
	CookieName string

	// ContextKey for the validated claims (default: SessionContextKey)
	ContextKey string

	// ErrorHandler handles rejected requests (optional)
	ErrorHandler func(c *fiber.Ctx, err error) error
}

// RequireSession validates the session cookie and stores the claims in the
// request locals. Requests without a valid session are rejected.
func RequireSession(issuer *SessionIssuer, cfg RequireSessionConfig) fiber.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = SessionContextKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ErrorCode(err),
			})
		}
	}

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.CookieName)
		if token == "" {
			return cfg.ErrorHandler(c, ErrSessionNotFound)
		}

		claims, err := issuer.Validate(token)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		return c.Next()
	}
}
