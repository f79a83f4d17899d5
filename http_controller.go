package accounts

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth")
	PathPrefix string

	// CookieName for the minted session token (default: "session")
	CookieName string

	// CookieSecure sets the Secure flag on the session cookie
	CookieSecure bool

	// CookieHTTPOnly sets the HttpOnly flag on the session cookie
	CookieHTTPOnly bool

	// CookieSameSite sets the SameSite attribute (e.g. "Lax", "Strict", "None")
	CookieSameSite string

	// SuccessRedirect is where completed redirect sign-ins land
	SuccessRedirect string

	// ErrorRedirect receives failed redirect completions
	ErrorRedirect string

	// Debug dumps request payloads to the logger
	Debug bool

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// HTTPController exposes the account flows over HTTP.
type HTTPController struct {
	client        IdentityClient
	signIn        *SignInTrigger
	redirect      *RedirectCompletion
	exchanger     *SessionExchanger
	issuer        *SessionIssuer
	profiles      *ProfileManager
	organizations *OrganizationManager
	phones        *PhoneLinker
	mfa           *MFAResolver
	config        HTTPConfig
	logger        Logger
}

// HTTPControllerDeps collects the collaborators the controller drives.
type HTTPControllerDeps struct {
	Client        IdentityClient
	SignIn        *SignInTrigger
	Redirect      *RedirectCompletion
	Exchanger     *SessionExchanger
	Issuer        *SessionIssuer
	Profiles      *ProfileManager
	Organizations *OrganizationManager
	Phones        *PhoneLinker
	MFA           *MFAResolver
	Logger        Logger
}

// NewHTTPController creates the accounts HTTP controller.
func NewHTTPController(deps HTTPControllerDeps, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.CookieSameSite == "" {
		cfg.CookieSameSite = "Lax"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/login?error=auth_failed"
	}

	logger := deps.Logger
	if logger == nil {
		logger = defLogger{}
	}

	return &HTTPController{
		client:        deps.Client,
		signIn:        deps.SignIn,
		redirect:      deps.Redirect,
		exchanger:     deps.Exchanger,
		issuer:        deps.Issuer,
		profiles:      deps.Profiles,
		organizations: deps.Organizations,
		phones:        deps.Phones,
		mfa:           deps.MFA,
		config:        cfg,
		logger:        logger,
	}
}

// RegisterRoutes registers the account routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/sign-in/:provider", c.SignIn)
	group.Get("/callback", c.Callback)
	group.Post("/sessions", c.CreateSession)
	group.Post("/mfa/resolve", c.ResolveMFA)

	group.Patch("/profile/:id", c.UpdateProfile)
	group.Post("/profile/:id/avatar", c.UploadAvatar)
	group.Delete("/profile/:id/avatar", c.RemoveAvatar)

	group.Patch("/organizations/:id", c.UpdateOrganization)
	group.Post("/organizations/:id/logo", c.UploadLogo)
	group.Delete("/organizations/:id/logo", c.RemoveLogo)

	group.Post("/phone/link", c.LinkPhone)
	group.Post("/phone/confirm", c.ConfirmPhone)
	group.Delete("/phone", c.UnlinkPhone)
}

// SignInRequest optionally overrides the configured interaction strategy.
type SignInRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

// SignIn starts interactive sign-in against the named provider. When the
// platform demands a second factor the challenge is returned instead of a
// credential so the caller can resolve it.
func (c *HTTPController) SignIn(ctx router.Context) error {
	providerName := ctx.Param("provider")
	if providerName == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing provider",
		})
	}

	payload := new(SignInRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if c.config.Debug {
		c.logger.Debug("sign in payload: %s", print.MaybePrettyJSON(payload))
	}

	trigger := c.signIn
	if payload.Strategy != "" {
		strategy, err := ParseStrategy(payload.Strategy)
		if err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		trigger = NewSignInTrigger(c.client, strategy, WithSignInLogger(c.logger))
	}

	outcome, err := trigger.SignIn(ctx.Context(), ProviderID(providerName))
	if err != nil {
		if mfaErr, ok := AsMFARequired(err); ok {
			return ctx.JSON(router.StatusUnauthorized, map[string]any{
				"error":     "mfa_required",
				"challenge": mfaErr.Challenge,
			})
		}
		return c.handleError(ctx, err)
	}

	if outcome.Redirected {
		return ctx.JSON(router.StatusAccepted, map[string]string{
			"status": "redirect_pending",
		})
	}

	if outcome.Credential == nil || outcome.Credential.User == nil {
		return c.handleError(ctx, wrapCollaboratorError(ErrSignInFailed, "sign_in", fmt.Errorf("provider returned no credential")))
	}

	if err := c.exchanger.Exchange(ctx.Context(), outcome.Credential.User); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":     "signed_in",
		"credential": outcome.Credential,
	})
}

// Callback completes a redirect-based sign-in. Concurrent requests share a
// single completion check; the first one drives it and the rest wait for the
// same outcome.
func (c *HTTPController) Callback(ctx router.Context) error {
	outcome, err := c.redirect.Check(ctx.Context())
	if err != nil && outcome.Err == nil {
		// the wait itself was abandoned, not the check
		return c.handleError(ctx, err)
	}

	if outcome.Err != nil {
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", ErrorCode(outcome.Err))
		return ctx.Redirect(redirectURL, router.StatusTemporaryRedirect)
	}

	if !outcome.SignedIn {
		return ctx.Redirect(c.config.SuccessRedirect, router.StatusTemporaryRedirect)
	}

	return ctx.Redirect(c.config.SuccessRedirect, router.StatusSeeOther)
}

// SessionRequest carries the provider identity token to exchange.
type SessionRequest struct {
	IDToken string `json:"id_token"`
}

// Validate will run validation rules
func (r SessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

// CreateSession verifies a provider identity token and mints the session
// cookie.
func (c *HTTPController) CreateSession(ctx router.Context) error {
	payload := new(SessionRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	token, claims, err := c.issuer.Issue(payload.IDToken)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": ErrorCode(err),
		})
	}

	c.setAuthCookie(ctx, token, claims)

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "session_created",
		"user":   claims.SessionUser(),
	})
}

// MFAResolveRequest completes a pending multi-factor challenge.
type MFAResolveRequest struct {
	Session  string   `json:"session"`
	Provider string   `json:"provider,omitempty"`
	Hints    []string `json:"hints,omitempty"`
	Code     string   `json:"code"`
}

// Validate will run validation rules
func (r MFAResolveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Session, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

// ResolveMFA completes an interrupted sign-in with a second-factor code and
// exchanges the resulting credential for a session.
func (c *HTTPController) ResolveMFA(ctx router.Context) error {
	payload := new(MFAResolveRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	challenge := &MFAChallenge{
		Session:  payload.Session,
		Provider: payload.Provider,
		Hints:    payload.Hints,
	}

	credential, err := c.mfa.Resolve(ctx.Context(), challenge, payload.Code)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": ErrorCode(err),
		})
	}

	if err := c.exchanger.Exchange(ctx.Context(), credential.User); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":     "signed_in",
		"credential": credential,
	})
}

// UpdateProfile applies a partial update to the profile record.
func (c *HTTPController) UpdateProfile(ctx router.Context) error {
	id := ctx.Param("id")

	payload := new(ProfilePatch)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if c.config.Debug {
		c.logger.Debug("profile patch: %s", print.MaybePrettyJSON(payload))
	}

	if err := c.profiles.Update(ctx.Context(), id, *payload); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "updated",
	})
}

// AssetUploadRequest carries a base64 encoded asset body.
type AssetUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	CurrentURL  string `json:"current_url,omitempty"`
	Data        string `json:"data"`
}

// Validate will run validation rules
func (r AssetUploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileName, validation.Required),
		validation.Field(&r.Data, validation.Required),
	)
}

func (r AssetUploadRequest) file() (*AssetFile, error) {
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decode asset body: %w", err)
	}

	return &AssetFile{
		Name:        r.FileName,
		Data:        data,
		ContentType: r.ContentType,
	}, nil
}

// UploadAvatar replaces the profile avatar image.
func (c *HTTPController) UploadAvatar(ctx router.Context) error {
	return c.uploadAsset(ctx, func(ctx router.Context, id string, file *AssetFile, current string) (string, error) {
		return c.profiles.ReplaceAvatar(ctx.Context(), id, current, file, nil)
	})
}

// RemoveAvatar deletes the profile avatar image and clears the reference.
func (c *HTTPController) RemoveAvatar(ctx router.Context) error {
	return c.removeAsset(ctx, func(ctx router.Context, id, current string) error {
		_, err := c.profiles.ReplaceAvatar(ctx.Context(), id, current, nil, nil)
		return err
	})
}

// UpdateOrganization applies a partial update to the organization record.
func (c *HTTPController) UpdateOrganization(ctx router.Context) error {
	id := ctx.Param("id")

	payload := new(OrganizationPatch)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if c.config.Debug {
		c.logger.Debug("organization patch: %s", print.MaybePrettyJSON(payload))
	}

	if err := c.organizations.Update(ctx.Context(), id, *payload); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "updated",
	})
}

// UploadLogo replaces the organization logo image.
func (c *HTTPController) UploadLogo(ctx router.Context) error {
	return c.uploadAsset(ctx, func(ctx router.Context, id string, file *AssetFile, current string) (string, error) {
		return c.organizations.ReplaceLogo(ctx.Context(), id, current, file, nil)
	})
}

// RemoveLogo deletes the organization logo image and clears the reference.
func (c *HTTPController) RemoveLogo(ctx router.Context) error {
	return c.removeAsset(ctx, func(ctx router.Context, id, current string) error {
		_, err := c.organizations.ReplaceLogo(ctx.Context(), id, current, nil, nil)
		return err
	})
}

// PhoneLinkRequest starts phone verification for the signed-in user.
type PhoneLinkRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// Validate will run validation rules
func (r PhoneLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber, validation.Required),
	)
}

// LinkPhone validates the number and starts a verification challenge.
func (c *HTTPController) LinkPhone(ctx router.Context) error {
	payload := new(PhoneLinkRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	user, err := c.client.CurrentUser(ctx.Context())
	if err != nil {
		return c.handleError(ctx, err)
	}

	challenge, err := c.phones.Link(ctx.Context(), user, payload.PhoneNumber)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":    "verification_sent",
		"challenge": challenge,
	})
}

// PhoneConfirmRequest completes a pending phone verification.
type PhoneConfirmRequest struct {
	Session     string `json:"session"`
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// Validate will run validation rules
func (r PhoneConfirmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Session, validation.Required),
		validation.Field(&r.Code, validation.Required),
	)
}

// ConfirmPhone completes a pending phone verification challenge.
func (c *HTTPController) ConfirmPhone(ctx router.Context) error {
	payload := new(PhoneConfirmRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	challenge := &PhoneChallenge{
		Session:     payload.Session,
		PhoneNumber: payload.PhoneNumber,
	}

	credential, err := c.phones.Confirm(ctx.Context(), challenge, payload.Code)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": ErrorCode(err),
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":     "phone_linked",
		"credential": credential,
	})
}

// UnlinkPhone detaches the phone factor from the signed-in user. When no
// user is signed in the call reports success without doing anything.
func (c *HTTPController) UnlinkPhone(ctx router.Context) error {
	user, err := c.client.CurrentUser(ctx.Context())
	if err != nil {
		return c.handleError(ctx, err)
	}

	if err := c.phones.Unlink(ctx.Context(), user); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "unlinked",
	})
}

func (c *HTTPController) uploadAsset(ctx router.Context, replace func(ctx router.Context, id string, file *AssetFile, current string) (string, error)) error {
	id := ctx.Param("id")

	payload := new(AssetUploadRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.handleError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	file, err := payload.file()
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	url, err := replace(ctx, id, file, payload.CurrentURL)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "uploaded",
		"url":    url,
	})
}

func (c *HTTPController) removeAsset(ctx router.Context, remove func(ctx router.Context, id, current string) error) error {
	id := ctx.Param("id")
	current := ctx.Query("current_url")

	if err := remove(ctx, id, current); err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "removed",
	})
}

func (c *HTTPController) setAuthCookie(ctx router.Context, token string, claims *SessionClaims) {
	ctx.Cookie(&router.Cookie{
		Name:     c.config.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.Expires(),
		Secure:   c.config.CookieSecure,
		HTTPOnly: c.config.CookieHTTPOnly,
		SameSite: c.config.CookieSameSite,
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	c.logger.Error("request failed: %v", err)

	return ctx.JSON(router.StatusBadRequest, map[string]string{
		"error": ErrorCode(err),
	})
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
