package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testController(deps HTTPControllerDeps, cfg HTTPConfig) *HTTPController {
	if deps.Logger == nil {
		deps.Logger = testLogger{}
	}
	return NewHTTPController(deps, cfg)
}

func TestControllerCallbackRedirectsAfterSignIn(t *testing.T) {
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			return &Credential{User: &User{UID: "user-1"}}, nil
		},
	}

	controller := testController(HTTPControllerDeps{
		Client:   client,
		Redirect: NewRedirectCompletion(client, WithRedirectLogger(testLogger{})),
	}, HTTPConfig{
		SuccessRedirect: "/dashboard",
	})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{router.StatusSeeOther}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", redirectURL)
}

func TestControllerCallbackRedirectsErrorsToErrorPage(t *testing.T) {
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			return nil, assert.AnError
		},
	}

	controller := testController(HTTPControllerDeps{
		Client:   client,
		Redirect: NewRedirectCompletion(client, WithRedirectLogger(testLogger{})),
	}, HTTPConfig{
		ErrorRedirect: "/login",
	})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	var redirectURL string
	ctx.On("Redirect", mock.Anything, []int{router.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
		redirectURL = args.String(0)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/login?error="+TextCodeRedirectFailed, redirectURL)
}

func TestControllerCreateSessionSetsCookie(t *testing.T) {
	issuer := testIssuer(t, SessionIssuerConfig{})

	controller := testController(HTTPControllerDeps{
		Issuer: issuer,
	}, HTTPConfig{
		CookieName: "session",
	})

	idToken := mintProviderToken(t, &ProviderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "person@example.com",
	})

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*SessionRequest)
		payload.IDToken = idToken
	}).Return(nil)

	var cookie *router.Cookie
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	}).Return()

	var response map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		response = args.Get(1).(map[string]any)
	}).Return(nil)

	err := controller.CreateSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, cookie)
	assert.Equal(t, "session", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "session_created", response["status"])

	claims, err := issuer.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
}

func TestControllerSignInReturnsMFAChallenge(t *testing.T) {
	challenge := &MFAChallenge{Session: "mfa-session", Provider: "google.com"}
	client := &stubIdentity{
		popup: func(ctx context.Context, provider AuthProvider) (*Credential, error) {
			return nil, &MFARequiredError{Challenge: challenge}
		},
	}

	controller := testController(HTTPControllerDeps{
		Client: client,
		SignIn: NewSignInTrigger(client, StrategyPopup, WithSignInLogger(testLogger{})),
	}, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "google.com"
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil)

	var status int
	var response map[string]any
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
		response = args.Get(1).(map[string]any)
	}).Return(nil)

	err := controller.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusUnauthorized, status)
	assert.Equal(t, "mfa_required", response["error"])
	assert.Equal(t, challenge, response["challenge"])
}

func TestControllerSignInRejectsMissingCredential(t *testing.T) {
	client := &stubIdentity{
		popup: func(ctx context.Context, provider AuthProvider) (*Credential, error) {
			return nil, nil
		},
	}

	controller := testController(HTTPControllerDeps{
		Client: client,
		SignIn: NewSignInTrigger(client, StrategyPopup, WithSignInLogger(testLogger{})),
	}, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "google.com"
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Return(nil)

	var response map[string]string
	ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
		response = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextCodeSignInFailed, response["error"])
}

func TestControllerUnlinkPhoneWithoutUser(t *testing.T) {
	controller := testController(HTTPControllerDeps{
		Client: &stubIdentity{},
		Phones: NewPhoneLinker(&stubIdentity{}, &stubDocumentStore{}, WithPhoneLogger(testLogger{})),
	}, HTTPConfig{})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	var response map[string]string
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		response = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.UnlinkPhone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unlinked", response["status"])
}

func TestAppendQueryParam(t *testing.T) {
	assert.Equal(t, "", appendQueryParam("", "a", "b"))
	assert.Equal(t, "/login?error=auth_failed", appendQueryParam("/login", "error", "auth_failed"))

	withExisting := appendQueryParam("/login?next=%2Fhome", "error", "auth_failed")
	assert.Contains(t, withExisting, "error=auth_failed")
	assert.Contains(t, withExisting, "next=%2Fhome")
}
