package accounts

import (
	stderrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeNoCurrentUser   = "accounts_no_current_user"
	TextCodeMissingRecordID = "accounts_missing_record_id"
	TextCodeMFARequired     = "accounts_mfa_required"
	TextCodeSignInFailed    = "accounts_sign_in_failed"
	TextCodeRedirectFailed  = "accounts_redirect_check_failed"
	TextCodeTokenFetch      = "accounts_id_token_failed"
	TextCodeSessionCreate   = "accounts_session_create_failed"
	TextCodeAssetPipeline   = "accounts_asset_pipeline_failed"
	TextCodeInvalidPhone    = "accounts_invalid_phone_number"
	TextCodeChallengeFailed = "accounts_challenge_failed"
)

// ErrNoCurrentUser is returned when an operation requires a signed-in user.
var ErrNoCurrentUser = errors.New("no user is signed in", errors.CategoryAuth).
	WithTextCode(TextCodeNoCurrentUser).
	WithCode(errors.CodeUnauthorized)

// ErrMissingRecordID is returned when an update targets an empty record id.
var ErrMissingRecordID = errors.New("record id is required", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingRecordID).
	WithCode(errors.CodeBadRequest)

// ErrSignInFailed wraps provider or network failures during sign-in.
var ErrSignInFailed = errors.New("sign in failed", errors.CategoryAuth).
	WithTextCode(TextCodeSignInFailed).
	WithCode(errors.CodeUnauthorized)

// ErrRedirectCheckFailed wraps a failed redirect-result query.
var ErrRedirectCheckFailed = errors.New("redirect sign-in check failed", errors.CategoryAuth).
	WithTextCode(TextCodeRedirectFailed).
	WithCode(errors.CodeUnauthorized)

// ErrIDTokenFailed wraps a failed identity token fetch.
var ErrIDTokenFailed = errors.New("failed to fetch identity token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenFetch).
	WithCode(errors.CodeUnauthorized)

// ErrSessionCreateFailed wraps a rejected session-creation request.
var ErrSessionCreateFailed = errors.New("failed to create session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionCreate).
	WithCode(errors.CodeUnauthorized)

// ErrAssetPipelineFailed wraps a failed step in an asset replacement or
// removal chain.
var ErrAssetPipelineFailed = errors.New("asset update failed", errors.CategoryOperation).
	WithTextCode(TextCodeAssetPipeline).
	WithCode(errors.CodeInternal)

// ErrInvalidPhoneNumber is returned for numbers that fail validation.
var ErrInvalidPhoneNumber = errors.New("invalid phone number", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidPhone).
	WithCode(errors.CodeBadRequest)

// ErrChallengeFailed wraps a failed second-factor confirmation.
var ErrChallengeFailed = errors.New("challenge confirmation failed", errors.CategoryAuth).
	WithTextCode(TextCodeChallengeFailed).
	WithCode(errors.CodeUnauthorized)

// ErrBlobNotFound marks a delete against a missing blob. Asset pipelines
// tolerate it; everything else in the chain is fatal.
var ErrBlobNotFound = stderrors.New("blob not found")

// MFARequiredError signals that sign-in needs a second factor. It is a
// control-flow variant, not a terminal failure: callers route it to the
// challenge path instead of the generic error surface.
type MFARequiredError struct {
	Challenge *MFAChallenge
	Err       error
}

func (e *MFARequiredError) Error() string {
	if e == nil {
		return "multi-factor authentication required"
	}

	if e.Challenge != nil && e.Challenge.Provider != "" {
		return fmt.Sprintf("multi-factor authentication required for %s", e.Challenge.Provider)
	}

	return "multi-factor authentication required"
}

func (e *MFARequiredError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *MFARequiredError) Metadata() map[string]any {
	if e == nil || e.Challenge == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Challenge.Provider != "" {
		meta["provider"] = e.Challenge.Provider
	}
	if len(e.Challenge.Hints) > 0 {
		meta["hints"] = e.Challenge.Hints
	}

	return meta
}

// IsMFARequired reports whether err is (or wraps) an MFA-required signal.
func IsMFARequired(err error) bool {
	var mfa *MFARequiredError
	return stderrors.As(err, &mfa)
}

// AsMFARequired extracts the MFA-required variant from err.
func AsMFARequired(err error) (*MFARequiredError, bool) {
	var mfa *MFARequiredError
	if stderrors.As(err, &mfa) {
		return mfa, true
	}
	return nil, false
}

// ErrorCode maps any error to a stable text code suitable for the client
// error surface.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	if IsMFARequired(err) {
		return TextCodeMFARequired
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode != "" {
		return rich.TextCode
	}

	return "accounts_unknown_error"
}

func wrapCollaboratorError(base *errors.Error, operation string, err error) error {
	if base == nil {
		return err
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}

	meta := map[string]any{}
	if operation != "" {
		meta["operation"] = operation
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}
