package accounts

import "context"

// MFAResolver completes a multi-factor sign-in that was interrupted with an
// MFARequiredError.
type MFAResolver struct {
	client IdentityClient
	logger Logger
}

// MFAOption configures an MFAResolver.
type MFAOption func(*MFAResolver)

// WithMFALogger sets the logger.
func WithMFALogger(logger Logger) MFAOption {
	return func(r *MFAResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewMFAResolver wires the identity client.
func NewMFAResolver(client IdentityClient, opts ...MFAOption) *MFAResolver {
	r := &MFAResolver{
		client: client,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve completes the pending challenge with the second-factor code. On
// success it returns the credential the original sign-in would have
// produced.
func (r *MFAResolver) Resolve(ctx context.Context, challenge *MFAChallenge, code string) (*Credential, error) {
	if challenge == nil {
		return nil, ErrChallengeFailed
	}

	credential, err := r.client.ResolveMFA(ctx, challenge, code)
	if err != nil {
		r.logger.Error("mfa resolution failed: %v", err)
		return nil, wrapCollaboratorError(ErrChallengeFailed, "resolve_mfa", err)
	}

	r.logger.Debug("mfa challenge resolved provider=%s", challenge.Provider)

	return credential, nil
}
