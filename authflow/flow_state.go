package authflow

// FlowState is the ephemeral state of one login attempt: the CSRF state, the
// PKCE verifier, and the nonce expected back from the consent leg. It is
// created when a login starts, consumed at completion (successful or not),
// and never persisted or reused across attempts.
type FlowState struct {
	State         string
	Verifier      string
	ExpectedNonce string
}

// NewFlowState seeds flow state from a login attempt. The nonce is filled in
// later, when the consent leg is issued.
func NewFlowState(attempt *LoginAttempt) *FlowState {
	return &FlowState{
		State:    attempt.State,
		Verifier: attempt.Verifier,
	}
}
