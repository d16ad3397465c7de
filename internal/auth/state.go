package auth

import "github.com/moovi-app/moovi_auth/internal/credential"

// State is where a phone identity stands in onboarding.
//
//	NO_ACCOUNT --verify-code--> VERIFIED_NO_PASSWORD --set-user-password--> VERIFIED_WITH_PASSWORD
//
// Re-verification never leaves VERIFIED_WITH_PASSWORD; only set-user-password
// changes the password. Password login is valid only in VERIFIED_WITH_PASSWORD.
type State string

const (
	StateNoAccount            State = "NO_ACCOUNT"
	StateVerifiedNoPassword   State = "VERIFIED_NO_PASSWORD"
	StateVerifiedWithPassword State = "VERIFIED_WITH_PASSWORD"
)

// StateOf derives the onboarding state from the public profile flags.
func StateOf(st credential.Status) State {
	switch {
	case !st.Exists:
		return StateNoAccount
	case st.HasPassword:
		return StateVerifiedWithPassword
	default:
		return StateVerifiedNoPassword
	}
}

// CanLoginWithPassword reports whether password login is a valid transition.
func (s State) CanLoginWithPassword() bool { return s == StateVerifiedWithPassword }
