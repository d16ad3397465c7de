package auth

import (
	"testing"

	"github.com/moovi-app/moovi_auth/internal/credential"
)

func TestStateOf(t *testing.T) {
	cases := []struct {
		status   credential.Status
		want     State
		canLogin bool
	}{
		{credential.Status{}, StateNoAccount, false},
		{credential.Status{Exists: true}, StateVerifiedNoPassword, false},
		{credential.Status{Exists: true, HasPassword: true}, StateVerifiedWithPassword, true},
	}
	for _, tc := range cases {
		got := StateOf(tc.status)
		if got != tc.want {
			t.Fatalf("StateOf(%+v) = %s, want %s", tc.status, got, tc.want)
		}
		if got.CanLoginWithPassword() != tc.canLogin {
			t.Fatalf("%s: CanLoginWithPassword = %v", got, !tc.canLogin)
		}
	}
}
