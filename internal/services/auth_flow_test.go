package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAuthState(t *testing.T) {
	tests := []struct {
		name    string
		from    AuthState
		event   AuthEvent
		want    AuthState
		wantErr bool
	}{
		{"request otp from idle", AuthStateIdle, AuthEventRequestOTP, AuthStateAwaitingOTP, false},
		{"resend otp", AuthStateAwaitingOTP, AuthEventRequestOTP, AuthStateAwaitingOTP, false},
		{"submit otp", AuthStateAwaitingOTP, AuthEventSubmitOTP, AuthStateVerifying, false},
		{"otp accepted", AuthStateVerifying, AuthEventOTPAccepted, AuthStateSignedIn, false},
		{"otp rejected returns to awaiting", AuthStateVerifying, AuthEventOTPRejected, AuthStateAwaitingOTP, false},
		{"password sign in", AuthStateIdle, AuthEventPasswordSignIn, AuthStateSignedIn, false},
		{"second device sign in", AuthStateSignedIn, AuthEventPasswordSignIn, AuthStateSignedIn, false},
		{"recovery while signed in", AuthStateSignedIn, AuthEventRequestRecovery, AuthStateRecovering, false},
		{"request recovery", AuthStateIdle, AuthEventRequestRecovery, AuthStateRecovering, false},
		{"resend recovery", AuthStateRecovering, AuthEventRequestRecovery, AuthStateRecovering, false},
		{"sign in with remembered password during recovery", AuthStateRecovering, AuthEventPasswordSignIn, AuthStateSignedIn, false},
		{"reset password", AuthStateRecovering, AuthEventResetPassword, AuthStateIdle, false},
		{"sign out", AuthStateSignedIn, AuthEventSignOut, AuthStateIdle, false},

		{"submit otp without request", AuthStateIdle, AuthEventSubmitOTP, AuthStateIdle, true},
		{"password sign in mid verification", AuthStateVerifying, AuthEventPasswordSignIn, AuthStateVerifying, true},
		{"reset password without recovery", AuthStateIdle, AuthEventResetPassword, AuthStateIdle, true},
		{"sign out while idle", AuthStateIdle, AuthEventSignOut, AuthStateIdle, true},
		{"otp accepted without submission", AuthStateAwaitingOTP, AuthEventOTPAccepted, AuthStateAwaitingOTP, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAuthState(tt.from, tt.event)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.from, got, "state must not change on an illegal event")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFullSignUpFlow(t *testing.T) {
	state := AuthStateIdle

	var err error
	state, err = NextAuthState(state, AuthEventRequestOTP)
	require.NoError(t, err)

	state, err = NextAuthState(state, AuthEventSubmitOTP)
	require.NoError(t, err)

	// Wrong code: back to awaiting, then try again
	state, err = NextAuthState(state, AuthEventOTPRejected)
	require.NoError(t, err)
	assert.Equal(t, AuthStateAwaitingOTP, state)

	state, err = NextAuthState(state, AuthEventSubmitOTP)
	require.NoError(t, err)

	state, err = NextAuthState(state, AuthEventOTPAccepted)
	require.NoError(t, err)
	assert.Equal(t, AuthStateSignedIn, state)

	state, err = NextAuthState(state, AuthEventSignOut)
	require.NoError(t, err)
	assert.Equal(t, AuthStateIdle, state)
}

func TestAuthEventsFrom(t *testing.T) {
	events := AuthEventsFrom(AuthStateIdle)
	assert.Contains(t, events, AuthEventRequestOTP)
	assert.Contains(t, events, AuthEventPasswordSignIn)
	assert.Contains(t, events, AuthEventRequestRecovery)
	assert.NotContains(t, events, AuthEventSignOut)
}
