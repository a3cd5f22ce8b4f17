package services

import (
	"fmt"
	"strings"
)

// AuthState is a step in the authentication flow
type AuthState string

const (
	// AuthStateIdle means no flow is in progress
	AuthStateIdle AuthState = "idle"

	// AuthStateAwaitingOTP means an OTP was issued and not yet submitted
	AuthStateAwaitingOTP AuthState = "awaiting_otp"

	// AuthStateVerifying means an OTP was submitted and is being checked
	AuthStateVerifying AuthState = "verifying"

	// AuthStateSignedIn means the user holds a valid token pair
	AuthStateSignedIn AuthState = "signed_in"

	// AuthStateRecovering means a password recovery token was issued
	AuthStateRecovering AuthState = "recovering"
)

// AuthEvent is an action that moves the flow between states
type AuthEvent string

const (
	AuthEventRequestOTP      AuthEvent = "request_otp"
	AuthEventSubmitOTP       AuthEvent = "submit_otp"
	AuthEventOTPAccepted     AuthEvent = "otp_accepted"
	AuthEventOTPRejected     AuthEvent = "otp_rejected"
	AuthEventPasswordSignIn  AuthEvent = "password_sign_in"
	AuthEventRequestRecovery AuthEvent = "request_recovery"
	AuthEventResetPassword   AuthEvent = "reset_password"
	AuthEventSignOut         AuthEvent = "sign_out"
)

// AuthTransition defines a valid state change and the event that triggers it
type AuthTransition struct {
	From  AuthState
	Event AuthEvent
	To    AuthState
}

// authTransitions is the authoritative flow definition
var authTransitions = []AuthTransition{
	// Sign-up and unverified sign-in issue an OTP
	{From: AuthStateIdle, Event: AuthEventRequestOTP, To: AuthStateAwaitingOTP},
	{From: AuthStateAwaitingOTP, Event: AuthEventRequestOTP, To: AuthStateAwaitingOTP}, // resend
	{From: AuthStateAwaitingOTP, Event: AuthEventSubmitOTP, To: AuthStateVerifying},
	{From: AuthStateVerifying, Event: AuthEventOTPAccepted, To: AuthStateSignedIn},
	{From: AuthStateVerifying, Event: AuthEventOTPRejected, To: AuthStateAwaitingOTP},

	// Verified users sign in directly with a password. A second device
	// signing in is a fresh session, not an error.
	{From: AuthStateIdle, Event: AuthEventPasswordSignIn, To: AuthStateSignedIn},
	{From: AuthStateSignedIn, Event: AuthEventPasswordSignIn, To: AuthStateSignedIn},

	// Password recovery, reachable while signed in elsewhere
	{From: AuthStateIdle, Event: AuthEventRequestRecovery, To: AuthStateRecovering},
	{From: AuthStateSignedIn, Event: AuthEventRequestRecovery, To: AuthStateRecovering},
	{From: AuthStateRecovering, Event: AuthEventRequestRecovery, To: AuthStateRecovering}, // resend
	{From: AuthStateRecovering, Event: AuthEventResetPassword, To: AuthStateIdle},
	// A pending recovery never blocks signing in with the remembered password
	{From: AuthStateRecovering, Event: AuthEventPasswordSignIn, To: AuthStateSignedIn},

	// Sign-out always returns to idle
	{From: AuthStateSignedIn, Event: AuthEventSignOut, To: AuthStateIdle},
}

// authTransitionKey is used to look up valid transitions quickly
type authTransitionKey struct {
	From  AuthState
	Event AuthEvent
}

var authTransitionMap = func() map[authTransitionKey]AuthState {
	m := make(map[authTransitionKey]AuthState)
	for _, t := range authTransitions {
		m[authTransitionKey{t.From, t.Event}] = t.To
	}
	return m
}()

// NextAuthState applies an event to a state and returns the resulting state.
// Returns an error if the event is not legal in the given state.
func NextAuthState(from AuthState, event AuthEvent) (AuthState, error) {
	to, ok := authTransitionMap[authTransitionKey{From: from, Event: event}]
	if !ok {
		return from, fmt.Errorf(
			"invalid auth transition: event %q is not allowed in state %q (valid events: %s)",
			event, from, describeAuthEvents(from),
		)
	}
	return to, nil
}

// AuthEventsFrom returns all events accepted in the given state
func AuthEventsFrom(state AuthState) []AuthEvent {
	var events []AuthEvent
	seen := map[AuthEvent]bool{}
	for _, t := range authTransitions {
		if t.From == state && !seen[t.Event] {
			events = append(events, t.Event)
			seen[t.Event] = true
		}
	}
	return events
}

func describeAuthEvents(state AuthState) string {
	events := AuthEventsFrom(state)
	if len(events) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, string(e))
	}
	return strings.Join(parts, ", ")
}
