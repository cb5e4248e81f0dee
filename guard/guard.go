// Package guard decides, per navigation, whether a view may render. It is
// a pure composition of the session and onboarding signals: no network, no
// cached decisions, recomputed from the current states on every call.
package guard

import (
	"github.com/taxbook/taxbook-go/onboarding"
	"github.com/taxbook/taxbook-go/session"
)

// Well-known paths of the application shell.
const (
	LoginPath      = "/login"
	OnboardingPath = "/onboarding"
)

// Decision is the navigation outcome for a requested path.
type Decision int

const (
	// DecisionLoading means an upstream signal is still resolving; show a
	// loading indicator, decide again on the next state change.
	DecisionLoading Decision = iota
	DecisionRender
	DecisionRedirectToLogin
	DecisionRedirectToOnboarding
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRender:
		return "render"
	case DecisionRedirectToLogin:
		return "redirect-to-login"
	case DecisionRedirectToOnboarding:
		return "redirect-to-onboarding"
	}
	return "invalid"
}

// Result pairs the decision with its redirect target. From carries the
// originally requested path on a login redirect so a successful login can
// return the user there.
type Result struct {
	Decision   Decision
	RedirectTo string
	From       string
}

// Decide maps the current session and gate states to a navigation outcome
// for path:
//
//	session bootstrapping                      -> loading
//	session unauthenticated                    -> redirect to login (carrying path)
//	gate unknown or loading                    -> loading
//	gate incomplete, path outside onboarding   -> redirect to onboarding
//	otherwise                                  -> render
func Decide(sessionState session.State, gateState onboarding.GateState, path string) Result {
	if sessionState == session.StateBootstrapping {
		return Result{Decision: DecisionLoading}
	}
	if sessionState == session.StateUnauthenticated {
		return Result{Decision: DecisionRedirectToLogin, RedirectTo: LoginPath, From: path}
	}
	if gateState == onboarding.StateUnknown || gateState == onboarding.StateLoading {
		return Result{Decision: DecisionLoading}
	}
	if gateState == onboarding.StateIncomplete && path != OnboardingPath {
		return Result{Decision: DecisionRedirectToOnboarding, RedirectTo: OnboardingPath, From: path}
	}
	return Result{Decision: DecisionRender}
}
