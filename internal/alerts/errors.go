package alerts

import (
	"fmt"
	"galerts/pkg/textutil"

	"github.com/antzucaro/matchr"
)

var (
	ErrInvalidCredentials = fmt.Errorf("email or password was incorrect")
	ErrAccountCaptcha     = fmt.Errorf("%w: login is gated behind a captcha, sign in with a browser and run `galerts session import`", ErrInvalidCredentials)
	ErrInvalidState       = fmt.Errorf("state was not properly obtained from the app")
	ErrStateParseFailure  = fmt.Errorf("observed state differs from parser, the protocol changed and the parser needs an update")
	ErrInvalidConfig      = fmt.Errorf("invalid monitor options")
	ErrMonitorNotFound    = fmt.Errorf("no monitor was found")
	ErrAction             = fmt.Errorf("action failed")
)

// ActionError is returned when a mutating call is answered with anything
// other than a 200.
type ActionError struct {
	Action     Action
	StatusCode int
	Body       string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to %s monitor: status %d: %s", e.Action, e.StatusCode, e.Body)
}

func (e *ActionError) Is(target error) bool {
	return target == ErrAction
}

type MonitorNotFoundError struct {
	ID   string
	Term string
	// Suggestion is the closest existing term when the lookup was by term.
	Suggestion string
}

func (e *MonitorNotFoundError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("%s with id %q", ErrMonitorNotFound, e.ID)
	}
	msg := fmt.Sprintf("%s with term %q", ErrMonitorNotFound, e.Term)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", e.Suggestion)
	}
	return msg
}

func (e *MonitorNotFoundError) Is(target error) bool {
	return target == ErrMonitorNotFound
}

const suggestionThreshold = 0.8

func closestTerm(term string, monitors []Monitor) string {
	target := textutil.NormalizeTerm(term)
	best := ""
	bestScore := 0.0
	for _, m := range monitors {
		score := matchr.JaroWinkler(target, textutil.NormalizeTerm(m.Term), false)
		if score > bestScore {
			best = m.Term
			bestScore = score
		}
	}
	if bestScore < suggestionThreshold {
		return ""
	}
	return best
}
