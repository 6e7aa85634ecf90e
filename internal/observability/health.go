package observability

import (
	"context"
	"errors"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// LivenessHandler returns 200 OK unconditionally.
func LivenessHandler() http.HandlerFunc {
	return sharedobs.LivenessHandler()
}

// ReadinessHandler checks downstream dependencies and returns 200 or 503.
func ReadinessHandler(checkers ...ReadinessChecker) http.HandlerFunc {
	return sharedobs.ReadinessHandler(Checkers(checkers))
}

// Checkers is ready when every member is ready.
type Checkers []ReadinessChecker

// CheckReadiness implements ReadinessChecker, joining every member's error.
func (cs Checkers) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range cs {
		if c == nil {
			continue
		}
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckerFunc adapts a function to ReadinessChecker.
type CheckerFunc func(ctx context.Context) error

// CheckReadiness implements ReadinessChecker.
func (f CheckerFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }
