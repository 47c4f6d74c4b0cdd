package session

import (
	"context"
	"fmt"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/router"
	"github.com/desertthunder/vidstream/internal/shared"
)

// LoginPath is where unauthenticated visitors of protected views are sent.
const LoginPath = "/login"

// Decision is the gate's verdict for a protected view.
type Decision int

const (
	DecisionWait Decision = iota
	DecisionRender
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect"
	default:
		return "wait"
	}
}

// Decide gates a protected view. It never redirects while the session is unresolved.
func Decide(s Snapshot) Decision {
	switch {
	case s.Status != Resolved:
		return DecisionWait
	case s.User != nil:
		return DecisionRender
	default:
		return DecisionRedirect
	}
}

// SnapshotSource is anything that can report the current session.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// RequireUser guards a route: wait while unresolved, render with a user, otherwise replace the navigation with
// [LoginPath].
func RequireUser(src SnapshotSource) router.Middleware {
	return func(next router.Handler) router.Handler {
		return func(req router.Request) router.Outcome {
			switch Decide(src.Snapshot()) {
			case DecisionWait:
				return router.WaitFor(req)
			case DecisionRedirect:
				return router.RedirectTo(req, LoginPath, true)
			default:
				return next(req)
			}
		}
	}
}

// Require initializes the store, waits for it to resolve and applies the gate for non-interactive callers.
func Require(ctx context.Context, s *Store) (*models.User, error) {
	s.Initialize(ctx)
	snap, err := s.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if Decide(snap) != DecisionRender {
		return nil, fmt.Errorf("%w: log in with `vidstream auth login`", shared.ErrNotAuthenticated)
	}
	return snap.User, nil
}
