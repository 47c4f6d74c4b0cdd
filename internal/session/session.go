// Package session owns the process-wide authentication state.
//
// A [Store] starts Unresolved, probes the remote session once with [Store.Initialize] and then stays Resolved for
// the rest of its life. Only the current user toggles afterwards, through [Store.Login] and [Store.Logout].
// [Decide] turns a [Snapshot] into a gating decision for protected views.
package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
)

// Status is the resolution state of a [Store].
type Status int

const (
	Unresolved Status = iota
	Resolved
)

func (s Status) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// Fallback messages used when the server supplies none.
const (
	LoginFailed        = "Login failed"
	RegistrationFailed = "Registration failed"
	LogoutFailed       = "Logout failed"
)

// Authenticator is the remote half of the session. [*services.Client] implements it.
type Authenticator interface {
	CurrentUser(ctx context.Context) (*models.User, error)
	Login(ctx context.Context, creds services.Credentials) (*services.LoginResponse, error)
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Logout(ctx context.Context) error
}

// Snapshot is a consistent read of the store.
type Snapshot struct {
	Status Status
	User   *models.User
}

// Authenticated reports whether the snapshot is resolved with a user.
func (s Snapshot) Authenticated() bool {
	return s.Status == Resolved && s.User != nil
}

// Error is a failed store operation. Message is what the user should see.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, err error, fallback string) *Error {
	return &Error{Op: op, Message: services.MessageOf(err, fallback), Err: err}
}

// Store holds the current user and resolution status. It is safe for concurrent use.
type Store struct {
	api    Authenticator
	logger *log.Logger

	init     sync.Once
	resolved chan struct{}

	mu      sync.RWMutex
	status  Status
	user    *models.User
	version uint64
}

// NewStore creates an Unresolved store. A nil logger discards output.
func NewStore(api Authenticator, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{api: api, logger: logger, resolved: make(chan struct{})}
}

// Initialize probes the remote session once per store. Later calls return immediately.
//
// It never returns an error: any probe failure leaves the store Resolved with no user.
func (s *Store) Initialize(ctx context.Context) {
	s.init.Do(func() {
		s.mu.RLock()
		started := s.version
		s.mu.RUnlock()

		user, err := s.api.CurrentUser(ctx)
		switch {
		case err == nil && user == nil:
			s.logger.Debug("session probe returned no user")
		case err == nil:
			s.logger.Debug("session restored", "user", user.Username)
		case errors.Is(err, shared.ErrNotAuthenticated):
			s.logger.Debug("no active session")
			user = nil
		default:
			s.logger.Warn("session probe failed", "error", err)
			user = nil
		}

		s.mu.Lock()
		if s.version == started {
			s.user = user
		} else {
			s.logger.Debug("session changed during probe, keeping newer state")
		}
		s.status = Resolved
		s.mu.Unlock()

		close(s.resolved)
	})
}

// Resolved is closed once the initial probe has finished.
func (s *Store) Resolved() <-chan struct{} {
	return s.resolved
}

// Wait blocks until the store is resolved or ctx is done.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.resolved:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the current status and user.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, User: s.user}
}

// User returns the current user or nil.
func (s *Store) User() *models.User {
	return s.Snapshot().User
}

func (s *Store) setUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	s.version++
	s.mu.Unlock()
}

// Login authenticates and, on success, makes the returned user current.
//
// The full response is returned so callers can use fields beyond the user. On failure the state is unchanged.
func (s *Store) Login(ctx context.Context, creds services.Credentials) (*services.LoginResponse, error) {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		s.logger.Debug("login failed", "error", err)
		return nil, newError("login", err, LoginFailed)
	}
	if resp == nil || resp.User == nil {
		s.logger.Warn("login response carried no user")
		return nil, newError("login", shared.ErrMalformedResponse, LoginFailed)
	}

	s.setUser(resp.User)
	s.logger.Info("logged in", "user", resp.User.Username)
	return resp, nil
}

// Register creates an account without touching session state.
func (s *Store) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	user, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Debug("registration failed", "error", err)
		return nil, newError("register", err, RegistrationFailed)
	}

	s.logger.Info("registered", "user", user.DisplayName())
	return user, nil
}

// Logout ends the session. The user is cleared only after the server confirms.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
		return newError("logout", err, LogoutFailed)
	}

	s.setUser(nil)
	s.logger.Info("logged out")
	return nil
}
