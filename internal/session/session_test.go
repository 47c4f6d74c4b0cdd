package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/router"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
	tu "github.com/desertthunder/vidstream/internal/testing"
)

// mockAuthenticator is a test double for [Authenticator].
type mockAuthenticator struct {
	probeGate  chan struct{}
	probeUser  *models.User
	probeErr   error
	probeCalls atomic.Int32

	loginResp *services.LoginResponse
	loginErr  error

	registerUser *models.User
	registerErr  error

	logoutErr   error
	logoutCalls atomic.Int32
}

func (m *mockAuthenticator) CurrentUser(ctx context.Context) (*models.User, error) {
	m.probeCalls.Add(1)
	if m.probeGate != nil {
		<-m.probeGate
	}
	return m.probeUser, m.probeErr
}

func (m *mockAuthenticator) Login(ctx context.Context, creds services.Credentials) (*services.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *mockAuthenticator) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	return m.registerUser, m.registerErr
}

func (m *mockAuthenticator) Logout(ctx context.Context) error {
	m.logoutCalls.Add(1)
	return m.logoutErr
}

var ada = &models.User{ID: "u1", Username: "ada"}

func resolvedStore(t *testing.T, m *mockAuthenticator) *Store {
	t.Helper()
	s := NewStore(m, nil)
	s.Initialize(context.Background())
	return s
}

func TestStoreInitialize(t *testing.T) {
	t.Run("Starts Unresolved", func(t *testing.T) {
		s := NewStore(&mockAuthenticator{}, nil)
		if snap := s.Snapshot(); snap.Status != Unresolved || snap.User != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		select {
		case <-s.Resolved():
			t.Error("expected Resolved to be open before Initialize")
		default:
		}
	})

	t.Run("Restores Session", func(t *testing.T) {
		m := &mockAuthenticator{probeUser: ada}
		s := resolvedStore(t, m)

		snap := s.Snapshot()
		if snap.Status != Resolved || snap.User != ada || !snap.Authenticated() {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		select {
		case <-s.Resolved():
		default:
			t.Error("expected Resolved to be closed")
		}
	})

	t.Run("Probe Failures Resolve Without User", func(t *testing.T) {
		failures := []error{
			&services.APIError{StatusCode: http.StatusUnauthorized},
			shared.ErrAPIRequest,
			shared.ErrMalformedResponse,
		}
		for _, err := range failures {
			s := resolvedStore(t, &mockAuthenticator{probeUser: ada, probeErr: err})
			if snap := s.Snapshot(); snap.Status != Resolved || snap.User != nil {
				t.Errorf("%v: unexpected snapshot %+v", err, snap)
			}
		}
	})

	t.Run("Empty Identity Resolves Without User", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{})

		if snap := s.Snapshot(); snap.Status != Resolved || snap.User != nil {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		if d := Decide(s.Snapshot()); d != DecisionRedirect {
			t.Errorf("expected a redirect, got %v", d)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := s.Wait(ctx); err != nil {
			t.Errorf("expected Wait to return, got %v", err)
		}
	})

	t.Run("Runs Once", func(t *testing.T) {
		m := &mockAuthenticator{probeUser: ada}
		s := NewStore(m, nil)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Initialize(context.Background())
			}()
		}
		wg.Wait()

		if got := m.probeCalls.Load(); got != 1 {
			t.Errorf("expected one probe, got %d", got)
		}
	})

	t.Run("Login During Probe Wins", func(t *testing.T) {
		m := &mockAuthenticator{
			probeGate: make(chan struct{}),
			probeErr:  &services.APIError{StatusCode: http.StatusUnauthorized},
			loginResp: &services.LoginResponse{User: ada},
		}
		s := NewStore(m, nil)

		done := make(chan struct{})
		go func() {
			s.Initialize(context.Background())
			close(done)
		}()

		for m.probeCalls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		if _, err := s.Login(context.Background(), services.Credentials{Identifier: "ada", Secret: "pw"}); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		close(m.probeGate)
		<-done

		if snap := s.Snapshot(); snap.Status != Resolved || snap.User != ada {
			t.Errorf("expected login to survive the stale probe, got %+v", snap)
		}
	})

	t.Run("Wait", func(t *testing.T) {
		m := &mockAuthenticator{probeGate: make(chan struct{}), probeUser: ada}
		s := NewStore(m, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if snap, err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) || snap.Status != Unresolved {
			t.Errorf("expected deadline while unresolved, got %+v %v", snap, err)
		}

		go s.Initialize(context.Background())
		close(m.probeGate)

		snap, err := s.Wait(context.Background())
		if err != nil || snap.User != ada {
			t.Errorf("expected resolved snapshot, got %+v %v", snap, err)
		}
	})
}

func TestStoreMutations(t *testing.T) {
	ctx := context.Background()
	creds := services.Credentials{Identifier: "ada", Secret: "pw"}

	t.Run("Login Success", func(t *testing.T) {
		resp := &services.LoginResponse{StatusCode: 200, Message: "User logged in successfully", User: ada}
		s := resolvedStore(t, &mockAuthenticator{probeErr: shared.ErrNotAuthenticated, loginResp: resp})

		got, err := s.Login(ctx, creds)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != resp {
			t.Error("expected the full login response to be returned")
		}
		if s.User() != ada {
			t.Errorf("expected user to be set, got %+v", s.User())
		}
	})

	t.Run("Login Failure Uses Server Message", func(t *testing.T) {
		apiErr := &services.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
		s := resolvedStore(t, &mockAuthenticator{probeErr: shared.ErrNotAuthenticated, loginErr: apiErr})

		_, err := s.Login(ctx, creds)
		var sessErr *Error
		if !errors.As(err, &sessErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if sessErr.Message != "Invalid credentials" || sessErr.Op != "login" {
			t.Errorf("unexpected error %+v", sessErr)
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Error("expected the API error to be unwrappable")
		}
		if s.User() != nil {
			t.Error("expected state to be unchanged")
		}
	})

	t.Run("Login Failure Fallback", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{probeUser: ada, loginErr: shared.ErrAPIRequest})

		_, err := s.Login(ctx, creds)
		var sessErr *Error
		if !errors.As(err, &sessErr) || sessErr.Message != LoginFailed {
			t.Errorf("expected fallback message, got %v", err)
		}
		if s.User() != ada {
			t.Error("expected previous user to be kept")
		}
	})

	t.Run("Register Leaves Session Alone", func(t *testing.T) {
		grace := &models.User{ID: "g1", Username: "grace"}
		s := resolvedStore(t, &mockAuthenticator{probeErr: shared.ErrNotAuthenticated, registerUser: grace})

		got, err := s.Register(ctx, services.RegisterRequest{Username: "grace"})
		if err != nil || got != grace {
			t.Fatalf("unexpected result %+v %v", got, err)
		}
		if s.User() != nil {
			t.Error("expected register not to log in")
		}
	})

	t.Run("Register Failure", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{registerErr: &services.APIError{StatusCode: http.StatusConflict}})

		_, err := s.Register(ctx, services.RegisterRequest{})
		var sessErr *Error
		if !errors.As(err, &sessErr) || sessErr.Message != RegistrationFailed {
			t.Errorf("expected fallback message, got %v", err)
		}
	})

	t.Run("Logout Success", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{probeUser: ada})

		if err := s.Logout(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap := s.Snapshot(); snap.User != nil || snap.Status != Resolved {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("Logout Failure Keeps User", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{probeUser: ada, logoutErr: shared.ErrAPIRequest})

		err := s.Logout(ctx)
		var sessErr *Error
		if !errors.As(err, &sessErr) || sessErr.Message != LogoutFailed {
			t.Errorf("expected fallback message, got %v", err)
		}
		if s.User() != ada {
			t.Error("expected user to be kept after failed logout")
		}
	})

	t.Run("Login Without User", func(t *testing.T) {
		for _, resp := range []*services.LoginResponse{nil, {StatusCode: 200}} {
			s := resolvedStore(t, &mockAuthenticator{probeUser: ada, loginResp: resp})

			_, err := s.Login(ctx, creds)
			var sessErr *Error
			if !errors.As(err, &sessErr) || sessErr.Message != LoginFailed {
				t.Errorf("expected fallback message, got %v", err)
			}
			if !errors.Is(err, shared.ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
			if s.User() != ada {
				t.Error("expected previous user to be kept")
			}
		}
	})

	t.Run("Register Without User", func(t *testing.T) {
		s := resolvedStore(t, &mockAuthenticator{probeErr: shared.ErrNotAuthenticated})

		got, err := s.Register(ctx, services.RegisterRequest{Username: "grace"})
		if err != nil || got != nil {
			t.Errorf("unexpected result %+v %v", got, err)
		}
	})
}

func TestStoreAgainstFakeAPI(t *testing.T) {
	ctx := context.Background()
	api := tu.NewFakeAPI(t)
	api.AddUser(models.User{Username: "ada"}, "secret")

	client, err := services.NewClient(services.Options{BaseURL: api.URL()})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	s := NewStore(client, nil)
	s.Initialize(ctx)

	if Decide(s.Snapshot()) != DecisionRedirect {
		t.Fatalf("expected redirect before login, got %v", Decide(s.Snapshot()))
	}

	_, err = s.Login(ctx, services.Credentials{Identifier: "ada", Secret: "wrong"})
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Message != "Invalid credentials" {
		t.Fatalf("expected Invalid credentials, got %v", err)
	}

	if _, err := s.Login(ctx, services.Credentials{Identifier: "ada", Secret: "secret"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if Decide(s.Snapshot()) != DecisionRender {
		t.Errorf("expected render after login, got %v", Decide(s.Snapshot()))
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if Decide(s.Snapshot()) != DecisionRedirect {
		t.Errorf("expected redirect after logout, got %v", Decide(s.Snapshot()))
	}
}

func TestGate(t *testing.T) {
	t.Run("Decide", func(t *testing.T) {
		tests := []struct {
			name string
			snap Snapshot
			want Decision
		}{
			{"Unresolved", Snapshot{Status: Unresolved}, DecisionWait},
			{"Unresolved With User", Snapshot{Status: Unresolved, User: ada}, DecisionWait},
			{"Resolved With User", Snapshot{Status: Resolved, User: ada}, DecisionRender},
			{"Resolved Without User", Snapshot{Status: Resolved}, DecisionRedirect},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := Decide(tt.snap); got != tt.want {
					t.Errorf("Decide() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("RequireUser", func(t *testing.T) {
		newRouter := func(s *Store) *router.Router {
			r := router.New()
			r.Handle("/", router.RenderView)
			r.Handle(LoginPath, router.RenderView)
			r.Handle("/upload", router.RenderView, RequireUser(s))
			return r
		}

		t.Run("Waits While Unresolved", func(t *testing.T) {
			s := NewStore(&mockAuthenticator{}, nil)
			h := router.NewHistory("/")

			outcome, err := newRouter(s).Navigate(h, "/upload", false)
			if err != nil || outcome.Action != router.Wait {
				t.Errorf("expected wait, got %+v %v", outcome, err)
			}
			if h.Len() != 1 {
				t.Errorf("expected no history change, got %v", h.Entries())
			}
		})

		t.Run("Redirects Without User", func(t *testing.T) {
			s := resolvedStore(t, &mockAuthenticator{probeErr: shared.ErrNotAuthenticated})
			h := router.NewHistory("/")

			outcome, err := newRouter(s).Navigate(h, "/upload", false)
			if err != nil || outcome.Request.Path != LoginPath {
				t.Fatalf("expected login, got %+v %v", outcome, err)
			}
			for _, entry := range h.Entries() {
				if entry == "/upload" {
					t.Errorf("guarded path leaked into history %v", h.Entries())
				}
			}
		})

		t.Run("Renders With User", func(t *testing.T) {
			s := resolvedStore(t, &mockAuthenticator{probeUser: ada})
			h := router.NewHistory("/")

			outcome, err := newRouter(s).Navigate(h, "/upload", false)
			if err != nil || outcome.Action != router.Render || h.Current() != "/upload" {
				t.Errorf("expected upload to render, got %+v %v", outcome, err)
			}
		})
	})

	t.Run("Require", func(t *testing.T) {
		s := NewStore(&mockAuthenticator{probeErr: shared.ErrNotAuthenticated}, nil)
		if _, err := Require(context.Background(), s); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		s = NewStore(&mockAuthenticator{probeUser: ada}, nil)
		user, err := Require(context.Background(), s)
		if err != nil || user != ada {
			t.Errorf("expected user, got %+v %v", user, err)
		}
	})
}
