package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/vidstream/internal/shared"
	tu "github.com/desertthunder/vidstream/internal/testing"
)

func newTestClient(t *testing.T, baseURL string, httpClient *http.Client) *Client {
	t.Helper()
	client, err := NewClient(Options{BaseURL: baseURL, HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		client, err := NewClient(Options{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := client.BaseURL().String(); got != DefaultBaseURL {
			t.Errorf("expected base URL %s, got %s", DefaultBaseURL, got)
		}
		if client.Jar() == nil {
			t.Error("expected a cookie jar to be created")
		}
		if client.userAgent != "vidstream" {
			t.Errorf("expected default user agent, got %s", client.userAgent)
		}
	})

	t.Run("Trailing Slash Is Trimmed", func(t *testing.T) {
		client := newTestClient(t, "http://example.com/api/v1/", nil)
		if got := client.endpoint("/videos", nil); got != "http://example.com/api/v1/videos" {
			t.Errorf("unexpected endpoint %s", got)
		}
	})

	t.Run("Invalid Base URL", func(t *testing.T) {
		for _, raw := range []string{"localhost:8000", "/api/v1", "::"} {
			if _, err := NewClient(Options{BaseURL: raw}); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("%q: expected ErrInvalidConfig, got %v", raw, err)
			}
		}
	})

	t.Run("Custom Client Is Copied", func(t *testing.T) {
		custom := &http.Client{Timeout: time.Second}
		client, err := NewClient(Options{HTTPClient: custom, Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.httpClient == custom {
			t.Error("expected the custom client to be copied")
		}
		if custom.Jar != nil || custom.Timeout != time.Second {
			t.Error("expected the caller's client to be left untouched")
		}
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("expected timeout override, got %v", client.httpClient.Timeout)
		}
	})

	t.Run("Explicit Jar Wins", func(t *testing.T) {
		jar, _ := cookiejar.New(nil)
		client, err := NewClient(Options{Jar: jar})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.Jar() != jar {
			t.Error("expected the given jar to be used")
		}
	})
}

func TestClientSend(t *testing.T) {
	t.Run("Sets Headers And Unwraps Envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(RequestIDHeader) == "" {
				t.Error("expected a request ID header")
			}
			if r.Header.Get("User-Agent") != "vidstream-test" {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			if r.URL.Path != "/api/v1/users/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"statusCode":200,"data":{"_id":"u1","username":"ada"},"message":"ok","success":true}`))
		}))
		defer server.Close()

		client, err := NewClient(Options{BaseURL: server.URL + "/api/v1", UserAgent: "vidstream-test"})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		user, err := client.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "u1" || user.Username != "ada" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("Error Status Carries Server Message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"statusCode":401,"message":"Unauthorized request","success":false}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, nil).CurrentUser(context.Background())

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized || apiErr.RequestID == "" {
			t.Errorf("unexpected api error %+v", apiErr)
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Error("expected 401 to match ErrNotAuthenticated")
		}
		if got := MessageOf(err, "fallback"); got != "Unauthorized request" {
			t.Errorf("expected server message, got %q", got)
		}
	})

	t.Run("Error Status Without Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, nil).CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if got := MessageOf(err, "Failed to load videos"); got != "Failed to load videos" {
			t.Errorf("expected fallback, got %q", got)
		}
	})

	t.Run("Malformed Body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, nil).CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Missing Data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"statusCode":200,"data":null,"success":true}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, nil).CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("Failed HTTP Request", func(t *testing.T) {
		client := newTestClient(t, "http://example.com", &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
		})

		_, err := client.CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Failed Response Body Read", func(t *testing.T) {
		client := newTestClient(t, "http://example.com", &http.Client{
			Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
				Header:     make(http.Header),
			}, nil),
		})

		_, err := client.CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("With Canceled Context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient(t, server.URL, nil).CurrentUser(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Rate Limiter Honors Context", func(t *testing.T) {
		client, err := NewClient(Options{BaseURL: "http://example.com", RequestsPerSecond: 0.001, Burst: 1})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		client.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := client.CurrentUser(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest from limiter, got %v", err)
		}
	})

	t.Run("Pipe Body Is Closed When Never Sent", func(t *testing.T) {
		client := newTestClient(t, "http://example.com", nil)
		body, _ := io.Pipe()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := client.send(ctx, http.MethodPost, "/videos", nil, body, ""); err == nil {
			t.Fatal("expected an error")
		}
		if _, err := body.Read(make([]byte, 1)); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("expected closed pipe, got %v", err)
		}
	})
}

func TestClientGet(t *testing.T) {
	t.Run("Successful Request With JSON Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET method, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		}))
		defer server.Close()

		resp, err := newTestClient(t, server.URL, nil).Get(context.Background(), "/test")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		if !resp.IsJSON || resp.JSONData == nil {
			t.Error("expected JSON data to be populated")
		}
	})

	t.Run("Non-2xx Is Returned", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Custom", "value")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("plain text"))
		}))
		defer server.Close()

		resp, err := newTestClient(t, server.URL, nil).Get(context.Background(), "/missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusNotFound || resp.IsJSON {
			t.Errorf("unexpected response %+v", resp)
		}
		if resp.Headers.Get("X-Custom") != "value" {
			t.Error("expected headers to be preserved")
		}
		if !strings.Contains(string(resp.Body), "plain text") {
			t.Errorf("unexpected body %q", resp.Body)
		}
	})

	t.Run("Failed Response Body Read", func(t *testing.T) {
		client := newTestClient(t, "http://example.com", &http.Client{
			Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusOK,
				Body:       &tu.FCloser{},
				Header:     make(http.Header),
			}, nil),
		})

		if _, err := client.Get(context.Background(), "/test"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status int
		target error
		want   bool
	}{
		{http.StatusUnauthorized, shared.ErrNotAuthenticated, true},
		{http.StatusForbidden, shared.ErrNotAuthenticated, true},
		{http.StatusBadRequest, shared.ErrInvalidInput, true},
		{http.StatusConflict, shared.ErrInvalidInput, true},
		{http.StatusUnprocessableEntity, shared.ErrInvalidInput, true},
		{http.StatusNotFound, shared.ErrVideoNotFound, true},
		{http.StatusInternalServerError, shared.ErrServiceUnavailable, true},
		{http.StatusServiceUnavailable, shared.ErrServiceUnavailable, true},
		{http.StatusNotFound, shared.ErrNotAuthenticated, false},
		{http.StatusBadRequest, shared.ErrServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := error(newAPIError(tt.status, nil, "req"))
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%d, %v) = %v, want %v", tt.status, tt.target, got, tt.want)
			}
		})
	}

	t.Run("Error String", func(t *testing.T) {
		err := newAPIError(http.StatusConflict, []byte(`{"message":"taken"}`), "")
		if got := err.Error(); got != "api error (status 409): taken" {
			t.Errorf("unexpected message %q", got)
		}
		err = newAPIError(http.StatusNotFound, nil, "")
		if got := err.Error(); got != "api error: status 404 Not Found" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("MessageOf Non-API Error", func(t *testing.T) {
		if got := MessageOf(errors.New("boom"), "Login failed"); got != "Login failed" {
			t.Errorf("expected fallback, got %q", got)
		}
		if got := MessageOf(nil, "Login failed"); got != "Login failed" {
			t.Errorf("expected fallback, got %q", got)
		}
	})
}
