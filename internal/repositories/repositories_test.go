package repositories

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
	tu "github.com/desertthunder/vidstream/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", raw, err)
	}
	return u
}

func TestCookieRepository(t *testing.T) {
	t.Run("Upsert And List", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		expires := time.Now().Add(time.Hour)

		c := &StoredCookie{Host: "api.example.com", Name: "accessToken", Value: "one", ExpiresAt: &expires, HTTPOnly: true, SameSite: http.SameSiteLaxMode}
		if err := repo.Upsert(c); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}
		if c.ID == "" || c.Path != "/" {
			t.Errorf("expected ID and default path to be set, got %+v", c)
		}

		cookies, err := repo.ListByHost("api.example.com")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(cookies) != 1 {
			t.Fatalf("expected 1 cookie, got %d", len(cookies))
		}
		got := cookies[0]
		if got.Value != "one" || !got.HTTPOnly || got.SameSite != http.SameSiteLaxMode || got.ExpiresAt == nil {
			t.Errorf("unexpected cookie %+v", got)
		}
		if got.ExpiresAt.Unix() != expires.Truncate(time.Second).Unix() {
			t.Errorf("expected expiry %v, got %v", expires, got.ExpiresAt)
		}
	})

	t.Run("Upsert Replaces Same Key", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))

		first := &StoredCookie{Host: "h", Name: "sid", Value: "one"}
		repo.Upsert(first)
		second := &StoredCookie{Host: "h", Name: "sid", Value: "two"}
		if err := repo.Upsert(second); err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		cookies, _ := repo.ListByHost("h")
		if len(cookies) != 1 || cookies[0].Value != "two" || cookies[0].ID != first.ID {
			t.Errorf("expected one replaced row keeping its ID, got %+v", cookies)
		}
		if cookies[0].ExpiresAt != nil {
			t.Error("expected session cookie to have no expiry")
		}
	})

	t.Run("Upsert Validation", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		if err := repo.Upsert(&StoredCookie{Name: "x"}); err == nil {
			t.Error("expected missing host to fail")
		}
	})

	t.Run("ListByHost Skips Expired", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		past := time.Now().Add(-time.Hour)
		repo.Upsert(&StoredCookie{Host: "h", Name: "old", Value: "x", ExpiresAt: &past})
		repo.Upsert(&StoredCookie{Host: "h", Name: "live", Value: "y"})
		repo.Upsert(&StoredCookie{Host: "other", Name: "live", Value: "z"})

		cookies, _ := repo.ListByHost("h")
		if len(cookies) != 1 || cookies[0].Name != "live" {
			t.Errorf("unexpected cookies %+v", cookies)
		}

		all, _ := repo.List()
		if len(all) != 3 {
			t.Errorf("expected List to include expired rows, got %d", len(all))
		}

		removed, err := repo.PurgeExpired(time.Now())
		if err != nil || removed != 1 {
			t.Errorf("expected one expired row removed, got %d %v", removed, err)
		}
	})

	t.Run("Delete And Purge", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		repo.Upsert(&StoredCookie{Host: "h", Name: "a", Value: "1"})
		repo.Upsert(&StoredCookie{Host: "h", Name: "b", Value: "2"})
		repo.Upsert(&StoredCookie{Host: "other", Name: "c", Value: "3"})

		if err := repo.Delete("h", "a", ""); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete("h", "missing", "/"); err != nil {
			t.Errorf("expected deleting a missing cookie to succeed, got %v", err)
		}

		removed, err := repo.Purge("h")
		if err != nil || removed != 1 {
			t.Errorf("expected one row purged, got %d %v", removed, err)
		}
		removed, err = repo.Purge("")
		if err != nil || removed != 1 {
			t.Errorf("expected remaining row purged, got %d %v", removed, err)
		}
	})
}

func TestPersistentJar(t *testing.T) {
	t.Run("Persists Across Jars", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		u := mustParseURL(t, "http://127.0.0.1:8000/api/v1/users/login")

		first, err := NewPersistentJar(repo, nil)
		if err != nil {
			t.Fatalf("failed to create jar: %v", err)
		}
		first.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "tok", Path: "/", HttpOnly: true}})

		second, _ := NewPersistentJar(repo, nil)
		n, err := second.Load(u)
		if err != nil || n != 1 {
			t.Fatalf("expected one cookie loaded, got %d %v", n, err)
		}

		cookies := second.Cookies(mustParseURL(t, "http://127.0.0.1:8000/api/v1/videos"))
		if len(cookies) != 1 || cookies[0].Value != "tok" {
			t.Errorf("unexpected cookies %+v", cookies)
		}
	})

	t.Run("Load Removes Expired Rows", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		past := time.Now().Add(-time.Hour)
		repo.Upsert(&StoredCookie{Host: "127.0.0.1", Name: "stale", Value: "x", Path: "/", ExpiresAt: &past})
		repo.Upsert(&StoredCookie{Host: "elsewhere.example", Name: "stale", Value: "y", Path: "/", ExpiresAt: &past})
		repo.Upsert(&StoredCookie{Host: "127.0.0.1", Name: "accessToken", Value: "tok", Path: "/"})

		jar, _ := NewPersistentJar(repo, nil)
		n, err := jar.Load(mustParseURL(t, "http://127.0.0.1:8000/api/v1"))
		if err != nil || n != 1 {
			t.Fatalf("expected one cookie loaded, got %d %v", n, err)
		}

		all, _ := repo.List()
		if len(all) != 1 || all[0].Name != "accessToken" {
			t.Errorf("expected expired rows for every host to be removed, got %+v", all)
		}
	})

	t.Run("Strips Secure On Loopback HTTP", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, nil)
		u := mustParseURL(t, "http://localhost:8000/api/v1/users/login")

		jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "tok", Path: "/", Secure: true, SameSite: http.SameSiteNoneMode}})

		if cookies := jar.Cookies(u); len(cookies) != 1 {
			t.Errorf("expected cookie to be sent back over http, got %+v", cookies)
		}
		stored, _ := repo.ListByHost("localhost")
		if len(stored) != 1 || stored[0].Secure {
			t.Errorf("expected stored cookie without Secure, got %+v", stored)
		}
	})

	t.Run("Keeps Secure Elsewhere", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, nil)
		u := mustParseURL(t, "https://api.example.com/api/v1/users/login")

		jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "tok", Path: "/", Secure: true}})

		stored, _ := repo.ListByHost("api.example.com")
		if len(stored) != 1 || !stored[0].Secure {
			t.Errorf("expected Secure to be kept, got %+v", stored)
		}
		if cookies := jar.Cookies(mustParseURL(t, "http://api.example.com/")); len(cookies) != 0 {
			t.Error("expected Secure cookie not to be sent over http")
		}
	})

	t.Run("Default Path And MaxAge", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, nil)
		u := mustParseURL(t, "http://localhost/api/v1/users/login")

		jar.SetCookies(u, []*http.Cookie{{Name: "refresh", Value: "r", MaxAge: 3600}})

		stored, _ := repo.ListByHost("localhost")
		if len(stored) != 1 || stored[0].Path != "/api/v1/users" || stored[0].ExpiresAt == nil {
			t.Errorf("unexpected stored cookie %+v", stored)
		}
	})

	t.Run("Expired Cookie Deletes Row", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, nil)
		u := mustParseURL(t, "http://localhost/api/v1/users/logout")

		jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "tok", Path: "/"}})
		jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "", Path: "/", MaxAge: -1}})

		if stored, _ := repo.List(); len(stored) != 0 {
			t.Errorf("expected row to be deleted, got %+v", stored)
		}
		if cookies := jar.Cookies(u); len(cookies) != 0 {
			t.Errorf("expected jar to drop cookie, got %+v", cookies)
		}
	})

	t.Run("Import And Forget", func(t *testing.T) {
		repo := NewCookieRepository(setupTestDB(t))
		jar, _ := NewPersistentJar(repo, nil)
		u := mustParseURL(t, "http://localhost:8000/api/v1")

		if err := jar.Import(u, []*http.Cookie{{Name: "accessToken", Value: "copied"}}); err != nil {
			t.Fatalf("failed to import: %v", err)
		}
		if cookies := jar.Cookies(mustParseURL(t, "http://localhost:8000/api/v1/users/me")); len(cookies) != 1 {
			t.Errorf("expected imported cookie to be sent, got %+v", cookies)
		}

		removed, err := jar.Forget(u)
		if err != nil || removed != 1 {
			t.Errorf("expected one cookie forgotten, got %d %v", removed, err)
		}
		if cookies := jar.Cookies(u); len(cookies) != 0 {
			t.Errorf("expected jar to be empty, got %+v", cookies)
		}
	})

	t.Run("Session Survives Client Restart", func(t *testing.T) {
		api := tu.NewFakeAPI(t)
		api.AddUser(models.User{Username: "ada"}, "secret")
		repo := NewCookieRepository(setupTestDB(t))
		ctx := context.Background()

		newClient := func() *services.Client {
			jar, err := NewPersistentJar(repo, nil)
			if err != nil {
				t.Fatalf("failed to create jar: %v", err)
			}
			client, err := services.NewClient(services.Options{BaseURL: api.URL(), Jar: jar})
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}
			if _, err := jar.Load(client.BaseURL()); err != nil {
				t.Fatalf("failed to load cookies: %v", err)
			}
			return client
		}

		if _, err := newClient().Login(ctx, services.Credentials{Identifier: "ada", Secret: "secret"}); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		user, err := newClient().CurrentUser(ctx)
		if err != nil || user.Username != "ada" {
			t.Fatalf("expected restored session, got %+v %v", user, err)
		}

		if err := newClient().Logout(ctx); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if _, err := newClient().CurrentUser(ctx); err == nil {
			t.Error("expected no session after logout")
		}
	})
}
