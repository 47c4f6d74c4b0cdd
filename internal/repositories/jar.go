package repositories

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"
)

// PersistentJar is an [http.CookieJar] that mirrors every accepted cookie into a [CookieRepository], so a session
// established by one process is available to the next.
//
// Matching rules come from [cookiejar.Jar] with the public suffix list. Cookies a plain-http loopback API marks
// Secure are stored without the flag; otherwise they would never be sent back to a local development server.
type PersistentJar struct {
	mu     sync.Mutex
	mem    *cookiejar.Jar
	repo   *CookieRepository
	logger *log.Logger
}

// NewPersistentJar creates an empty jar backed by repo. Call [PersistentJar.Load] to restore stored cookies.
func NewPersistentJar(repo *CookieRepository, logger *log.Logger) (*PersistentJar, error) {
	mem, err := newMemoryJar()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PersistentJar{mem: mem, repo: repo, logger: logger}, nil
}

func newMemoryJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// Load drops expired rows, then restores the stored cookies for u's host and returns how many were loaded.
func (j *PersistentJar) Load(u *url.URL) (int, error) {
	purged, err := j.repo.PurgeExpired(time.Now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		j.logger.Debug("expired cookies removed", "count", purged)
	}

	stored, err := j.repo.ListByHost(u.Hostname())
	if err != nil {
		return 0, err
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, c.HTTPCookie())
	}

	j.mu.Lock()
	j.mem.SetCookies(rootOf(u), j.adjust(u, cookies))
	j.mu.Unlock()

	j.logger.Debug("cookies loaded", "host", u.Hostname(), "count", len(cookies))
	return len(cookies), nil
}

// SetCookies implements [http.CookieJar]. Persistence failures are logged; the in-memory jar is always updated.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if err := j.store(u, cookies); err != nil {
		j.logger.Warn("failed to persist cookies", "host", u.Hostname(), "error", err)
	}
}

// Cookies implements [http.CookieJar].
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.mem.Cookies(u)
}

// Import stores cookies obtained outside an HTTP exchange, such as from a copied browser request, as if u had
// set them.
func (j *PersistentJar) Import(u *url.URL, cookies []*http.Cookie) error {
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	return j.store(u, cookies)
}

// Forget drops every cookie for u's host from memory and storage.
func (j *PersistentJar) Forget(u *url.URL) (int64, error) {
	mem, err := newMemoryJar()
	if err != nil {
		return 0, err
	}

	removed, err := j.repo.Purge(u.Hostname())
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	j.mem = mem
	j.mu.Unlock()

	return removed, nil
}

func (j *PersistentJar) store(u *url.URL, cookies []*http.Cookie) error {
	adjusted := j.adjust(u, cookies)

	j.mu.Lock()
	j.mem.SetCookies(u, adjusted)
	j.mu.Unlock()

	host := u.Hostname()
	now := time.Now()
	for _, c := range adjusted {
		path := c.Path
		if path == "" || !strings.HasPrefix(path, "/") {
			path = defaultPath(u.Path)
		}

		if expired(c, now) {
			if err := j.repo.Delete(host, c.Name, path); err != nil {
				return err
			}
			continue
		}

		stored := &StoredCookie{
			Host:     host,
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: c.SameSite,
		}
		switch {
		case c.MaxAge > 0:
			expires := now.Add(time.Duration(c.MaxAge) * time.Second)
			stored.ExpiresAt = &expires
		case !c.Expires.IsZero():
			expires := c.Expires
			stored.ExpiresAt = &expires
		}

		if err := j.repo.Upsert(stored); err != nil {
			return err
		}
	}
	return nil
}

// adjust clears the Secure flag on cookies set by a plain-http loopback host.
func (j *PersistentJar) adjust(u *url.URL, cookies []*http.Cookie) []*http.Cookie {
	if u.Scheme != "http" || !isLoopback(u.Hostname()) {
		return cookies
	}

	out := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		copied := *c
		copied.Secure = false
		out[i] = &copied
	}
	return out
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return c.MaxAge == 0 && !c.Expires.IsZero() && !c.Expires.After(now)
}

func isLoopback(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// defaultPath is the RFC 6265 default cookie path for a request path.
func defaultPath(path string) string {
	if path == "" || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}

func rootOf(u *url.URL) *url.URL {
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}
