package repositories

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/vidstream/internal/shared"
)

// StoredCookie is a persisted cookie, scoped to the host that set it.
type StoredCookie struct {
	ID        string
	Host      string
	Name      string
	Value     string
	Path      string
	Domain    string
	ExpiresAt *time.Time // nil for session cookies
	Secure    bool
	HTTPOnly  bool
	SameSite  http.SameSite
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the cookie has an expiry at or before now.
func (c *StoredCookie) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// HTTPCookie converts the stored row back into an [http.Cookie].
func (c *StoredCookie) HTTPCookie() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
	if c.ExpiresAt != nil {
		hc.Expires = *c.ExpiresAt
	}
	return hc
}

// CookieRepository persists cookies in the cookies table.
type CookieRepository struct {
	db *sql.DB
}

// NewCookieRepository creates a new [CookieRepository] with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db}
}

// Upsert inserts the cookie or replaces the existing row with the same host, name and path.
//
// A new ID is generated when the cookie has none; on conflict the original row keeps its ID and creation time.
func (r *CookieRepository) Upsert(c *StoredCookie) error {
	if c.Host == "" || c.Name == "" {
		return fmt.Errorf("%w: cookie host and name are required", shared.ErrInvalidInput)
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.ID == "" {
		c.ID = shared.GenerateID()
	}

	now := time.Now().UTC().Truncate(time.Second)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	var expires sql.NullTime
	if c.ExpiresAt != nil {
		expires = sql.NullTime{Time: c.ExpiresAt.UTC().Truncate(time.Second), Valid: true}
	}

	query := `
		INSERT INTO cookies (id, host, name, value, path, domain, expires_at, secure, http_only, same_site, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (host, name, path) DO UPDATE SET
			value = excluded.value,
			domain = excluded.domain,
			expires_at = excluded.expires_at,
			secure = excluded.secure,
			http_only = excluded.http_only,
			same_site = excluded.same_site,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, c.ID, c.Host, c.Name, c.Value, c.Path, c.Domain, expires,
		c.Secure, c.HTTPOnly, int(c.SameSite), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert cookie: %w", err)
	}

	return nil
}

// Delete removes one cookie. Deleting a missing cookie is not an error.
func (r *CookieRepository) Delete(host, name, path string) error {
	if path == "" {
		path = "/"
	}
	if _, err := r.db.Exec(`DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?`, host, name, path); err != nil {
		return fmt.Errorf("failed to delete cookie: %w", err)
	}
	return nil
}

// ListByHost returns the unexpired cookies stored for host, ordered by name.
func (r *CookieRepository) ListByHost(host string) ([]StoredCookie, error) {
	query := `
		SELECT id, host, name, value, path, domain, expires_at, secure, http_only, same_site, created_at, updated_at
		FROM cookies
		WHERE host = ?
		ORDER BY name, path
	`
	return r.list(query, host)
}

// List returns every stored cookie, including expired ones, ordered by host and name.
func (r *CookieRepository) List() ([]StoredCookie, error) {
	query := `
		SELECT id, host, name, value, path, domain, expires_at, secure, http_only, same_site, created_at, updated_at
		FROM cookies
		ORDER BY host, name, path
	`
	return r.list(query)
}

func (r *CookieRepository) list(query string, args ...any) ([]StoredCookie, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	filterExpired := len(args) > 0
	cookies := []StoredCookie{}
	for rows.Next() {
		var (
			c        StoredCookie
			expires  sql.NullTime
			sameSite int
		)
		if err := rows.Scan(&c.ID, &c.Host, &c.Name, &c.Value, &c.Path, &c.Domain, &expires,
			&c.Secure, &c.HTTPOnly, &sameSite, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expires.Valid {
			t := expires.Time
			c.ExpiresAt = &t
		}
		c.SameSite = http.SameSite(sameSite)

		if filterExpired && c.Expired(now) {
			continue
		}
		cookies = append(cookies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cookies: %w", err)
	}

	return cookies, nil
}

// Purge deletes every cookie for host, or all cookies when host is empty, and reports how many were removed.
func (r *CookieRepository) Purge(host string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if host == "" {
		result, err = r.db.Exec(`DELETE FROM cookies`)
	} else {
		result, err = r.db.Exec(`DELETE FROM cookies WHERE host = ?`, host)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to purge cookies: %w", err)
	}
	return result.RowsAffected()
}

// PurgeExpired deletes cookies whose expiry is at or before now.
func (r *CookieRepository) PurgeExpired(now time.Time) (int64, error) {
	cookies, err := r.List()
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, c := range cookies {
		if !c.Expired(now) {
			continue
		}
		if _, err := r.db.Exec(`DELETE FROM cookies WHERE id = ?`, c.ID); err != nil {
			return removed, fmt.Errorf("failed to delete expired cookie: %w", err)
		}
		removed++
	}
	return removed, nil
}
