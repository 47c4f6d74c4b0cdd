// Package repositories implements SQLite persistence for the client's local state.
//
// The only durable local state is the session credential: cookies the remote API sets.
//
// Key Implementations:
//   - [CookieRepository] : cookie rows keyed by (host, name, path), upserted on every Set-Cookie
//   - [PersistentJar] : an [net/http.CookieJar] that delegates matching to [net/http/cookiejar] and mirrors
//     accepted cookies into the repository, so CLI invocations and TUI sessions share one login
//
// Session cookies without an expiry are persisted too; they live until the server clears them, the user logs
// out or `vidstream auth forget` purges them.
package repositories
