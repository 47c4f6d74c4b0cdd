// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a small client-side router over five screens:
//  1. "/" : Browse the video catalog a page at a time
//  2. "/video/:id" : Show one video and open its media in the browser
//  3. "/login" and "/register" : Sign in or create an account
//  4. "/upload" : Pick a video and thumbnail, fill in details and upload (requires a session)
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving results via the Msg
// union type. Every remote call runs inside a command; results carry the mount they were started by, so a screen
// that has been replaced never sees them. Within a screen, fetches are tracked with [fetch.Tracker] tickets.
//
// The protected upload route is gated by [session.RequireUser]. While the initial session probe is in flight the
// navigation is parked behind a placeholder and retried once the session resolves.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via
// charmbracelet/bubbles/help. Form screens capture printable keys; esc and ctrl+c always work.
package ui
