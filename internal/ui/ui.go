package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/router"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/desertthunder/vidstream/internal/upload"
)

// Client-side routes.
const (
	CatalogPath  = "/"
	VideoPath    = "/video/:id"
	LoginPath    = session.LoginPath
	RegisterPath = "/register"
	UploadPath   = "/upload"
)

const defaultPageSize = 10

// videoPath is the detail route for id.
func videoPath(id string) string {
	return "/video/" + url.PathEscape(id)
}

// VideoService is the catalog half of the remote API. [*services.Client] implements it.
type VideoService interface {
	ListVideos(ctx context.Context, opts services.ListOptions) (*models.VideoPage, error)
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	UploadVideo(ctx context.Context, req services.UploadRequest) (*models.Video, error)
}

// Options are the dependencies of a [Model].
type Options struct {
	Videos    VideoService
	Session   *session.Store
	Previewer *upload.Previewer
	Logger    *log.Logger
	PageSize  int
	StartPath string
	OpenURL   func(string) error
}

// screen is one mounted view. The model owns exactly one at a time and closes it before mounting the next.
type screen interface {
	Init() tea.Cmd
	Update(tea.Msg) tea.Cmd
	View() string
	Keys() []key.Binding
	// Typing reports whether printable keys belong to the screen rather than the global bindings.
	Typing() bool
	Close()
}

// parkedNav is a navigation the gate could not decide yet.
type parkedNav struct {
	path    string
	replace bool
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	videos    VideoService
	session   *session.Store
	previewer *upload.Previewer
	logger    *log.Logger
	openURL   func(string) error
	pageSize  int
	start     string

	router  *router.Router
	history *router.History
	screen  screen
	mount   int
	parked  *parkedNav

	width    int
	height   int
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	flash    string
	flashErr bool
	quitting bool
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Videos == nil || opts.Session == nil {
		return nil, fmt.Errorf("%w: video service and session store are required", shared.ErrMissingArgument)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Previewer == nil {
		opts.Previewer = upload.NewPreviewer(upload.DefaultMaxPreviews, opts.Logger)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.StartPath == "" {
		opts.StartPath = CatalogPath
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	r := router.New()
	r.Use(logRoutes(opts.Logger))
	routes := []struct {
		pattern    string
		middleware []router.Middleware
	}{
		{CatalogPath, nil},
		{VideoPath, nil},
		{LoginPath, nil},
		{RegisterPath, nil},
		{UploadPath, []router.Middleware{session.RequireUser(opts.Session)}},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.pattern, router.RenderView, rt.middleware...); err != nil {
			return nil, err
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.label

	return &Model{
		ctx:       ctx,
		videos:    opts.Videos,
		session:   opts.Session,
		previewer: opts.Previewer,
		logger:    opts.Logger,
		openURL:   opts.OpenURL,
		pageSize:  opts.PageSize,
		start:     opts.StartPath,
		router:    r,
		history:   &router.History{},
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
	}, nil
}

// Init starts the session probe and mounts the start path.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.boot())
}

func (m *Model) boot() tea.Cmd {
	return tea.Batch(m.resolveSession(), m.navigate(m.start, false))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.screen == nil {
			return m, nil
		}
		return m, m.screen.Update(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case Msg:
		return m, m.handleMsg(msg)
	}

	if m.screen == nil {
		return m, nil
	}
	return m, m.screen.Update(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.flash = ""

	switch {
	case key.Matches(msg, m.keys.forceQuit):
		return m.quit()
	case key.Matches(msg, m.keys.back):
		return m.back()
	case key.Matches(msg, m.keys.register):
		if m.history.Current() == RegisterPath {
			return nil
		}
		return m.navigate(RegisterPath, false)
	}

	if m.screen != nil && m.screen.Typing() {
		return m.screen.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.login):
		if m.session.Snapshot().Authenticated() {
			return nil
		}
		return m.navigate(LoginPath, false)
	case key.Matches(msg, m.keys.logout):
		return m.logout()
	case key.Matches(msg, m.keys.upload):
		return m.navigate(UploadPath, false)
	}

	if m.screen == nil {
		return nil
	}
	return m.screen.Update(msg)
}

func (m *Model) handleMsg(msg Msg) tea.Cmd {
	if msg.mount != 0 && msg.mount != m.mount {
		m.logger.Debug("dropping result for unmounted screen", "kind", msg.kind, "mount", msg.mount, "current", m.mount)
		return nil
	}

	switch msg.kind {
	case MsgSessionResolved:
		snap := msg.data.(session.Snapshot)
		m.logger.Debug("session resolved", "authenticated", snap.Authenticated())
		if m.parked == nil {
			return nil
		}
		p := *m.parked
		m.parked = nil
		return m.navigate(p.path, p.replace)

	case MsgLoggedOut:
		if err, _ := msg.data.(error); err != nil {
			m.setFlash(errorMessage(err, session.LogoutFailed), true)
			return nil
		}
		m.setFlash("Logged out", false)
		return m.navigate(m.history.Current(), true)

	case MsgBrowserOpened:
		if err, _ := msg.data.(error); err != nil {
			m.logger.Warn("failed to open browser", "error", err)
			m.setFlash("Could not open browser: "+err.Error(), true)
		}
		return nil
	}

	if m.screen == nil {
		return nil
	}
	return m.screen.Update(msg)
}

// navigate resolves path through the router and mounts the matching screen.
//
// Unknown paths fall back to the catalog. A navigation the gate cannot decide yet is parked behind a placeholder
// and retried once the session resolves.
func (m *Model) navigate(path string, replace bool) tea.Cmd {
	outcome, err := m.router.Navigate(m.history, path, replace)
	if errors.Is(err, router.ErrNotFound) {
		m.logger.Warn("unknown route", "path", path)
		outcome, err = m.router.Navigate(m.history, CatalogPath, replace)
	}
	if err != nil {
		m.logger.Error("navigation failed", "path", path, "error", err)
		m.setFlash(err.Error(), true)
		return nil
	}

	if outcome.Action == router.Wait {
		m.parked = &parkedNav{path: path, replace: replace}
		return m.mountScreen(newWaitScreen(m))
	}

	m.parked = nil
	return m.mountScreen(m.screenFor(outcome.Request))
}

// logRoutes records every resolution, including the ones a guard redirects or parks.
func logRoutes(logger *log.Logger) router.Middleware {
	return func(next router.Handler) router.Handler {
		return func(req router.Request) router.Outcome {
			outcome := next(req)
			logger.Debug("route", "path", req.Path, "pattern", req.Pattern, "action", outcome.Action, "location", outcome.Location)
			return outcome
		}
	}
}

func (m *Model) screenFor(req router.Request) screen {
	switch req.Pattern {
	case VideoPath:
		return newDetailScreen(m, req.Param("id"))
	case LoginPath:
		return newLoginScreen(m)
	case RegisterPath:
		return newRegisterScreen(m)
	case UploadPath:
		return newUploadScreen(m)
	default:
		return newCatalogScreen(m)
	}
}

func (m *Model) mountScreen(s screen) tea.Cmd {
	if m.screen != nil {
		m.screen.Close()
	}
	m.mount++
	m.screen = s
	return s.Init()
}

// back leaves a parked navigation, or pops the history and re-resolves the previous entry.
func (m *Model) back() tea.Cmd {
	if m.parked != nil {
		m.parked = nil
		return m.navigate(m.history.Current(), true)
	}
	prev, ok := m.history.Back()
	if !ok {
		return nil
	}
	return m.navigate(prev, true)
}

func (m *Model) quit() tea.Cmd {
	if m.screen != nil {
		m.screen.Close()
	}
	m.quitting = true
	return tea.Quit
}

func (m *Model) resolveSession() tea.Cmd {
	ctx, store := m.ctx, m.session
	return func() tea.Msg {
		store.Initialize(ctx)
		snap, err := store.Wait(ctx)
		if err != nil {
			snap = store.Snapshot()
		}
		return sessionResolvedMsg(snap)
	}
}

func (m *Model) logout() tea.Cmd {
	if !m.session.Snapshot().Authenticated() {
		return nil
	}
	ctx, store := m.ctx, m.session
	return func() tea.Msg {
		return loggedOutMsg(store.Logout(ctx))
	}
}

func (m *Model) openInBrowser(rawURL string) tea.Cmd {
	if rawURL == "" {
		m.setFlash("Nothing to open", true)
		return nil
	}
	open := m.openURL
	return func() tea.Msg {
		return browserOpenedMsg(open(rawURL))
	}
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

// View renders the header, the mounted screen, any flash message and contextual help.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	if m.screen != nil {
		b.WriteString(m.screen.View())
	}
	if m.flash != "" {
		b.WriteString("\n\n")
		if m.flashErr {
			b.WriteString(styles.err.Render(m.flash))
		} else {
			b.WriteString(styles.ok.Render(m.flash))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return styles.box.Render(b.String())
}

func (m *Model) header() string {
	title := styles.label.Render("vidstream")

	snap := m.session.Snapshot()
	var who string
	switch {
	case snap.Status != session.Resolved:
		who = styles.help.Render("checking session…")
	case snap.User != nil:
		who = styles.ok.Render("@" + snap.User.Username)
	default:
		who = styles.help.Render("not signed in")
	}
	return fmt.Sprintf("%s  %s", title, who)
}

func (m *Model) helpKeys() []key.Binding {
	keys := []key.Binding{}
	if m.screen != nil {
		keys = append(keys, m.screen.Keys()...)
	}
	if m.history.Len() > 1 || m.parked != nil {
		keys = append(keys, m.keys.back)
	}

	if m.screen == nil || !m.screen.Typing() {
		if m.session.Snapshot().Authenticated() {
			keys = append(keys, m.keys.upload, m.keys.logout)
		} else {
			keys = append(keys, m.keys.login)
		}
		return append(keys, m.keys.quit)
	}
	return append(keys, m.keys.forceQuit)
}

// listHeight is the room left for a screen body after the header and help lines.
func (m *Model) listHeight() int {
	return max(m.height-8, 5)
}

func (m *Model) listWidth() int {
	return max(m.width-4, 20)
}

// errorMessage is the user-facing text for a failed operation.
func errorMessage(err error, fallback string) string {
	var serr *session.Error
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	return services.MessageOf(err, fallback)
}

// waitScreen is the placeholder shown while the gate cannot decide.
type waitScreen struct {
	app *Model
}

func newWaitScreen(app *Model) *waitScreen { return &waitScreen{app: app} }

func (s *waitScreen) Init() tea.Cmd          { return nil }
func (s *waitScreen) Update(tea.Msg) tea.Cmd { return nil }
func (s *waitScreen) Keys() []key.Binding    { return nil }
func (s *waitScreen) Typing() bool           { return false }
func (s *waitScreen) Close()                 {}
func (s *waitScreen) View() string {
	return fmt.Sprintf("%s Checking session…", s.app.spinner.View())
}
