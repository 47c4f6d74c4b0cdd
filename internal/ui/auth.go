package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
	"github.com/desertthunder/vidstream/internal/upload"
)

// Field messages shown before any request is sent.
const (
	IdentifierRequired = "Username or Email is required"
	PasswordRequired   = "Password is required"
	FullNameRequired   = "Full name is required"
	UsernameRequired   = "Username is required"
	EmailRequired      = "Email is required"
	EmailInvalid       = "Enter a valid email address"
	PasswordTooShort   = "Password must be at least 6 characters"
	AvatarRequired     = "Avatar is required"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	loginIdentifier = iota
	loginPassword
)

// loginScreen signs the user in through the session store.
type loginScreen struct {
	app        *Model
	form       *form
	submitting bool
	message    string
}

func newLoginScreen(app *Model) *loginScreen {
	return &loginScreen{
		app: app,
		form: newForm(
			newField("Username or Email", "ada or ada@example.com", 128),
			newSecretField("Password", "password"),
		),
	}
}

func (s *loginScreen) Init() tea.Cmd { return nil }

func (s *loginScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case Msg:
		if msg.kind != MsgLoggedIn {
			return nil
		}
		r := msg.data.(loginResult)
		s.submitting = false
		if r.err != nil {
			s.message = errorMessage(r.err, session.LoginFailed)
			return nil
		}
		name := ""
		if r.resp != nil && r.resp.User != nil {
			name = r.resp.User.DisplayName()
		}
		s.app.setFlash(strings.TrimSpace("Welcome back "+name), false)
		return s.app.navigate(CatalogPath, true)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.app.keys.tab):
			s.form.next()
			return nil
		case key.Matches(msg, s.app.keys.shiftTab):
			s.form.prev()
			return nil
		case key.Matches(msg, s.app.keys.enter), key.Matches(msg, s.app.keys.submit):
			if s.form.focus < loginPassword && msg.String() == "enter" {
				s.form.next()
				return nil
			}
			return s.submit()
		}
	}
	return s.form.update(msg)
}

// submit checks the required fields and starts a login. Nothing is sent while a login is in flight.
func (s *loginScreen) submit() tea.Cmd {
	if s.submitting {
		return nil
	}

	s.form.clearErrors()
	s.message = ""
	creds := services.Credentials{
		Identifier: s.form.value(loginIdentifier),
		Secret:     s.form.fields[loginPassword].input.Value(),
	}
	if creds.Identifier == "" {
		s.form.errs[loginIdentifier] = IdentifierRequired
	}
	if creds.Secret == "" {
		s.form.errs[loginPassword] = PasswordRequired
	}
	if len(s.form.errs) > 0 {
		return nil
	}

	s.submitting = true
	ctx, store, mount := s.app.ctx, s.app.session, s.app.mount
	return func() tea.Msg {
		resp, err := store.Login(ctx, creds)
		return loggedInMsg(mount, resp, err)
	}
}

func (s *loginScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Log in"))
	b.WriteString("\n")
	b.WriteString(s.form.view())
	b.WriteString("\n\n")
	switch {
	case s.submitting:
		b.WriteString(fmt.Sprintf("%s Logging in…", s.app.spinner.View()))
	case s.message != "":
		b.WriteString(styles.err.Render(s.message))
	default:
		b.WriteString(fieldNote("No account? Press ctrl+r to register."))
	}
	return b.String()
}

func (s *loginScreen) Keys() []key.Binding {
	return []key.Binding{s.app.keys.tab, s.app.keys.submit, s.app.keys.register}
}

func (s *loginScreen) Typing() bool { return true }
func (s *loginScreen) Close()       {}

const (
	registerFullName = iota
	registerUsername
	registerEmail
	registerPassword
	registerAvatar
	registerCover
)

// registerScreen creates an account. Avatar and cover image paths are opened as previews only for the duration
// of the request.
type registerScreen struct {
	app        *Model
	form       *form
	previews   []*upload.Preview
	submitting bool
	message    string
}

func newRegisterScreen(app *Model) *registerScreen {
	return &registerScreen{
		app: app,
		form: newForm(
			newField("Full name", "Ada Lovelace", 128),
			newField("Username", "ada", 64),
			newField("Email", "ada@example.com", 128),
			newSecretField("Password", "at least 6 characters"),
			newField("Avatar", "path to an image", 512),
			newField("Cover image (optional)", "path to an image", 512),
		),
	}
}

func (s *registerScreen) Init() tea.Cmd { return nil }

func (s *registerScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case Msg:
		if msg.kind != MsgRegistered {
			return nil
		}
		r := msg.data.(registerResult)
		s.submitting = false
		s.release()
		if r.err != nil {
			s.message = errorMessage(r.err, session.RegistrationFailed)
			return nil
		}
		s.app.setFlash("Account created. Log in to continue.", false)
		return s.app.navigate(LoginPath, false)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.app.keys.tab):
			s.form.next()
			return nil
		case key.Matches(msg, s.app.keys.shiftTab):
			s.form.prev()
			return nil
		case key.Matches(msg, s.app.keys.submit):
			return s.submit()
		case key.Matches(msg, s.app.keys.enter):
			if s.form.focus < registerCover {
				s.form.next()
				return nil
			}
			return s.submit()
		}
	}
	return s.form.update(msg)
}

// validate returns the registration request when every field passes, recording field messages otherwise.
func (s *registerScreen) validate() (services.RegisterRequest, bool) {
	f := s.form
	req := services.RegisterRequest{
		FullName: f.value(registerFullName),
		Username: f.value(registerUsername),
		Email:    f.value(registerEmail),
		Password: f.fields[registerPassword].input.Value(),
	}

	if req.FullName == "" {
		f.errs[registerFullName] = FullNameRequired
	}
	if req.Username == "" {
		f.errs[registerUsername] = UsernameRequired
	}
	switch {
	case req.Email == "":
		f.errs[registerEmail] = EmailRequired
	case !emailPattern.MatchString(req.Email):
		f.errs[registerEmail] = EmailInvalid
	}
	switch {
	case req.Password == "":
		f.errs[registerPassword] = PasswordRequired
	case len(req.Password) < minPasswordLength:
		f.errs[registerPassword] = PasswordTooShort
	}
	if f.value(registerAvatar) == "" {
		f.errs[registerAvatar] = AvatarRequired
	}
	return req, len(f.errs) == 0
}

func (s *registerScreen) submit() tea.Cmd {
	if s.submitting {
		return nil
	}
	s.form.clearErrors()
	s.message = ""

	req, ok := s.validate()
	if !ok {
		return nil
	}

	avatar, err := s.acquire(registerAvatar, upload.FieldAvatar)
	if err != nil {
		return nil
	}
	req.Avatar = avatar
	if s.form.value(registerCover) != "" {
		cover, err := s.acquire(registerCover, upload.FieldCoverImage)
		if err != nil {
			s.release()
			return nil
		}
		req.CoverImage = &cover
	}

	s.submitting = true
	ctx, store, mount := s.app.ctx, s.app.session, s.app.mount
	return func() tea.Msg {
		user, err := store.Register(ctx, req)
		return registeredMsg(mount, user, err)
	}
}

// acquire opens the file named by form field i as a preview for an image field.
func (s *registerScreen) acquire(i int, f upload.Field) (services.FilePart, error) {
	preview, err := s.app.previewer.Acquire(f, s.form.value(i))
	if err != nil {
		s.form.errs[i] = err.Error()
		return services.FilePart{}, err
	}
	s.previews = append(s.previews, preview)

	part, err := preview.Part()
	if err != nil {
		s.form.errs[i] = err.Error()
		return services.FilePart{}, err
	}
	return part, nil
}

func (s *registerScreen) release() {
	for _, p := range s.previews {
		p.Release()
	}
	s.previews = nil
}

func (s *registerScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Create an account"))
	b.WriteString("\n")
	b.WriteString(s.form.view())
	b.WriteString("\n\n")
	switch {
	case s.submitting:
		b.WriteString(fmt.Sprintf("%s Creating account…", s.app.spinner.View()))
	case s.message != "":
		b.WriteString(styles.err.Render(s.message))
	}
	return b.String()
}

func (s *registerScreen) Keys() []key.Binding {
	return []key.Binding{s.app.keys.tab, s.app.keys.submit}
}

func (s *registerScreen) Typing() bool { return true }

func (s *registerScreen) Close() {
	s.release()
}
