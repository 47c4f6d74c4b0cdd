package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidstream/internal/upload"
	"github.com/dustin/go-humanize"
)

const (
	uploadVideo = iota
	uploadThumbnail
	uploadTitle
	uploadDescription
)

// uploadFields maps form positions onto draft fields.
var uploadFields = map[int]upload.Field{
	uploadVideo:       upload.FieldVideo,
	uploadThumbnail:   upload.FieldThumbnail,
	uploadTitle:       upload.FieldTitle,
	uploadDescription: upload.FieldDescription,
}

// uploadScreen edits an [upload.Draft]. File paths are turned into previews when focus leaves their field.
type uploadScreen struct {
	app     *Model
	draft   *upload.Draft
	form    *form
	message string
}

func newUploadScreen(app *Model) *uploadScreen {
	f := newForm(
		newField("Video file", "path to a video", 512),
		newField("Thumbnail", "path to an image", 512),
		newField("Title", "What is this video about?", 256),
	).withArea("Description", "Tell viewers more", app.listWidth())

	return &uploadScreen{app: app, draft: upload.NewDraft(app.previewer), form: f}
}

func (s *uploadScreen) Init() tea.Cmd { return nil }

func (s *uploadScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case Msg:
		if msg.kind != MsgUploaded {
			return nil
		}
		return s.finish(msg.data.(uploadResult))

	case tea.KeyMsg:
		if s.draft.Submitting() {
			return nil
		}
		switch {
		case key.Matches(msg, s.app.keys.tab):
			s.leave()
			s.form.next()
			return nil
		case key.Matches(msg, s.app.keys.shiftTab):
			s.leave()
			s.form.prev()
			return nil
		case key.Matches(msg, s.app.keys.submit):
			return s.submit()
		case key.Matches(msg, s.app.keys.enter) && !s.form.onArea():
			s.leave()
			s.form.next()
			return nil
		}
	}

	cmd := s.form.update(msg)
	s.sync()
	return cmd
}

func (s *uploadScreen) sync() {
	s.draft.SetTitle(s.form.value(uploadTitle))
	s.draft.SetDescription(s.form.value(uploadDescription))
}

// leave commits the focused field to the draft.
func (s *uploadScreen) leave() {
	if s.form.focus == uploadVideo || s.form.focus == uploadThumbnail {
		s.selectFile(s.form.focus)
	}
}

// selectFile previews the path typed into form field i. An unchanged path keeps its preview; an empty one clears it.
func (s *uploadScreen) selectFile(i int) {
	f := uploadFields[i]
	path := s.form.value(i)
	delete(s.form.errs, i)

	if path == "" {
		s.draft.Clear(f)
		return
	}
	if p := s.draft.Preview(f); p != nil && p.Path == path {
		return
	}
	if _, err := s.draft.Select(f, path); err != nil {
		s.app.logger.Debug("preview rejected", "field", f, "path", path, "error", err)
		s.form.errs[i] = err.Error()
	}
}

func (s *uploadScreen) submit() tea.Cmd {
	s.sync()
	s.form.clearErrors()
	s.selectFile(uploadVideo)
	s.selectFile(uploadThumbnail)
	s.message = ""

	req, err := s.draft.BeginSubmit()
	var verr *upload.ValidationError
	switch {
	case errors.As(err, &verr):
		for i, f := range uploadFields {
			if _, ok := s.form.errs[i]; ok {
				continue
			}
			if msg := verr.Message(f); msg != "" {
				s.form.errs[i] = msg
			}
		}
		return nil
	case errors.Is(err, upload.ErrSubmitting):
		return nil
	case err != nil:
		s.message = err.Error()
		return nil
	}

	ctx, videos, mount := s.app.ctx, s.app.videos, s.app.mount
	s.app.logger.Info("uploading video", "title", req.Title, "video", req.VideoFile.Filename)
	return func() tea.Msg {
		video, err := videos.UploadVideo(ctx, req)
		return uploadedMsg(mount, video, err)
	}
}

func (s *uploadScreen) finish(r uploadResult) tea.Cmd {
	state := s.draft.Finish(r.video, r.err)
	if state.Failed() {
		s.app.logger.Warn("upload failed", "error", r.err)
		s.message = state.Message()
		return nil
	}

	title := s.draft.Title()
	if r.video != nil && r.video.Title != "" {
		title = r.video.Title
	}
	s.app.setFlash(fmt.Sprintf("Uploaded %q", title), false)
	return s.app.navigate(CatalogPath, true)
}

func (s *uploadScreen) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Upload a video"))
	b.WriteString("\n")
	b.WriteString(s.form.view())
	b.WriteString("\n")

	for _, f := range []upload.Field{upload.FieldVideo, upload.FieldThumbnail} {
		if p := s.draft.Preview(f); p != nil {
			b.WriteString("\n")
			b.WriteString(fieldNote("%s: %s · %s · %s", f.Label(), p.Name, p.MIME, humanize.Bytes(uint64(max(p.Size, 0)))))
		}
	}

	b.WriteString("\n")
	state, submitted := s.draft.Submission()
	switch {
	case s.draft.Submitting():
		b.WriteString(fmt.Sprintf("\n%s Uploading…", s.app.spinner.View()))
	case s.message != "":
		b.WriteString("\n" + styles.err.Render(s.message))
	case submitted && state.Failed():
		b.WriteString("\n" + styles.err.Render(state.Message()))
	}
	return b.String()
}

func (s *uploadScreen) Keys() []key.Binding {
	return []key.Binding{s.app.keys.tab, s.app.keys.submit}
}

func (s *uploadScreen) Typing() bool { return true }

func (s *uploadScreen) Close() {
	s.draft.Close()
}
