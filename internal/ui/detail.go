package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/vidstream/internal/fetch"
	"github.com/desertthunder/vidstream/internal/formatter"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
)

// detailScreen shows one video. The video ID drives the fetch.
type detailScreen struct {
	app     *Model
	id      string
	tracker *fetch.Tracker[string, *models.Video]
}

func newDetailScreen(app *Model, id string) *detailScreen {
	return &detailScreen{app: app, id: id, tracker: fetch.NewTracker[string, *models.Video]()}
}

func (s *detailScreen) Init() tea.Cmd {
	ticket, ctx, ok := s.tracker.Trigger(s.app.ctx, s.id)
	if !ok {
		return nil
	}

	videos, mount := s.app.videos, s.app.mount
	s.app.logger.Debug("fetching video", "id", s.id)
	return func() tea.Msg {
		video, err := videos.GetVideo(ctx, ticket.Key)
		return videoFetchedMsg(mount, ticket, video, err)
	}
}

func (s *detailScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case Msg:
		if msg.kind != MsgVideoFetched {
			return nil
		}
		r := msg.data.(videoResult)
		if r.err != nil {
			if s.tracker.Reject(r.ticket, services.MessageOf(r.err, FailedToLoadVideo)) {
				s.app.logger.Warn("failed to load video", "id", r.ticket.Key, "error", r.err)
			}
			return nil
		}
		s.tracker.Resolve(r.ticket, r.video)

	case tea.KeyMsg:
		video, ok := s.tracker.State().Data()
		if !ok || video == nil {
			return nil
		}
		switch {
		case key.Matches(msg, s.app.keys.open):
			return s.app.openInBrowser(video.VideoFile)
		case key.Matches(msg, s.app.keys.thumb):
			return s.app.openInBrowser(video.Thumbnail)
		}
	}
	return nil
}

func (s *detailScreen) View() string {
	state := s.tracker.State()
	switch {
	case state.Pending():
		return fmt.Sprintf("%s Loading video…", s.app.spinner.View())
	case state.Failed():
		return styles.err.Render(state.Message())
	}

	video, _ := state.Data()
	if video == nil {
		return styles.err.Render(FailedToLoadVideo)
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(video.Title))
	b.WriteString("\n")
	b.WriteString(formatter.Byline(*video))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Duration", formatter.FormatDuration(video.Duration)},
		{"Likes", formatter.FormatCount(video.Likes)},
		{"Video", video.VideoFile},
		{"Thumbnail", video.Thumbnail},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s\n", styles.label.Render(fmt.Sprintf("%-10s", row[0])), row[1]))
	}

	if desc := strings.TrimSpace(video.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(s.app.listWidth()).Render(desc))
	}
	return b.String()
}

func (s *detailScreen) Keys() []key.Binding {
	if !s.tracker.State().Succeeded() {
		return nil
	}
	return []key.Binding{s.app.keys.open, s.app.keys.thumb}
}

func (s *detailScreen) Typing() bool { return false }

func (s *detailScreen) Close() {
	s.tracker.Abandon()
}
