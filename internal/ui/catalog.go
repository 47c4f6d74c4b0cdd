package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidstream/internal/fetch"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
)

// Fallback messages for failed fetches without a server message.
const (
	FailedToLoadVideos = "Failed to load videos"
	FailedToLoadVideo  = "Failed to load video"
	NoVideosFound      = "No videos found"
)

// catalogScreen lists one page of videos. The page number drives the fetch.
type catalogScreen struct {
	app     *Model
	tracker *fetch.Tracker[int, *models.VideoPage]
	list    list.Model
}

func newCatalogScreen(app *Model) *catalogScreen {
	l := list.New(nil, list.NewDefaultDelegate(), app.listWidth(), app.listHeight())
	l.Title = "Videos"
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	return &catalogScreen{app: app, tracker: fetch.NewTracker[int, *models.VideoPage](), list: l}
}

func (s *catalogScreen) Init() tea.Cmd {
	return s.load(1)
}

// load fetches page unless it is already the current key.
func (s *catalogScreen) load(page int) tea.Cmd {
	ticket, ctx, ok := s.tracker.Trigger(s.app.ctx, page)
	if !ok {
		return nil
	}
	return s.fetch(ticket, ctx)
}

func (s *catalogScreen) reload() tea.Cmd {
	ticket, ctx := s.tracker.Begin(s.app.ctx, max(s.tracker.Key(), 1))
	return s.fetch(ticket, ctx)
}

func (s *catalogScreen) fetch(ticket fetch.Ticket[int], ctx context.Context) tea.Cmd {
	videos, mount := s.app.videos, s.app.mount
	opts := services.ListOptions{Page: ticket.Key, Limit: s.app.pageSize}
	s.app.logger.Debug("fetching videos", "page", opts.Page, "limit", opts.Limit)

	return func() tea.Msg {
		page, err := videos.ListVideos(ctx, opts)
		return pageFetchedMsg(mount, ticket, page, err)
	}
}

func (s *catalogScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.list.SetSize(s.app.listWidth(), s.app.listHeight())
		return nil

	case Msg:
		if msg.kind != MsgPageFetched {
			return nil
		}
		return s.receive(msg.data.(pageResult))

	case tea.KeyMsg:
		if s.Typing() {
			break
		}
		switch {
		case key.Matches(msg, s.app.keys.next):
			if page, ok := s.tracker.State().Data(); ok && hasNext(page) {
				return s.load(s.tracker.Key() + 1)
			}
			return nil
		case key.Matches(msg, s.app.keys.prev):
			if s.tracker.Key() > 1 {
				return s.load(s.tracker.Key() - 1)
			}
			return nil
		case key.Matches(msg, s.app.keys.refresh):
			return s.reload()
		case key.Matches(msg, s.app.keys.enter):
			if item, ok := s.list.SelectedItem().(videoItem); ok && s.tracker.State().Succeeded() {
				return s.app.navigate(videoPath(item.video.ID), false)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	s.list, cmd = s.list.Update(msg)
	return cmd
}

func (s *catalogScreen) receive(r pageResult) tea.Cmd {
	if r.err != nil {
		if s.tracker.Reject(r.ticket, services.MessageOf(r.err, FailedToLoadVideos)) {
			s.app.logger.Warn("failed to load videos", "page", r.ticket.Key, "error", r.err)
		}
		return nil
	}
	if !s.tracker.Resolve(r.ticket, r.page) {
		s.app.logger.Debug("discarding stale page", "page", r.ticket.Key)
		return nil
	}

	s.list.Title = fmt.Sprintf("Videos · page %d of %d", max(r.page.Page, 1), max(r.page.TotalPages, r.page.Page, 1))
	s.list.ResetSelected()
	return s.list.SetItems(videoItems(r.page.Videos))
}

func hasNext(page *models.VideoPage) bool {
	return page != nil && (page.HasNext || page.TotalPages > 0 && page.Page < page.TotalPages)
}

func (s *catalogScreen) View() string {
	state := s.tracker.State()
	switch {
	case state.Pending():
		return fmt.Sprintf("%s Loading videos…", s.app.spinner.View())
	case state.Failed():
		return styles.err.Render(state.Message())
	}

	page, _ := state.Data()
	if page.Empty() {
		return styles.title.Render("Videos") + "\n" + styles.help.Render(NoVideosFound)
	}
	return s.list.View()
}

func (s *catalogScreen) Keys() []key.Binding {
	keys := []key.Binding{s.app.keys.enter}
	if page, ok := s.tracker.State().Data(); ok && hasNext(page) {
		keys = append(keys, s.app.keys.next)
	}
	if s.tracker.Key() > 1 {
		keys = append(keys, s.app.keys.prev)
	}
	return append(keys, s.app.keys.refresh)
}

func (s *catalogScreen) Typing() bool {
	return s.list.FilterState() == list.Filtering
}

func (s *catalogScreen) Close() {
	s.tracker.Abandon()
}
