package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidstream/internal/fetch"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
//
// Results of work started by a screen carry the mount they belong to; the model drops them once that screen is gone.
// A zero mount marks an application-wide message.
type Msg struct {
	kind  MsgKind
	mount int
	data  any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionResolved MsgKind = iota
	MsgPageFetched
	MsgVideoFetched
	MsgLoggedIn
	MsgRegistered
	MsgLoggedOut
	MsgUploaded
	MsgBrowserOpened
)

func (k MsgKind) String() string {
	switch k {
	case MsgSessionResolved:
		return "session-resolved"
	case MsgPageFetched:
		return "page-fetched"
	case MsgVideoFetched:
		return "video-fetched"
	case MsgLoggedIn:
		return "logged-in"
	case MsgRegistered:
		return "registered"
	case MsgLoggedOut:
		return "logged-out"
	case MsgUploaded:
		return "uploaded"
	case MsgBrowserOpened:
		return "browser-opened"
	default:
		return "unknown"
	}
}

type pageResult struct {
	ticket fetch.Ticket[int]
	page   *models.VideoPage
	err    error
}

type videoResult struct {
	ticket fetch.Ticket[string]
	video  *models.Video
	err    error
}

type loginResult struct {
	resp *services.LoginResponse
	err  error
}

type registerResult struct {
	user *models.User
	err  error
}

type uploadResult struct {
	video *models.Video
	err   error
}

// sessionResolvedMsg is the constructor for [MsgSessionResolved]
func sessionResolvedMsg(snap session.Snapshot) Msg {
	return Msg{kind: MsgSessionResolved, data: snap}
}

// pageFetchedMsg is the constructor for [MsgPageFetched]
func pageFetchedMsg(mount int, ticket fetch.Ticket[int], page *models.VideoPage, err error) Msg {
	return Msg{kind: MsgPageFetched, mount: mount, data: pageResult{ticket, page, err}}
}

// videoFetchedMsg is the constructor for [MsgVideoFetched]
func videoFetchedMsg(mount int, ticket fetch.Ticket[string], video *models.Video, err error) Msg {
	return Msg{kind: MsgVideoFetched, mount: mount, data: videoResult{ticket, video, err}}
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(mount int, resp *services.LoginResponse, err error) Msg {
	return Msg{kind: MsgLoggedIn, mount: mount, data: loginResult{resp, err}}
}

// registeredMsg is the constructor for [MsgRegistered]
func registeredMsg(mount int, user *models.User, err error) Msg {
	return Msg{kind: MsgRegistered, mount: mount, data: registerResult{user, err}}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

// uploadedMsg is the constructor for [MsgUploaded]
func uploadedMsg(mount int, video *models.Video, err error) Msg {
	return Msg{kind: MsgUploaded, mount: mount, data: uploadResult{video, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
