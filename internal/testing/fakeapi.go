package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/google/uuid"
)

// SessionCookie is the cookie name the fake API issues at login.
const SessionCookie = "accessToken"

// FakeAPI is an in-memory stand-in for the remote video API, served under /api/v1.
type FakeAPI struct {
	Server *httptest.Server

	mu        sync.Mutex
	passwords map[string]string
	users     map[string]models.User
	sessions  map[string]string
	videos    []models.Video
	failures  map[string]fakeFailure
	hits      map[string]int
}

type fakeFailure struct {
	status  int
	message string
}

// NewFakeAPI starts a fake API that is shut down when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		passwords: map[string]string{},
		users:     map[string]models.User{},
		sessions:  map[string]string{},
		failures:  map[string]fakeFailure{},
		hits:      map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/users/me", f.me)
	mux.HandleFunc("POST /api/v1/users/login", f.login)
	mux.HandleFunc("POST /api/v1/users/register", f.register)
	mux.HandleFunc("POST /api/v1/users/logout", f.logout)
	mux.HandleFunc("GET /api/v1/videos", f.listVideos)
	mux.HandleFunc("GET /api/v1/videos/{id}", f.getVideo)
	mux.HandleFunc("POST /api/v1/videos", f.uploadVideo)

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")
		f.mu.Lock()
		f.hits[key]++
		failure, failing := f.failures[key]
		f.mu.Unlock()

		if failing {
			writeError(w, failure.status, failure.message)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the API base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api/v1"
}

// AddUser registers an account directly. An empty ID is filled in.
func (f *FakeAPI) AddUser(user models.User, password string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.users[user.Username] = user
	f.passwords[user.Username] = password
	return user
}

// AddVideo appends a video to the catalog. An empty ID is filled in.
func (f *FakeAPI) AddVideo(video models.Video) models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	f.videos = append(f.videos, video)
	return video
}

// Videos returns a copy of the catalog.
func (f *FakeAPI) Videos() []models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Video(nil), f.videos...)
}

// Fail makes every request to "METHOD /path" answer with status and message until cleared with status 0.
func (f *FakeAPI) Fail(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, route)
		return
	}
	f.failures[route] = fakeFailure{status: status, message: message}
}

// Hits reports how many requests reached "METHOD /path".
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// IssueSession creates a session for username and returns its cookie value.
func (f *FakeAPI) IssueSession(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.sessions[token] = username
	return token
}

func writeJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"data":       data,
		"message":    message,
		"success":    status < 400,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"message":    message,
		"success":    false,
	})
}

func (f *FakeAPI) currentUser(r *http.Request) (models.User, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return models.User{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.sessions[c.Value]
	if !ok {
		return models.User{}, false
	}
	return f.users[username], true
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	user, ok := f.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized request")
		return
	}
	writeJSON(w, http.StatusOK, user, "User fetched successfully")
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	f.mu.Lock()
	username := body.Username
	if body.Email != "" {
		for name, u := range f.users {
			if u.Email == body.Email {
				username = name
			}
		}
	}
	password, exists := f.passwords[username]
	f.mu.Unlock()

	if !exists || password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token := f.IssueSession(username)
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})

	f.mu.Lock()
	user := f.users[username]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "accessToken": token}, "User logged in successfully")
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	if _, _, err := r.FormFile("avatar"); err != nil {
		writeError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}

	username := strings.ToLower(r.FormValue("username"))
	for _, field := range []string{"fullName", "email", "username", "password"} {
		if strings.TrimSpace(r.FormValue(field)) == "" {
			writeError(w, http.StatusBadRequest, "All fields are required")
			return
		}
	}

	f.mu.Lock()
	_, taken := f.users[username]
	f.mu.Unlock()
	if taken {
		writeError(w, http.StatusConflict, "User with email or username already exists")
		return
	}

	user := f.AddUser(models.User{
		Username:  username,
		FullName:  r.FormValue("fullName"),
		Email:     r.FormValue("email"),
		Avatar:    "https://media.example.com/avatars/" + username + ".png",
		CreatedAt: time.Now().UTC(),
	}, r.FormValue("password"))
	writeJSON(w, http.StatusCreated, user, "User registered successfully")
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized request")
		return
	}
	f.mu.Lock()
	delete(f.sessions, c.Value)
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{}, "User logged out")
}

func (f *FakeAPI) listVideos(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page = max(page, 1)
	if limit <= 0 {
		limit = 10
	}
	query := strings.ToLower(r.URL.Query().Get("query"))

	var matched []models.Video
	for _, v := range f.Videos() {
		if query == "" || strings.Contains(strings.ToLower(v.Title), query) {
			matched = append(matched, v)
		}
	}

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	totalPages := max((len(matched)+limit-1)/limit, 1)
	docs := matched[start:end]
	if docs == nil {
		docs = []models.Video{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"docs":        docs,
		"totalDocs":   len(matched),
		"limit":       limit,
		"page":        page,
		"totalPages":  totalPages,
		"hasNextPage": page < totalPages,
		"hasPrevPage": page > 1,
	}, "Videos fetched successfully")
}

func (f *FakeAPI) getVideo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, v := range f.Videos() {
		if v.ID == id {
			writeJSON(w, http.StatusOK, v, "Video fetched successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Video not found")
}

func (f *FakeAPI) uploadVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := f.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized request")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		writeError(w, http.StatusBadRequest, "Title and description are required")
		return
	}

	var sizes [2]int64
	for i, field := range []string{"videoFile", "thumbnail"} {
		_, header, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
			return
		}
		sizes[i] = header.Size
	}

	video := f.AddVideo(models.Video{
		Title:       title,
		Description: description,
		VideoFile:   fmt.Sprintf("https://media.example.com/videos/%d.mp4", sizes[0]),
		Thumbnail:   fmt.Sprintf("https://media.example.com/thumbnails/%d.png", sizes[1]),
		IsPublished: true,
		Owner:       &models.Owner{ID: user.ID, Username: user.Username, FullName: user.FullName},
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, video, "Video uploaded successfully")
}
