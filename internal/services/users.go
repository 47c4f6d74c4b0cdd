package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/shared"
)

// Credentials identify a user at login. Identifier is a username or an email address.
type Credentials struct {
	Identifier string
	Secret     string
}

// LoginResponse is the full login envelope. Data holds the raw payload so callers can reach fields other than the user.
type LoginResponse struct {
	StatusCode int
	Message    string
	Success    bool
	User       *models.User
	Data       json.RawMessage
}

// RegisterRequest is the multipart registration payload. CoverImage is optional.
type RegisterRequest struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     FilePart
	CoverImage *FilePart
}

// CurrentUser probes the session carried by the cookie jar.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	env, err := c.send(ctx, http.MethodGet, "/users/me", nil, nil, "")
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := env.decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with the API. On success the server sets the session cookie in the client's jar.
//
// An identifier containing "@" is sent as email, anything else as username.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	payload := map[string]string{"password": creds.Secret}
	if strings.Contains(creds.Identifier, "@") {
		payload["email"] = creds.Identifier
	} else {
		payload["username"] = creds.Identifier
	}

	env, err := c.sendJSON(ctx, http.MethodPost, "/users/login", payload)
	if err != nil {
		return nil, err
	}

	user, err := decodeLoginUser(env.Data)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		StatusCode: env.StatusCode,
		Message:    env.Message,
		Success:    env.Success,
		User:       user,
		Data:       env.Data,
	}, nil
}

// decodeLoginUser accepts either {"user": {...}} or the user object itself.
func decodeLoginUser(data json.RawMessage) (*models.User, error) {
	var wrapped struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if wrapped.User != nil {
		return wrapped.User, nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		return nil, fmt.Errorf("%w: login response has no user", shared.ErrMalformedResponse)
	}
	return &user, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Avatar.Reader == nil {
		return nil, fmt.Errorf("%w: avatar", shared.ErrMissingArgument)
	}

	fields := []formField{
		{name: "fullName", value: req.FullName},
		{name: "email", value: req.Email},
		{name: "username", value: req.Username},
		{name: "password", value: req.Password},
		{name: "avatar", file: &req.Avatar},
	}
	if req.CoverImage != nil && req.CoverImage.Reader != nil {
		fields = append(fields, formField{name: "coverImage", file: req.CoverImage})
	}

	body, contentType := streamMultipart(fields)
	env, err := c.send(ctx, http.MethodPost, "/users/register", nil, body, contentType)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := env.decodeOptional(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session on the server, which clears the cookie.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.send(ctx, http.MethodPost, "/users/logout", nil, nil, "")
	return err
}
