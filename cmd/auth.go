package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/desertthunder/vidstream/internal/upload"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in. The session cookie the server sets is persisted by the jar.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	creds := services.Credentials{Identifier: cmd.String("user"), Secret: cmd.String("password")}
	r.logger.Info("logging in", "user", creds.Identifier)

	resp, err := r.session.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return r.writePlain("✓ Logged in as %s (@%s)\n", resp.User.DisplayName(), resp.User.Username)
}

// AuthRegister creates an account. Avatar and cover are sniffed before anything is sent.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	avatar, err := r.previewer.Acquire(upload.FieldAvatar, cmd.String("avatar"))
	if err != nil {
		return err
	}
	defer avatar.Release()

	avatarPart, err := avatar.Part()
	if err != nil {
		return err
	}

	req := services.RegisterRequest{
		FullName: cmd.String("full-name"),
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
		Avatar:   avatarPart,
	}

	if path := cmd.String("cover"); path != "" {
		cover, err := r.previewer.Acquire(upload.FieldCoverImage, path)
		if err != nil {
			return err
		}
		defer cover.Release()

		coverPart, err := cover.Part()
		if err != nil {
			return err
		}
		req.CoverImage = &coverPart
	}

	r.logger.Info("registering", "user", req.Username)
	user, err := r.session.Register(ctx, req)
	if err != nil {
		return err
	}

	username := req.Username
	if user != nil && user.Username != "" {
		username = user.Username
	}
	r.writePlain("✓ Account created for @%s\n", username)
	return r.writePlain("Log in with: vidstream auth login -u %s\n", username)
}

// AuthLogout ends the session on the server. Stored cookies are replaced by whatever the server sends back.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	if err := r.session.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus probes the stored session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.session.Initialize(ctx)
	snap, err := r.session.Wait(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": snap.Authenticated(),
			"user":          snap.User,
			"api":           r.client.BaseURL().String(),
		}, true)
	}

	r.writePlain("API: %s\n", r.client.BaseURL())
	if decision := session.Decide(snap); decision != session.DecisionRender {
		return r.writePlain("Authentication: ✗ Not logged in\n")
	}
	r.writePlain("Authentication: ✓ %s (@%s)\n", snap.User.DisplayName(), snap.User.Username)
	if snap.User.Email != "" {
		r.writePlain("Email: %s\n", snap.User.Email)
	}
	return nil
}

// AuthImport copies session cookies out of a cURL command taken from a logged-in browser tab.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var curlHeaders *shared.CurlHeaders
	var err error

	if curlFile != "" {
		curlHeaders, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		curlHeaders, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	cookies, err := curlHeaders.Cookies()
	if err != nil {
		return err
	}

	if err := r.connect(); err != nil {
		return err
	}
	if err := r.jar.Import(r.client.BaseURL(), cookies); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}
	r.logger.Debug("cookies imported", "count", len(cookies), "host", r.client.BaseURL().Host)

	r.writePlain("✓ Imported %d cookie(s) for %s\n", len(cookies), r.client.BaseURL().Host)
	user, err := session.Require(ctx, r.session)
	if err != nil {
		return r.writePlain("The imported cookies did not authenticate: %v\n", err)
	}
	return r.writePlain("Authenticated as %s (@%s)\n", user.DisplayName(), user.Username)
}

// AuthForget removes every stored cookie for the API host.
func (r *Runner) AuthForget(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	removed, err := r.jar.Forget(r.client.BaseURL())
	if err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}

	r.logger.Info("cookies deleted", "host", r.client.BaseURL().Host, "count", removed)
	return r.writePlain("✓ Removed %d stored cookie(s)\n", removed)
}
