package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/vidstream/internal/formatter"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/session"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/desertthunder/vidstream/internal/upload"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/urfave/cli/v3"
)

// VideosList fetches one catalog page and renders it in the requested format.
func (r *Runner) VideosList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Int("page") < 1 {
		return fmt.Errorf("%w: --page must be at least 1", shared.ErrInvalidFlag)
	}
	if err := r.connect(); err != nil {
		return err
	}

	opts := services.ListOptions{
		Page:     int(cmd.Int("page")),
		Limit:    int(cmd.Int("limit")),
		Query:    cmd.String("query"),
		SortBy:   cmd.String("sort-by"),
		SortType: cmd.String("sort-type"),
		UserID:   cmd.String("user"),
	}
	r.logger.Debug("listing videos", "page", opts.Page, "limit", opts.Limit, "query", opts.Query)

	page, err := r.client.ListVideos(ctx, opts)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(page, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("export written", "path", written, "videos", len(page.Videos))
		return r.writePlain("✓ Wrote %d video(s) to %s\n", len(page.Videos), written)
	}

	data, err := formatter.Export(page, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// VideosGet shows a single video.
func (r *Runner) VideosGet(ctx context.Context, cmd *cli.Command) error {
	video, err := r.video(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, true)
	}

	r.writePlainHeader(video.Title)
	r.writePlain("%s\n\n", formatter.Byline(*video))
	r.writePlain("ID:        %s\n", video.ID)
	r.writePlain("Duration:  %s\n", formatter.FormatDuration(video.Duration))
	r.writePlain("Likes:     %s\n", formatter.FormatCount(video.Likes))
	if video.VideoFile != "" {
		r.writePlain("Video:     %s\n", video.VideoFile)
	}
	if video.Thumbnail != "" {
		r.writePlain("Thumbnail: %s\n", video.Thumbnail)
	}
	if desc := strings.TrimSpace(video.Description); desc != "" {
		r.writePlainln("%s", desc)
	}
	return nil
}

// VideosOpen opens the video file, or its thumbnail, in the default browser.
func (r *Runner) VideosOpen(ctx context.Context, cmd *cli.Command) error {
	video, err := r.video(ctx, cmd)
	if err != nil {
		return err
	}

	target := video.VideoFile
	if cmd.Bool("thumbnail") {
		target = video.Thumbnail
	}
	if target == "" {
		return fmt.Errorf("%w: video %s has nothing to open", shared.ErrMalformedResponse, video.ID)
	}

	r.logger.Debug("opening browser", "url", target)
	if err := r.openURL(target); err != nil {
		return err
	}
	return r.writePlain("Opened %s\n", target)
}

// VideosThumbnail downloads a video's thumbnail and names the file after its sniffed type.
func (r *Runner) VideosThumbnail(ctx context.Context, cmd *cli.Command) error {
	video, err := r.video(ctx, cmd)
	if err != nil {
		return err
	}

	data, mime, err := formatter.DownloadImage(ctx, r.httpClient, video.Thumbnail)
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		ext := ".img"
		if m := mimetype.Lookup(mime); m != nil {
			ext = m.Extension()
		}
		path = video.ID + ext
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	r.logger.Info("thumbnail saved", "path", path, "mime", mime)
	return r.writePlain("✓ Saved %s (%s, %s)\n", path, mime, humanize.Bytes(uint64(len(data))))
}

// VideosUpload uploads a video for the signed-in user. Both files are sniffed before the request starts.
func (r *Runner) VideosUpload(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	user, err := session.Require(ctx, r.session)
	if err != nil {
		return err
	}

	draft := upload.NewDraft(r.previewer)
	defer draft.Close()

	draft.SetTitle(cmd.String("title"))
	draft.SetDescription(cmd.String("description"))
	for field, path := range map[upload.Field]string{
		upload.FieldVideo:     cmd.String("video"),
		upload.FieldThumbnail: cmd.String("thumbnail"),
	} {
		preview, err := draft.Select(field, path)
		if err != nil {
			return err
		}
		r.logger.Debug("file selected", "field", field, "mime", preview.MIME, "size", preview.Size)
	}

	req, err := draft.BeginSubmit()
	if err != nil {
		return err
	}

	r.logger.Info("uploading video", "title", req.Title, "user", user.Username)
	video, err := r.client.UploadVideo(ctx, req)
	state := draft.Finish(video, err)
	if state.Failed() {
		return fmt.Errorf("%w: %s", err, state.Message())
	}

	title := video.Title
	if title == "" {
		title = req.Title
	}
	r.writePlain("✓ Uploaded %q\n", title)
	if video.ID == "" {
		return nil
	}
	return r.writePlain("ID: %s\n", video.ID)
}

func (r *Runner) video(ctx context.Context, cmd *cli.Command) (*models.Video, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return nil, fmt.Errorf("%w: video ID", shared.ErrMissingArgument)
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r.client.GetVideo(ctx, id)
}
