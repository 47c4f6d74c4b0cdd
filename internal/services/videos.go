package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/shared"
)

// ListOptions filters and pages the catalog. Zero values are omitted from the query.
type ListOptions struct {
	Page     int
	Limit    int
	Query    string
	SortBy   string
	SortType string
	UserID   string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Query != "" {
		q.Set("query", o.Query)
	}
	if o.SortBy != "" {
		q.Set("sortBy", o.SortBy)
	}
	if o.SortType != "" {
		q.Set("sortType", o.SortType)
	}
	if o.UserID != "" {
		q.Set("userId", o.UserID)
	}
	return q
}

// UploadRequest is the multipart payload for a new video. All fields are required.
type UploadRequest struct {
	Title       string
	Description string
	VideoFile   FilePart
	Thumbnail   FilePart
}

// ListVideos fetches one page of the catalog.
func (c *Client) ListVideos(ctx context.Context, opts ListOptions) (*models.VideoPage, error) {
	env, err := c.send(ctx, http.MethodGet, "/videos", opts.values(), nil, "")
	if err != nil {
		return nil, err
	}

	page, err := decodeVideoPage(env.Data)
	if err != nil {
		return nil, err
	}
	if page.Page == 0 {
		page.Page = max(opts.Page, 1)
	}
	if page.Limit == 0 {
		page.Limit = opts.Limit
	}
	return page, nil
}

// decodeVideoPage accepts a bare array of videos or a paginated object carrying them under docs.
func decodeVideoPage(data json.RawMessage) (*models.VideoPage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &models.VideoPage{Videos: []models.Video{}, Page: 1, TotalPages: 1}, nil
	}

	if data[0] == '[' {
		var videos []models.Video
		if err := json.Unmarshal(data, &videos); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
		}
		return &models.VideoPage{Videos: videos, TotalDocs: len(videos), TotalPages: 1}, nil
	}

	var paged struct {
		Docs        []models.Video `json:"docs"`
		TotalDocs   int            `json:"totalDocs"`
		Limit       int            `json:"limit"`
		Page        int            `json:"page"`
		TotalPages  int            `json:"totalPages"`
		HasNextPage bool           `json:"hasNextPage"`
		HasPrevPage bool           `json:"hasPrevPage"`
	}
	if err := json.Unmarshal(data, &paged); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if paged.Docs == nil {
		paged.Docs = []models.Video{}
	}

	return &models.VideoPage{
		Videos:     paged.Docs,
		Page:       paged.Page,
		Limit:      paged.Limit,
		TotalDocs:  paged.TotalDocs,
		TotalPages: paged.TotalPages,
		HasNext:    paged.HasNextPage,
		HasPrev:    paged.HasPrevPage,
	}, nil
}

// GetVideo fetches a single video by ID.
func (c *Client) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: video id", shared.ErrMissingArgument)
	}

	env, err := c.send(ctx, http.MethodGet, "/videos/"+url.PathEscape(id), nil, nil, "")
	if err != nil {
		return nil, err
	}

	var video models.Video
	if err := env.decode(&video); err != nil {
		return nil, err
	}
	return &video, nil
}

// UploadVideo publishes a video. The request body is streamed from the part readers.
func (c *Client) UploadVideo(ctx context.Context, req UploadRequest) (*models.Video, error) {
	if req.VideoFile.Reader == nil {
		return nil, fmt.Errorf("%w: video file", shared.ErrMissingArgument)
	}
	if req.Thumbnail.Reader == nil {
		return nil, fmt.Errorf("%w: thumbnail", shared.ErrMissingArgument)
	}

	body, contentType := streamMultipart([]formField{
		{name: "title", value: req.Title},
		{name: "description", value: req.Description},
		{name: "videoFile", file: &req.VideoFile},
		{name: "thumbnail", file: &req.Thumbnail},
	})

	env, err := c.send(ctx, http.MethodPost, "/videos", nil, body, contentType)
	if err != nil {
		return nil, err
	}

	var video models.Video
	if err := env.decodeOptional(&video); err != nil {
		return nil, err
	}
	return &video, nil
}
