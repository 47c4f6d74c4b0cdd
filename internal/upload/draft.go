// Package upload holds the local state of a video upload form: selected files with open previews, text fields,
// client-side validation and the submission lifecycle.
package upload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/vidstream/internal/fetch"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
)

// UploadFailed is shown when a failed upload carries no server message.
const UploadFailed = "Upload failed"

var (
	ErrSubmitting = errors.New("upload already in progress")
	ErrClosed     = errors.New("draft is closed")
)

// validationOrder is the order messages are reported in.
var validationOrder = []Field{FieldVideo, FieldThumbnail, FieldTitle, FieldDescription}

// ValidationError lists missing required fields with their messages.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range validationOrder {
		if msg, ok := e.Fields[f]; ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// Message returns the message for field, or "".
func (e *ValidationError) Message(field Field) string {
	return e.Fields[field]
}

func (e *ValidationError) Unwrap() error { return shared.ErrInvalidInput }

// Draft is an in-progress video upload. It is owned by one event loop and not safe for concurrent use.
type Draft struct {
	previewer   *Previewer
	previews    map[Field]*Preview
	title       string
	description string
	submission  *fetch.State[*models.Video]
	submitting  bool
	closed      bool
}

// NewDraft creates an empty draft drawing previews from p.
func NewDraft(p *Previewer) *Draft {
	return &Draft{previewer: p, previews: map[Field]*Preview{}}
}

// Select picks the file at path for field, releasing any previous selection first.
//
// If the new file cannot be previewed the field is left empty.
func (d *Draft) Select(field Field, path string) (*Preview, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if d.submitting {
		return nil, ErrSubmitting
	}
	if field != FieldVideo && field != FieldThumbnail {
		return nil, fmt.Errorf("%w: %s is not an upload file field", shared.ErrInvalidArgument, field)
	}

	d.Clear(field)

	preview, err := d.previewer.Acquire(field, path)
	if err != nil {
		return nil, err
	}
	d.previews[field] = preview
	return preview, nil
}

// Clear releases the selection for field, if any.
func (d *Draft) Clear(field Field) {
	if old, ok := d.previews[field]; ok {
		old.Release()
		delete(d.previews, field)
	}
}

// Preview returns the current selection for field or nil.
func (d *Draft) Preview(field Field) *Preview {
	return d.previews[field]
}

func (d *Draft) SetTitle(title string)             { d.title = title }
func (d *Draft) SetDescription(description string) { d.description = description }
func (d *Draft) Title() string                     { return d.title }
func (d *Draft) Description() string               { return d.description }

// Submitting reports whether a submission is in flight.
func (d *Draft) Submitting() bool {
	return d.submitting
}

// Submission returns the state of the latest submission and whether there has been one.
func (d *Draft) Submission() (fetch.State[*models.Video], bool) {
	if d.submission == nil {
		return fetch.Pending[*models.Video](), false
	}
	return *d.submission, true
}

// Validate checks that every required field is present.
func (d *Draft) Validate() error {
	missing := map[Field]string{}
	for _, f := range []Field{FieldVideo, FieldThumbnail} {
		if d.previews[f] == nil {
			missing[f] = f.Label() + " is required"
		}
	}
	if strings.TrimSpace(d.title) == "" {
		missing[FieldTitle] = FieldTitle.Label() + " is required"
	}
	if strings.TrimSpace(d.description) == "" {
		missing[FieldDescription] = FieldDescription.Label() + " is required"
	}

	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// BeginSubmit validates the draft and marks it submitting. The returned request streams the selected files.
//
// Nothing is marked when validation fails, so no request should be sent.
func (d *Draft) BeginSubmit() (services.UploadRequest, error) {
	if d.closed {
		return services.UploadRequest{}, ErrClosed
	}
	if d.submitting {
		return services.UploadRequest{}, ErrSubmitting
	}
	if err := d.Validate(); err != nil {
		return services.UploadRequest{}, err
	}

	video, err := d.previews[FieldVideo].Part()
	if err != nil {
		return services.UploadRequest{}, err
	}
	thumbnail, err := d.previews[FieldThumbnail].Part()
	if err != nil {
		return services.UploadRequest{}, err
	}

	pending := fetch.Pending[*models.Video]()
	d.submission = &pending
	d.submitting = true

	return services.UploadRequest{
		Title:       strings.TrimSpace(d.title),
		Description: strings.TrimSpace(d.description),
		VideoFile:   video,
		Thumbnail:   thumbnail,
	}, nil
}

// Finish records the result of a submission. Fields are kept on failure so the user can retry.
func (d *Draft) Finish(video *models.Video, err error) fetch.State[*models.Video] {
	d.submitting = false

	var state fetch.State[*models.Video]
	if err != nil {
		state = fetch.Failed[*models.Video](services.MessageOf(err, UploadFailed))
	} else {
		state = fetch.Succeeded(video)
	}
	d.submission = &state
	return state
}

// Close releases every preview. It is safe to call more than once.
func (d *Draft) Close() {
	for field := range d.previews {
		d.Clear(field)
	}
	d.closed = true
}
