package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxPreviews bounds open preview handles when no limit is configured.
const DefaultMaxPreviews = 4

var (
	ErrPreviewBudget    = errors.New("too many open previews")
	ErrUnsupportedMedia = fmt.Errorf("%w: unsupported media type", shared.ErrInvalidInput)
	ErrPreviewReleased  = errors.New("preview already released")
)

// Field names a file input. Values are the multipart field names the API expects.
type Field string

const (
	FieldVideo       Field = "videoFile"
	FieldThumbnail   Field = "thumbnail"
	FieldAvatar      Field = "avatar"
	FieldCoverImage  Field = "coverImage"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
)

// Label is the human name of the field.
func (f Field) Label() string {
	switch f {
	case FieldVideo:
		return "Video"
	case FieldThumbnail:
		return "Thumbnail"
	case FieldAvatar:
		return "Avatar"
	case FieldCoverImage:
		return "Cover image"
	case FieldTitle:
		return "Title"
	case FieldDescription:
		return "Description"
	}
	return string(f)
}

// Accepts reports whether a file of the given media type may be selected for the field.
func (f Field) Accepts(mediaType string) bool {
	switch f {
	case FieldVideo:
		return strings.HasPrefix(mediaType, "video/")
	case FieldThumbnail, FieldAvatar, FieldCoverImage:
		return strings.HasPrefix(mediaType, "image/")
	}
	return false
}

// Preview is an open, sniffed local file selected for a field.
//
// It holds an OS file handle until [Preview.Release] is called.
type Preview struct {
	ID    string
	Field Field
	Path  string
	Name  string
	Size  int64
	MIME  string

	file  *os.File
	owner *Previewer
	once  sync.Once
}

// Part rewinds the file and returns it as a multipart file part.
func (p *Preview) Part() (services.FilePart, error) {
	if p.file == nil {
		return services.FilePart{}, ErrPreviewReleased
	}
	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return services.FilePart{}, fmt.Errorf("failed to rewind %s: %w", p.Name, err)
	}
	return services.FilePart{Filename: p.Name, ContentType: p.MIME, Reader: p.file}, nil
}

// Released reports whether the handle has been given back.
func (p *Preview) Released() bool {
	return p.file == nil
}

// Release closes the file and returns its slot to the [Previewer]. It is safe to call more than once.
func (p *Preview) Release() {
	p.once.Do(func() {
		if p.file != nil {
			p.file.Close()
			p.file = nil
		}
		if p.owner != nil {
			p.owner.forget(p.ID)
		}
	})
}

// Previewer hands out [Preview] handles against a fixed budget.
type Previewer struct {
	mu     sync.Mutex
	max    int
	active map[string]*Preview
	logger *log.Logger
}

// NewPreviewer creates a [Previewer] allowing at most max open previews.
func NewPreviewer(max int, logger *log.Logger) *Previewer {
	if max <= 0 {
		max = DefaultMaxPreviews
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Previewer{max: max, active: map[string]*Preview{}, logger: logger}
}

// Acquire opens path for field, sniffs its media type and checks the field accepts it.
func (p *Previewer) Acquire(field Field, path string) (*Preview, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: %s path", shared.ErrMissingArgument, field.Label())
	}

	p.mu.Lock()
	if len(p.active) >= p.max {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: limit is %d", ErrPreviewBudget, p.max)
	}
	// Reserve the slot before touching the filesystem.
	id := shared.GenerateID()
	p.active[id] = nil
	p.mu.Unlock()

	preview, err := open(field, path)
	if err != nil {
		p.forget(id)
		return nil, err
	}
	preview.ID = id
	preview.owner = p

	p.mu.Lock()
	p.active[id] = preview
	p.mu.Unlock()

	p.logger.Debug("preview acquired", "field", field, "name", preview.Name, "mime", preview.MIME, "size", preview.Size)
	return preview, nil
}

func open(field Field, path string) (*Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}
	if !field.Accepts(mtype.String()) {
		f.Close()
		return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedMedia, mtype.String(), field.Label())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}

	return &Preview{
		Field: field,
		Path:  path,
		Name:  filepath.Base(path),
		Size:  info.Size(),
		MIME:  mtype.String(),
		file:  f,
	}, nil
}

func (p *Previewer) forget(id string) {
	p.mu.Lock()
	delete(p.active, id)
	p.mu.Unlock()
}

// Active reports the number of outstanding previews.
func (p *Previewer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
