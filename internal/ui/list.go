package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/vidstream/internal/formatter"
	"github.com/desertthunder/vidstream/internal/models"
)

var (
	_ list.Item = videoItem{}
)

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string {
	return fmt.Sprintf("%s [%s]", i.video.Title, formatter.FormatDuration(i.video.Duration))
}
func (i videoItem) Description() string { return formatter.Byline(i.video) }

func videoItems(videos []models.Video) []list.Item {
	items := make([]list.Item, len(videos))
	for i, v := range videos {
		items[i] = videoItem{video: v}
	}
	return items
}
