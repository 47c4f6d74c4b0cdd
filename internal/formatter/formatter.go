// package formatter renders catalog data for terminals and exports it to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// Format is an export format.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name case-insensitively; "markdown" and "text" are aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain", "text", "txt":
		return FormatPlain, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: format %q (want plain, csv, md or json)", shared.ErrInvalidFlag, name)
}

// Extension is the file extension for the format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0:00"
	}

	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDate renders a timestamp as "Jan 2, 2006", or "" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006")
}

// FormatCount abbreviates large counts: 999, 1.2K, 3.4M, 1.1B.
func FormatCount(n int64) string {
	abs := math.Abs(float64(n))
	switch {
	case abs >= 1e9:
		return trimZero(float64(n)/1e9) + "B"
	case abs >= 1e6:
		return trimZero(float64(n)/1e6) + "M"
	case abs >= 1e3:
		return trimZero(float64(n)/1e3) + "K"
	}
	return strconv.FormatInt(n, 10)
}

func trimZero(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(math.Floor(v*10)/10, 'f', 1, 64), ".0")
}

// FormatViews renders a view count with the right noun.
func FormatViews(n int64) string {
	if n == 1 {
		return "1 view"
	}
	return FormatCount(n) + " views"
}

// Byline is "owner · views · date" with empty parts left out.
func Byline(v models.Video) string {
	parts := []string{}
	if owner := ownerName(v); owner != "" {
		parts = append(parts, owner)
	}
	parts = append(parts, FormatViews(v.Views))
	if date := FormatDate(v.CreatedAt); date != "" {
		parts = append(parts, date)
	}
	return strings.Join(parts, " · ")
}

func ownerName(v models.Video) string {
	owner := v.Uploader()
	if owner.FullName != "" {
		return owner.FullName
	}
	return owner.Username
}

// ExportToCSV converts a page of videos to CSV with columns: ID, Title, Owner, Duration, Views, Created, Video URL
func ExportToCSV(page *models.VideoPage) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Owner", "Duration", "Views", "Created", "Video URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range page.Videos {
		created := ""
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			v.ID,
			v.Title,
			v.Uploader().Username,
			FormatDuration(v.Duration),
			strconv.FormatInt(v.Views, 10),
			created,
			v.VideoFile,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a page of videos to a Markdown table
func ExportToMarkdown(page *models.VideoPage) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Videos\n\n")
	buf.WriteString(fmt.Sprintf("**Page**: %s\n\n", pageLabel(page)))

	if page.Empty() {
		buf.WriteString("No videos found\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Title | Owner | Duration | Views |\n")
	buf.WriteString("|---|-------|-------|----------|-------|\n")
	for i, v := range page.Videos {
		title := escapeMarkdownCell(v.Title)
		if v.Thumbnail != "" {
			title = fmt.Sprintf("[%s](%s)", title, v.Thumbnail)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, title, escapeMarkdownCell(ownerName(v)), FormatDuration(v.Duration), FormatCount(v.Views)))
	}

	return buf.Bytes(), nil
}

func escapeMarkdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportToText converts a page of videos to plain text format
func ExportToText(page *models.VideoPage) ([]byte, error) {
	var buf bytes.Buffer

	if page.Empty() {
		buf.WriteString("No videos found\n")
		return buf.Bytes(), nil
	}

	for i, v := range page.Videos {
		buf.WriteString(fmt.Sprintf("%d. %s [%s] (%s)\n", i+1, v.Title, FormatDuration(v.Duration), v.ID))
		buf.WriteString(fmt.Sprintf("   %s\n", Byline(v)))
	}
	buf.WriteString(fmt.Sprintf("\nPage %s\n", pageLabel(page)))

	return buf.Bytes(), nil
}

// ExportToJSON converts a page of videos to indented JSON, paging fields included
func ExportToJSON(page *models.VideoPage) ([]byte, error) {
	payload := struct {
		Videos     []models.Video `json:"videos"`
		Page       int            `json:"page"`
		Limit      int            `json:"limit,omitempty"`
		TotalDocs  int            `json:"totalDocs"`
		TotalPages int            `json:"totalPages"`
	}{
		Videos:     page.Videos,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalDocs:  page.TotalDocs,
		TotalPages: page.TotalPages,
	}
	if payload.Videos == nil {
		payload.Videos = []models.Video{}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders page in the given format.
func Export(page *models.VideoPage, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(page)
	case FormatMarkdown:
		return ExportToMarkdown(page)
	case FormatJSON:
		return ExportToJSON(page)
	case FormatPlain, "":
		return ExportToText(page)
	}
	return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, format)
}

// WriteExport renders page and writes it to path, creating parent directories. An empty path selects
// videos-page-N with the format's extension.
func WriteExport(page *models.VideoPage, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("videos-page-%d%s", max(page.Page, 1), format.Extension())
	}

	data, err := Export(page, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	return path, nil
}

func pageLabel(page *models.VideoPage) string {
	current := max(page.Page, 1)
	total := max(page.TotalPages, current)
	return fmt.Sprintf("%d of %d (%d videos)", current, total, page.TotalDocs)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes with their sniffed media type.
//
// Responses that are not images are rejected.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mtype := mimetype.Detect(imageData)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, "", fmt.Errorf("%w: %s is not an image", shared.ErrMalformedResponse, mtype.String())
	}

	return imageData, mtype.String(), nil
}
