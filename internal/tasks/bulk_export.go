package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/vidstream/internal/formatter"
	"github.com/desertthunder/vidstream/internal/models"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestName is the file written next to the exported pages.
const ManifestName = "export_manifest.json"

// Lister fetches catalog pages. [services.Client] satisfies it.
type Lister interface {
	ListVideos(ctx context.Context, opts services.ListOptions) (*models.VideoPage, error)
}

// BulkExportOpts contains configuration for a bulk catalog export.
type BulkExportOpts struct {
	Format     formatter.Format
	OutputDir  string               // default: videos_export_{epoch}
	List       services.ListOptions // filters and page size; Page is ignored
	MaxPages   int                  // 0 exports every page
	NumWorkers int                  // default 4, at most 10
	RateLimit  float64              // requests per second across workers, default 5
}

// PageExportResult is the outcome for one catalog page.
type PageExportResult struct {
	Page   int    `json:"page"`
	Videos int    `json:"videos"`
	File   string `json:"file,omitempty"`
	Error  string `json:"error,omitempty"`
	Err    error  `json:"-"`
}

// BulkExportResult summarizes a bulk export. Results are ordered by page.
type BulkExportResult struct {
	Format          formatter.Format   `json:"format"`
	OutputDirectory string             `json:"output_directory"`
	ManifestPath    string             `json:"-"`
	TotalPages      int                `json:"total_pages"`
	TotalVideos     int                `json:"total_videos"`
	SuccessfulPages int                `json:"successful_pages"`
	FailedPages     int                `json:"failed_pages"`
	Results         []PageExportResult `json:"results"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
}

// BulkExport writes every page of the catalog matching opts.List to opts.OutputDir.
//
// The returned result is non-nil whenever the first page was fetched, even if the run was later cancelled.
func BulkExport(ctx context.Context, lister Lister, prog chan<- ProgressUpdate, opts BulkExportOpts) (*BulkExportResult, error) {
	if lister == nil {
		return nil, fmt.Errorf("%w: video lister not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("videos_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{Format: opts.Format, OutputDirectory: opts.OutputDir, StartedAt: time.Now().UTC()}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	sendProgress(prog, fetchFirstPageUpdate())
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	first, err := lister.ListVideos(ctx, pageOptions(opts.List, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page 1: %w", err)
	}

	total := pageCount(first)
	if opts.MaxPages > 0 && total > opts.MaxPages {
		total = opts.MaxPages
	}
	result.TotalPages = total

	firstRes := writePage(1, first, opts)
	sendProgress(prog, pageExportedUpdate(1, total, &firstRes))

	jobs := make(chan int, total)
	results := make(chan PageExportResult, total)
	results <- firstRes

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, lister, limiter, jobs, results, opts)
	}

	for page := 2; page <= total; page++ {
		jobs <- page
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Err != nil {
			result.FailedPages++
		} else {
			result.SuccessfulPages++
			result.TotalVideos += res.Videos
		}
		if res.Page != 1 {
			sendProgress(prog, pageExportedUpdate(completed, total, &res))
		}
	}
	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].Page < result.Results[j].Page })
	result.FinishedAt = time.Now().UTC()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker fetches and writes pages from jobs until the channel closes or ctx is done.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	lister Lister,
	limiter *rate.Limiter,
	jobs <-chan int,
	results chan<- PageExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for page := range jobs {
		if ctx.Err() != nil {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		videos, err := lister.ListVideos(ctx, pageOptions(opts.List, page))
		if err != nil {
			results <- failedPage(page, fmt.Errorf("failed to fetch page: %w", err))
			continue
		}
		results <- writePage(page, videos, opts)
	}
}

func writePage(n int, page *models.VideoPage, opts BulkExportOpts) PageExportResult {
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("page-%03d%s", n, opts.Format.Extension()))
	written, err := formatter.WriteExport(page, opts.Format, path)
	if err != nil {
		return failedPage(n, err)
	}
	return PageExportResult{Page: n, Videos: len(page.Videos), File: written}
}

func failedPage(n int, err error) PageExportResult {
	return PageExportResult{Page: n, Error: services.MessageOf(err, err.Error()), Err: err}
}

func pageOptions(base services.ListOptions, page int) services.ListOptions {
	base.Page = page
	return base
}

// pageCount reads the total from a paginated response. A bare array, or a response without totals, is one page.
func pageCount(first *models.VideoPage) int {
	if first == nil || first.TotalPages < 1 {
		return 1
	}
	return first.TotalPages
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
