package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vidstream/internal/formatter"
	"github.com/desertthunder/vidstream/internal/services"
	"github.com/desertthunder/vidstream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// VideosExport writes every page of the catalog to a directory, printing progress as pages complete.
func (r *Runner) VideosExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:    format,
		OutputDir: cmd.String("output-dir"),
		List: services.ListOptions{
			Limit:    int(cmd.Int("limit")),
			Query:    cmd.String("query"),
			SortBy:   cmd.String("sort-by"),
			SortType: cmd.String("sort-type"),
			UserID:   cmd.String("user"),
		},
		MaxPages:   int(cmd.Int("max-pages")),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate-limit"),
	}

	prog := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Debug("export progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if update.Phase == tasks.ExportPage {
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := tasks.BulkExport(ctx, r.client, prog, opts)
	close(prog)
	<-done
	if err != nil && result == nil {
		return err
	}

	r.writePlainHeader("Export Summary")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Pages:     %d exported, %d failed of %d\n", result.SuccessfulPages, result.FailedPages, result.TotalPages)
	r.writePlain("Videos:    %d\n", result.TotalVideos)
	if result.ManifestPath != "" {
		r.writePlain("Manifest:  %s\n", result.ManifestPath)
	}
	if err != nil {
		return err
	}
	if result.FailedPages > 0 {
		return fmt.Errorf("%d page(s) failed to export", result.FailedPages)
	}
	return nil
}
