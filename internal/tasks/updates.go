package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase
	Step    int
	Total   int
	Message string
	Data    any // *PageExportResult for page updates
}

// Phase of a bulk export.
type Phase int

const (
	FetchFirstPage Phase = iota
	ExportPage
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchFirstPage:
		return "fetch_first_page"
	case ExportPage:
		return "export_page"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress sends an update without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchFirstPageUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchFirstPage, Step: 0, Total: 1, Message: "Fetching the first page..."}
}

func pageExportedUpdate(step, total int, res *PageExportResult) ProgressUpdate {
	msg := fmt.Sprintf("Page %d: %d video(s) → %s", res.Page, res.Videos, res.File)
	if res.Err != nil {
		msg = fmt.Sprintf("Page %d failed: %s", res.Page, res.Error)
	}
	return ProgressUpdate{Phase: ExportPage, Step: step, Total: total, Message: msg, Data: res}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteManifest, Step: 1, Total: 1, Message: fmt.Sprintf("Manifest written to %s", path)}
}
