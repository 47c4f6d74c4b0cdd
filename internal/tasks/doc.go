// Package tasks runs catalog operations that span many requests, reporting progress as they go.
//
// # Bulk export
//
// [BulkExport] fetches the first page to learn how many pages exist, then hands the remaining pages to a pool of
// workers sharing one rate limiter. Each page is written to its own file with [formatter.WriteExport] and a
// manifest summarizing every page, including failures, is written last.
//
// A failed page does not stop the others. Only a failure on the first page, or cancellation, aborts the run.
//
// # Progress Reporting
//
// Operations take an optional send-only channel of [ProgressUpdate]. Updates are sent with select and default,
// so a slow or absent reader never blocks an export.
package tasks
