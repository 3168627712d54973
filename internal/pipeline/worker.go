package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

// Worker processes a single analysis job.
type Worker struct {
	ws    *workspace.Workspace
	cache *workspace.TreeCache
	log   *slog.Logger

	maxConcurrent int
}

func NewWorker(ws *workspace.Workspace, cache *workspace.TreeCache, log *slog.Logger, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		ws:            ws,
		cache:         cache,
		log:           log,
		maxConcurrent: maxConcurrent,
	}
}

// Process scans the workspace and extracts every visible file under the
// job prefix.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "prefix", job.Prefix)

	// Phase 1: Scan
	job.SetStatus(StatusScanning, "scanning")
	all, err := w.ws.Files(ctx)
	if err != nil {
		log.Error("scan failed", "error", err)
		job.AddError(fmt.Sprintf("scan: %s", err))
		job.SetStatus(StatusFailed, "scanning")
		return
	}
	files := underPrefix(all, job.Prefix)
	job.SetFilesTotal(len(files))
	log.Info("scanned workspace", "files", len(files))

	if len(files) == 0 {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 2: Extract with bounded concurrency.
	job.SetStatus(StatusExtracting, "extracting")
	type fileResult struct {
		summary FileSummary
		err     error
	}
	results := make(chan fileResult, len(files))
	sem := make(chan struct{}, w.maxConcurrent)

	for _, path := range files {
		sem <- struct{}{}
		go func(path string) {
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results <- fileResult{summary: FileSummary{Path: path}, err: err}
				return
			}
			data, err := w.ws.ReadFile(path)
			if err != nil {
				results <- fileResult{summary: FileSummary{Path: path}, err: err}
				return
			}
			trees := w.cache.Trees(path, data)
			kinds := make(map[codetree.Kind]int)
			for _, t := range trees {
				for k, n := range codetree.Count(t.Root) {
					kinds[k] += n
				}
			}
			results <- fileResult{summary: FileSummary{Path: path, Sources: len(trees), Kinds: kinds}}
		}(path)
	}

	succeeded := 0
	for range files {
		r := <-results
		job.IncrFilesProcessed()
		if r.err != nil {
			log.Warn("file failed", "path", r.summary.Path, "error", r.err)
			job.AddError(fmt.Sprintf("%s: %s", r.summary.Path, r.err))
			continue
		}
		job.AddFile(r.summary)
		succeeded++
	}
	sortFiles(job)

	log.Info("analysis complete", "files", len(files), "succeeded", succeeded)
	switch {
	case succeeded == len(files):
		job.SetStatus(StatusCompleted, "done")
	case succeeded > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "extracting")
	}
}

// underPrefix keeps paths inside a directory prefix.
func underPrefix(files []string, prefix string) []string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || prefix == "." {
		return files
	}
	var out []string
	for _, f := range files {
		if f == prefix || strings.HasPrefix(f, prefix+"/") {
			out = append(out, f)
		}
	}
	return out
}

// sortFiles orders summaries by path; workers finish in any order.
func sortFiles(job *Job) {
	job.mu.Lock()
	defer job.mu.Unlock()
	sort.Slice(job.files, func(a, b int) bool { return job.files[a].Path < job.files[b].Path })
}
