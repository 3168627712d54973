package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dgallion1/codetransmute/internal/codetree"
	"github.com/dgallion1/codetransmute/internal/config"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorkspace(t *testing.T, maxBytes int64) (*workspace.Workspace, *workspace.TreeCache) {
	t.Helper()
	ws, err := workspace.New(fstest.MapFS{
		"app.py":         {Data: []byte("def main():\n    run()\n")},
		"lib/util.js":    {Data: []byte("function util() {\n  return 1\n}\n")},
		"lib/huge.py":    {Data: make([]byte, 256)},
		"docs/readme.md": {Data: []byte("```python\nclass A:\n    pass\n```\n")},
	}, "mem", workspace.Config{MaxFileBytes: maxBytes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, err := workspace.NewTreeCache(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ws, cache
}

func TestWorker_CompletesWholeWorkspace(t *testing.T) {
	ws, cache := testWorkspace(t, 1024)
	job := NewJob("")
	NewWorker(ws, cache, discardLogger(), 2).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.FilesTotal != 4 || snap.Progress.FilesProcessed != 4 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.Progress.Kinds[codetree.KindFunction] != 2 || snap.Progress.Kinds[codetree.KindClass] != 1 {
		t.Errorf("unexpected kind totals %v", snap.Progress.Kinds)
	}
	if len(snap.Files) != 4 || snap.Files[0].Path != "app.py" || snap.Files[3].Path != "lib/util.js" {
		t.Errorf("expected files sorted by path, got %+v", snap.Files)
	}
}

func TestWorker_PartialOnOversizedFile(t *testing.T) {
	ws, cache := testWorkspace(t, 64)
	job := NewJob("lib")
	NewWorker(ws, cache, discardLogger(), 4).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Fatalf("expected partial, got %s", snap.Status)
	}
	if snap.Progress.FilesTotal != 2 || len(snap.Progress.Errors) != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Files) != 1 || snap.Files[0].Path != "lib/util.js" {
		t.Errorf("unexpected files %+v", snap.Files)
	}
}

func TestWorker_EmptyPrefixMatch(t *testing.T) {
	ws, cache := testWorkspace(t, 1024)
	job := NewJob("nowhere/")
	NewWorker(ws, cache, discardLogger(), 1).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Progress.FilesTotal != 0 {
		t.Errorf("expected empty completed job, got %+v", snap)
	}
}

func TestWorker_CancelledScanFails(t *testing.T) {
	ws, cache := testWorkspace(t, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := NewJob("")
	NewWorker(ws, cache, discardLogger(), 1).Process(ctx, job)
	if got := job.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected failed, got %s", got)
	}
}

func TestUnderPrefix(t *testing.T) {
	files := []string{"a.py", "lib/x.js", "lib2/y.js", "lib/sub/z.ts"}
	got := underPrefix(files, "/lib/")
	if len(got) != 2 || got[0] != "lib/x.js" || got[1] != "lib/sub/z.ts" {
		t.Errorf("unexpected filter result %v", got)
	}
	if len(underPrefix(files, "")) != 4 {
		t.Error("expected empty prefix to keep every file")
	}
}

func TestOrchestrator_SubmitAndQueueFull(t *testing.T) {
	ws, cache := testWorkspace(t, 1024)
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}

	// Not started: the single queue slot fills up.
	o := NewOrchestrator(cfg, ws, cache, discardLogger())
	if err := o.Submit(NewJob("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rejected := NewJob("")
	if err := o.Submit(rejected); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if rejected.Snapshot().Status != StatusFailed {
		t.Error("expected rejected job marked failed")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}

	o.Start(context.Background())
	deadline := time.After(5 * time.Second)
	for {
		queued := o.GetJob(rejected.ID)
		if queued == nil {
			t.Fatal("expected rejected job still registered")
		}
		if o.QueueDepth() == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for queue to drain")
		case <-time.After(10 * time.Millisecond):
		}
	}
	o.Stop()
}

func TestOrchestrator_ProcessesJob(t *testing.T) {
	ws, cache := testWorkspace(t, 1024)
	o := NewOrchestrator(config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}, ws, cache, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("")
	if err := o.Submit(job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for !o.GetJob(job.ID).Snapshot().Status.Done() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for job")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := job.Snapshot().Status; got != StatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}
}
