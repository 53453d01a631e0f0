package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docsift/internal/collection"
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
)

type dirSource struct{}

func (dirSource) Pages(path string) ([]doctree.Page, int, error) {
	if filepath.Base(path) != "a.pdf" {
		return nil, 0, errors.New("missing")
	}
	return []doctree.Page{{Number: 1, Text: "MENU IDEAS\nVegetarian lasagna and salads."}}, 1, nil
}

func waitFor(t *testing.T, job *Job, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.CurrentStatus() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected status %q, got %q", want, job.CurrentStatus())
}

func TestOrchestrator_RunsJob(t *testing.T) {
	dir := t.TempDir()
	runner := &collection.Runner{Source: dirSource{}, Embedder: embed.NewHash(32), TopK: 5}
	o := NewOrchestrator(Options{WorkerCount: 1, MaxQueueSize: 2, WriteOutput: true}, runner, nil)
	o.Start(context.Background())
	defer o.Stop()

	job, dup, err := o.Submit(NewJob(dir, testInput(), []byte("x")))
	if err != nil || dup {
		t.Fatalf("Submit: dup=%v err=%v", dup, err)
	}
	waitFor(t, job, StatusCompleted)

	res := job.Result()
	if res == nil {
		t.Fatal("expected result")
	}
	if len(res.ExtractedSections) != 1 {
		t.Errorf("expected 1 section, got %d", len(res.ExtractedSections))
	}
	if _, err := os.Stat(filepath.Join(dir, collection.OutputFile)); err != nil {
		t.Errorf("expected output file: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Error("expected job to be retrievable by ID")
	}

	again, dup, err := o.Submit(NewJob(dir, testInput(), []byte("x")))
	if err != nil || !dup || again.ID != job.ID {
		t.Errorf("expected duplicate of %s, got %s dup=%v err=%v", job.ID, again.ID, dup, err)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	runner := &collection.Runner{Source: dirSource{}, Embedder: embed.NewHash(8)}
	// Not started, so nothing drains the queue.
	o := NewOrchestrator(Options{WorkerCount: 1, MaxQueueSize: 1}, runner, nil)

	if _, _, err := o.Submit(NewJob("/a", testInput(), []byte("1"))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job, _, err := o.Submit(NewJob("/b", testInput(), []byte("2")))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if job.CurrentStatus() != StatusFailed {
		t.Errorf("expected failed status, got %q", job.CurrentStatus())
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
