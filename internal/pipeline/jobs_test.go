package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/docsift/internal/collection"
)

func testInput() *collection.Input {
	return &collection.Input{
		Documents:   []collection.InputDocument{{Filename: "a.pdf"}, {Filename: "b.pdf"}},
		Persona:     collection.Persona{Role: "Chef"},
		JobToBeDone: collection.Job{Task: "Plan a menu"},
	}
}

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("/data/Collection_1", testInput(), []byte(`{}`))
	if job.ID == "" {
		t.Fatal("expected job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Progress.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", job.Progress.Documents)
	}

	same := NewJob("/data/Collection_1", testInput(), []byte(`{}`))
	if same.ID == job.ID {
		t.Error("expected distinct job IDs")
	}
	if same.InputHash != job.InputHash {
		t.Error("expected equal input hashes for same path and input")
	}
	other := NewJob("/data/Collection_2", testInput(), []byte(`{}`))
	if other.InputHash == job.InputHash {
		t.Error("expected input hash to depend on path")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("/c", testInput(), nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusHarvesting, "harvesting"},
		{StatusRanking, "ranking"},
		{StatusExtracting, "extracting"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("a.pdf unreadable")
	job.AddError("rank failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "a.pdf unreadable" {
		t.Errorf("expected first error %q, got %q", "a.pdf unreadable", snap.Progress.Errors[0])
	}
}

func TestJob_SetResult(t *testing.T) {
	job := &Job{ID: "res-test", UpdatedAt: time.Now()}
	if job.Result() != nil {
		t.Fatal("expected nil result before completion")
	}
	job.SetResult(&collection.Result{
		ExtractedSections:  make([]collection.ExtractedSection, 3),
		SubsectionAnalysis: nil,
	})
	snap := job.Snapshot()
	if snap.Progress.SectionsSelected != 3 {
		t.Errorf("expected 3 sections, got %d", snap.Progress.SectionsSelected)
	}
	if job.Result() == nil {
		t.Error("expected result after SetResult")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_FindActive(t *testing.T) {
	store := NewJobStore(time.Hour)
	failed := &Job{ID: "f", InputHash: "h", Status: StatusFailed, UpdatedAt: time.Now()}
	store.Put(failed)
	if store.FindActive("h") != nil {
		t.Fatal("failed jobs should not be reused")
	}
	running := &Job{ID: "r", InputHash: "h", Status: StatusRanking, UpdatedAt: time.Now()}
	store.Put(running)
	if got := store.FindActive("h"); got == nil || got.ID != "r" {
		t.Errorf("expected running job, got %+v", got)
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}
