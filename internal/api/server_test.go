package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docsift/internal/collection"
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/pipeline"
)

type fakeOutliner struct {
	res outline.Result
	err error
}

func (f fakeOutliner) Extract(ctx context.Context, path string) (outline.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return outline.Result{}, err
	}
	return f.res, f.err
}

type fakePages struct{}

func (fakePages) Pages(path string) ([]doctree.Page, int, error) {
	if filepath.Base(path) != "guide.pdf" {
		return nil, 0, errors.New("missing")
	}
	return []doctree.Page{{Number: 1, Text: "GETTING STARTED\nInstall the tools first."}}, 1, nil
}

func newTestServer(t *testing.T, opts Options, out Outliner) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	runner := &collection.Runner{Source: fakePages{}, Embedder: embed.NewHash(32)}
	orch := pipeline.NewOrchestrator(pipeline.Options{WorkerCount: 1, MaxQueueSize: 4}, runner, nil)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, out, embed.NewStats(time.Hour), discardLogger(), opts), orch
}

func uploadRequest(t *testing.T, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(body)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/outline", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{APIKey: "secret"}, fakeOutliner{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t, Options{APIKey: "secret"}, fakeOutliner{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/embeddings", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats/embeddings", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}

func TestOutline(t *testing.T) {
	want := outline.Result{
		Title:   "Overview",
		Outline: []outline.Entry{{Level: "H1", Text: "Introduction", Page: 1}},
	}
	s, _ := newTestServer(t, Options{}, fakeOutliner{res: want})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "report.pdf", []byte("%PDF-1.4")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var got outline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "Overview" || len(got.Outline) != 1 || got.Outline[0].Text != "Introduction" {
		t.Errorf("unexpected outline: %+v", got)
	}
}

func TestOutline_RejectsNonPDF(t *testing.T) {
	s, _ := newTestServer(t, Options{}, fakeOutliner{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("hello")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestOutline_ExtractError(t *testing.T) {
	s, _ := newTestServer(t, Options{}, fakeOutliner{err: errors.New("bad pdf")})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, uploadRequest(t, "report.pdf", []byte("junk")))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func writeCollection(t *testing.T, dir string) {
	t.Helper()
	input := `{"documents":[{"filename":"guide.pdf"}],"persona":{"role":"Developer"},"job_to_be_done":{"task":"Set up tools"}}`
	if err := os.WriteFile(filepath.Join(dir, collection.InputFile), []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectionLifecycle(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Collection_1")
	os.MkdirAll(dir, 0o755)
	writeCollection(t, dir)
	s, _ := newTestServer(t, Options{CollectionRoot: root}, fakeOutliner{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collections", strings.NewReader(`{"path":"Collection_1"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var sub struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(rec.Body.Bytes(), &sub)
	if sub.JobID == "" {
		t.Fatal("expected job_id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collections/"+sub.JobID+"/status", nil))
		var snap pipeline.JobSnapshot
		json.Unmarshal(rec.Body.Bytes(), &snap)
		if snap.Status == pipeline.StatusCompleted {
			break
		}
		if snap.Status == pipeline.StatusFailed || time.Now().After(deadline) {
			t.Fatalf("job did not complete: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collections/"+sub.JobID+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res collection.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Metadata.Persona != "Developer" {
		t.Errorf("expected persona Developer, got %q", res.Metadata.Persona)
	}
	if len(res.ExtractedSections) != 1 || res.ExtractedSections[0].SectionTitle != "GETTING STARTED" {
		t.Errorf("unexpected sections: %+v", res.ExtractedSections)
	}
}

func TestSubmitCollection_Errors(t *testing.T) {
	root := t.TempDir()
	s, _ := newTestServer(t, Options{CollectionRoot: root}, fakeOutliner{})

	escaping := filepath.Join(root, "Collection_escape")
	if err := os.MkdirAll(escaping, 0o755); err != nil {
		t.Fatal(err)
	}
	input := `{"documents":[{"filename":"../../outside.pdf"}],"persona":{"role":"r"},"job_to_be_done":{"task":"t"}}`
	if err := os.WriteFile(filepath.Join(escaping, collection.InputFile), []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty path", `{"path":""}`, http.StatusBadRequest},
		{"escape root", `{"path":"../elsewhere"}`, http.StatusBadRequest},
		{"no input file", `{"path":"missing"}`, http.StatusBadRequest},
		{"document escapes collection", `{"path":"Collection_escape"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/collections", strings.NewReader(tt.body)))
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
		})
	}
}

func TestCollectionUnknownJob(t *testing.T) {
	s, _ := newTestServer(t, Options{}, fakeOutliner{})
	for _, p := range []string{"/api/collections/nope/status", "/api/collections/nope/result"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", p, rec.Code)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"a..b.pdf":         "a_b.pdf",
		"":                 "unnamed",
		"report.pdf":       "report.pdf",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
