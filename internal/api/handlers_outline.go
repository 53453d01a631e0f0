package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsift/internal/classifier"
	"github.com/dgallion1/docsift/internal/parser"
)

// handleOutline extracts the outline of an uploaded PDF synchronously.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsPDF(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}
	if header.Size > s.opts.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.opts.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	path, err := parser.SpoolTemp(file, "docsift-*.pdf")
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	defer os.Remove(path)

	res, err := s.outliner.Extract(r.Context(), path)
	if err != nil {
		s.log.Error("outline failed", "filename", filename, "error", err)
		code := http.StatusUnprocessableEntity
		if errors.Is(err, classifier.ErrArtifactLoad) {
			code = http.StatusInternalServerError
		}
		jsonError(w, "outline extraction failed: "+err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
