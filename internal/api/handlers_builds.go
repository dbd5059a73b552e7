package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docnum/internal/engine"
	"github.com/dgallion1/docnum/internal/parser"
	"github.com/dgallion1/docnum/internal/pipeline"
	"github.com/dgallion1/docnum/internal/xref"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

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
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	opts, err := s.buildOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := pipeline.NewBuild(filename, r.FormValue("title"), data, opts)
	if err := s.orchestrator.Submit(b); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"build_id": b.ID,
		"doc_id":   b.DocID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/builds/%s", b.ID),
	})
}

// buildOptions applies per-request overrides on top of the configured
// numbering options.
func (s *Server) buildOptions(r *http.Request) (engine.Options, error) {
	opts := s.orchestrator.EngineOptions()
	if v := r.FormValue("strategy"); v != "" {
		mode, err := xref.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.Strategy = mode
	}
	if v, ok := r.MultipartForm.Value["appendix_marker"]; ok && len(v) > 0 {
		opts.AppendixMarker = v[0]
	}
	if v := r.FormValue("observed_numbers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("observed_numbers: %w", err)
		}
		opts.ObservedNumbers = b
	}
	return opts, nil
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	b := s.build(w, r)
	if b == nil {
		return
	}
	writeJSON(w, b.Snapshot())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	b := s.orchestrator.LatestBuild(chi.URLParam(r, "docID"))
	if b == nil {
		jsonError(w, "no finished build for document", http.StatusNotFound)
		return
	}
	writeJSON(w, b.Snapshot())
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	b, res := s.finished(w, r)
	if res == nil {
		return
	}
	writeJSON(w, res.Manifest(b.DocID))
}

func (s *Server) handleRefs(w http.ResponseWriter, r *http.Request) {
	_, res := s.finished(w, r)
	if res == nil {
		return
	}
	writeJSON(w, map[string]any{
		"report":      res.Report(),
		"triples":     res.Triples(),
		"resolutions": res.Resolutions,
		"warnings":    res.Warnings,
	})
}

// build looks up the build named in the URL, answering 404 when it is gone.
func (s *Server) build(w http.ResponseWriter, r *http.Request) *pipeline.Build {
	b := s.orchestrator.GetBuild(chi.URLParam(r, "buildID"))
	if b == nil {
		jsonError(w, "build not found", http.StatusNotFound)
	}
	return b
}

// finished is build plus a 409 for builds that have no result yet.
func (s *Server) finished(w http.ResponseWriter, r *http.Request) (*pipeline.Build, *engine.Result) {
	b := s.build(w, r)
	if b == nil {
		return nil, nil
	}
	res := b.Result()
	if res == nil {
		snap := b.Snapshot()
		jsonError(w, fmt.Sprintf("build is %s", snap.Status), http.StatusConflict)
		return b, nil
	}
	return b, res
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
