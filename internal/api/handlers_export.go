package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docnum/internal/export/docxout"
	"github.com/dgallion1/docnum/internal/export/htmlout"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	_, res := s.finished(w, r)
	if res == nil {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	bundles := res.Bundles()
	if err != nil || idx < 0 || idx >= len(bundles) {
		jsonError(w, "section not found", http.StatusNotFound)
		return
	}
	html, err := htmlout.RenderBundle(bundles[idx], res)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"section": bundles[idx].Section,
		"start":   bundles[idx].Start,
		"html":    html,
	})
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	_, res := s.finished(w, r)
	if res == nil {
		return
	}
	page, err := htmlout.New().Document(res)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *Server) handleExportDOCX(w http.ResponseWriter, r *http.Request) {
	b, res := s.finished(w, r)
	if res == nil {
		return
	}
	opts := docxout.Options{LiveFields: s.cfg.DOCXLiveFields}
	if v := r.URL.Query().Get("fields"); v != "" {
		live, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "fields must be a boolean", http.StatusBadRequest)
			return
		}
		opts.LiveFields = live
	}

	var buf bytes.Buffer
	if err := docxout.Write(&buf, res, opts); err != nil {
		s.log.Error("docx export failed", "build_id", b.ID, "error", err)
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := strings.TrimSuffix(b.Filename, filepath.Ext(b.Filename)) + ".docx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}
