package web

import (
	"io"
	"net/http"

	"github.com/hfujimori/materialmaster/internal/importer"
)

// handleImport triggers an import run.
//
// The overwrite mode comes from the "mode" form or query value
// (update/skip/replace, default update). When the request carries a
// multipart "file" part that upload is imported; otherwise the
// configured data directory is scanned for a master export.
//
// The pipeline never fails the request: all failure modes degrade to a
// report with success=false.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode, err := importer.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if file, header, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()

		raw, err := io.ReadAll(io.LimitReader(file, s.cfg.Import.MaxFileSize+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}
		if int64(len(raw)) > s.cfg.Import.MaxFileSize {
			writeError(w, http.StatusRequestEntityTooLarge, "uploaded file exceeds the size limit")
			return
		}

		writeJSON(w, s.importer.Import(r.Context(), header.Filename, raw, mode))
		return
	}

	writeJSON(w, s.importer.ImportDir(r.Context(), mode))
}

// handleAnalyze serves the read-only structure diagnosis of the file the
// next import would pick up. It never mutates storage.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.importer.AnalyzeDir())
}
