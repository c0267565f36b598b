package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hfujimori/materialmaster/internal/material"
)

// handleListMaterials serves the search/sort/filter listing.
//
// Query parameters: search, category, sort (material_id, material_name,
// unit_price, manufacturer), order (asc/desc), page, per_page
// (25/50/100/200), include_inactive.
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := material.ListOptions{
		Search:          q.Get("search"),
		Category:        q.Get("category"),
		SortKey:         q.Get("sort"),
		Descending:      q.Get("order") == "desc",
		Page:            parseIntParam(q.Get("page"), 1),
		PerPage:         parseIntParam(q.Get("per_page"), material.DefaultPerPage),
		IncludeInactive: q.Get("include_inactive") == "true",
	}

	result, err := s.store.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list materials")
		return
	}
	writeJSON(w, result)
}

// handleMaterialDetail serves one record by business key.
func (s *Server) handleMaterialDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "materialID")

	m, err := s.store.Get(r.Context(), id)
	if errors.Is(err, material.ErrNotFound) {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load material")
		return
	}
	writeJSON(w, m)
}

// handleDashboard serves the dashboard counts.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, stats)
}

type bulkRequest struct {
	MaterialIDs []string `json:"material_ids"`
}

// handleBulkActivate flips is_active for a selected set of ids.
func (s *Server) handleBulkActivate(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.MaterialIDs) == 0 {
			writeError(w, http.StatusBadRequest, "material_ids is empty")
			return
		}

		n, err := s.store.SetActive(r.Context(), req.MaterialIDs, active)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update materials")
			return
		}
		writeJSON(w, map[string]int64{"affected": n})
	}
}

// handleActivateAll reactivates every record. This is the explicit
// administrative replacement for the blanket reactivation that imports
// used to perform implicitly.
func (s *Server) handleActivateAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ActivateAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to activate materials")
		return
	}
	writeJSON(w, map[string]int64{"affected": n})
}

// exportHeaders mirrors the column set of the organization's original
// spreadsheet so a download round-trips back through the importer.
var exportHeaders = []string{
	"原料ID", "原料名", "メーカー", "発注先", "適用", "単価", "発注量",
	"備考", "原料区分", "有効", "作成日時", "更新日時",
}

// handleExport streams all materials as UTF-8 CSV with a BOM so Excel
// opens it correctly.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="materials_export.csv"`)
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.Write(exportHeaders)

	page := 1
	for {
		result, err := s.store.List(r.Context(), material.ListOptions{
			IncludeInactive: true,
			Page:            page,
			PerPage:         200,
		})
		if err != nil {
			// Headers are already sent; stop the stream.
			break
		}

		for _, m := range result.Materials {
			active := "有効"
			if !m.IsActive {
				active = "無効"
			}
			cw.Write([]string{
				m.MaterialID,
				m.MaterialName,
				m.Manufacturer,
				m.Supplier,
				m.Application,
				m.UnitPrice.String(),
				m.OrderQuantity.String(),
				m.Remarks,
				m.MaterialCategory,
				active,
				m.CreatedAt.Format("2006-01-02 15:04:05"),
				m.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		if page >= result.TotalPages {
			break
		}
		page++
	}
	cw.Flush()
}

// parseIntParam parses a positive integer query value with a fallback.
func parseIntParam(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
