// Package importer implements the CSV ingestion pipeline for the
// materials master: encoding and delimiter probing, fuzzy column
// mapping, per-row value normalization, and idempotent reconciliation
// against the keyed record store.
//
// The pipeline is built for semi-structured, inconsistently encoded
// spreadsheet exports from non-technical users: it degrades per field
// and per row instead of failing the whole batch on a handful of bad
// cells.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hfujimori/materialmaster/internal/logging"
	"github.com/hfujimori/materialmaster/internal/material"
)

// debugSampleRows is how many leading rows are retained in the report.
const debugSampleRows = 5

// preferredFileNames are tried in order before falling back to a
// directory scan. The first name is the export the source organization
// actually produces.
var preferredFileNames = []string{
	"原料マスタ詳細.csv",
	"genryou_master.csv",
	"material_master.csv",
}

// Importer sequences the ingestion pipeline and isolates per-row
// failures. It is the only component besides the reconciliation step
// that touches persistent storage.
type Importer struct {
	store   material.Store
	dataDir string
}

// New creates an Importer that reads drop files from dataDir and
// reconciles against store.
func New(store material.Store, dataDir string) *Importer {
	return &Importer{store: store, dataDir: dataDir}
}

// ImportDir locates a source file in the configured data directory and
// imports it. A missing file is terminal and short-circuits to an error
// report before any row processing.
func (imp *Importer) ImportDir(ctx context.Context, mode Mode) *Report {
	path, err := imp.locateFile()
	if err != nil {
		return &Report{RunID: uuid.New().String(), Mode: mode, Error: err.Error()}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return &Report{RunID: uuid.New().String(), Mode: mode, Error: fmt.Sprintf("read %s: %v", filepath.Base(path), err)}
	}

	return imp.Import(ctx, filepath.Base(path), raw, mode)
}

// Import runs the full pipeline on an in-memory file. It never returns
// an error to the caller: every failure mode degrades to a report with
// Success=false and a message. Row reconciliation for the whole run
// happens inside a single store transaction.
func (imp *Importer) Import(ctx context.Context, fileName string, raw []byte, mode Mode) *Report {
	start := time.Now()
	log := logging.FromContext(ctx).With("file", fileName, "mode", string(mode))

	report := &Report{
		RunID:    uuid.New().String(),
		Mode:     mode,
		FileName: fileName,
	}
	fail := func(msg string) *Report {
		report.Error = msg
		report.DurationMs = time.Since(start).Milliseconds()
		log.Warn("import failed", "error", msg)
		return report
	}

	if len(raw) == 0 {
		return fail("source file is empty")
	}

	table, cand, err := parseWithProbe(raw)
	if err != nil {
		return fail(err.Error())
	}

	report.EncodingUsed = cand.Encoding
	report.Delimiter = string(cand.Delimiter)
	report.Columns = table.Headers
	report.TotalRows = len(table.Rows)

	mapping := MapColumns(table.Headers)
	report.ColumnMapping = mapping.Headers()
	report.MatchedBy = matchedBy(mapping)

	log.Info("table parsed",
		"encoding", cand.Encoding,
		"rows", len(table.Rows),
		"columns", len(table.Headers),
	)

	err = imp.store.WithTx(ctx, func(tx material.Store) error {
		for i, row := range table.Rows {
			dbg := RowDebug{Row: i + 1}

			rec, err := Normalize(row, table.Headers, mapping)
			if err != nil {
				report.Skipped++
				dbg.Outcome = OutcomeSkipped.String()
				report.sample(dbg)
				continue
			}

			dbg.MaterialID = rec.MaterialID
			dbg.MaterialName = rec.MaterialName
			dbg.UnitPrice = rec.UnitPrice.String()

			outcome, err := Reconcile(ctx, tx, rec, mapping, mode)
			if err != nil {
				// Row-level store errors degrade to a skip; the batch
				// continues.
				log.Warn("row reconcile failed", "row", i+1, "id", rec.MaterialID, "error", err)
				report.Skipped++
				dbg.Outcome = OutcomeSkipped.String()
				report.sample(dbg)
				continue
			}

			switch outcome {
			case OutcomeCreated:
				report.Created++
			case OutcomeUpdated:
				report.Updated++
			default:
				report.Skipped++
			}
			dbg.Outcome = outcome.String()
			report.sample(dbg)
		}
		return nil
	})
	if err != nil {
		return fail(fmt.Sprintf("import transaction: %v", err))
	}

	report.Success = true
	report.DurationMs = time.Since(start).Milliseconds()
	log.Info("import finished",
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"duration_ms", report.DurationMs,
	)
	return report
}

// sample retains the first debugSampleRows rows regardless of outcome.
func (r *Report) sample(dbg RowDebug) {
	if len(r.DebugInfo) < debugSampleRows {
		r.DebugInfo = append(r.DebugInfo, dbg)
	}
}

// parseWithProbe iterates probe candidates, short-circuiting on the
// first successful parse. Exhausting all candidates is fatal for the
// whole import.
func parseWithProbe(raw []byte) (*Table, Candidate, error) {
	for _, cand := range Probe(raw) {
		table, err := Parse(raw, cand)
		if err != nil {
			continue
		}
		return table, cand, nil
	}
	return nil, Candidate{}, fmt.Errorf("no encoding/delimiter candidate yields a multi-column table")
}

// matchedBy flattens mapping provenance for the report.
func matchedBy(mapping Mapping) map[string]string {
	out := make(map[string]string, len(mapping))
	for f, b := range mapping {
		out[string(f)] = string(b.Match)
	}
	return out
}

// locateFile finds the source file: preferred names first, then any CSV
// whose name suggests a master export, then the first CSV in the
// directory.
func (imp *Importer) locateFile() (string, error) {
	for _, name := range preferredFileNames {
		p := filepath.Join(imp.dataDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	entries, err := os.ReadDir(imp.dataDir)
	if err != nil {
		return "", fmt.Errorf("data directory %s: %w", imp.dataDir, err)
	}

	var csvs []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		csvs = append(csvs, e.Name())
	}
	sort.Strings(csvs)

	for _, name := range csvs {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "master") || strings.Contains(name, "genryou") {
			return filepath.Join(imp.dataDir, name), nil
		}
	}
	if len(csvs) > 0 {
		return filepath.Join(imp.dataDir, csvs[0]), nil
	}

	return "", fmt.Errorf("no CSV file found in %s", imp.dataDir)
}
