package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// columnSampleValues is how many distinct example values are kept per
// column in a structure analysis.
const columnSampleValues = 3

// ColumnProfile describes one source column: fill rate, cardinality and
// a few example values. It is the caller's primary aid for judging
// mapping quality before committing to an import.
type ColumnProfile struct {
	Name     string   `json:"name"`
	NonEmpty int      `json:"non_empty"`
	Unique   int      `json:"unique"`
	Samples  []string `json:"samples,omitempty"`
}

// Analysis is the read-only diagnostic view of a source file. Producing
// it never mutates storage.
type Analysis struct {
	Success            bool              `json:"success"`
	FileName           string            `json:"file_name,omitempty"`
	Encoding           string            `json:"encoding,omitempty"`
	Delimiter          string            `json:"delimiter,omitempty"`
	TotalRows          int               `json:"total_rows"`
	Columns            []string          `json:"columns,omitempty"`
	Profiles           []ColumnProfile   `json:"profiles,omitempty"`
	RecommendedMapping map[string]string `json:"recommended_mapping,omitempty"`
	MatchedBy          map[string]string `json:"matched_by,omitempty"`
	// Suggestions pairs each unmapped (or position-guessed) canonical
	// field with the closest-looking header, ranked by edit distance.
	Suggestions map[string]string `json:"suggestions,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// AnalyzeDir analyzes the file ImportDir would pick up.
func (imp *Importer) AnalyzeDir() *Analysis {
	path, err := imp.locateFile()
	if err != nil {
		return &Analysis{Error: err.Error()}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return &Analysis{Error: fmt.Sprintf("read %s: %v", filepath.Base(path), err)}
	}
	a := Analyze(raw)
	a.FileName = filepath.Base(path)
	return a
}

// Analyze probes, parses and profiles a source file without touching
// the store.
func Analyze(raw []byte) *Analysis {
	table, cand, err := parseWithProbe(raw)
	if err != nil {
		return &Analysis{Error: err.Error()}
	}

	mapping := MapColumns(table.Headers)

	a := &Analysis{
		Success:            true,
		Encoding:           cand.Encoding,
		Delimiter:          string(cand.Delimiter),
		TotalRows:          len(table.Rows),
		Columns:            table.Headers,
		RecommendedMapping: mapping.Headers(),
		MatchedBy:          matchedBy(mapping),
		Suggestions:        suggestions(table.Headers, mapping),
	}

	for i, h := range table.Headers {
		p := ColumnProfile{Name: h}
		seen := make(map[string]bool)
		for _, row := range table.Rows {
			if i >= len(row) || row[i] == "" {
				continue
			}
			p.NonEmpty++
			if !seen[row[i]] {
				seen[row[i]] = true
				if len(p.Samples) < columnSampleValues {
					p.Samples = append(p.Samples, row[i])
				}
			}
		}
		p.Unique = len(seen)
		a.Profiles = append(a.Profiles, p)
	}

	return a
}

// suggestions ranks headers against the alias table for every field the
// mapper could not bind confidently, so the caller can see what the
// mapper almost matched.
func suggestions(headers []string, mapping Mapping) map[string]string {
	out := make(map[string]string)

	for _, f := range fieldOrder {
		b, ok := mapping[f]
		if ok && b.Match != MatchPositional {
			continue
		}

		best := ""
		bestRank := -1
		for _, alias := range fieldAliases[f] {
			ranks := fuzzy.RankFindNormalizedFold(alias, headers)
			for _, r := range ranks {
				if bestRank == -1 || r.Distance < bestRank {
					bestRank = r.Distance
					best = r.Target
				}
			}
		}
		if best != "" {
			out[string(f)] = best
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
