package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hfujimori/materialmaster/internal/material"
	"github.com/hfujimori/materialmaster/internal/store"
)

// ============================================================================
// Full pipeline
// ============================================================================

func TestImport_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	raw := encodeShiftJIS(t, "原料ID,原料名,単価\n"+
		"A1,小麦粉,\"1,200\"\n"+
		"A2,,300\n"+
		",砂糖,50\n")

	report := imp.Import(ctx, "原料マスタ詳細.csv", raw, ModeUpdate)

	if !report.Success {
		t.Fatalf("import failed: %s", report.Error)
	}
	if report.Created != 2 || report.Updated != 0 || report.Skipped != 1 {
		t.Errorf("counts = created %d updated %d skipped %d, want 2/0/1",
			report.Created, report.Updated, report.Skipped)
	}
	if report.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3", report.TotalRows)
	}
	if report.EncodingUsed != "shift_jis" {
		t.Errorf("EncodingUsed = %s", report.EncodingUsed)
	}
	if report.Delimiter != "," {
		t.Errorf("Delimiter = %q", report.Delimiter)
	}
	if report.ColumnMapping["material_id"] != "原料ID" {
		t.Errorf("ColumnMapping = %v", report.ColumnMapping)
	}
	if report.MatchedBy["unit_price"] != "exact" {
		t.Errorf("MatchedBy = %v", report.MatchedBy)
	}

	a1, err := st.Get(ctx, "A1")
	if err != nil {
		t.Fatalf("Get A1: %v", err)
	}
	if a1.MaterialName != "小麦粉" {
		t.Errorf("A1 name = %q", a1.MaterialName)
	}
	if a1.UnitPrice.String() != "1200" {
		t.Errorf("A1 price = %s, want 1200", a1.UnitPrice)
	}
	if !a1.IsActive {
		t.Error("A1 should be active")
	}

	a2, err := st.Get(ctx, "A2")
	if err != nil {
		t.Fatalf("Get A2: %v", err)
	}
	if a2.MaterialName != "Material_A2" {
		t.Errorf("A2 name = %q, want synthesized placeholder", a2.MaterialName)
	}
	if a2.UnitPrice.String() != "300" {
		t.Errorf("A2 price = %s", a2.UnitPrice)
	}
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	raw := encodeShiftJIS(t, "原料ID,原料名,単価\nA1,小麦粉,1200\nA2,砂糖,300\n")

	first := imp.Import(ctx, "f.csv", raw, ModeUpdate)
	if first.Created != 2 {
		t.Fatalf("first run created = %d", first.Created)
	}

	second := imp.Import(ctx, "f.csv", raw, ModeUpdate)
	if second.Created != 0 || second.Updated != 2 || second.Skipped != 0 {
		t.Errorf("second run = created %d updated %d skipped %d, want 0/2/0",
			second.Created, second.Updated, second.Skipped)
	}
}

func TestImport_SkipModePreserves(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	imp.Import(ctx, "f.csv", []byte("原料ID,原料名,単価\nA1,小麦粉,1200\n"), ModeUpdate)

	report := imp.Import(ctx, "f.csv", []byte("原料ID,原料名,単価\nA1,別名,9999\nA2,砂糖,300\n"), ModeSkip)
	if report.Created != 1 || report.Updated != 0 || report.Skipped != 1 {
		t.Errorf("counts = created %d updated %d skipped %d, want 1/0/1",
			report.Created, report.Updated, report.Skipped)
	}

	a1, _ := st.Get(ctx, "A1")
	if a1.MaterialName != "小麦粉" || a1.UnitPrice.String() != "1200" {
		t.Errorf("A1 changed in skip mode: %q %s", a1.MaterialName, a1.UnitPrice)
	}
}

func TestImport_UpdatePreservesUnmappedFields(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	seed := &material.Material{
		MaterialID:       "A1",
		MaterialName:     "小麦粉",
		Remarks:          "保管: 冷暗所",
		MaterialCategory: "Premium",
		UnitPrice:        decimal.NewFromInt(999),
		IsActive:         true,
	}
	if err := st.Insert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	// The file carries no remarks or category column.
	report := imp.Import(ctx, "f.csv", []byte("原料ID,原料名,単価\nA1,小麦粉,1200\n"), ModeUpdate)
	if report.Updated != 1 {
		t.Fatalf("updated = %d: %s", report.Updated, report.Error)
	}

	a1, _ := st.Get(ctx, "A1")
	if a1.Remarks != "保管: 冷暗所" {
		t.Errorf("Remarks = %q, unmapped field should survive update", a1.Remarks)
	}
	if a1.MaterialCategory != "Premium" {
		t.Errorf("MaterialCategory = %q, unmapped field should survive update", a1.MaterialCategory)
	}
	if a1.UnitPrice.String() != "1200" {
		t.Errorf("UnitPrice = %s, mapped field should be overwritten", a1.UnitPrice)
	}
}

func TestImport_ReplaceDropsUnmappedFields(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	seed := &material.Material{
		MaterialID:   "A1",
		MaterialName: "小麦粉",
		Remarks:      "保管: 冷暗所",
		IsActive:     true,
	}
	if err := st.Insert(ctx, seed); err != nil {
		t.Fatal(err)
	}

	report := imp.Import(ctx, "f.csv", []byte("原料ID,原料名,単価\nA1,小麦粉,1200\n"), ModeReplace)
	if report.Updated != 1 {
		t.Fatalf("updated = %d: %s", report.Updated, report.Error)
	}

	a1, _ := st.Get(ctx, "A1")
	if a1.Remarks != "" {
		t.Errorf("Remarks = %q, replace mode rebuilds the record from the file", a1.Remarks)
	}
	if a1.MaterialCategory != "Standard" {
		t.Errorf("MaterialCategory = %q, want import default", a1.MaterialCategory)
	}
}

func TestImport_UpdateReactivatesTouchedRecords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	imp.Import(ctx, "f.csv", []byte("原料ID,原料名\nA1,小麦粉\nB1,砂糖\n"), ModeUpdate)
	if _, err := st.SetActive(ctx, []string{"A1", "B1"}, false); err != nil {
		t.Fatal(err)
	}

	// Only A1 appears in the next file; B1 must stay inactive.
	imp.Import(ctx, "f.csv", []byte("原料ID,原料名\nA1,小麦粉\n"), ModeUpdate)

	a1, _ := st.Get(ctx, "A1")
	if !a1.IsActive {
		t.Error("A1 was touched by the import and should be active")
	}
	b1, err := st.Get(ctx, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if b1.IsActive {
		t.Error("B1 was not in the file and should stay inactive")
	}
}

func TestImport_FatalLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	imp := New(st, "")

	// No delimiter ever yields a second column, so every candidate fails.
	report := imp.Import(ctx, "broken.csv", []byte("justoneheader\nvalue\n"), ModeUpdate)

	if report.Success {
		t.Fatal("single-column file should be a fatal import")
	}
	if report.Error == "" {
		t.Error("fatal report should carry an error message")
	}

	stats, _ := st.Stats(ctx)
	if stats.Total != 0 {
		t.Errorf("store has %d records after a fatal import", stats.Total)
	}
}

func TestImport_EmptyFile(t *testing.T) {
	imp := New(store.NewMemory(), "")

	report := imp.Import(context.Background(), "empty.csv", nil, ModeUpdate)
	if report.Success || report.Error == "" {
		t.Errorf("empty file: success=%v error=%q", report.Success, report.Error)
	}
}

func TestImport_DebugSampleCapped(t *testing.T) {
	imp := New(store.NewMemory(), "")

	csv := "原料ID,原料名\n"
	for _, id := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8"} {
		csv += id + ",x\n"
	}

	report := imp.Import(context.Background(), "f.csv", []byte(csv), ModeUpdate)
	if report.Created != 8 {
		t.Fatalf("created = %d: %s", report.Created, report.Error)
	}
	if len(report.DebugInfo) != debugSampleRows {
		t.Errorf("DebugInfo length = %d, want %d", len(report.DebugInfo), debugSampleRows)
	}
	if report.DebugInfo[0].Row != 1 || report.DebugInfo[0].Outcome != "created" {
		t.Errorf("first sample = %+v", report.DebugInfo[0])
	}
}

// ============================================================================
// Directory import
// ============================================================================

func TestImportDir_MissingFile(t *testing.T) {
	imp := New(store.NewMemory(), t.TempDir())

	report := imp.ImportDir(context.Background(), ModeUpdate)
	if report.Success || report.Error == "" {
		t.Errorf("missing file: success=%v error=%q", report.Success, report.Error)
	}
}

func TestImportDir_PreferredName(t *testing.T) {
	dir := t.TempDir()
	// A decoy sorts before the preferred name; the preferred name must
	// still win.
	writeFile(t, dir, "aaa_decoy.csv", "原料ID,原料名\nZZ,decoy\n")
	writeFile(t, dir, "genryou_master.csv", "原料ID,原料名\nA1,小麦粉\n")

	st := store.NewMemory()
	imp := New(st, dir)

	report := imp.ImportDir(context.Background(), ModeUpdate)
	if !report.Success {
		t.Fatalf("import failed: %s", report.Error)
	}
	if report.FileName != "genryou_master.csv" {
		t.Errorf("FileName = %q", report.FileName)
	}
	if _, err := st.Get(context.Background(), "ZZ"); err == nil {
		t.Error("decoy file should not have been imported")
	}
}

func TestImportDir_FallbackToFirstCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export_2025.csv", "原料ID,原料名\nA1,小麦粉\n")

	imp := New(store.NewMemory(), dir)

	report := imp.ImportDir(context.Background(), ModeUpdate)
	if !report.Success {
		t.Fatalf("import failed: %s", report.Error)
	}
	if report.FileName != "export_2025.csv" {
		t.Errorf("FileName = %q", report.FileName)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ============================================================================
// Structure analysis
// ============================================================================

func TestAnalyze(t *testing.T) {
	raw := encodeShiftJIS(t, "原料ID,原料名,単価\nA1,小麦粉,1200\nA2,砂糖,300\nA3,砂糖,\n")

	a := Analyze(raw)
	if !a.Success {
		t.Fatalf("analyze failed: %s", a.Error)
	}
	if a.Encoding != "shift_jis" || a.TotalRows != 3 {
		t.Errorf("encoding=%s rows=%d", a.Encoding, a.TotalRows)
	}
	if a.RecommendedMapping["unit_price"] != "単価" {
		t.Errorf("RecommendedMapping = %v", a.RecommendedMapping)
	}

	if len(a.Profiles) != 3 {
		t.Fatalf("profiles = %d", len(a.Profiles))
	}
	name := a.Profiles[1]
	if name.NonEmpty != 3 || name.Unique != 2 {
		t.Errorf("name profile = %+v, want 3 non-empty, 2 unique", name)
	}
	price := a.Profiles[2]
	if price.NonEmpty != 2 {
		t.Errorf("price profile = %+v, want 2 non-empty", price)
	}
}

func TestAnalyze_DoesNotMutateStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	dir := t.TempDir()
	writeFile(t, dir, "genryou_master.csv", "原料ID,原料名\nA1,小麦粉\n")

	imp := New(st, dir)
	a := imp.AnalyzeDir()
	if !a.Success {
		t.Fatalf("analyze failed: %s", a.Error)
	}
	if a.FileName != "genryou_master.csv" {
		t.Errorf("FileName = %q", a.FileName)
	}

	stats, _ := st.Stats(ctx)
	if stats.Total != 0 {
		t.Errorf("analysis wrote %d records", stats.Total)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeUpdate {
		t.Errorf("blank mode = %v, %v", m, err)
	}
	if m, err := ParseMode("replace"); err != nil || m != ModeReplace {
		t.Errorf("replace mode = %v, %v", m, err)
	}
	if _, err := ParseMode("overwrite"); err == nil {
		t.Error("unknown mode should be rejected")
	}
}
