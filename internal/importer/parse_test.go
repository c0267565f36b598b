package importer

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// encodeShiftJIS converts UTF-8 test fixtures to Shift_JIS bytes so the
// fixtures stay readable in source.
func encodeShiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		t.Fatalf("encode shift_jis: %v", err)
	}
	return out
}

func candidateFor(name string, delim rune) Candidate {
	for _, ec := range encodingPriority {
		if ec.Name == name {
			return Candidate{Encoding: ec.Name, Delimiter: delim, enc: ec.Encoding}
		}
	}
	panic("unknown encoding " + name)
}

func TestParse_ShiftJIS(t *testing.T) {
	raw := encodeShiftJIS(t, "原料ID,原料名,単価\nA1,小麦粉,1200\n")

	table, err := Parse(raw, candidateFor("shift_jis", ','))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(table.Headers) != 3 || table.Headers[0] != "原料ID" {
		t.Errorf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 1 || table.Rows[0][1] != "小麦粉" {
		t.Errorf("rows = %v", table.Rows)
	}
}

func TestParse_SingleColumnIsFailure(t *testing.T) {
	// A one-column result means the delimiter guess was wrong, not that
	// the file really has one column.
	raw := []byte("a,b,c\n1,2,3\n")

	if _, err := Parse(raw, candidateFor("utf-8", ';')); err == nil {
		t.Fatal("semicolon parse of a comma file should fail")
	}
}

func TestParse_InvalidBytesFail(t *testing.T) {
	// 0x80 is not a valid Shift_JIS lead byte; the decoder substitutes
	// U+FFFD, which must be treated as a wrong-encoding guess.
	raw := []byte("a,b\n\x80\x80,x\n")

	_, err := Parse(raw, candidateFor("shift_jis", ','))
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if !errors.Is(err, errParse) {
		t.Errorf("err = %v, want errParse", err)
	}
}

func TestParse_BOMStripped(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\nA1,Flour\n")...)

	table, err := Parse(raw, candidateFor("utf-8-sig", ','))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table.Headers[0] != "id" {
		t.Errorf("headers = %v, BOM not stripped", table.Headers)
	}
}

func TestParse_BlankRowsDropped(t *testing.T) {
	raw := []byte("id,name\nA1,Flour\n,\n  ,  \nA2,Sugar\n")

	table, err := Parse(raw, candidateFor("utf-8", ','))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %v, want 2 after dropping blanks", table.Rows)
	}
}

func TestParse_ShortRowsPadded(t *testing.T) {
	raw := []byte("id,name,price\nA1,Flour\n")

	table, err := Parse(raw, candidateFor("utf-8", ','))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(table.Rows[0]) != 3 || table.Rows[0][2] != "" {
		t.Errorf("row = %v, want padded to header width", table.Rows[0])
	}
}

func TestParse_TabAndSemicolon(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		delim rune
	}{
		{"semicolon", "id;name\nA1;Flour\n", ';'},
		{"tab", "id\tname\nA1\tFlour\n", '\t'},
		{"pipe", "id|name\nA1|Flour\n", '|'},
	}

	for _, tt := range tests {
		table, err := Parse([]byte(tt.raw), candidateFor("utf-8", tt.delim))
		if err != nil {
			t.Errorf("%s: Parse: %v", tt.name, err)
			continue
		}
		if len(table.Headers) != 2 {
			t.Errorf("%s: headers = %v", tt.name, table.Headers)
		}
	}
}

func TestProbe_DeterministicOrder(t *testing.T) {
	raw := encodeShiftJIS(t, "原料ID,原料名\nA1,小麦粉\n")

	a := Probe(raw)
	b := Probe(raw)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("probe lengths: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Encoding != b[i].Encoding || a[i].Delimiter != b[i].Delimiter {
			t.Fatalf("probe not deterministic at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestProbe_DelimiterOrderPerEncoding(t *testing.T) {
	cands := Probe([]byte("plain ascii data, nothing special\n"))

	wantDelims := []rune{',', ';', '\t', '|'}
	for i, c := range cands {
		if c.Delimiter != wantDelims[i%len(wantDelims)] {
			t.Fatalf("candidate %d delimiter = %q, want %q", i, c.Delimiter, wantDelims[i%len(wantDelims)])
		}
		if i%len(wantDelims) != 0 && c.Encoding != cands[i-1].Encoding {
			t.Fatalf("encoding changed mid-delimiter-cycle at %d", i)
		}
	}
}

func TestProbe_LegacyBeforeUniversal(t *testing.T) {
	// Regardless of what statistical detection promotes, shift_jis must
	// still come before the plain utf-8 attempt for a Shift_JIS file.
	raw := encodeShiftJIS(t, "原料ID,原料名,単価\nA1,小麦粉,1200\nA2,砂糖,300\n")

	sjis, utf8Pos := -1, -1
	for i, c := range Probe(raw) {
		if c.Delimiter != ',' {
			continue
		}
		switch c.Encoding {
		case "shift_jis":
			if sjis == -1 {
				sjis = i
			}
		case "utf-8":
			if utf8Pos == -1 {
				utf8Pos = i
			}
		}
	}
	if sjis == -1 || utf8Pos == -1 {
		t.Fatal("expected both shift_jis and utf-8 candidates")
	}
	if sjis > utf8Pos {
		t.Errorf("shift_jis (%d) should precede utf-8 (%d)", sjis, utf8Pos)
	}
}

func TestProbe_PromotesUTF8Japanese(t *testing.T) {
	// UTF-8 Japanese bytes decode as Shift_JIS mojibake without errors;
	// statistical detection must promote utf-8 ahead of the legacy
	// encodings for such files.
	raw := []byte("原料ID,原料名,単価\nA1,小麦粉,1200\nA2,砂糖,300\nA3,食塩,150\n")

	cands := Probe(raw)
	if cands[0].Encoding != "utf-8" {
		t.Errorf("first candidate = %s, want promoted utf-8", cands[0].Encoding)
	}
}
