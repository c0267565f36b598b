package importer

import (
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// The source organization exports from Windows Excel, so the legacy
// double-byte Japanese encodings are tried before UTF-8.
var encodingPriority = []encodingCandidate{
	{Name: "shift_jis", Encoding: japanese.ShiftJIS},
	{Name: "euc-jp", Encoding: japanese.EUCJP},
	{Name: "iso-2022-jp", Encoding: japanese.ISO2022JP},
	{Name: "utf-8", Encoding: unicode.UTF8},
	{Name: "utf-8-sig", Encoding: unicode.UTF8BOM},
}

// delimiterPriority is the per-encoding delimiter search order.
var delimiterPriority = []rune{',', ';', '\t', '|'}

// detectSampleSize bounds how many bytes the statistical detector sees.
const detectSampleSize = 50000

// detectConfidenceMin is the chardet confidence (0-100) below which a
// statistically detected charset is ignored.
const detectConfidenceMin = 40

type encodingCandidate struct {
	Name     string
	Encoding encoding.Encoding
}

// Candidate is one (encoding, delimiter) combination to attempt a parse
// with. Candidates are proposals only; Probe never touches file semantics.
type Candidate struct {
	Encoding  string
	Delimiter rune

	enc encoding.Encoding
}

// Probe proposes a finite, deterministically ordered list of
// (encoding, delimiter) candidates for the raw bytes.
//
// The fixed priority list is augmented by statistical detection on a
// bounded prefix: when the detector is confident, its charset is
// promoted to highest priority. Promotion matters even for charsets
// already in the list — a UTF-8 export of Japanese text decodes as
// Shift_JIS without errors (as mojibake), so the legacy-first order
// alone would pick the wrong encoding.
func Probe(raw []byte) []Candidate {
	encs := make([]encodingCandidate, 0, len(encodingPriority)+1)

	if det := detectEncoding(raw); det != nil {
		encs = append(encs, *det)
	}
	for _, ec := range encodingPriority {
		if len(encs) > 0 && encs[0].Name == ec.Name {
			continue
		}
		encs = append(encs, ec)
	}

	out := make([]Candidate, 0, len(encs)*len(delimiterPriority))
	for _, ec := range encs {
		for _, d := range delimiterPriority {
			out = append(out, Candidate{Encoding: ec.Name, Delimiter: d, enc: ec.Encoding})
		}
	}
	return out
}

// detectEncoding runs chardet on a bounded prefix and resolves the result
// to an x/text encoding via the IANA index. Returns nil when detection
// fails, is below the confidence floor, or names an unusable charset.
func detectEncoding(raw []byte) *encodingCandidate {
	sample := raw
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil || res.Confidence < detectConfidenceMin {
		return nil
	}

	enc, err := ianaindex.IANA.Encoding(res.Charset)
	if err != nil || enc == nil {
		return nil
	}

	name, err := ianaindex.IANA.Name(enc)
	if err != nil || name == "" {
		name = res.Charset
	}
	return &encodingCandidate{Name: canonicalEncodingName(name), Encoding: enc}
}

// canonicalEncodingName folds IANA spellings onto the names used in the
// fixed priority list so duplicate detection works.
func canonicalEncodingName(name string) string {
	switch name {
	case "Shift_JIS", "windows-31j", "cp932":
		return "shift_jis"
	case "EUC-JP":
		return "euc-jp"
	case "ISO-2022-JP":
		return "iso-2022-jp"
	case "UTF-8":
		return "utf-8"
	default:
		return name
	}
}
