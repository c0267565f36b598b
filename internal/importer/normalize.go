package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// nullMarkers are textual placeholders treated as absence of data.
// Spreadsheet round-trips through pandas and Excel leave these behind.
var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
}

// placeholderPrefix synthesizes a display name for rows that omit one.
const placeholderPrefix = "Material_"

// defaultCategory is assigned when no category column was mapped or the
// cell is blank.
const defaultCategory = "Standard"

var quantityRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Record is the canonical field-value result of normalizing one source
// row. It has a fixed shape; fields absent from the source carry their
// documented defaults.
type Record struct {
	MaterialID    string
	MaterialName  string
	Manufacturer  string
	Supplier      string
	Application   string
	UnitPrice     decimal.Decimal
	OrderQuantity decimal.Decimal
	Remarks       string
	Category      string
}

// SkipError explains why a row was skipped rather than imported.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

// Normalize produces a canonical record from one raw row. A missing or
// null-marker identifier is the only condition that skips the row; every
// other field coercion is independently fault-tolerant and degrades to
// that field's default.
func Normalize(row []string, headers []string, mapping Mapping) (*Record, error) {
	id := strings.TrimSpace(cell(row, mapping, FieldMaterialID))
	if isNullMarker(id) {
		return nil, &SkipError{Reason: fmt.Sprintf("invalid identifier %q", id)}
	}

	rec := &Record{
		MaterialID:    id,
		MaterialName:  textOr(cell(row, mapping, FieldMaterialName), placeholderPrefix+id),
		Manufacturer:  textOr(cell(row, mapping, FieldManufacturer), ""),
		Supplier:      textOr(cell(row, mapping, FieldSupplier), ""),
		Application:   textOr(cell(row, mapping, FieldApplication), ""),
		UnitPrice:     ParsePrice(cell(row, mapping, FieldUnitPrice)),
		OrderQuantity: ParseQuantity(cell(row, mapping, FieldOrderQuantity)),
		Category:      textOr(cell(row, mapping, FieldCategory), defaultCategory),
		Remarks:       mergeRemarks(row, headers, mapping),
	}
	return rec, nil
}

// cell returns the raw value of the column bound to a field, or "" when
// the field is unbound or the row is short.
func cell(row []string, mapping Mapping, f Field) string {
	b, ok := mapping[f]
	if !ok || b.Index < 0 || b.Index >= len(row) {
		return ""
	}
	return row[b.Index]
}

// textOr trims the value and substitutes fallback for blanks and null
// markers.
func textOr(v, fallback string) string {
	v = strings.TrimSpace(v)
	if isNullMarker(v) {
		return fallback
	}
	return v
}

func isNullMarker(v string) bool {
	return nullMarkers[strings.ToLower(strings.TrimSpace(v))]
}

// mergeRemarks concatenates the primary remarks column with every other
// column whose header indicates free-text notes, rendered as
// "header: value" and joined with "; ". Multiple note columns merge into
// one field without requiring exact mapping.
func mergeRemarks(row []string, headers []string, mapping Mapping) string {
	var parts []string

	primaryIdx := -1
	if b, ok := mapping[FieldRemarks]; ok {
		primaryIdx = b.Index
		if v := textOr(cell(row, mapping, FieldRemarks), ""); v != "" {
			parts = append(parts, v)
		}
	}

	bound := make(map[int]bool, len(mapping))
	for _, b := range mapping {
		bound[b.Index] = true
	}

	for i, h := range headers {
		if i == primaryIdx || i >= len(row) || bound[i] {
			continue
		}
		if !isRemarksHeader(h) {
			continue
		}
		if v := textOr(row[i], ""); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", h, v))
		}
	}

	return strings.Join(parts, "; ")
}

// ParsePrice coerces a currency-formatted cell to a non-negative decimal.
//
// Everything except digits, '.' and '-' is stripped (currency symbols,
// thousands separators, stray punctuation). When more than one '.'
// survives, only the first is kept as the decimal point and the
// remaining digit groups are concatenated, which defends against
// thousands-separator-as-dot locales. Unparseable input yields zero, and
// negative results are clamped to zero.
func ParsePrice(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if isNullMarker(s) {
		return decimal.Zero
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if i := strings.Index(cleaned, "."); i >= 0 {
		head, tail := cleaned[:i+1], strings.ReplaceAll(cleaned[i+1:], ".", "")
		cleaned = head + tail
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseQuantity extracts the first contiguous run of digits (with an
// optional decimal point) from a unit-suffixed string such as "25kg".
// No digits yields zero; negatives cannot occur by construction.
func ParseQuantity(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if isNullMarker(s) {
		return decimal.Zero
	}

	tok := quantityRegex.FindString(s)
	if tok == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Zero
	}
	return d
}
