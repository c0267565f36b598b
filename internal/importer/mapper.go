package importer

import "strings"

// AliasTableVersion identifies the canonical alias table below. Earlier
// revisions of the loader carried diverging alias lists; there is exactly
// one table now, and changes to it must bump this constant.
const AliasTableVersion = 2

// Field names one canonical semantic attribute that source column
// headers are mapped onto.
type Field string

const (
	FieldMaterialID    Field = "material_id"
	FieldMaterialName  Field = "material_name"
	FieldManufacturer  Field = "manufacturer"
	FieldSupplier      Field = "supplier"
	FieldApplication   Field = "application"
	FieldUnitPrice     Field = "unit_price"
	FieldOrderQuantity Field = "order_quantity"
	FieldRemarks       Field = "remarks"
	FieldCategory      Field = "material_category"
)

// fieldOrder fixes the iteration order for both mapping passes. Earlier
// fields win ties, which makes the assignment deterministic.
var fieldOrder = []Field{
	FieldMaterialID,
	FieldMaterialName,
	FieldManufacturer,
	FieldSupplier,
	FieldApplication,
	FieldUnitPrice,
	FieldOrderQuantity,
	FieldRemarks,
	FieldCategory,
}

// fieldAliases lists known header spellings per canonical field, most
// specific first. The mix of scripts and cases reflects real exports
// from the source organization.
var fieldAliases = map[Field][]string{
	FieldMaterialID:    {"原料ID", "原料CD", "原料コード", "材料ID", "material_id", "MaterialID", "ID", "CD", "コード", "code"},
	FieldMaterialName:  {"原料名", "材料名", "品名", "名称", "material_name", "name", "Name"},
	FieldManufacturer:  {"メーカー", "製造元", "製造者", "manufacturer", "maker"},
	FieldSupplier:      {"発注先", "仕入先", "購入先", "supplier", "vendor"},
	FieldApplication:   {"適用", "用途", "application", "usage"},
	FieldUnitPrice:     {"単価", "仕入単価", "価格", "unit_price", "price", "Price"},
	FieldOrderQuantity: {"発注量", "発注数量", "入数", "order_quantity", "quantity", "qty"},
	FieldRemarks:       {"備考", "メモ", "注記", "remarks", "note", "memo"},
	FieldCategory:      {"原料区分", "区分", "分類", "カテゴリ", "category"},
}

// remarksIndicators mark headers whose values are merged into the
// remarks field even when the column is not the primary remarks binding.
var remarksIndicators = []string{"備考", "メモ", "note", "memo", "comment"}

// MatchKind records how a binding was found, so diagnostics can report
// mapping quality instead of only the final bindings.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"
	MatchFuzzy      MatchKind = "fuzzy"
	MatchPositional MatchKind = "positional"
)

// Binding ties a canonical field to one source column.
type Binding struct {
	Header string    `json:"header"`
	Index  int       `json:"index"`
	Match  MatchKind `json:"match"`
}

// Mapping is the per-import assignment of canonical fields to source
// columns. Each canonical field maps to at most one column, and a bound
// column is never reused for a second field.
type Mapping map[Field]Binding

// Headers returns the field→header view consumed by report callers.
func (m Mapping) Headers() map[string]string {
	out := make(map[string]string, len(m))
	for f, b := range m {
		out[string(f)] = b.Header
	}
	return out
}

// MapColumns assigns canonical fields to the given headers. It never
// fails; the worst case is a partial or near-empty mapping.
//
// Pass 1 binds exact (trimmed) alias matches. Pass 2 binds by
// case-insensitive substring containment in either direction. If the
// identifier is still unbound after both passes it falls back to the
// first column — a deliberate leniency tradeoff so that every import
// has some identifier column, even if semantically wrong.
func MapColumns(headers []string) Mapping {
	mapping := make(Mapping, len(fieldOrder))
	used := make([]bool, len(headers))

	bind := func(f Field, i int, kind MatchKind) {
		mapping[f] = Binding{Header: headers[i], Index: i, Match: kind}
		used[i] = true
	}

	// Pass 1: exact match.
	for _, f := range fieldOrder {
		for _, alias := range fieldAliases[f] {
			idx := -1
			for i, h := range headers {
				if !used[i] && strings.TrimSpace(h) == alias {
					idx = i
					break
				}
			}
			if idx >= 0 {
				bind(f, idx, MatchExact)
				break
			}
		}
	}

	// Pass 2: fuzzy substring containment, first match wins.
	for _, f := range fieldOrder {
		if _, ok := mapping[f]; ok {
			continue
		}
		for i, h := range headers {
			if used[i] || !fuzzyMatches(f, h) {
				continue
			}
			bind(f, i, MatchFuzzy)
			break
		}
	}

	// Positional fallback for the identifier.
	if _, ok := mapping[FieldMaterialID]; !ok && len(headers) > 0 {
		mapping[FieldMaterialID] = Binding{Header: headers[0], Index: 0, Match: MatchPositional}
	}

	return mapping
}

// fuzzyMatches reports whether the header matches any alias of the field
// by case-insensitive containment in either direction.
func fuzzyMatches(f Field, header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return false
	}
	for _, alias := range fieldAliases[f] {
		a := strings.ToLower(alias)
		if strings.Contains(h, a) || strings.Contains(a, h) {
			return true
		}
	}
	return false
}

// isRemarksHeader reports whether a header carries free-text notes that
// should be merged into the remarks field.
func isRemarksHeader(header string) bool {
	h := strings.ToLower(header)
	for _, ind := range remarksIndicators {
		if strings.Contains(h, strings.ToLower(ind)) {
			return true
		}
	}
	return false
}
