package importer

// RowDebug is one retained sample row in an import report. The first few
// rows are kept regardless of outcome so a weak mapping is visible in
// the summary.
type RowDebug struct {
	Row          int    `json:"row"`
	MaterialID   string `json:"id"`
	MaterialName string `json:"name"`
	UnitPrice    string `json:"unit_price"`
	Outcome      string `json:"outcome"`
}

// Report is the result of one import run, returned to the caller for
// display. It is never persisted.
type Report struct {
	RunID         string            `json:"run_id"`
	Success       bool              `json:"success"`
	Mode          Mode              `json:"mode"`
	FileName      string            `json:"file_name,omitempty"`
	Created       int               `json:"created"`
	Updated       int               `json:"updated"`
	Skipped       int               `json:"skipped"`
	TotalRows     int               `json:"total_rows"`
	EncodingUsed  string            `json:"encoding_used,omitempty"`
	Delimiter     string            `json:"delimiter,omitempty"`
	Columns       []string          `json:"columns,omitempty"`
	ColumnMapping map[string]string `json:"column_mapping,omitempty"`
	MatchedBy     map[string]string `json:"matched_by,omitempty"`
	DebugInfo     []RowDebug        `json:"debug_info,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
	Error         string            `json:"error,omitempty"`
}

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}
