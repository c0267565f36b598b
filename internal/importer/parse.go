package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/transform"
)

// errParse marks a failed attempt for one (encoding, delimiter) candidate.
// The orchestrator treats it as "try the next candidate", not as fatal.
var errParse = errors.New("parse attempt failed")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a fully materialized, untyped view of the source file.
// Typed coercion is deferred to the row normalizer so that dirty data
// cannot fail the parse.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse attempts to materialize a table from raw bytes using one probe
// candidate. An attempt succeeds only if the bytes decode without a
// fatal encoding error and the result has more than one column; a
// single-column table is treated as a wrong-delimiter guess.
func Parse(raw []byte, c Candidate) (*Table, error) {
	decoded, err := decode(raw, c)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(decoded))
	r.Comma = c.Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv read (%s, %q): %v", errParse, c.Encoding, c.Delimiter, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: %s with %q yields fewer than two columns", errParse, c.Encoding, c.Delimiter)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		blank := true
		for i := range headers {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
			if row[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// decode converts raw bytes to UTF-8 text using the candidate encoding.
// x/text decoders substitute U+FFFD for byte sequences that are invalid
// in the source encoding, so a replacement rune in the output is the
// signal for a wrong-encoding guess.
func decode(raw []byte, c Candidate) (string, error) {
	out, _, err := transform.Bytes(c.enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", errParse, c.Encoding, err)
	}
	out = bytes.TrimPrefix(out, utf8BOM)
	if bytes.ContainsRune(out, '�') {
		return "", fmt.Errorf("%w: %s produced replacement characters", errParse, c.Encoding)
	}
	return string(out), nil
}
