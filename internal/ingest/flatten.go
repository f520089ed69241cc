package ingest

import (
	"fmt"
	"strings"
)

// fieldSeparator joins the "<column>: <value>" segments of a flattened row.
const fieldSeparator = " | "

// Flatten converts one tabular row into the single text string that gets
// embedded. Each column is rendered as "<column>: <value>" and the segments
// are joined with " | " in the file's column order. No filtering,
// normalisation, or truncation is applied: the output is deterministic for a
// given header and record, and that determinism is what ties a stored
// embedding back to its source row.
//
// A record whose field count does not match the header is malformed and
// returns an error.
func Flatten(header, record []string) (string, error) {
	if len(record) != len(header) {
		return "", fmt.Errorf("ingest: row has %d fields, header has %d", len(record), len(header))
	}

	var b strings.Builder
	for i, col := range header {
		if i > 0 {
			b.WriteString(fieldSeparator)
		}
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(record[i])
	}
	return b.String(), nil
}

// ItemID forms the deterministic knowledge-item identifier for a row:
// "<dataset>_<rowIndex>". IDs are unique per ingestion run for distinct
// (dataset, index) pairs; re-ingesting the same dataset reuses the same IDs
// so the store overwrites prior entries in place.
func ItemID(dataset string, index int) string {
	return fmt.Sprintf("%s_%d", dataset, index)
}
