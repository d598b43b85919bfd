package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"PowerPull/internal/domain/models"
	"PowerPull/pkg/util"
)

// NormalizeHeader folds a column header for matching: byte order marks and
// trailing asterisks are dropped, whitespace is collapsed and case ignored.
// "MCP (Rs/MWh) *" and "mcp (rs/mwh)" both match ColumnPrice.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.TrimRight(h, "* ")
	return strings.ToLower(util.CollapseSpaces(h))
}

var canonicalColumns = func() map[string]int {
	m := make(map[string]int, len(models.SnapshotColumns))
	for i, c := range models.SnapshotColumns {
		m[NormalizeHeader(c)] = i
	}
	return m
}()

// ColumnIndex maps every snapshot column to its position in header.
// It fails when a column is missing.
func ColumnIndex(header []string) ([]int, error) {
	idx := make([]int, len(models.SnapshotColumns))
	for i := range idx {
		idx[i] = -1
	}
	for pos, h := range header {
		if c, ok := canonicalColumns[NormalizeHeader(h)]; ok && idx[c] < 0 {
			idx[c] = pos
		}
	}
	var missing []string
	for c, pos := range idx {
		if pos < 0 {
			missing = append(missing, models.SnapshotColumns[c])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// RowFromRecord builds a row from a delimited record using a ColumnIndex result.
// Empty cells become nil.
func RowFromRecord(idx []int, rec []string) models.SnapshotRow {
	var row models.SnapshotRow
	cells := row.Cells()
	for c, pos := range idx {
		if pos >= len(rec) {
			continue
		}
		if v := strings.TrimSpace(rec[pos]); v != "" {
			*cells[c] = &v
		}
	}
	return row
}

// RowFromFields builds a row from a decoded JSON object keyed by column name.
// Numbers and strings are both accepted; null and empty become nil.
func RowFromFields(fields map[string]any) (models.SnapshotRow, error) {
	var row models.SnapshotRow
	cells := row.Cells()
	for k, raw := range fields {
		c, ok := canonicalColumns[NormalizeHeader(k)]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			s = strings.TrimSpace(v)
		case json.Number:
			s = v.String()
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return row, fmt.Errorf("%w: %s is a boolean", ErrMalformedRow, k)
		default:
			return row, fmt.Errorf("%w: %s has type %T", ErrMalformedRow, k, raw)
		}
		if s != "" {
			*cells[c] = &s
		}
	}
	return row, nil
}
