// Package exporter writes marshalled row sets to flat files. It is a thin
// delegation layer on top of the bridge: the bridge produces the rows, the
// exporter only renders them, so it carries no engine or registry state.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/bangonkali/sqlbridge/internal/bridge"
)

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

// valueToString renders one marshalled cell for CSV. Cells only carry the
// closed JSON-typed set at this point: nil, bool, int64, float64, string.
func valueToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// ExportCSV writes rs to w as CSV. Column order is preserved.
func ExportCSV(w io.Writer, rs *bridge.RowSet, opts Options) error {
	csvw := csv.NewWriter(w)
	if opts.CSVDelimiter != 0 {
		csvw.Comma = opts.CSVDelimiter
	}
	if !opts.CSVNoHeader {
		if err := csvw.Write(rs.Columns); err != nil {
			return err
		}
	}
	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, col := range rs.Columns {
			record[i] = valueToString(row[col])
		}
		if err := csvw.Write(record); err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// ExportJSON writes rs to w as a JSON array of column-keyed objects.
func ExportJSON(w io.Writer, rs *bridge.RowSet, opts Options) error {
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rs.Rows)
}
