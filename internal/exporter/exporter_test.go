package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bangonkali/sqlbridge/internal/bridge"
)

func sampleRows() *bridge.RowSet {
	return &bridge.RowSet{
		Columns: []string{"id", "name", "score", "active", "note"},
		Rows: []map[string]interface{}{
			{"id": int64(1), "name": "ada", "score": 9.5, "active": true, "note": nil},
			{"id": int64(2), "name": "grace, h", "score": 8.0, "active": false, "note": "x"},
		},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleRows(), Options{}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3: %q", len(lines), buf.String())
	}
	if lines[0] != "id,name,score,active,note" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "1,ada,9.5,true," {
		t.Fatalf("row 1 = %q", lines[1])
	}
	// Embedded delimiters get quoted by the writer.
	if lines[2] != `2,"grace, h",8,false,x` {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestExportCSVOptions(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleRows(), Options{CSVNoHeader: true, CSVDelimiter: ';'}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(lines))
	}
	if lines[0] != "1;ada;9.5;true;" {
		t.Fatalf("row 1 = %q", lines[0])
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleRows(), Options{}); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "[{") {
		t.Fatalf("json = %q", out)
	}
	for _, want := range []string{`"id":1`, `"name":"grace, h"`, `"note":null`} {
		if !strings.Contains(out, want) {
			t.Fatalf("json missing %s: %q", want, out)
		}
	}
}

func TestExportEmpty(t *testing.T) {
	rs := &bridge.RowSet{Columns: []string{"a"}, Rows: []map[string]interface{}{}}
	var buf bytes.Buffer
	if err := ExportCSV(&buf, rs, Options{}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "a" {
		t.Fatalf("empty csv = %q", buf.String())
	}
	buf.Reset()
	if err := ExportJSON(&buf, rs, Options{}); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty json = %q", buf.String())
	}
}
