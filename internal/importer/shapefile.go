// Package importer loads external geo data into bridge-managed tables.
// Like the exporter it is a delegation layer: file parsing happens here,
// all SQL goes through the bridge registry so the usual connection rules
// and locking apply.
package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/bangonkali/sqlbridge/internal/bridge"
)

// geometryColumn is the name of the synthesized geometry column. Geometry
// is stored as GeoJSON text so the json engine module can query it.
const geometryColumn = "geometry"

// ImportShapefile reads a .shp file (and its DBF attributes) and loads
// every record into a freshly created table on database's connection.
// Attribute fields become TEXT columns; the shape becomes a GeoJSON
// geometry column. Returns the imported row count.
func ImportShapefile(reg *bridge.Registry, database, table, path string) (int64, error) {
	r, err := shp.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	cols := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		cols = append(cols, strings.TrimRight(f.String(), "\x00"))
	}
	cols = append(cols, geometryColumn)

	if _, err := reg.Execute(database, createTableSQL(table, cols)); err != nil {
		return 0, err
	}

	insert := insertSQL(table, len(cols))
	var count int64
	for r.Next() {
		idx, shape := r.Shape()

		values := make([]bridge.Value, 0, len(cols))
		for fi := range fields {
			values = append(values, bridge.Text(r.ReadAttribute(idx, fi)))
		}

		geom, err := shapeGeoJSON(shape)
		if err != nil {
			return count, err
		}
		if geom == "" {
			values = append(values, bridge.Null())
		} else {
			values = append(values, bridge.Text(geom))
		}

		if _, err := reg.Run(database, insert, values); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// shapeGeoJSON converts a shape into GeoJSON text. Unknown shape kinds
// import as null geometry rather than failing the whole file.
func shapeGeoJSON(shape shp.Shape) (string, error) {
	var geom interface{}
	switch s := shape.(type) {
	case *shp.Point:
		geom = map[string]interface{}{"type": "Point", "coordinates": []float64{s.X, s.Y}}
	case *shp.PolyLine:
		coords := make([][]float64, len(s.Points))
		for i, p := range s.Points {
			coords[i] = []float64{p.X, p.Y}
		}
		geom = map[string]interface{}{"type": "LineString", "coordinates": coords}
	case *shp.Polygon:
		// Polygon points as a single linear ring.
		ring := make([][]float64, len(s.Points))
		for i, p := range s.Points {
			ring[i] = []float64{p.X, p.Y}
		}
		geom = map[string]interface{}{"type": "Polygon", "coordinates": []interface{}{ring}}
	default:
		return "", nil
	}
	b, err := json.Marshal(geom)
	if err != nil {
		return "", fmt.Errorf("marshal geometry: %w", err)
	}
	return string(b), nil
}

func createTableSQL(table string, cols []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(")")
	return b.String()
}

func insertSQL(table string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" VALUES (")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i)
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
