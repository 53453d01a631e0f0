package classifier

import (
	"fmt"
	"math"
)

// Encode turns fields into a sparse numeric row. Booleans become 0/1,
// numbers pass through and strings are one-hot encoded as "<name>_<value>".
func Encode(fields []Field) (map[string]float64, error) {
	row := make(map[string]float64, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case bool:
			if v {
				row[f.Name] = 1
			} else {
				row[f.Name] = 0
			}
		case int:
			row[f.Name] = float64(v)
		case int64:
			row[f.Name] = float64(v)
		case float32:
			row[f.Name] = float64(v)
		case float64:
			if math.IsNaN(v) {
				return nil, fmt.Errorf("feature %s is NaN", f.Name)
			}
			row[f.Name] = v
		case string:
			row[f.Name+"_"+v] = 1
		default:
			return nil, fmt.Errorf("feature %s has unsupported type %T", f.Name, f.Value)
		}
	}
	return row, nil
}

// Align projects a sparse row onto the ordered column list. Columns the row
// lacks are 0; row entries with no column are dropped.
func Align(row map[string]float64, columns []string) []float64 {
	x := make([]float64, len(columns))
	for i, c := range columns {
		x[i] = row[c]
	}
	return x
}
