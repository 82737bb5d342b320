package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ResultSet is a tabular query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// NewResultSet upper-cases column names, matching how the warehouse reports
// unquoted identifiers.
func NewResultSet(columns []string) *ResultSet {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.ToUpper(c)
	}
	return &ResultSet{Columns: cols}
}

// Append adds one row; values are normalized for JSON encoding.
func (rs *ResultSet) Append(values []any) {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = normalizeValue(v)
	}
	rs.Rows = append(rs.Rows, row)
}

// MarshalJSON encodes the result column-oriented:
// {"COL": {"0": v0, "1": v1}, ...}, preserving column and row order.
func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ci, col := range rs.Columns {
		if ci > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for ri, row := range rs.Rows {
			if ri > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(strconv.Itoa(ri)))
			buf.WriteByte(':')
			var v any
			if ci < len(row) {
				v = row[ci]
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Records returns the rows as column-name keyed maps.
func (rs *ResultSet) Records() []map[string]any {
	out := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make(map[string]any, len(rs.Columns))
		for ci, col := range rs.Columns {
			if ci < len(row) {
				rec[col] = row[ci]
			}
		}
		out[i] = rec
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case json.Marshaler:
		if b, err := t.MarshalJSON(); err == nil {
			var out any
			if json.Unmarshal(b, &out) == nil {
				return out
			}
		}
		return v
	default:
		return v
	}
}
