package query

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EncodeRows drains rows into a JSON array of objects whose keys follow the
// select-list order.
func EncodeRows(rows *sql.Rows) (json.RawMessage, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	keys := make([][]byte, len(columns))
	for i, column := range columns {
		keys[i], err = json.Marshal(column)
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", column, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	count := 0
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		if count > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, value := range values {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			buf.Write(encodeValue(value))
		}
		buf.WriteByte('}')
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// encodeValue renders values JSON cannot represent with their string form.
func encodeValue(value any) []byte {
	if raw, ok := value.([]byte); ok {
		value = string(raw)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		encoded, _ = json.Marshal(fmt.Sprint(value))
	}
	return encoded
}
