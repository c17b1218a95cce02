// Package resultset sizes and trims query results before they are embedded in
// a model prompt.
//
// Results are carried as json.RawMessage so that row objects keep the column
// order produced by the execution backend.
package resultset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	DefaultTopRows    = 20
	DefaultBottomRows = 20

	charsPerToken = 4
)

// Truncation metadata keys added to a truncated result.
const (
	TruncatedKey       = "_truncated"
	TotalRowsKey       = "_total_rows"
	TopRowsShownKey    = "_top_rows_shown"
	BottomRowsShownKey = "_bottom_rows_shown"
	defaultRowsKey     = "rows"
	errorKey           = "error"
)

// rowKeys are probed in order; the first key present decides.
var rowKeys = []string{"rows", "data", "results"}

type ShapeKind int

const (
	ShapeOpaque ShapeKind = iota
	ShapeError
	ShapeRows
	ShapeRowsUnder
	ShapeSingleRecord
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeError:
		return "error"
	case ShapeRows:
		return "rows"
	case ShapeRowsUnder:
		return "rows_under"
	case ShapeSingleRecord:
		return "single_record"
	default:
		return "opaque"
	}
}

// Shape is the classified form of a query result.
type Shape struct {
	Kind ShapeKind
	// Key is the mapping key holding the rows for ShapeRowsUnder.
	Key  string
	Rows []json.RawMessage

	fields map[string]json.RawMessage
}

// Classify inspects the top level of raw once and reports where its rows live.
func Classify(raw json.RawMessage) Shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Shape{Kind: ShapeOpaque}
	}

	switch trimmed[0] {
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return Shape{Kind: ShapeOpaque}
		}
		return Shape{Kind: ShapeRows, Rows: rows}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Shape{Kind: ShapeOpaque}
		}
		if _, ok := fields[errorKey]; ok {
			return Shape{Kind: ShapeError, fields: fields}
		}
		for _, key := range rowKeys {
			value, ok := fields[key]
			if !ok {
				continue
			}
			rows, ok := asArray(value)
			if !ok {
				return Shape{Kind: ShapeOpaque, fields: fields}
			}
			return Shape{Kind: ShapeRowsUnder, Key: key, Rows: rows, fields: fields}
		}
		return Shape{Kind: ShapeSingleRecord, Rows: []json.RawMessage{trimmed}, fields: fields}
	default:
		return Shape{Kind: ShapeOpaque}
	}
}

func asArray(value json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// EstimateTokens approximates a token count as one token per four characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}

// Format renders raw as two-space indented JSON with every non-ASCII
// character written as a \uXXXX escape, so a row of Devanagari text costs
// six characters per code point in the estimate and in the prompt.
func Format(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", errors.New("empty result")
	}
	encoded, err := encode(raw, true)
	if err != nil {
		return "", fmt.Errorf("format result: %w", err)
	}
	return string(escapeNonASCII(encoded)), nil
}

// escapeNonASCII rewrites runes outside ASCII as \uXXXX, using a surrogate
// pair above the BMP. Input must be encoder output, where non-ASCII bytes can
// only occur inside string literals.
func escapeNonASCII(encoded []byte) []byte {
	first := bytes.IndexFunc(encoded, func(r rune) bool { return r >= utf8.RuneSelf })
	if first < 0 {
		return encoded
	}
	out := make([]byte, 0, len(encoded)+len(encoded)/2)
	out = append(out, encoded[:first]...)
	for rest := encoded[first:]; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		rest = rest[size:]
		switch {
		case r < utf8.RuneSelf:
			out = append(out, byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, hi, lo)
		default:
			out = fmt.Appendf(out, `\u%04x`, r)
		}
	}
	return out
}

// Truncate keeps the first topN and last bottomN rows of raw when it holds more
// than topN+bottomN rows, and reports whether it did so. Error-shaped and
// opaque results are returned unchanged. Truncation is best effort: any
// failure returns raw untouched.
func Truncate(raw json.RawMessage, topN, bottomN int) (json.RawMessage, bool) {
	truncated, ok, err := truncate(raw, topN, bottomN)
	if err != nil {
		return raw, false
	}
	return truncated, ok
}

func truncate(raw json.RawMessage, topN, bottomN int) (json.RawMessage, bool, error) {
	if topN < 0 || bottomN < 0 {
		return nil, false, fmt.Errorf("row counts must be >= 0, got top=%d bottom=%d", topN, bottomN)
	}

	shape := Classify(raw)
	switch shape.Kind {
	case ShapeError, ShapeOpaque:
		return raw, false, nil
	}

	total := len(shape.Rows)
	if total <= topN+bottomN {
		return raw, false, nil
	}

	kept := make([]json.RawMessage, 0, topN+bottomN)
	kept = append(kept, shape.Rows[:topN]...)
	kept = append(kept, shape.Rows[total-bottomN:]...)

	var keys []string
	if shape.Kind == ShapeRowsUnder {
		var err error
		if keys, err = objectKeys(raw); err != nil {
			return nil, false, err
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	if shape.Kind == ShapeRowsUnder {
		written := 0
		for _, key := range keys {
			if isMetadataKey(key) {
				continue
			}
			if written > 0 {
				buf.WriteByte(',')
			}
			written++
			value := shape.fields[key]
			if key == shape.Key {
				value = nil
			}
			if err := writeMember(&buf, key, value, kept); err != nil {
				return nil, false, err
			}
		}
	} else {
		// A bare sequence or single record cannot carry metadata, so the kept
		// rows move under "rows".
		if err := writeMember(&buf, defaultRowsKey, nil, kept); err != nil {
			return nil, false, err
		}
	}
	fmt.Fprintf(&buf, `,%q:true,%q:%d,%q:%d,%q:%d}`,
		TruncatedKey, TotalRowsKey, total, TopRowsShownKey, topN, BottomRowsShownKey, bottomN)
	return buf.Bytes(), true, nil
}

func isMetadataKey(key string) bool {
	switch key {
	case TruncatedKey, TotalRowsKey, TopRowsShownKey, BottomRowsShownKey:
		return true
	}
	return false
}

// writeMember writes "key":value, or "key":[rows...] when value is nil.
func writeMember(buf *bytes.Buffer, key string, value json.RawMessage, rows []json.RawMessage) error {
	encodedKey, err := encode(key, false)
	if err != nil {
		return fmt.Errorf("encode key %q: %w", key, err)
	}
	buf.Write(encodedKey)
	buf.WriteByte(':')
	if value != nil {
		return json.Compact(buf, value)
	}
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := json.Compact(buf, row); err != nil {
			return fmt.Errorf("compact row %d: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// objectKeys lists the top-level keys of a JSON object in document order. A
// repeated key is listed once, at its first position.
func objectKeys(raw json.RawMessage) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("read object start: %w", err)
	}
	var keys []string
	seen := make(map[string]bool)
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", token)
		}
		var skipped json.RawMessage
		if err := decoder.Decode(&skipped); err != nil {
			return nil, fmt.Errorf("read value of %q: %w", key, err)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func encode(value any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
