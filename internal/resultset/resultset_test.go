package resultset

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":                          0,
		"abc":                       0,
		"abcd":                      1,
		"abcde":                     1,
		strings.Repeat("x", 740000): 185000,
	}
	for text, want := range cases {
		if got := EstimateTokens(text); got != want {
			t.Fatalf("EstimateTokens(len=%d) = %d, want %d", len(text), got, want)
		}
	}
}

func TestFormatIndentsAndKeepsColumnOrder(t *testing.T) {
	got, err := Format(json.RawMessage(`[{"Z":1,"A":"<b>"}]`))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "[\n  {\n    \"Z\": 1,\n    \"A\": \"<b>\"\n  }\n]"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatEscapesNonASCII(t *testing.T) {
	got, err := Format(json.RawMessage(`[{"ITEMNAME":"₹","NOTE":"😀"}]`))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "[\n  {\n    \"ITEMNAME\": \"\\u20b9\",\n    \"NOTE\": \"\\ud83d\\ude00\"\n  }\n]"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestEstimateTokensCountsEscapedCharacters(t *testing.T) {
	formatted, err := Format(json.RawMessage(`[{"ITEMNAME":"₹"}]`))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	// [\n  {\n    "ITEMNAME": "\u20b9"\n  }\n] is 36 characters.
	if len(formatted) != 36 || EstimateTokens(formatted) != 9 {
		t.Fatalf("len = %d, tokens = %d; want 36, 9", len(formatted), EstimateTokens(formatted))
	}

	name := strings.Repeat("पैरासिटामोल टैबलेट", 10)
	escaped := strings.Map(func(r rune) rune {
		if r < 0x80 {
			return r
		}
		return -1
	}, name)
	nonASCII := len([]rune(name)) - len(escaped)
	placeholder := escaped + strings.Repeat("xxxxxx", nonASCII)

	native, err := Format(json.RawMessage(`{"ITEMNAME":"` + name + `"}`))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	ascii, err := Format(json.RawMessage(`{"ITEMNAME":"` + placeholder + `"}`))
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if EstimateTokens(native) != EstimateTokens(ascii) {
		t.Fatalf("EstimateTokens = %d, want %d (six characters per non-ASCII rune)", EstimateTokens(native), EstimateTokens(ascii))
	}
}

func TestFormatRejectsEmptyInput(t *testing.T) {
	if _, err := Format(nil); err == nil {
		t.Fatal("expected error for empty result")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  string
		kind ShapeKind
		key  string
		rows int
	}{
		{raw: `[{"a":1},{"a":2}]`, kind: ShapeRows, rows: 2},
		{raw: `{"error":"boom","rows":[1,2,3]}`, kind: ShapeError},
		{raw: `{"rows":[1,2],"data":[1]}`, kind: ShapeRowsUnder, key: "rows", rows: 2},
		{raw: `{"data":[1,2,3]}`, kind: ShapeRowsUnder, key: "data", rows: 3},
		{raw: `{"results":[]}`, kind: ShapeRowsUnder, key: "results", rows: 0},
		{raw: `{"rows":"n/a","data":[1,2]}`, kind: ShapeOpaque},
		{raw: `{"rows":null}`, kind: ShapeOpaque},
		{raw: `{"COUNT":42}`, kind: ShapeSingleRecord, rows: 1},
		{raw: `"text"`, kind: ShapeOpaque},
		{raw: `12`, kind: ShapeOpaque},
		{raw: ``, kind: ShapeOpaque},
	}
	for _, tc := range cases {
		shape := Classify(json.RawMessage(tc.raw))
		if shape.Kind != tc.kind {
			t.Fatalf("Classify(%s).Kind = %s, want %s", tc.raw, shape.Kind, tc.kind)
		}
		if shape.Key != tc.key {
			t.Fatalf("Classify(%s).Key = %q, want %q", tc.raw, shape.Key, tc.key)
		}
		if len(shape.Rows) != tc.rows {
			t.Fatalf("Classify(%s) rows = %d, want %d", tc.raw, len(shape.Rows), tc.rows)
		}
	}
}

func TestTruncateBareSequence(t *testing.T) {
	raw := rowsJSON(100)
	got, ok := Truncate(raw, 20, 20)
	if !ok {
		t.Fatal("Truncate() ok = false, want true")
	}

	var decoded struct {
		Rows            []map[string]int `json:"rows"`
		Truncated       bool             `json:"_truncated"`
		TotalRows       int              `json:"_total_rows"`
		TopRowsShown    int              `json:"_top_rows_shown"`
		BottomRowsShown int              `json:"_bottom_rows_shown"`
	}
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("decode truncated result: %v", err)
	}
	if !decoded.Truncated || decoded.TotalRows != 100 || decoded.TopRowsShown != 20 || decoded.BottomRowsShown != 20 {
		t.Fatalf("metadata = %+v", decoded)
	}
	if len(decoded.Rows) != 40 {
		t.Fatalf("rows = %d, want 40", len(decoded.Rows))
	}
	if decoded.Rows[0]["n"] != 0 || decoded.Rows[19]["n"] != 19 {
		t.Fatalf("top rows = %v .. %v", decoded.Rows[0], decoded.Rows[19])
	}
	if decoded.Rows[20]["n"] != 80 || decoded.Rows[39]["n"] != 99 {
		t.Fatalf("bottom rows = %v .. %v", decoded.Rows[20], decoded.Rows[39])
	}
}

func TestTruncateMappingKeepsOtherKeys(t *testing.T) {
	raw := json.RawMessage(fmt.Sprintf(`{"columns":["n"],"data":%s}`, rowsJSON(10)))
	got, ok := Truncate(raw, 2, 3)
	if !ok {
		t.Fatal("Truncate() ok = false, want true")
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("decode truncated result: %v", err)
	}
	if string(decoded["columns"]) != `["n"]` {
		t.Fatalf("columns = %s", decoded["columns"])
	}
	if _, ok := decoded["rows"]; ok {
		t.Fatal("rows key should not be introduced when rows live under data")
	}
	var rows []map[string]int
	if err := json.Unmarshal(decoded["data"], &rows); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(rows) != 5 || rows[1]["n"] != 1 || rows[2]["n"] != 7 {
		t.Fatalf("data = %v", rows)
	}
	if string(decoded[TotalRowsKey]) != "10" {
		t.Fatalf("_total_rows = %s", decoded[TotalRowsKey])
	}
}

func TestTruncateKeepsKeyOrder(t *testing.T) {
	raw := json.RawMessage(fmt.Sprintf(`{"rows":%s,"meta":{"source":"PO_DATA"},"_truncated":false}`, rowsJSON(5)))
	got, ok := Truncate(raw, 1, 1)
	if !ok {
		t.Fatal("Truncate() ok = false")
	}
	want := `{"rows":[{"n":0},{"n":4}],"meta":{"source":"PO_DATA"},"_truncated":true,"_total_rows":5,"_top_rows_shown":1,"_bottom_rows_shown":1}`
	if string(got) != want {
		t.Fatalf("Truncate() = %s, want %s", got, want)
	}

	got, ok = Truncate(rowsJSON(3), 1, 1)
	if !ok {
		t.Fatal("Truncate() ok = false")
	}
	want = `{"rows":[{"n":0},{"n":2}],"_truncated":true,"_total_rows":3,"_top_rows_shown":1,"_bottom_rows_shown":1}`
	if string(got) != want {
		t.Fatalf("Truncate() = %s, want %s", got, want)
	}
}

func TestTruncateLeavesSmallAndUnsupportedResults(t *testing.T) {
	cases := []string{
		string(rowsJSON(40)),
		`{"error":"SQL execution failed: timeout"}`,
		`{"rows":"n/a"}`,
		`"scalar"`,
		`{"COUNT":1}`,
		`not json`,
	}
	for _, raw := range cases {
		got, ok := Truncate(json.RawMessage(raw), 20, 20)
		if ok {
			t.Fatalf("Truncate(%.40s) ok = true, want false", raw)
		}
		if string(got) != raw {
			t.Fatalf("Truncate(%.40s) changed input", raw)
		}
	}
}

func TestTruncateRejectsNegativeCounts(t *testing.T) {
	raw := rowsJSON(5)
	got, ok := Truncate(raw, -1, 2)
	if ok || string(got) != string(raw) {
		t.Fatalf("Truncate() = %s, %v; want input unchanged", got, ok)
	}
}

func TestTruncatePreservesRowBytes(t *testing.T) {
	raw := json.RawMessage(`[{"Z":"a&b","A":1},{"Z":"c","A":2},{"Z":"d","A":3}]`)
	got, ok := Truncate(raw, 1, 1)
	if !ok {
		t.Fatal("Truncate() ok = false")
	}
	if !strings.Contains(string(got), `{"Z":"a&b","A":1}`) || !strings.Contains(string(got), `{"Z":"d","A":3}`) {
		t.Fatalf("Truncate() = %s, want original row encoding", got)
	}
	if strings.Contains(string(got), `"c"`) {
		t.Fatalf("Truncate() = %s, middle row should be dropped", got)
	}
}

func rowsJSON(n int) json.RawMessage {
	rows := make([]map[string]int, n)
	for i := range rows {
		rows[i] = map[string]int{"n": i}
	}
	encoded, _ := json.Marshal(rows)
	return encoded
}
