package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/askdata/askdata/internal/answer"
	"github.com/askdata/askdata/internal/llm"
	"github.com/askdata/askdata/internal/narrative"
	"github.com/askdata/askdata/internal/nl2sql"
	"github.com/askdata/askdata/internal/query"
)

const (
	sqlPrompt       = "SQL PROMPT"
	narrativePrompt = "NARRATIVE PROMPT"
	noticePrompt    = "TRUNCATION NOTICE\n\n"
)

// scriptedModel answers SQL and narrative requests from separate scripts,
// telling them apart by their system prompt.
type scriptedModel struct {
	sqlText       string
	sqlErr        error
	narrativeText string
	narrativeErr  error
	sqlCalls      int
	narrativeReqs []llm.Request
}

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (string, error) {
	if req.Preamble == sqlPrompt {
		m.sqlCalls++
		return m.sqlText, m.sqlErr
	}
	m.narrativeReqs = append(m.narrativeReqs, req)
	return m.narrativeText, m.narrativeErr
}

type fakeBackend struct {
	result json.RawMessage
	err    error
	calls  int
}

func (b *fakeBackend) Execute(context.Context, string) (json.RawMessage, error) {
	b.calls++
	return b.result, b.err
}

func newOrchestrator(t *testing.T, model *scriptedModel, backend *fakeBackend) *Orchestrator {
	t.Helper()
	sqlGenerator, err := nl2sql.NewGenerator(model, sqlPrompt)
	if err != nil {
		t.Fatalf("nl2sql.NewGenerator() error = %v", err)
	}
	executor, err := query.NewExecutor(backend, 0, nil)
	if err != nil {
		t.Fatalf("query.NewExecutor() error = %v", err)
	}
	narrativeGenerator, err := narrative.NewGenerator(model, narrative.Config{Preamble: narrativePrompt, TruncationNotice: noticePrompt}, nil)
	if err != nil {
		t.Fatalf("narrative.NewGenerator() error = %v", err)
	}
	orchestrator, err := New(sqlGenerator, executor, narrativeGenerator, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orchestrator
}

func TestHandleHappyPath(t *testing.T) {
	model := &scriptedModel{
		sqlText:       "```sql\nSELECT COUNT(*) FROM PO_DATA;\n```",
		narrativeText: `{"response":"There are **12** purchase orders.","visualization":{"chartType":null,"title":"POs","xAxis":null,"yAxis":null,"mode":null}}`,
	}
	backend := &fakeBackend{result: json.RawMessage(`[{"COUNT(*)":12}]`)}
	orchestrator := newOrchestrator(t, model, backend)

	resp := orchestrator.Handle(context.Background(), []byte(`{"query":"  How many POs?  "}`))
	if !resp.Succeeded() {
		t.Fatalf("Status = %v, body = %+v", resp.Status, resp.Body)
	}
	final, ok := resp.Body.(answer.FinalAnswer)
	if !ok {
		t.Fatalf("Body = %T", resp.Body)
	}
	if final.Query != "How many POs?" || final.SQL != "SELECT COUNT(*) FROM PO_DATA" {
		t.Fatalf("query/sql = %q/%q", final.Query, final.SQL)
	}
	if string(final.Data) != `[{"COUNT(*)":12}]` {
		t.Fatalf("Data = %s", final.Data)
	}
	if final.Response != "There are **12** purchase orders." {
		t.Fatalf("Response = %q", final.Response)
	}

	encoded, err := json.Marshal(final)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"query":"How many POs?","sql":"SELECT COUNT(*) FROM PO_DATA","data":[{"COUNT(*)":12}],"response":"There are **12** purchase orders.","visualization":{"chartType":null,"title":"POs","xAxis":null,"yAxis":null,"mode":null}}`
	if string(encoded) != want {
		t.Fatalf("encoded answer = %s", encoded)
	}
}

func TestHandleSQLExecutionErrorStillSucceeds(t *testing.T) {
	model := &scriptedModel{sqlText: "SELECT * FROM PO_DATA", narrativeErr: errors.New("model down")}
	backend := &fakeBackend{err: errors.New("connection refused")}
	orchestrator := newOrchestrator(t, model, backend)

	resp := orchestrator.Handle(context.Background(), []byte(`{"query":"list POs"}`))
	if !resp.Succeeded() {
		t.Fatalf("Status = %v", resp.Status)
	}
	final := resp.Body.(answer.FinalAnswer)

	var data map[string]string
	if err := json.Unmarshal(final.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !strings.HasPrefix(data["error"], "SQL execution failed: ") {
		t.Fatalf("data = %v", data)
	}
	if !strings.HasPrefix(final.Response, "Query executed successfully. Results: ") {
		t.Fatalf("Response = %q", final.Response)
	}
	if final.Visualization.Title != answer.DefaultChartTitle {
		t.Fatalf("Visualization = %+v", final.Visualization)
	}
}

func TestHandleSQLGenerationFailure(t *testing.T) {
	model := &scriptedModel{sqlErr: errors.New("401 unauthorized")}
	backend := &fakeBackend{}
	orchestrator := newOrchestrator(t, model, backend)

	resp := orchestrator.Handle(context.Background(), []byte(`{"query":"anything"}`))
	if resp.Status != StatusServerError {
		t.Fatalf("Status = %v", resp.Status)
	}
	body := resp.Body.(ErrorBody)
	if body.Error != "Internal server error" || !strings.Contains(body.Details, "401 unauthorized") {
		t.Fatalf("Body = %+v", body)
	}
	if backend.calls != 0 {
		t.Fatal("backend should not be called when SQL generation fails")
	}
	if len(model.narrativeReqs) != 0 {
		t.Fatal("narrative model should not be called when SQL generation fails")
	}
}

func TestHandleTruncatesLargeResults(t *testing.T) {
	var rows strings.Builder
	rows.WriteByte('[')
	for i := 0; i < 55; i++ {
		if i > 0 {
			rows.WriteByte(',')
		}
		fmt.Fprintf(&rows, `{"PONO":"PO-%d","REMARKS":%q}`, i, strings.Repeat("x", 14000))
	}
	rows.WriteByte(']')

	model := &scriptedModel{sqlText: "SELECT * FROM PO_DATA", narrativeText: `{"response":"Below is the analysis of the top 20 and bottom 20 rows."}`}
	backend := &fakeBackend{result: json.RawMessage(rows.String())}
	orchestrator := newOrchestrator(t, model, backend)

	resp := orchestrator.Handle(context.Background(), []byte(`{"query":"show every PO"}`))
	if !resp.Succeeded() {
		t.Fatalf("Status = %v", resp.Status)
	}
	final := resp.Body.(answer.FinalAnswer)

	var data struct {
		Rows      []json.RawMessage `json:"rows"`
		Truncated bool              `json:"_truncated"`
		TotalRows int               `json:"_total_rows"`
	}
	if err := json.Unmarshal(final.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Truncated || data.TotalRows != 55 || len(data.Rows) != 40 {
		t.Fatalf("data = truncated:%v total:%d rows:%d", data.Truncated, data.TotalRows, len(data.Rows))
	}
	if len(model.narrativeReqs) != 1 || !strings.HasPrefix(model.narrativeReqs[0].Preamble, noticePrompt) {
		t.Fatal("narrative prompt should start with the truncation notice")
	}
}

func TestHandleRejectsBadBodies(t *testing.T) {
	cases := map[string]string{
		"not json":         "Invalid JSON in request body",
		"":                 "Invalid JSON in request body",
		`["query"]`:        "Invalid JSON in request body",
		`null`:             "Invalid JSON in request body",
		`{"query": "x"`:    "Invalid JSON in request body",
		`{}`:               "Missing required field: query",
		`{"query":""}`:     "Missing required field: query",
		`{"query":"   "}`:  "Missing required field: query",
		`{"query":42}`:     "Missing required field: query",
		`{"query":null}`:   "Missing required field: query",
		`{"question":"x"}`: "Missing required field: query",
	}
	for body, want := range cases {
		model := &scriptedModel{}
		backend := &fakeBackend{}
		orchestrator := newOrchestrator(t, model, backend)
		resp := orchestrator.Handle(context.Background(), []byte(body))
		if resp.Status != StatusClientError {
			t.Fatalf("Handle(%q) Status = %v", body, resp.Status)
		}
		if got := resp.Body.(ErrorBody); got.Error != want || got.Details != "" {
			t.Fatalf("Handle(%q) Body = %+v, want %q", body, got, want)
		}
		if model.sqlCalls != 0 || len(model.narrativeReqs) != 0 || backend.calls != 0 {
			t.Fatalf("Handle(%q) reached collaborators: sql=%d narrative=%d backend=%d", body, model.sqlCalls, len(model.narrativeReqs), backend.calls)
		}
	}
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string) (string, error) {
	panic("boom")
}

func TestHandleRecoversFromPanics(t *testing.T) {
	executor, err := query.NewExecutor(&fakeBackend{}, 0, nil)
	if err != nil {
		t.Fatalf("query.NewExecutor() error = %v", err)
	}
	narrativeGenerator, err := narrative.NewGenerator(&scriptedModel{}, narrative.Config{Preamble: narrativePrompt}, nil)
	if err != nil {
		t.Fatalf("narrative.NewGenerator() error = %v", err)
	}
	orchestrator, err := New(panickingGenerator{}, executor, narrativeGenerator, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp := orchestrator.Handle(context.Background(), []byte(`{"query":"q"}`))
	if resp.Status != StatusServerError {
		t.Fatalf("Status = %v", resp.Status)
	}
	if body := resp.Body.(ErrorBody); !strings.Contains(body.Details, "boom") {
		t.Fatalf("Body = %+v", body)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	if _, err := New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
