// Package answer holds the response shapes returned to callers and the
// normalizer that turns free-form model output into them.
package answer

import (
	"encoding/json"
)

const DefaultChartTitle = "Auto-generated Chart"

// Visualization is the chart hint attached to every answer. All five keys are
// always encoded; unset values encode as null.
type Visualization struct {
	ChartType *string  `json:"chartType"`
	Title     string   `json:"title"`
	XAxis     *string  `json:"xAxis"`
	YAxis     []string `json:"yAxis"`
	Mode      *string  `json:"mode"`
}

func DefaultVisualization() Visualization {
	return Visualization{Title: DefaultChartTitle}
}

// AnalysisResult is the narrative produced for a query result.
type AnalysisResult struct {
	Response      string        `json:"response"`
	Visualization Visualization `json:"visualization"`
}

// FinalAnswer is the success body of an ask request.
type FinalAnswer struct {
	Query         string          `json:"query"`
	SQL           string          `json:"sql"`
	Data          json.RawMessage `json:"data"`
	Response      string          `json:"response"`
	Visualization Visualization   `json:"visualization"`
}
