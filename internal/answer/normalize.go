package answer

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrNotObject = errors.New("not a JSON object")

const (
	jsonFence    = "```json"
	genericFence = "```"
)

// StripFence returns the contents of the first fenced block in text, preferring
// a ```json fence. Text without a fence is returned unchanged.
func StripFence(text string) string {
	for _, fence := range []string{jsonFence, genericFence} {
		if _, after, ok := strings.Cut(text, fence); ok {
			inner, _, _ := strings.Cut(after, genericFence)
			return strings.TrimSpace(inner)
		}
	}
	return text
}

// Normalize converts raw model output into an AnalysisResult. It never fails:
// output that is not a JSON object becomes the narrative itself, paired with
// the default visualization.
func Normalize(raw string) AnalysisResult {
	fields, err := decodeObject(StripFence(raw))
	if err != nil {
		return AnalysisResult{Response: raw, Visualization: DefaultVisualization()}
	}

	response := raw
	isString := true
	if value, ok := fields["response"]; ok {
		response, isString = responseText(value)
	}
	visualization := fields["visualization"]

	// Some models wrap the whole object again inside the response string.
	if isString && strings.HasPrefix(strings.TrimSpace(response), "{") {
		if inner, err := decodeObject(response); err == nil {
			if innerResponse, ok := inner["response"]; ok {
				response, _ = responseText(innerResponse)
				if innerVisualization, ok := inner["visualization"]; ok && visualizationUnset(visualization) {
					visualization = innerVisualization
				}
			}
		}
	}

	return AnalysisResult{Response: response, Visualization: visualizationFrom(visualization)}
}

func decodeObject(text string) (map[string]json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// responseText reports the narrative carried by value and whether value was a
// JSON string. Other JSON values are rendered compactly.
func responseText(value json.RawMessage) (string, bool) {
	var text string
	if err := json.Unmarshal(value, &text); err == nil && isJSONString(value) {
		return text, true
	}
	if isNull(value) {
		return "", false
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, value); err != nil {
		return string(value), false
	}
	return compacted.String(), false
}

// visualizationUnset reports whether raw carries neither a chart type nor an
// x axis.
func visualizationUnset(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if !isObject(raw) || json.Unmarshal(raw, &fields) != nil {
		return true
	}
	for _, key := range []string{"chartType", "xAxis"} {
		if value, ok := fields[key]; ok && !isNull(value) {
			return false
		}
	}
	return true
}

func visualizationFrom(raw json.RawMessage) Visualization {
	var fields map[string]json.RawMessage
	if !isObject(raw) || json.Unmarshal(raw, &fields) != nil {
		return DefaultVisualization()
	}

	viz := DefaultVisualization()
	viz.ChartType = optionalString(fields["chartType"])
	viz.XAxis = optionalString(fields["xAxis"])
	viz.Mode = optionalString(fields["mode"])
	// Title is never null on the wire: an explicit null or a non-string title
	// is replaced by the default just like a missing one.
	if title := optionalString(fields["title"]); title != nil {
		viz.Title = *title
	}
	viz.YAxis = seriesNames(fields["yAxis"])
	return viz
}

func optionalString(value json.RawMessage) *string {
	if !isJSONString(value) {
		return nil
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return nil
	}
	return &text
}

// seriesNames accepts a list of names or a lone name. Non-string entries are
// dropped.
func seriesNames(value json.RawMessage) []string {
	if name := optionalString(value); name != nil {
		return []string{*name}
	}
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if name := optionalString(item); name != nil {
			names = append(names, *name)
		}
	}
	return names
}

func isJSONString(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

func isObject(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
