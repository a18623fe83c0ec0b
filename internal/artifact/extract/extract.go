// Package extract scans fully-materialized assistant text for fenced artifact
// regions and produces immutable artifact records. It is the legacy, one-shot
// counterpart to the streamed document pipeline: output is regenerated
// wholesale whenever the source text changes, never patched incrementally.
package extract

import (
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"easel/internal/artifact"
	"easel/internal/shared/jsonx"
)

// Artifact is one extracted region. It has no lifecycle: it is a derived,
// read-only view over the message text it came from.
type Artifact struct {
	Type              artifact.Kind    `json:"type"`
	Content           string           `json:"content"`
	Language          string           `json:"language,omitempty"`
	Title             string           `json:"title,omitempty"`
	Data              []map[string]any `json:"data,omitempty"`
	ChartType         string           `json:"chartType,omitempty"`
	VisualizationType string           `json:"visualizationType,omitempty"`
	MapType           string           `json:"mapType,omitempty"`
}

const fenceMarker = "```"

// Extract returns every fenced artifact region of text in document order.
// It never returns an error: malformed embedded payloads degrade to code
// artifacts and unterminated fences simply end the scan.
func Extract(text string) []Artifact {
	var out []Artifact
	rest := text
	for {
		open := strings.Index(rest, fenceMarker)
		if open == -1 {
			break
		}
		rest = rest[open+len(fenceMarker):]
		lineEnd := strings.Index(rest, "\n")
		if lineEnd == -1 {
			break
		}
		tag := strings.TrimSpace(rest[:lineEnd])
		body := rest[lineEnd+1:]
		closeIdx := findClosingFence(body)
		if closeIdx == -1 {
			break
		}
		inner := trimBlankEdges(body[:closeIdx])
		rest = body[closeIdx+len(fenceMarker):]
		out = append(out, classify(tag, inner))
	}
	return out
}

// Has reports whether text contains at least one artifact region. Consistent
// with Extract by construction; the Contains check only short-circuits the
// common no-fence case.
func Has(text string) bool {
	if !strings.Contains(text, fenceMarker) {
		return false
	}
	return len(Extract(text)) > 0
}

// Count returns the number of artifact regions in text.
func Count(text string) int {
	if !strings.Contains(text, fenceMarker) {
		return 0
	}
	return len(Extract(text))
}

// findClosingFence locates a fence marker at the start of a line within body.
func findClosingFence(body string) int {
	if strings.HasPrefix(body, fenceMarker) {
		return 0
	}
	idx := strings.Index(body, "\n"+fenceMarker)
	if idx == -1 {
		return -1
	}
	return idx + 1
}

// trimBlankEdges strips leading and trailing blank lines only; internal
// whitespace is preserved verbatim.
func trimBlankEdges(s string) string {
	lines := strings.Split(s, "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// Payload is the structured shape expected inside chart-like fences.
type Payload struct {
	ChartType string           `json:"chartType"`
	Title     string           `json:"title"`
	Data      []map[string]any `json:"data"`
	XKey      string           `json:"xKey"`
	YKey      string           `json:"yKey"`
	MapType   string           `json:"mapType"`
}

func classify(tag, inner string) Artifact {
	switch strings.ToLower(tag) {
	case "chart":
		return classifyChart(inner, "")
	case "table", "heatmap", "treemap":
		return classifyVisualization(strings.ToLower(tag), inner)
	case "geospatial", "map":
		return classifyGeospatial(inner)
	case "mermaid":
		return Artifact{Type: artifact.KindVisualization, Content: inner, VisualizationType: "mermaid"}
	case "":
		return classifyUnannotated(inner)
	default:
		return Artifact{Type: artifact.KindCode, Content: inner, Language: strings.ToLower(tag)}
	}
}

func classifyChart(inner, fallbackTitle string) Artifact {
	payload, ok := parseStructured(inner)
	if !ok {
		return degradeToCode(inner)
	}
	title := payload.Title
	if title == "" {
		title = fallbackTitle
	}
	return Artifact{
		Type:      artifact.KindChart,
		Content:   inner,
		Title:     title,
		Data:      payload.Data,
		ChartType: DetectChartType(payload.ChartType, title, payload.Data),
	}
}

func classifyVisualization(kind, inner string) Artifact {
	payload, ok := parseStructured(inner)
	if !ok {
		return degradeToCode(inner)
	}
	return Artifact{
		Type:              artifact.KindVisualization,
		Content:           inner,
		Title:             payload.Title,
		Data:              payload.Data,
		VisualizationType: kind,
	}
}

func classifyGeospatial(inner string) Artifact {
	payload, ok := parseStructured(inner)
	if !ok {
		return degradeToCode(inner)
	}
	mapType := payload.MapType
	if mapType == "" {
		mapType = "markers"
	}
	return Artifact{
		Type:              artifact.KindVisualization,
		Content:           inner,
		Title:             payload.Title,
		Data:              payload.Data,
		VisualizationType: "geospatial",
		MapType:           mapType,
	}
}

// classifyUnannotated handles fences without a language tag. JSON carrying a
// data array next to chart-like keys is promoted to a chart; everything else
// stays plain code.
func classifyUnannotated(inner string) Artifact {
	trimmed := strings.TrimSpace(inner)
	if strings.HasPrefix(trimmed, "{") {
		var payload Payload
		if err := jsonx.Unmarshal([]byte(trimmed), &payload); err == nil && len(payload.Data) > 0 {
			if payload.ChartType != "" || payload.Title != "" || payload.XKey != "" || payload.YKey != "" {
				return classifyChart(inner, "")
			}
		}
	}
	return Artifact{Type: artifact.KindCode, Content: inner}
}

// ParsePayload decodes a structured fence body, accepting either an object
// payload or a bare row array. One repair pass is attempted on invalid JSON
// before giving up; the returned error is the original decode failure so
// callers can surface it.
func ParsePayload(inner string) (Payload, error) {
	attempt := func(raw string) (Payload, error) {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "[") {
			var rows []map[string]any
			if err := jsonx.Unmarshal([]byte(trimmed), &rows); err != nil {
				return Payload{}, err
			}
			return Payload{Data: rows}, nil
		}
		var payload Payload
		if err := jsonx.Unmarshal([]byte(trimmed), &payload); err != nil {
			return Payload{}, err
		}
		return payload, nil
	}

	payload, firstErr := attempt(inner)
	if firstErr == nil {
		return payload, nil
	}
	repaired, err := jsonrepair.JSONRepair(inner)
	if err != nil {
		return Payload{}, firstErr
	}
	payload, err = attempt(repaired)
	if err != nil {
		return Payload{}, firstErr
	}
	return payload, nil
}

func parseStructured(inner string) (Payload, bool) {
	payload, err := ParsePayload(inner)
	return payload, err == nil
}

func degradeToCode(inner string) Artifact {
	return Artifact{Type: artifact.KindCode, Content: inner, Language: "json"}
}
