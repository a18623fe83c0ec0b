package registry

import "easel/internal/artifact"

// ViewState distinguishes the rungs of the render fallback ladder.
type ViewState string

const (
	// ViewRendered means structured data is ready to draw.
	ViewRendered ViewState = "rendered"
	// ViewParseError means content was present but unusable; Raw and
	// ParseError carry what the UI must show instead of swallowing it.
	ViewParseError ViewState = "error"
	// ViewLoading means neither content nor metadata has arrived yet.
	ViewLoading ViewState = "loading"
	// ViewEmptyDefault means the document exists but holds nothing
	// renderable; the UI slot shows an empty instance of the kind, not blank.
	ViewEmptyDefault ViewState = "empty"
)

// ViewModel is the render-ready hand-off shape. No UI framework types.
type ViewModel struct {
	State      ViewState        `json:"state"`
	Kind       artifact.Kind    `json:"kind"`
	Title      string           `json:"title,omitempty"`
	Body       string           `json:"body,omitempty"`
	Language   string           `json:"language,omitempty"`
	Data       []map[string]any `json:"data,omitempty"`
	ChartType  string           `json:"chartType,omitempty"`
	XKey       string           `json:"xKey,omitempty"`
	YKey       string           `json:"yKey,omitempty"`
	MapType    string           `json:"mapType,omitempty"`
	ParseError string           `json:"parseError,omitempty"`
	Raw        string           `json:"raw,omitempty"`
}
