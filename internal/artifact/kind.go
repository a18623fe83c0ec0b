package artifact

import "fmt"

// Kind identifies which renderer and behaviour bundle applies to an artifact.
// The set is closed: stream producers and the registry agree on these tags.
type Kind string

const (
	KindText          Kind = "text"
	KindCode          Kind = "code"
	KindChart         Kind = "chart"
	KindVisualization Kind = "visualization"
	KindDocument      Kind = "document"
	KindImage         Kind = "image"
	KindSheet         Kind = "sheet"
)

// Kinds lists every registered artifact kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindText, KindCode, KindChart, KindVisualization, KindDocument, KindImage, KindSheet}
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindCode, KindChart, KindVisualization, KindDocument, KindImage, KindSheet:
		return true
	}
	return false
}

// ParseKind converts a wire tag into a Kind.
func ParseKind(tag string) (Kind, error) {
	k := Kind(tag)
	if !k.Valid() {
		return "", fmt.Errorf("unknown artifact kind: %q", tag)
	}
	return k, nil
}
