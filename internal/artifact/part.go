package artifact

import "strings"

// PartType tags one incremental stream update.
type PartType string

const (
	PartContentUpdate  PartType = "content-update"
	PartMetadataUpdate PartType = "metadata-update"
	PartStatusUpdate   PartType = "status-update"
	PartError          PartType = "error"
)

// StreamPart is the unit of incoming data for one document. Parts must reach
// the interpreter in producer order; that is a documented precondition on the
// caller, not something the core re-sequences.
//
// Besides the four generic types, producers may emit kind-specific extension
// parts named "<kind>-delta" (for example "chart-delta"); those are routed to
// the kind's registered handler before the generic rules apply.
type StreamPart struct {
	Type     PartType       `json:"type"`
	Content  string         `json:"content,omitempty"`
	Metadata *MetadataPatch `json:"metadata,omitempty"`
	Status   string         `json:"status,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// KindDelta reports whether the part is a "<kind>-delta" extension and, if
// so, which kind it addresses. Only valid kinds qualify; "text-delta" is the
// plain content stream and is translated to a content-update upstream.
func (p StreamPart) KindDelta() (Kind, bool) {
	tag, ok := strings.CutSuffix(string(p.Type), "-delta")
	if !ok {
		return "", false
	}
	k := Kind(tag)
	if !k.Valid() {
		return "", false
	}
	return k, true
}
