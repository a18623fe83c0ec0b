package artifact

// Status tracks the streaming lifecycle of a document. Enum values are defined
// manually rather than generated so the wire names stay stable.
type Status int32

const (
	StatusDraft     Status = 0
	StatusStreaming Status = 1
	StatusCompleted Status = 2
	StatusError     Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ParseStatus maps a wire label back to a Status. Unrecognised labels map to
// StatusError so a garbled terminal signal still terminates the document.
func ParseStatus(label string) (Status, bool) {
	switch label {
	case "draft":
		return StatusDraft, true
	case "streaming":
		return StatusStreaming, true
	case "completed":
		return StatusCompleted, true
	case "error":
		return StatusError, true
	}
	return StatusError, false
}

// Terminal reports whether no further transitions may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether moving from s to next is legal.
// draft→streaming, streaming→completed, and any→error are the only moves;
// nothing leaves a terminal state, and self-transitions are not moves at all.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusError:
		return true
	case StatusStreaming:
		return s == StatusDraft
	case StatusCompleted:
		return s == StatusStreaming
	}
	return false
}
