package artifact

import "time"

// Document is the mutable entity built up by the stream pipeline. The store
// owns the authoritative copy for the document's lifetime; everything handed
// outwards is a value copy, so callers never retain write access.
type Document struct {
	ID          string
	Kind        Kind
	Title       string
	Content     string
	Metadata    Metadata
	Status      Status
	Visible     bool
	Diagnostics []string
	Versions    []Version
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Version is one explicit save point of content plus metadata. Versions are
// appended at snapshot calls, never per delta, so history stays bounded.
type Version struct {
	Content  string    `json:"content"`
	Metadata Metadata  `json:"metadata"`
	SavedAt  time.Time `json:"saved_at"`
}

// Clone deep-copies the document so store internals never escape.
func (d Document) Clone() Document {
	out := d
	out.Metadata = d.Metadata.Clone()
	if d.Diagnostics != nil {
		out.Diagnostics = append([]string(nil), d.Diagnostics...)
	}
	if d.Versions != nil {
		out.Versions = make([]Version, len(d.Versions))
		for i, v := range d.Versions {
			out.Versions[i] = Version{Content: v.Content, Metadata: v.Metadata.Clone(), SavedAt: v.SavedAt}
		}
	}
	return out
}

// Plain is the serializable hand-off shape for presentational code. No UI
// framework types appear here.
type Plain struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Status   string   `json:"status"`
	Visible  bool     `json:"visible"`
	Error    string   `json:"error,omitempty"`
}

// Plain flattens the document for the UI boundary. The last diagnostic, if
// any, rides along so an errored artifact can show its banner next to the
// partial content.
func (d Document) Plain() Plain {
	p := Plain{
		ID:       d.ID,
		Kind:     d.Kind,
		Title:    d.Title,
		Content:  d.Content,
		Metadata: d.Metadata.Clone(),
		Status:   d.Status.String(),
		Visible:  d.Visible,
	}
	if len(d.Diagnostics) > 0 {
		p.Error = d.Diagnostics[len(d.Diagnostics)-1]
	}
	return p
}
