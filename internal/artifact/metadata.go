package artifact

// Metadata is the open key/value bag attached to a document. Reserved keys get
// typed fields; anything else a producer sends lands in Extra. Values are
// replaced wholesale on merge, never merged recursively — the one exception
// (chart data non-erasure) lives in the delta interpreter.
type Metadata struct {
	Version   int              `json:"version,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Language  string           `json:"language,omitempty"`
	ChartType string           `json:"chartType,omitempty"`
	LineCount int              `json:"lineCount,omitempty"`
	WordCount int              `json:"wordCount,omitempty"`
	Data      []map[string]any `json:"data,omitempty"`
	XKey      string           `json:"xKey,omitempty"`
	YKey      string           `json:"yKey,omitempty"`
	MapType   string           `json:"mapType,omitempty"`
	Extra     map[string]any   `json:"extra,omitempty"`
}

// Clone returns a deep-enough copy: slices and maps are duplicated so the
// caller cannot alias store-owned state. Row maps inside Data are shared;
// rows are treated as immutable once streamed.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Data != nil {
		out.Data = append([]map[string]any(nil), m.Data...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// IsZero reports whether the bag holds nothing at all.
func (m Metadata) IsZero() bool {
	return m.Version == 0 && m.Tags == nil && m.Language == "" && m.ChartType == "" &&
		m.LineCount == 0 && m.WordCount == 0 && len(m.Data) == 0 && m.XKey == "" &&
		m.YKey == "" && m.MapType == "" && len(m.Extra) == 0
}

// MetadataPatch carries the fields of one metadata-update part. Pointer fields
// distinguish "absent" from "set to zero"; nil Data means absent while an
// empty non-nil slice is an explicit (and for charts, ignored) erase.
type MetadataPatch struct {
	Version   *int             `json:"version,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	Title     *string          `json:"title,omitempty"`
	Language  *string          `json:"language,omitempty"`
	ChartType *string          `json:"chartType,omitempty"`
	LineCount *int             `json:"lineCount,omitempty"`
	WordCount *int             `json:"wordCount,omitempty"`
	Data      []map[string]any `json:"data,omitempty"`
	XKey      *string          `json:"xKey,omitempty"`
	YKey      *string          `json:"yKey,omitempty"`
	MapType   *string          `json:"mapType,omitempty"`
	Extra     map[string]any   `json:"extra,omitempty"`
}

// IsZero reports whether the patch carries nothing at all.
func (p *MetadataPatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.Version == nil && p.Tags == nil && p.Title == nil && p.Language == nil &&
		p.ChartType == nil && p.LineCount == nil && p.WordCount == nil && p.Data == nil &&
		p.XKey == nil && p.YKey == nil && p.MapType == nil && len(p.Extra) == 0
}

// MergeInto applies the patch to m key by key, replacing present values
// wholesale. keepData suppresses the Data replacement; the chart handler sets
// it when the incoming array is empty so previously streamed rows survive.
func (p *MetadataPatch) MergeInto(m Metadata, keepData bool) Metadata {
	out := m.Clone()
	if p == nil {
		return out
	}
	if p.Version != nil {
		out.Version = *p.Version
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.Language != nil {
		out.Language = *p.Language
	}
	if p.ChartType != nil {
		out.ChartType = *p.ChartType
	}
	if p.LineCount != nil {
		out.LineCount = *p.LineCount
	}
	if p.WordCount != nil {
		out.WordCount = *p.WordCount
	}
	if p.Data != nil && !keepData {
		out.Data = append([]map[string]any(nil), p.Data...)
	}
	if p.XKey != nil {
		out.XKey = *p.XKey
	}
	if p.YKey != nil {
		out.YKey = *p.YKey
	}
	if p.MapType != nil {
		out.MapType = *p.MapType
	}
	if len(p.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(p.Extra))
		}
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
