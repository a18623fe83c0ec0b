package registry

import (
	"strings"

	"easel/internal/artifact"
	"easel/internal/artifact/extract"
)

// Default returns a registry with every kind pre-registered.
func Default() *Registry {
	r := New()
	defs := []Definition{
		textDefinition(),
		codeDefinition(),
		chartDefinition(),
		visualizationDefinition(),
		documentDefinition(),
		imageDefinition(),
		sheetDefinition(),
	}
	for _, def := range defs {
		// Registration of the built-in set cannot collide.
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

func textDefinition() Definition {
	return Definition{
		Kind:          artifact.KindText,
		RenderContent: renderProse(artifact.KindText),
		Actions:       []Action{copyAction(), downloadAction("md"), askAction()},
	}
}

func documentDefinition() Definition {
	return Definition{
		Kind:          artifact.KindDocument,
		RenderContent: renderProse(artifact.KindDocument),
		Actions:       []Action{copyAction(), downloadAction("md"), askAction()},
	}
}

func codeDefinition() Definition {
	return Definition{
		Kind: artifact.KindCode,
		Initialize: func(ctx InitContext) artifact.Metadata {
			return artifact.Metadata{Language: "plaintext"}
		},
		RenderContent: func(content string, meta artifact.Metadata) ViewModel {
			if content != "" {
				return ViewModel{State: ViewRendered, Body: content, Language: meta.Language}
			}
			if meta.IsZero() {
				return ViewModel{State: ViewLoading}
			}
			return ViewModel{State: ViewEmptyDefault, Language: meta.Language}
		},
		Actions: []Action{copyAction(), downloadAction("txt"), askAction()},
	}
}

func chartDefinition() Definition {
	return Definition{
		Kind: artifact.KindChart,
		Initialize: func(ctx InitContext) artifact.Metadata {
			return artifact.Metadata{ChartType: extract.DetectChartType("", ctx.Title, nil)}
		},
		OnStreamPart: chartDeltaHook,
		RenderContent: func(content string, meta artifact.Metadata) ViewModel {
			if len(meta.Data) > 0 {
				return ViewModel{
					State:     ViewRendered,
					Data:      meta.Data,
					ChartType: extract.DetectChartType(meta.ChartType, "", meta.Data),
					XKey:      meta.XKey,
					YKey:      meta.YKey,
				}
			}
			if strings.TrimSpace(content) != "" {
				payload, err := extract.ParsePayload(content)
				if err != nil {
					return ViewModel{State: ViewParseError, Raw: content, ParseError: err.Error()}
				}
				return ViewModel{
					State:     ViewRendered,
					Title:     payload.Title,
					Data:      payload.Data,
					ChartType: extract.DetectChartType(payload.ChartType, payload.Title, payload.Data),
					XKey:      payload.XKey,
					YKey:      payload.YKey,
				}
			}
			if meta.IsZero() {
				return ViewModel{State: ViewLoading}
			}
			// An empty chart renders as an empty plot, never a blank slot.
			return ViewModel{State: ViewEmptyDefault, ChartType: meta.ChartType, XKey: meta.XKey, YKey: meta.YKey}
		},
		Actions: []Action{copyAction(), downloadAction("json"), askAction()},
	}
}

func visualizationDefinition() Definition {
	return Definition{
		Kind: artifact.KindVisualization,
		RenderContent: func(content string, meta artifact.Metadata) ViewModel {
			vizType, _ := meta.Extra["visualizationType"].(string)
			if len(meta.Data) > 0 {
				return ViewModel{State: ViewRendered, Data: meta.Data, MapType: meta.MapType, Body: vizType}
			}
			if strings.TrimSpace(content) != "" {
				payload, err := extract.ParsePayload(content)
				if err != nil {
					return ViewModel{State: ViewParseError, Raw: content, ParseError: err.Error()}
				}
				mapType := payload.MapType
				if mapType == "" {
					mapType = meta.MapType
				}
				return ViewModel{State: ViewRendered, Title: payload.Title, Data: payload.Data, MapType: mapType, Body: vizType}
			}
			if meta.IsZero() {
				return ViewModel{State: ViewLoading}
			}
			return ViewModel{State: ViewEmptyDefault, MapType: meta.MapType, Body: vizType}
		},
		Actions: []Action{copyAction(), downloadAction("json"), askAction()},
	}
}

func imageDefinition() Definition {
	return Definition{
		Kind: artifact.KindImage,
		RenderContent: func(content string, meta artifact.Metadata) ViewModel {
			if url, ok := meta.Extra["url"].(string); ok && url != "" {
				return ViewModel{State: ViewRendered, Body: url}
			}
			if content != "" {
				return ViewModel{State: ViewRendered, Body: content}
			}
			if meta.IsZero() {
				return ViewModel{State: ViewLoading}
			}
			return ViewModel{State: ViewEmptyDefault}
		},
		Actions: []Action{downloadAction("png"), askAction()},
	}
}

func sheetDefinition() Definition {
	return Definition{
		Kind: artifact.KindSheet,
		RenderContent: func(content string, meta artifact.Metadata) ViewModel {
			if len(meta.Data) > 0 {
				return ViewModel{State: ViewRendered, Data: meta.Data}
			}
			if strings.TrimSpace(content) != "" {
				payload, err := extract.ParsePayload(content)
				if err != nil {
					return ViewModel{State: ViewParseError, Raw: content, ParseError: err.Error()}
				}
				return ViewModel{State: ViewRendered, Title: payload.Title, Data: payload.Data}
			}
			if meta.IsZero() {
				return ViewModel{State: ViewLoading}
			}
			return ViewModel{State: ViewEmptyDefault}
		},
		Actions: []Action{copyAction(), downloadAction("csv"), askAction()},
	}
}

func renderProse(kind artifact.Kind) func(string, artifact.Metadata) ViewModel {
	return func(content string, meta artifact.Metadata) ViewModel {
		if content != "" {
			return ViewModel{State: ViewRendered, Body: content}
		}
		if meta.IsZero() {
			return ViewModel{State: ViewLoading}
		}
		return ViewModel{State: ViewEmptyDefault}
	}
}

// chartDeltaHook applies the chart-specific merge for "chart-delta" parts.
// Precedence per field: data/title/xKey/yKey take the incoming value when
// present (data only when non-empty), otherwise keep the previous one; the
// chart type is an explicit value on the part if given, else the heuristic
// re-run over the merged state. Other part types fall through to the generic
// rules.
func chartDeltaHook(doc artifact.Document, part artifact.StreamPart) (artifact.Document, bool) {
	if part.Type != artifact.PartType("chart-delta") {
		return doc, false
	}
	if doc.Status.Terminal() {
		return doc, true
	}
	patch := part.Metadata
	next := doc
	explicit := ""
	if patch != nil {
		if len(patch.Data) > 0 {
			next.Metadata.Data = append([]map[string]any(nil), patch.Data...)
		}
		if patch.Title != nil {
			next.Title = *patch.Title
		}
		if patch.XKey != nil {
			next.Metadata.XKey = *patch.XKey
		}
		if patch.YKey != nil {
			next.Metadata.YKey = *patch.YKey
		}
		if patch.ChartType != nil {
			explicit = *patch.ChartType
		}
	}
	next.Metadata.ChartType = extract.DetectChartType(explicit, next.Title, next.Metadata.Data)
	if next.Status == artifact.StatusDraft {
		next.Status = artifact.StatusStreaming
	}
	return next, true
}
