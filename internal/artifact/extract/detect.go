package extract

import (
	"strings"

	"easel/internal/shared/jsonx"
)

var pieTitleKeywords = []string{"pie", "distribution", "breakdown", "composition", "percentage", "share"}

var pieKeyNames = []string{"country", "category", "region"}

// DetectChartType infers the chart subtype for a candidate payload.
//
// Precedence: an explicit chartType wins verbatim; otherwise a pie keyword in
// the title; otherwise a small two-column dataset whose label column is named
// like a country/category/region; otherwise bar. Callers re-run detection on
// every metadata delta rather than caching the first verdict, so a chart can
// flip from bar to pie mid-stream as data and title fill in.
func DetectChartType(explicit, title string, data []map[string]any) string {
	if explicit != "" {
		return explicit
	}
	lowerTitle := strings.ToLower(title)
	for _, keyword := range pieTitleKeywords {
		if strings.Contains(lowerTitle, keyword) {
			return "pie"
		}
	}
	if len(data) > 0 && len(data) <= 10 {
		first := data[0]
		if len(first) == 2 {
			for key, value := range first {
				if isNumeric(value) {
					continue
				}
				name := strings.ToLower(key)
				for _, fragment := range pieKeyNames {
					if strings.Contains(name, fragment) {
						return "pie"
					}
				}
			}
		}
	}
	return "bar"
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, jsonx.Number:
		return true
	}
	return false
}
