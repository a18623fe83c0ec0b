package extract

import "testing"

func TestDetectChartTypeExplicitWinsVerbatim(t *testing.T) {
	data := []map[string]any{{"country": "US", "value": 50.0}}
	if got := DetectChartType("line", "Regional Breakdown", data); got != "line" {
		t.Fatalf("explicit chartType should win, got %q", got)
	}
}

func TestDetectChartTypeTitleKeywords(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Browser Share", "pie"},
		{"Market Share by Vendor", "pie"},
		{"Traffic Distribution", "pie"},
		{"Cost Breakdown", "pie"},
		{"Fleet Composition", "pie"},
		{"Percentage of Users", "pie"},
		{"PIE of the month", "pie"},
		{"Quarterly Revenue", "bar"},
		{"", "bar"},
	}
	for _, tc := range cases {
		if got := DetectChartType("", tc.title, nil); got != tc.want {
			t.Fatalf("title %q: expected %q, got %q", tc.title, tc.want, got)
		}
	}
}

func TestDetectChartTypeKeyShape(t *testing.T) {
	pieRows := []map[string]any{
		{"country": "US", "value": 50.0},
		{"country": "UK", "value": 50.0},
	}
	if got := DetectChartType("", "Results", pieRows); got != "pie" {
		t.Fatalf("two-key country rows should classify pie, got %q", got)
	}

	categoryRows := []map[string]any{{"productCategory": "Toys", "sold": 12.0}}
	if got := DetectChartType("", "", categoryRows); got != "pie" {
		t.Fatalf("category key substring should classify pie, got %q", got)
	}

	threeKeyRows := []map[string]any{{"country": "US", "value": 50.0, "year": 2024.0}}
	if got := DetectChartType("", "Results", threeKeyRows); got != "bar" {
		t.Fatalf("three-key rows should classify bar, got %q", got)
	}

	plainKeys := []map[string]any{{"name": "A", "value": 1.0}}
	if got := DetectChartType("", "Results", plainKeys); got != "bar" {
		t.Fatalf("non-matching key names should classify bar, got %q", got)
	}
}

func TestDetectChartTypeKeyShapeRowLimit(t *testing.T) {
	rows := make([]map[string]any, 11)
	for i := range rows {
		rows[i] = map[string]any{"region": "r", "value": float64(i)}
	}
	if got := DetectChartType("", "", rows); got != "bar" {
		t.Fatalf("more than 10 rows should classify bar, got %q", got)
	}
	if got := DetectChartType("", "", rows[:10]); got != "pie" {
		t.Fatalf("exactly 10 rows should classify pie, got %q", got)
	}
}

func TestDetectChartTypeNumericLabelColumn(t *testing.T) {
	// The matching key must hold a non-numeric value.
	rows := []map[string]any{{"country": 1.0, "value": 2.0}}
	if got := DetectChartType("", "", rows); got != "bar" {
		t.Fatalf("numeric country column should classify bar, got %q", got)
	}
}
