package insights

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func row(channel, category string, spend, roas float64, volume int, position float64) models.MetricsRow {
	return models.MetricsRow{
		Channel:         channel,
		Category:        category,
		Spend:           spend,
		ROAS:            roas,
		SearchVolume:    volume,
		AveragePosition: position,
	}
}

func TestAnalyzeEmptyTable(t *testing.T) {
	engine := NewEngineWithClock(fixedClock)

	report, err := engine.Analyze(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Insights) != 0 {
		t.Fatalf("expected no insights for empty table, got %d", len(report.Insights))
	}
}

func TestChannelRuleSelectsHighestROAS(t *testing.T) {
	// Channel B wins on ROAS despite far lower spend; its confidence is
	// the spend's rank in the aggregate spend range, which is the floor.
	rows := []models.MetricsRow{
		row("A", "c1", 100, 3.0, 10, 1),
		row("B", "c2", 10, 5.0, 10, 1),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Insights) == 0 {
		t.Fatal("expected channel insight")
	}
	funnel := report.Insights[0]
	if funnel.InsightID != "FUN-001" || funnel.Type != models.InsightTypeFunnel {
		t.Fatalf("unexpected insight identity: %s / %s", funnel.InsightID, funnel.Type)
	}
	if !strings.Contains(funnel.Recommendation, "'B'") {
		t.Fatalf("expected channel B in recommendation, got %q", funnel.Recommendation)
	}
	if funnel.Confidence.Score != 0.0 {
		t.Fatalf("expected confidence 0.0, got %v", funnel.Confidence.Score)
	}
}

func TestChannelRuleAveragesAcrossRows(t *testing.T) {
	rows := []models.MetricsRow{
		row("A", "c1", 50, 2.0, 10, 1),
		row("A", "c1", 50, 6.0, 10, 1),
		row("B", "c2", 500, 3.5, 10, 1),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A averages 4.0 across its two rows and beats B's 3.5.
	funnel := report.Insights[0]
	if !strings.Contains(funnel.Recommendation, "'A'") {
		t.Fatalf("expected channel A, got %q", funnel.Recommendation)
	}
	if !strings.Contains(funnel.Recommendation, "4.00x") {
		t.Fatalf("expected averaged ROAS 4.00x, got %q", funnel.Recommendation)
	}
	if !strings.Contains(funnel.Confidence.Justification, "$100.00") {
		t.Fatalf("expected summed spend in justification, got %q", funnel.Confidence.Justification)
	}
}

func TestSEORulePositionBoundary(t *testing.T) {
	// A category ranked exactly at position 5 never qualifies, even at
	// the table's maximum volume.
	atBoundary := []models.MetricsRow{
		row("A", "Shoes", 10, 1.0, 900, 5.0),
		row("A", "Bags", 10, 1.0, 100, 2.0),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(atBoundary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ins := range report.Insights {
		if ins.Type == models.InsightTypeSEO {
			t.Fatalf("position 5.0 must not qualify, got %q", ins.Recommendation)
		}
	}

	// Nudge past the boundary and the same row qualifies.
	pastBoundary := []models.MetricsRow{
		row("A", "Shoes", 10, 1.0, 900, 5.01),
		row("A", "Bags", 10, 1.0, 100, 2.0),
	}

	report, err = engine.Analyze(pastBoundary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seo := findInsight(t, report, models.InsightTypeSEO)
	if !strings.Contains(seo.Recommendation, "'Shoes'") {
		t.Fatalf("expected Shoes, got %q", seo.Recommendation)
	}
}

func TestSEORuleMedianInclusive(t *testing.T) {
	// The middle row sits exactly on the median and is eligible.
	rows := []models.MetricsRow{
		row("A", "Low", 10, 1.0, 100, 8),
		row("A", "Mid", 10, 1.0, 500, 8),
		row("A", "High", 10, 1.0, 900, 2),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seo := findInsight(t, report, models.InsightTypeSEO)
	if !strings.Contains(seo.Recommendation, "'Mid'") {
		t.Fatalf("expected median row to qualify, got %q", seo.Recommendation)
	}
}

func TestSingleRowTable(t *testing.T) {
	engine := NewEngineWithClock(fixedClock)

	// Position inside the top 5: only the channel rule fires, with
	// trivial full confidence.
	report, err := engine.Analyze([]models.MetricsRow{row("Email", "Shoes", 50, 4.0, 800, 3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Insights) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(report.Insights))
	}
	if report.Insights[0].Confidence.Score != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", report.Insights[0].Confidence.Score)
	}

	// Position worse than 5: both rules fire; the singleton row is its
	// own median, so the volume filter passes.
	report, err = engine.Analyze([]models.MetricsRow{row("Email", "Shoes", 50, 4.0, 800, 8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Insights) != 2 {
		t.Fatalf("expected 2 insights, got %d", len(report.Insights))
	}
	seo := findInsight(t, report, models.InsightTypeSEO)
	if seo.Confidence.Score != 1.0 {
		t.Fatalf("expected confidence 1.0 for singleton, got %v", seo.Confidence.Score)
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	rows := []models.MetricsRow{
		row("Email", "Shoes", 50, 4.0, 800, 8),
		row("Paid Social", "Bags", 500, 2.0, 200, 2),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Insights) != 2 {
		t.Fatalf("expected 2 insights, got %d", len(report.Insights))
	}

	funnel := report.Insights[0]
	if funnel.InsightID != "FUN-001" {
		t.Fatalf("expected FUN-001 first, got %s", funnel.InsightID)
	}
	if !strings.Contains(funnel.Recommendation, "'Email'") || !strings.Contains(funnel.Recommendation, "4.00x") {
		t.Fatalf("unexpected funnel recommendation %q", funnel.Recommendation)
	}
	// Email's spend of 50 is the bottom of the [50, 500] spend range.
	if funnel.Confidence.Score != 0.0 {
		t.Fatalf("expected funnel confidence 0.0, got %v", funnel.Confidence.Score)
	}

	seo := report.Insights[1]
	if seo.InsightID != "SEO-001" {
		t.Fatalf("expected SEO-001 second, got %s", seo.InsightID)
	}
	if !strings.Contains(seo.Recommendation, "'Shoes'") || !strings.Contains(seo.Recommendation, "800") {
		t.Fatalf("unexpected seo recommendation %q", seo.Recommendation)
	}
	// Volume 800 is the top of the full-table [200, 800] range.
	if seo.Confidence.Score != 1.0 {
		t.Fatalf("expected seo confidence 1.0, got %v", seo.Confidence.Score)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	rows := []models.MetricsRow{
		row("Email", "Shoes", 50, 4.0, 800, 8),
		row("Paid Social", "Bags", 500, 2.0, 200, 2),
		row("Search", "Hats", 120, 3.1, 640, 6),
	}

	engine := NewEngineWithClock(fixedClock)

	first, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ across identical inputs:\n%+v\n%+v", first, second)
	}
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	rows := []models.MetricsRow{
		row("B", "c2", 10, 5.0, 300, 7),
		row("A", "c1", 100, 3.0, 900, 2),
	}
	snapshot := make([]models.MetricsRow, len(rows))
	copy(snapshot, rows)

	engine := NewEngineWithClock(fixedClock)
	if _, err := engine.Analyze(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(rows, snapshot) {
		t.Fatal("input table was mutated by analysis")
	}
}

func TestReportJSONShape(t *testing.T) {
	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze([]models.MetricsRow{row("Email", "Shoes", 50, 4.0, 800, 8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("failed to marshal report: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to unmarshal report: %v", err)
	}

	if _, ok := decoded["report_generated_utc"]; !ok {
		t.Fatal("missing report_generated_utc field")
	}

	insightList, ok := decoded["insights"].([]interface{})
	if !ok || len(insightList) == 0 {
		t.Fatal("missing insights array")
	}

	first := insightList[0].(map[string]interface{})
	for _, key := range []string{"insight_id", "type", "title", "recommendation", "confidence"} {
		if _, ok := first[key]; !ok {
			t.Fatalf("missing insight field %q", key)
		}
	}

	confidence := first["confidence"].(map[string]interface{})
	for _, key := range []string{"score", "justification"} {
		if _, ok := confidence[key]; !ok {
			t.Fatalf("missing confidence field %q", key)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	amounts := map[float64]string{
		0:         "0.00",
		50:        "50.00",
		999.9:     "999.90",
		1000:      "1,000.00",
		1234567.5: "1,234,567.50",
	}
	for in, want := range amounts {
		if got := formatAmount(in); got != want {
			t.Errorf("formatAmount(%v) = %q, want %q", in, got, want)
		}
	}

	counts := map[int]string{
		0:       "0",
		800:     "800",
		1000:    "1,000",
		25000:   "25,000",
		1234567: "1,234,567",
	}
	for in, want := range counts {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestInsightTextTemplates(t *testing.T) {
	rows := []models.MetricsRow{
		row("Email", "Shoes", 25000, 4.13, 12500, 8),
		row("Paid Social", "Bags", 500, 2.0, 200, 2),
	}

	engine := NewEngineWithClock(fixedClock)
	report, err := engine.Analyze(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	funnel := findInsight(t, report, models.InsightTypeFunnel)
	wantRec := "Consider reallocating budget towards the 'Email' channel, which has the highest ROAS (4.13x)."
	if funnel.Recommendation != wantRec {
		t.Fatalf("funnel recommendation:\n got %q\nwant %q", funnel.Recommendation, wantRec)
	}
	wantJust := "Based on a total spend of $25,000.00 for this channel."
	if funnel.Confidence.Justification != wantJust {
		t.Fatalf("funnel justification:\n got %q\nwant %q", funnel.Confidence.Justification, wantJust)
	}

	seo := findInsight(t, report, models.InsightTypeSEO)
	wantRec = "Focus SEO efforts on 'Shoes' to capture significant organic traffic (Monthly Volume: 12,500)."
	if seo.Recommendation != wantRec {
		t.Fatalf("seo recommendation:\n got %q\nwant %q", seo.Recommendation, wantRec)
	}
	wantJust = "Based on a high search volume of 12,500 per month."
	if seo.Confidence.Justification != wantJust {
		t.Fatalf("seo justification:\n got %q\nwant %q", seo.Confidence.Justification, wantJust)
	}
}

func findInsight(t *testing.T, report *models.Report, typ models.InsightType) models.Insight {
	t.Helper()
	for _, ins := range report.Insights {
		if ins.Type == typ {
			return ins
		}
	}
	t.Fatalf("no insight of type %s in report", typ)
	return models.Insight{}
}
