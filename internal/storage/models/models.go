package models

import "time"

// MetricsRow is one cleaned observation from the D2C dataset: a
// (channel, category) pairing with its paid and organic performance
// figures. CTR, CAC and ROAS are derived during ingestion.
type MetricsRow struct {
	Channel         string  `json:"channel"`
	Category        string  `json:"category"`
	Spend           float64 `json:"spend"`
	Revenue         float64 `json:"revenue"`
	Clicks          int     `json:"clicks"`
	Impressions     int     `json:"impressions"`
	Conversions     int     `json:"conversions"`
	SearchVolume    int     `json:"search_volume"`
	AveragePosition float64 `json:"average_position"`
	CTR             float64 `json:"ctr"`
	CAC             float64 `json:"cac"`
	ROAS            float64 `json:"roas"`
}

// ChannelAggregate holds per-channel figures derived from the full table.
// One aggregate exists per distinct channel value.
type ChannelAggregate struct {
	Channel    string  `json:"channel"`
	AvgROAS    float64 `json:"avg_roas"`
	TotalSpend float64 `json:"total_spend"`
}

type InsightType string

const (
	InsightTypeFunnel InsightType = "Funnel"
	InsightTypeSEO    InsightType = "SEO"
)

// Confidence scores how strongly the underlying data backs an insight.
// Score is a [0,1] heuristic, not a p-value.
type Confidence struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
}

// Insight is a single ranked, scored, justified finding. The JSON shape
// is a compatibility surface for the dashboard and the narrative
// generator; do not rename fields.
type Insight struct {
	InsightID      string      `json:"insight_id"`
	Type           InsightType `json:"type"`
	Title          string      `json:"title"`
	Recommendation string      `json:"recommendation"`
	Confidence     Confidence  `json:"confidence"`
}

// Report pairs one analysis pass with its generation timestamp (UTC).
type Report struct {
	GeneratedUTC time.Time `json:"report_generated_utc"`
	Insights     []Insight `json:"insights"`
}

// StoredReport is a persisted report plus the executive narrative
// produced for it. Narrative is empty when generation failed or was
// skipped; the insight set is always complete.
type StoredReport struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Insights    []Insight `json:"insights"`
	Narrative   string    `json:"narrative,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PipelineRun records one end-to-end execution of the analysis pipeline.
type PipelineRun struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	DatasetPath string    `json:"dataset_path"`
	DatasetHash string    `json:"dataset_hash"`
	RowCount    int       `json:"row_count"`
	InsightCnt  int       `json:"insight_count"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Pipeline run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusPartial   = "partial" // insights stored, narrative failed
)

// Summary carries the dashboard's headline KPIs over the processed table.
type Summary struct {
	TotalSpend   float64  `json:"total_spend"`
	TotalRevenue float64  `json:"total_revenue"`
	OverallROAS  float64  `json:"overall_roas"`
	RowCount     int      `json:"row_count"`
	Channels     []string `json:"channels"`
}

// ChannelBreakdown backs the per-channel deep dive view.
type ChannelBreakdown struct {
	Channel string       `json:"channel"`
	Spend   float64      `json:"spend"`
	Revenue float64      `json:"revenue"`
	ROAS    float64      `json:"roas"`
	Rows    []MetricsRow `json:"rows"`
}
