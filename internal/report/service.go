package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/ingestion"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/insights"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/llm"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/metrics"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/sqlite"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/utils"
)

var (
	ErrNoReport    = errors.New("no report has been generated yet")
	ErrNoNarrative = errors.New("no executive narrative available")
	ErrNoChannel   = errors.New("channel not present in processed data")
)

// Store is the persistence surface the service needs.
type Store interface {
	ReplaceRows(rows []models.MetricsRow) error
	GetRows() ([]models.MetricsRow, error)
	GetRowsByChannel(channel string) ([]models.MetricsRow, error)
	InsertReport(report *models.StoredReport) error
	SetNarrative(reportID, narrative string) error
	GetLatestReport() (*models.StoredReport, error)
	InsertRun(run *models.PipelineRun) error
	GetRuns(limit int) ([]models.PipelineRun, error)
}

// Cache fronts the dashboard's hot reads.
type Cache interface {
	SetReport(ctx context.Context, report *models.StoredReport) error
	GetReport(ctx context.Context) (*models.StoredReport, bool, error)
	SetSummary(ctx context.Context, summary *models.Summary) error
	GetSummary(ctx context.Context) (*models.Summary, bool, error)
	Invalidate(ctx context.Context) error
}

// Narrator turns a finished insight sequence into executive prose.
type Narrator interface {
	GenerateExecutiveReport(ctx context.Context, ins []models.Insight) (string, *llm.Usage, error)
}

// ProgressFunc receives stage updates while the pipeline runs.
type ProgressFunc func(stage, message string)

// Service orchestrates the full pipeline: ingest, analyze, persist,
// invalidate caches, then narrate. The insight report is stored and
// valid before the narrative call is ever made, so a narrative failure
// can only downgrade the run to partial.
type Service struct {
	processor   *ingestion.Processor
	engine      *insights.Engine
	store       Store
	cache       Cache
	narrator    Narrator
	llmModel    string
	datasetPath string
}

func NewService(
	processor *ingestion.Processor,
	engine *insights.Engine,
	store Store,
	cache Cache,
	narrator Narrator,
	llmModel string,
	datasetPath string,
) *Service {
	return &Service{
		processor:   processor,
		engine:      engine,
		store:       store,
		cache:       cache,
		narrator:    narrator,
		llmModel:    llmModel,
		datasetPath: datasetPath,
	}
}

// RunResult is what one pipeline execution produced.
type RunResult struct {
	Run    models.PipelineRun   `json:"run"`
	Report *models.StoredReport `json:"report"`
}

// RunPipeline executes the full analysis end to end. progress may be
// nil. Ingestion and analysis failures are fatal to the run; narrative
// failure is surfaced on the run record but leaves the stored report
// complete and consistent.
func (s *Service) RunPipeline(ctx context.Context, progress ProgressFunc) (*RunResult, error) {
	notify := func(stage, message string) {
		if progress != nil {
			progress(stage, message)
		}
	}

	run := models.PipelineRun{
		ID:          uuid.NewString(),
		DatasetPath: s.datasetPath,
		StartedAt:   time.Now().UTC(),
	}

	logger.Info("Pipeline started",
		zap.String("run_id", run.ID),
		zap.String("dataset", s.datasetPath),
	)

	notify("ingest", "Loading and cleaning dataset")

	content, err := os.ReadFile(s.datasetPath)
	if err != nil {
		return nil, s.failRun(&run, fmt.Errorf("failed to read dataset: %w", err))
	}
	run.DatasetHash = utils.HashString(string(content))

	rows, err := s.processor.Process(bytes.NewReader(content))
	if err != nil {
		return nil, s.failRun(&run, fmt.Errorf("ingestion failed: %w", err))
	}
	run.RowCount = len(rows)
	metrics.RowsProcessed.Observe(float64(len(rows)))

	notify("analyze", "Deriving insights")

	result, err := s.engine.Analyze(rows)
	if err != nil {
		return nil, s.failRun(&run, fmt.Errorf("analysis failed: %w", err))
	}
	run.InsightCnt = len(result.Insights)

	for _, ins := range result.Insights {
		metrics.InsightsEmitted.WithLabelValues(string(ins.Type)).Inc()
		metrics.InsightConfidence.WithLabelValues(string(ins.Type)).Observe(ins.Confidence.Score)
	}

	notify("persist", "Storing processed data and report")

	if err := s.store.ReplaceRows(rows); err != nil {
		return nil, s.failRun(&run, fmt.Errorf("failed to store rows: %w", err))
	}

	stored := &models.StoredReport{
		ID:          uuid.NewString(),
		GeneratedAt: result.GeneratedUTC,
		Insights:    result.Insights,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertReport(stored); err != nil {
		return nil, s.failRun(&run, fmt.Errorf("failed to store report: %w", err))
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("Cache invalidation failed", zap.Error(err))
	}

	run.Status = models.RunStatusSucceeded

	if len(result.Insights) > 0 {
		notify("narrate", "Generating executive narrative")

		narrative, usage, err := s.narrator.GenerateExecutiveReport(ctx, result.Insights)
		if err != nil {
			metrics.NarrativeFailures.Inc()
			logger.Error("Narrative generation failed", zap.Error(err))
			run.Status = models.RunStatusPartial
			run.Error = fmt.Sprintf("narrative generation failed: %v", err)
		} else {
			if usage != nil {
				metrics.LLMTokensUsed.WithLabelValues(s.llmModel, "prompt").Add(float64(usage.PromptTokens))
				metrics.LLMTokensUsed.WithLabelValues(s.llmModel, "completion").Add(float64(usage.CompletionTokens))
			}
			stored.Narrative = narrative
			if err := s.store.SetNarrative(stored.ID, narrative); err != nil {
				logger.Error("Failed to store narrative", zap.Error(err))
				run.Status = models.RunStatusPartial
				run.Error = fmt.Sprintf("failed to store narrative: %v", err)
			}
		}
	}

	run.FinishedAt = time.Now().UTC()
	metrics.PipelineRunsTotal.WithLabelValues(run.Status).Inc()
	metrics.PipelineDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if err := s.store.InsertRun(&run); err != nil {
		logger.Error("Failed to record pipeline run", zap.Error(err))
	}

	logger.Info("Pipeline finished",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("rows", run.RowCount),
		zap.Int("insights", run.InsightCnt),
	)

	notify("done", "Pipeline finished")

	return &RunResult{Run: run, Report: stored}, nil
}

func (s *Service) failRun(run *models.PipelineRun, err error) error {
	run.Status = models.RunStatusFailed
	run.Error = err.Error()
	run.FinishedAt = time.Now().UTC()

	metrics.PipelineRunsTotal.WithLabelValues(models.RunStatusFailed).Inc()

	if storeErr := s.store.InsertRun(run); storeErr != nil {
		logger.Error("Failed to record failed run", zap.Error(storeErr))
	}

	logger.Error("Pipeline failed", zap.String("run_id", run.ID), zap.Error(err))
	return err
}

// LatestReport returns the most recent stored report, cache first.
func (s *Service) LatestReport(ctx context.Context) (*models.StoredReport, error) {
	if cached, found, err := s.cache.GetReport(ctx); err == nil && found {
		metrics.CacheHits.WithLabelValues("report").Inc()
		return cached, nil
	} else if err != nil {
		logger.Warn("Report cache read failed", zap.Error(err))
	}
	metrics.CacheMisses.WithLabelValues("report").Inc()

	stored, err := s.store.GetLatestReport()
	if errors.Is(err, sqlite.ErrNotFound) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetReport(ctx, stored); err != nil {
		logger.Warn("Report cache write failed", zap.Error(err))
	}

	return stored, nil
}

// Narrative returns the latest executive narrative as markdown.
func (s *Service) Narrative(ctx context.Context) (string, error) {
	stored, err := s.LatestReport(ctx)
	if err != nil {
		return "", err
	}
	if stored.Narrative == "" {
		return "", ErrNoNarrative
	}
	return stored.Narrative, nil
}

// Summary computes the dashboard's headline KPIs, cache first.
func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	if cached, found, err := s.cache.GetSummary(ctx); err == nil && found {
		metrics.CacheHits.WithLabelValues("summary").Inc()
		return cached, nil
	} else if err != nil {
		logger.Warn("Summary cache read failed", zap.Error(err))
	}
	metrics.CacheMisses.WithLabelValues("summary").Inc()

	rows, err := s.store.GetRows()
	if err != nil {
		return nil, err
	}

	summary := buildSummary(rows)

	if err := s.cache.SetSummary(ctx, summary); err != nil {
		logger.Warn("Summary cache write failed", zap.Error(err))
	}

	return summary, nil
}

// ChannelBreakdown backs the per-channel deep dive.
func (s *Service) ChannelBreakdown(ctx context.Context, channel string) (*models.ChannelBreakdown, error) {
	rows, err := s.store.GetRowsByChannel(channel)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoChannel
	}

	breakdown := &models.ChannelBreakdown{
		Channel: channel,
		Rows:    rows,
	}
	for _, r := range rows {
		breakdown.Spend += r.Spend
		breakdown.Revenue += r.Revenue
	}
	if breakdown.Spend > 0 {
		breakdown.ROAS = breakdown.Revenue / breakdown.Spend
	}

	return breakdown, nil
}

// Runs returns the most recent pipeline executions.
func (s *Service) Runs(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.GetRuns(limit)
}

func buildSummary(rows []models.MetricsRow) *models.Summary {
	summary := &models.Summary{
		RowCount: len(rows),
		Channels: make([]string, 0),
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		summary.TotalSpend += r.Spend
		summary.TotalRevenue += r.Revenue
		if !seen[r.Channel] {
			seen[r.Channel] = true
			summary.Channels = append(summary.Channels, r.Channel)
		}
	}
	if summary.TotalSpend > 0 {
		summary.OverallROAS = summary.TotalRevenue / summary.TotalSpend
	}

	return summary
}
