package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

// ErrNotFound is returned when no report or run matches a lookup.
var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metrics_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		category TEXT NOT NULL,
		spend REAL NOT NULL,
		revenue REAL NOT NULL,
		clicks INTEGER NOT NULL,
		impressions INTEGER NOT NULL,
		conversions INTEGER NOT NULL,
		search_volume INTEGER NOT NULL,
		average_position REAL NOT NULL,
		ctr REAL NOT NULL,
		cac REAL NOT NULL,
		roas REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rows_channel ON metrics_rows(channel);
	CREATE INDEX IF NOT EXISTS idx_rows_category ON metrics_rows(category);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		generated_at INTEGER NOT NULL,
		insights TEXT NOT NULL,
		narrative TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_generated ON reports(generated_at);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		dataset_path TEXT NOT NULL,
		dataset_hash TEXT,
		row_count INTEGER NOT NULL,
		insight_count INTEGER NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// ReplaceRows swaps the processed table atomically; each pipeline run
// re-materializes the full dataset.
func (c *Client) ReplaceRows(rows []models.MetricsRow) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM metrics_rows"); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO metrics_rows (channel, category, spend, revenue, clicks,
			impressions, conversions, search_volume, average_position, ctr, cac, roas)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(
			r.Channel,
			r.Category,
			r.Spend,
			r.Revenue,
			r.Clicks,
			r.Impressions,
			r.Conversions,
			r.SearchVolume,
			r.AveragePosition,
			r.CTR,
			r.CAC,
			r.ROAS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}

	logger.Debug("Processed rows stored", zap.Int("count", len(rows)))
	return nil
}

func (c *Client) GetRows() ([]models.MetricsRow, error) {
	return c.queryRows(`
		SELECT channel, category, spend, revenue, clicks, impressions,
			conversions, search_volume, average_position, ctr, cac, roas
		FROM metrics_rows ORDER BY id
	`)
}

func (c *Client) GetRowsByChannel(channel string) ([]models.MetricsRow, error) {
	return c.queryRows(`
		SELECT channel, category, spend, revenue, clicks, impressions,
			conversions, search_volume, average_position, ctr, cac, roas
		FROM metrics_rows WHERE channel = ? ORDER BY id
	`, channel)
}

func (c *Client) queryRows(query string, args ...interface{}) ([]models.MetricsRow, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []models.MetricsRow
	for rows.Next() {
		var r models.MetricsRow
		err := rows.Scan(
			&r.Channel,
			&r.Category,
			&r.Spend,
			&r.Revenue,
			&r.Clicks,
			&r.Impressions,
			&r.Conversions,
			&r.SearchVolume,
			&r.AveragePosition,
			&r.CTR,
			&r.CAC,
			&r.ROAS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

func (c *Client) InsertReport(report *models.StoredReport) error {
	insightsJSON, err := json.Marshal(report.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	query := `
		INSERT INTO reports (id, generated_at, insights, narrative, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		report.ID,
		report.GeneratedAt.Unix(),
		string(insightsJSON),
		report.Narrative,
		report.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	logger.Info("Report stored",
		zap.String("report_id", report.ID),
		zap.Int("insights", len(report.Insights)),
	)

	return nil
}

// SetNarrative attaches the executive narrative once generation
// succeeds; the insight set it belongs to is already persisted.
func (c *Client) SetNarrative(reportID, narrative string) error {
	res, err := c.db.Exec("UPDATE reports SET narrative = ? WHERE id = ?", narrative, reportID)
	if err != nil {
		return fmt.Errorf("failed to set narrative: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check narrative update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (c *Client) GetLatestReport() (*models.StoredReport, error) {
	query := `
		SELECT id, generated_at, insights, narrative, created_at
		FROM reports ORDER BY generated_at DESC, created_at DESC LIMIT 1
	`

	var report models.StoredReport
	var generatedAt, createdAt int64
	var insightsJSON string
	var narrative sql.NullString

	err := c.db.QueryRow(query).Scan(
		&report.ID,
		&generatedAt,
		&insightsJSON,
		&narrative,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	if err := json.Unmarshal([]byte(insightsJSON), &report.Insights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insights: %w", err)
	}

	report.GeneratedAt = time.Unix(generatedAt, 0).UTC()
	report.CreatedAt = time.Unix(createdAt, 0).UTC()
	report.Narrative = narrative.String

	return &report, nil
}

func (c *Client) InsertRun(run *models.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (id, status, dataset_path, dataset_hash,
			row_count, insight_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		run.ID,
		run.Status,
		run.DatasetPath,
		run.DatasetHash,
		run.RowCount,
		run.InsightCnt,
		run.Error,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	logger.Info("Pipeline run recorded",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("rows", run.RowCount),
	)

	return nil
}

func (c *Client) GetRuns(limit int) ([]models.PipelineRun, error) {
	query := `
		SELECT id, status, dataset_path, dataset_hash, row_count,
			insight_count, error, started_at, finished_at
		FROM pipeline_runs ORDER BY started_at DESC LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		var run models.PipelineRun
		var errText sql.NullString
		var startedAt, finishedAt int64

		err := rows.Scan(
			&run.ID,
			&run.Status,
			&run.DatasetPath,
			&run.DatasetHash,
			&run.RowCount,
			&run.InsightCnt,
			&errText,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Error = errText.String
		run.StartedAt = time.Unix(startedAt, 0).UTC()
		run.FinishedAt = time.Unix(finishedAt, 0).UTC()
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
