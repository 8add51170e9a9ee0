package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

// SchemaError reports a required column absent from the input dataset.
// It is fatal: no partial row set is returned.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q missing from dataset", e.Column)
}

// columnAliases maps raw vendor column names onto the canonical schema.
var columnAliases = map[string]string{
	"spend_usd":             "spend",
	"revenue_usd":           "revenue",
	"seo_category":          "category",
	"avg_position":          "average_position",
	"monthly_search_volume": "search_volume",
	"first_purchase":        "conversions",
}

var requiredColumns = []string{
	"channel",
	"category",
	"spend",
	"revenue",
	"clicks",
	"impressions",
	"conversions",
	"search_volume",
	"average_position",
}

// Processor cleans the raw D2C dataset and engineers the derived
// performance metrics (CTR, CAC, ROAS).
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) ProcessFile(path string) ([]models.MetricsRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	rows, err := p.Process(f)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset processed",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)

	return rows, nil
}

// Process reads the CSV, validates the schema against the canonical
// column set and returns typed rows with derived metrics attached.
// Rows with unparsable numeric fields are skipped, not fatal.
func (p *Processor) Process(r io.Reader) ([]models.MetricsRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Column: requiredColumns[0]}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	index, err := buildColumnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]models.MetricsRow, 0)
	skipped := 0

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset record: %w", err)
		}

		row, err := parseRow(record, index)
		if err != nil {
			logger.Warn("Skipping malformed row",
				zap.Int("line", line),
				zap.Error(err),
			)
			skipped++
			continue
		}

		deriveMetrics(&row)
		rows = append(rows, row)
	}

	if skipped > 0 {
		logger.Warn("Malformed rows skipped", zap.Int("count", skipped))
	}

	return rows, nil
}

// buildColumnIndex canonicalizes header names via the alias table and
// maps each required column to its position.
func buildColumnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		canonical := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := columnAliases[canonical]; ok {
			canonical = alias
		}
		if _, dup := index[canonical]; !dup {
			index[canonical] = i
		}
	}

	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &SchemaError{Column: col}
		}
	}

	return index, nil
}

func parseRow(record []string, index map[string]int) (models.MetricsRow, error) {
	field := func(col string) (string, error) {
		i := index[col]
		if i >= len(record) {
			return "", fmt.Errorf("record too short for column %q", col)
		}
		return strings.TrimSpace(record[i]), nil
	}

	var row models.MetricsRow
	var err error

	if row.Channel, err = field("channel"); err != nil {
		return row, err
	}
	if row.Category, err = field("category"); err != nil {
		return row, err
	}
	if row.Channel == "" {
		return row, fmt.Errorf("empty channel value")
	}
	if row.Category == "" {
		return row, fmt.Errorf("empty category value")
	}

	if row.Spend, err = parseAmount(field, "spend"); err != nil {
		return row, err
	}
	if row.Revenue, err = parseAmount(field, "revenue"); err != nil {
		return row, err
	}
	if row.Clicks, err = parseCount(field, "clicks"); err != nil {
		return row, err
	}
	if row.Impressions, err = parseCount(field, "impressions"); err != nil {
		return row, err
	}
	if row.Conversions, err = parseCount(field, "conversions"); err != nil {
		return row, err
	}
	if row.SearchVolume, err = parseCount(field, "search_volume"); err != nil {
		return row, err
	}

	pos, err := parseAmount(field, "average_position")
	if err != nil {
		return row, err
	}
	if pos <= 0 {
		return row, fmt.Errorf("non-positive average_position %v", pos)
	}
	row.AveragePosition = pos

	return row, nil
}

func parseAmount(field func(string) (string, error), col string) (float64, error) {
	s, err := field(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", col, s)
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}

func parseCount(field func(string) (string, error), col string) (int, error) {
	s, err := field(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", col, s)
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}

// deriveMetrics fills the engineered ratios, each 0 when its
// denominator is 0.
func deriveMetrics(row *models.MetricsRow) {
	row.CTR = safeDiv(float64(row.Clicks), float64(row.Impressions))
	row.CAC = safeDiv(row.Spend, float64(row.Conversions))
	row.ROAS = safeDiv(row.Revenue, row.Spend)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
