package insights

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
	"github.com/Rhuthvik-D/Kasparro-Assignment/pkg/logger"
)

// Engine derives ranked, scored, justified findings from a processed
// metrics table. Each rule emits at most one insight; a report may
// legitimately carry zero, one or two.
type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock pins the report timestamp, for deterministic output.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Analyze runs the channel-ranking rule, then the SEO-opportunity rule,
// in that fixed order, and pairs the emitted insights with a UTC
// generation timestamp. The input table is never mutated.
func (e *Engine) Analyze(rows []models.MetricsRow) (*models.Report, error) {
	insights := make([]models.Insight, 0, 2)

	funnel, ok, err := e.topChannelByROAS(rows)
	if err != nil {
		return nil, fmt.Errorf("channel rule failed: %w", err)
	}
	if ok {
		insights = append(insights, funnel)
	}

	seo, ok, err := e.seoOpportunity(rows)
	if err != nil {
		return nil, fmt.Errorf("seo rule failed: %w", err)
	}
	if ok {
		insights = append(insights, seo)
	}

	logger.Debug("Analysis complete",
		zap.Int("rows", len(rows)),
		zap.Int("insights", len(insights)),
	)

	return &models.Report{
		GeneratedUTC: e.now().UTC(),
		Insights:     insights,
	}, nil
}

// topChannelByROAS ranks channels by mean ROAS and emits FUN-001 for the
// winner. Confidence is spend-weighted: a channel whose average rests on
// negligible spend scores low even with the best ROAS.
func (e *Engine) topChannelByROAS(rows []models.MetricsRow) (models.Insight, bool, error) {
	aggs := aggregateChannels(rows)
	if len(aggs) == 0 {
		return models.Insight{}, false, nil
	}

	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].AvgROAS > aggs[j].AvgROAS
	})
	top := aggs[0]

	minSpend, maxSpend := aggs[0].TotalSpend, aggs[0].TotalSpend
	for _, a := range aggs[1:] {
		if a.TotalSpend < minSpend {
			minSpend = a.TotalSpend
		}
		if a.TotalSpend > maxSpend {
			maxSpend = a.TotalSpend
		}
	}

	score, err := Normalize(top.TotalSpend, minSpend, maxSpend)
	if err != nil {
		return models.Insight{}, false, err
	}

	return models.Insight{
		InsightID: "FUN-001",
		Type:      models.InsightTypeFunnel,
		Title:     "Top Channel by ROAS",
		Recommendation: fmt.Sprintf(
			"Consider reallocating budget towards the '%s' channel, which has the highest ROAS (%.2fx).",
			top.Channel, top.AvgROAS,
		),
		Confidence: models.Confidence{
			Score: round2(score),
			Justification: fmt.Sprintf(
				"Based on a total spend of $%s for this channel.",
				formatAmount(top.TotalSpend),
			),
		},
	}, true, nil
}

// seoOpportunity emits SEO-001 for the highest-volume category that has
// above-median demand yet ranks outside the top 5 search positions.
// Position exactly 5 does not qualify.
func (e *Engine) seoOpportunity(rows []models.MetricsRow) (models.Insight, bool, error) {
	if len(rows) == 0 {
		return models.Insight{}, false, nil
	}

	median := medianSearchVolume(rows)

	qualifying := make([]models.MetricsRow, 0)
	for _, r := range rows {
		if float64(r.SearchVolume) >= median && r.AveragePosition > 5 {
			qualifying = append(qualifying, r)
		}
	}
	if len(qualifying) == 0 {
		return models.Insight{}, false, nil
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].SearchVolume > qualifying[j].SearchVolume
	})
	top := qualifying[0]

	// Normalization spans the full table, so the score reflects the
	// opportunity's absolute demand rank.
	minVol, maxVol := rows[0].SearchVolume, rows[0].SearchVolume
	for _, r := range rows[1:] {
		if r.SearchVolume < minVol {
			minVol = r.SearchVolume
		}
		if r.SearchVolume > maxVol {
			maxVol = r.SearchVolume
		}
	}

	score, err := Normalize(float64(top.SearchVolume), float64(minVol), float64(maxVol))
	if err != nil {
		return models.Insight{}, false, err
	}

	return models.Insight{
		InsightID: "SEO-001",
		Type:      models.InsightTypeSEO,
		Title:     "High-Volume, Poorly Ranked Category",
		Recommendation: fmt.Sprintf(
			"Focus SEO efforts on '%s' to capture significant organic traffic (Monthly Volume: %s).",
			top.Category, formatCount(top.SearchVolume),
		),
		Confidence: models.Confidence{
			Score: round2(score),
			Justification: fmt.Sprintf(
				"Based on a high search volume of %s per month.",
				formatCount(top.SearchVolume),
			),
		},
	}, true, nil
}

// aggregateChannels groups rows by channel in encounter order. One
// aggregate per distinct channel.
func aggregateChannels(rows []models.MetricsRow) []models.ChannelAggregate {
	type accum struct {
		roasSum float64
		spend   float64
		count   int
	}

	byChannel := make(map[string]*accum)
	order := make([]string, 0)

	for _, r := range rows {
		a, seen := byChannel[r.Channel]
		if !seen {
			a = &accum{}
			byChannel[r.Channel] = a
			order = append(order, r.Channel)
		}
		a.roasSum += r.ROAS
		a.spend += r.Spend
		a.count++
	}

	aggs := make([]models.ChannelAggregate, 0, len(order))
	for _, ch := range order {
		a := byChannel[ch]
		aggs = append(aggs, models.ChannelAggregate{
			Channel:    ch,
			AvgROAS:    a.roasSum / float64(a.count),
			TotalSpend: a.spend,
		})
	}
	return aggs
}

// medianSearchVolume returns the table median; an even row count yields
// the mean of the two middle values.
func medianSearchVolume(rows []models.MetricsRow) float64 {
	vols := make([]float64, len(rows))
	for i, r := range rows {
		vols[i] = float64(r.SearchVolume)
	}
	sort.Float64s(vols)

	n := len(vols)
	if n%2 == 1 {
		return vols[n/2]
	}
	return (vols[n/2-1] + vols[n/2]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatAmount renders a non-negative amount with two decimals and
// thousands separators, e.g. 1234567.5 -> "1,234,567.50".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	return groupDigits(parts[0]) + "." + parts[1]
}

// formatCount renders a non-negative integer with thousands separators.
func formatCount(n int) string {
	return groupDigits(strconv.Itoa(n))
}

func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
