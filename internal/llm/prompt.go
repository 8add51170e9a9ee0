package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
)

const analystSystemPrompt = `You are an expert marketing analyst writing for a D2C executive audience.

You receive structured insights from a paid-acquisition and SEO analysis, each with a recommendation and a confidence score with its numeric justification.

Generate a concise executive report in Markdown:
1. Open with a one-paragraph summary of overall performance.
2. Cover each insight in its own section, restating the recommendation and what the confidence score rests on.
3. Close with prioritized next steps.

Do not invent figures; use only the numbers present in the insights.`

// BuildAnalystPrompt serializes every insight as an indented JSON block,
// in emission order, separated by blank lines. The blocks carry the same
// field names the dashboard consumes.
func BuildAnalystPrompt(insights []models.Insight) (string, error) {
	blocks := make([]string, 0, len(insights))
	for _, insight := range insights {
		b, err := json.MarshalIndent(insight, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to serialize insight %s: %w", insight.InsightID, err)
		}
		blocks = append(blocks, string(b))
	}

	return "Data:\n" + strings.Join(blocks, "\n\n"), nil
}
