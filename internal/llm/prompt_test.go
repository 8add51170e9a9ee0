package llm

import (
	"strings"
	"testing"

	"github.com/Rhuthvik-D/Kasparro-Assignment/internal/storage/models"
)

func TestBuildAnalystPromptOrder(t *testing.T) {
	insights := []models.Insight{
		{
			InsightID:      "FUN-001",
			Type:           models.InsightTypeFunnel,
			Title:          "Top Channel by ROAS",
			Recommendation: "Consider reallocating budget towards the 'Email' channel, which has the highest ROAS (5.20x).",
			Confidence: models.Confidence{
				Score:         0.85,
				Justification: "Based on a total spend of $1,200.00 for this channel.",
			},
		},
		{
			InsightID:      "SEO-001",
			Type:           models.InsightTypeSEO,
			Title:          "High-Volume, Poorly Ranked Category",
			Recommendation: "Focus SEO efforts on 'Shoes' to capture significant organic traffic (Monthly Volume: 9,100).",
			Confidence: models.Confidence{
				Score:         1.0,
				Justification: "Based on a high search volume of 9,100 per month.",
			},
		},
	}

	prompt, err := BuildAnalystPrompt(insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(prompt, "Data:\n") {
		t.Fatalf("prompt missing data prefix: %q", prompt[:20])
	}

	first := strings.Index(prompt, "FUN-001")
	second := strings.Index(prompt, "SEO-001")
	if first < 0 || second < 0 {
		t.Fatalf("prompt missing insight ids:\n%s", prompt)
	}
	if first > second {
		t.Fatal("insights serialized out of emission order")
	}

	// Blocks are indented JSON objects separated by a blank line.
	if !strings.Contains(prompt, "}\n\n{") {
		t.Fatalf("expected blank-line separated blocks:\n%s", prompt)
	}
	if !strings.Contains(prompt, "  \"insight_id\": \"FUN-001\"") {
		t.Fatalf("expected two-space indented fields:\n%s", prompt)
	}
}

func TestBuildAnalystPromptFieldNames(t *testing.T) {
	insights := []models.Insight{
		{
			InsightID: "FUN-001",
			Type:      models.InsightTypeFunnel,
			Confidence: models.Confidence{
				Score:         0.5,
				Justification: "Based on a total spend of $10.00 for this channel.",
			},
		},
	}

	prompt, err := BuildAnalystPrompt(insights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, field := range []string{
		"\"insight_id\"",
		"\"type\"",
		"\"title\"",
		"\"recommendation\"",
		"\"confidence\"",
		"\"score\"",
		"\"justification\"",
	} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("prompt missing field %s:\n%s", field, prompt)
		}
	}
}

func TestBuildAnalystPromptEmpty(t *testing.T) {
	prompt, err := BuildAnalystPrompt(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "Data:\n" {
		t.Fatalf("unexpected empty prompt: %q", prompt)
	}
}
