// Package insights answers free-form questions about the dataset with a
// generative model. The advisor only ever sees aggregate figures, never raw
// transaction rows, and handlers must gate it to trusted callers.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"finlens/internal/core"
)

// ErrUnavailable means the advisor is not configured, typically a missing API
// key. Handlers map it to 503 rather than 500.
var ErrUnavailable = errors.New("insights advisor unavailable")

// Advisor produces a natural-language answer about the summarized finances.
type Advisor interface {
	Advise(ctx context.Context, query string, summary core.Summary) (string, error)
}

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// GeminiAdvisor implements Advisor on the Gemini API.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
}

// NewGeminiAdvisor dials the Gemini API. The SDK reads the API key from the
// environment; an empty key surfaces as ErrUnavailable here so startup can
// continue without insights.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiAdvisor{client: client, model: model}, nil
}

func (a *GeminiAdvisor) Advise(ctx context.Context, query string, summary core.Summary) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(query, summary)},
			},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// buildPrompt renders the aggregate figures into the model context. Only
// totals and label-level breakdowns go in; individual rows stay local.
func buildPrompt(query string, s core.Summary) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Answer the question using only the figures below.\n")
	b.WriteString("Be concise and concrete. If the figures cannot answer the question, say so.\n\n")

	fmt.Fprintf(&b, "Currency: %s\n", s.Currency)
	fmt.Fprintf(&b, "Total expenses: %.2f\n", s.TotalExpenses)
	fmt.Fprintf(&b, "Total income: %.2f\n", s.TotalIncome)
	fmt.Fprintf(&b, "Net: %.2f\n", s.Net)
	fmt.Fprintf(&b, "Expense rows: %d, income rows: %d\n", s.ExpenseCount, s.IncomeCount)

	if len(s.CategoryBreakdown) > 0 {
		b.WriteString("\nSpending by category:\n")
		for _, c := range s.CategoryBreakdown {
			fmt.Fprintf(&b, "- %s: %.2f\n", c.Label, c.Amount)
		}
	}
	if len(s.TopTags) > 0 {
		b.WriteString("\nTop tags:\n")
		for _, tag := range s.TopTags {
			fmt.Fprintf(&b, "- %s: %.2f\n", tag.Label, tag.Amount)
		}
	}
	if len(s.Monthly) > 0 {
		b.WriteString("\nMonthly totals (expenses / income / net):\n")
		for _, m := range s.Monthly {
			fmt.Fprintf(&b, "- %s: %.2f / %.2f / %.2f\n", m.Period, m.Expenses, m.Income, m.Net)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}
