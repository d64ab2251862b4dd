// Package outreach generates personalized outreach drafts for leads using
// Claude. Generation is best-effort: a failed draft degrades to the disabled
// sentinel for that lead, never to a failed job.
package outreach

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/model"
)

const systemPrompt = `You write short, casual outreach emails to local businesses on behalf of a digital marketing consultant. Rules: at most 100 words; conversational, fifth-grade reading level; mention the business name once or twice at most; reference their location or market; name one concrete pain point and one actionable tip; end with a soft question, not a demand. Never open with "I hope this email finds you well", "I'm reaching out", or "My name is". Output only the email body.`

// Generator produces outreach drafts.
type Generator interface {
	GenerateDraft(ctx context.Context, lead model.Lead) (string, error)
}

type claudeGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClaudeGenerator creates a Claude-backed draft generator.
func NewClaudeGenerator(cfg config.OutreachConfig) Generator {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 400
	}
	return &claudeGenerator{
		client:    sdk.NewClient(option.WithAPIKey(cfg.AnthropicKey)),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// GenerateDraft writes one outreach email for the lead.
func (g *claudeGenerator) GenerateDraft(ctx context.Context, lead model.Lead) (string, error) {
	prompt := buildPrompt(lead)

	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", eris.Wrap(err, "outreach: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	draft := strings.TrimSpace(sb.String())
	if draft == "" {
		return "", eris.New("outreach: empty draft")
	}
	return draft, nil
}

func buildPrompt(lead model.Lead) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Business: %s\n", lead.Name)
	fmt.Fprintf(&sb, "Category: %s\n", lead.SearchKeyword)
	fmt.Fprintf(&sb, "Location: %s\n", lead.SearchLocation)
	if lead.Website != "" {
		fmt.Fprintf(&sb, "Website: %s\n", lead.Website)
	} else {
		sb.WriteString("Website: none found (likely pain point: weak online presence)\n")
	}
	if lead.Rating > 0 {
		fmt.Fprintf(&sb, "Rating: %.1f\n", lead.Rating)
	}
	sb.WriteString("\nWrite the outreach email.")
	return sb.String()
}
