package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	apperrors "github.com/ttiimmothy/expense-splitter/errors"
	"github.com/ttiimmothy/expense-splitter/models"
)

const geminiModel = "gemini-2.0-flash"

var errExplainerDisabled = errors.New("balance explanations are disabled: no Gemini API key configured")

type ExplanationService interface {
	ExplainBalances(ctx context.Context, groupID, userID string) (*models.BalanceExplanation, error)
}

type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(geminiModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

type explanationService struct {
	balances  BalanceService
	generator textGenerator
}

// NewExplanationService returns an explainer backed by Gemini. With an empty
// apiKey the service still enforces access but every explanation fails with
// an AI service error.
func NewExplanationService(ctx context.Context, apiKey string, balances BalanceService) (ExplanationService, error) {
	if apiKey == "" {
		return &explanationService{balances: balances}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &explanationService{balances: balances, generator: &geminiGenerator{client: client}}, nil
}

func (s *explanationService) ExplainBalances(ctx context.Context, groupID, userID string) (*models.BalanceExplanation, error) {
	resp, err := s.balances.GetGroupBalances(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, apperrors.AIServiceError(errExplainerDisabled)
	}

	text, err := s.generator.Generate(ctx, buildBalancePrompt(resp))
	if err != nil {
		zap.L().Error("Gemini request failed", zap.String("group_id", groupID), zap.Error(err))
		return nil, apperrors.AIServiceError(err)
	}
	if text == "" {
		return nil, apperrors.AIServiceError(errors.New("empty response from model"))
	}

	return &models.BalanceExplanation{GroupID: groupID, Explanation: text}, nil
}

func buildBalancePrompt(resp *models.GroupBalancesResponse) string {
	var balances strings.Builder
	for _, b := range resp.Balances {
		status := ""
		if !b.IsCurrentMember {
			status = " (no longer in the group)"
		}
		fmt.Fprintf(&balances, "- %s%s: %s %s\n", b.UserName, status, b.NetBalance.String(), resp.Currency)
	}
	if balances.Len() == 0 {
		balances.WriteString("No participants.\n")
	}

	var plan strings.Builder
	for _, sg := range resp.Suggestions {
		fmt.Fprintf(&plan, "- %s pays %s %s %s\n", sg.FromUserName, sg.ToUserName, sg.Amount.String(), resp.Currency)
	}
	if plan.Len() == 0 {
		plan.WriteString("Nobody owes anything. The group is settled.\n")
	}

	return fmt.Sprintf(`You explain shared-expense balances to the members of a group.

A positive balance means the group owes that person money. A negative balance means that person owes the group.
Balances always add up to zero. The suggested payments are the fewest transfers that settle everyone.

NET BALANCES:
%s
SUGGESTED PAYMENTS:
%s
Explain in 2-4 plain sentences who is owed, who owes, and how the suggested payments settle the group. Use names and amounts exactly as given. Do not start with filler like "Okay" or "Here is".`,
		balances.String(), plan.String())
}
