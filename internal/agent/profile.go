package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
	"github.com/doganyilmaz/profile-assistant/provider"
)

// ProfileAgent answers questions about the candidate's background,
// experience and skills using retrieved profile context.
type ProfileAgent struct {
	provider provider.Provider
	logger   *log.Logger
}

func NewProfileAgent(p provider.Provider) *ProfileAgent {
	return &ProfileAgent{
		provider: p,
		logger:   log.New(log.Writer(), "[AGENT:PROFILE] ", log.LstdFlags),
	}
}

func (a *ProfileAgent) Process(ctx context.Context, rc orchestrator.RequestContext) (string, error) {
	a.logger.Printf("request %s: answering profile question for profile %d", rc.ID, rc.ProfileID)

	systemPrompt := fmt.Sprintf(`You are an assistant that answers questions about a job candidate on their behalf.

RULES:
1. Answer ONLY from the CONTEXT section below. Never invent facts about the candidate.
2. If the context does not contain the answer, say you do not have that information about the candidate.
3. Be concise and professional. Plain text only, no markdown headings.
4. %s`, languageInstruction(rc.Language))

	userPrompt := fmt.Sprintf(`CONTEXT:
%s

QUESTION: %s`, rc.RAGContext, rc.UserQuery)

	answer, err := a.provider.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("profile agent completion: %w", err)
	}
	return answer, nil
}
