package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
	"github.com/doganyilmaz/profile-assistant/provider"
)

// GitHubAgent answers questions about the candidate's repositories and
// open source activity from ingested GitHub context.
type GitHubAgent struct {
	provider provider.Provider
	logger   *log.Logger
}

func NewGitHubAgent(p provider.Provider) *GitHubAgent {
	return &GitHubAgent{
		provider: p,
		logger:   log.New(log.Writer(), "[AGENT:GITHUB] ", log.LstdFlags),
	}
}

func (a *GitHubAgent) Process(ctx context.Context, rc orchestrator.RequestContext) (string, error) {
	a.logger.Printf("request %s: answering github question for profile %d", rc.ID, rc.ProfileID)

	systemPrompt := fmt.Sprintf(`You are an assistant that answers questions about a job candidate's GitHub repositories and open source work.

RULES:
1. Answer ONLY from the CONTEXT section below. Never invent repositories, stars or technologies.
2. If the context does not mention what was asked, say the candidate's public repositories do not show that.
3. Be concise. Plain text only.
4. %s`, languageInstruction(rc.Language))

	userPrompt := fmt.Sprintf(`CONTEXT:
%s

QUESTION: %s`, rc.RAGContext, rc.UserQuery)

	answer, err := a.provider.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("github agent completion: %w", err)
	}
	return answer, nil
}
