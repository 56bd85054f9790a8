package agent

import (
	"context"
	"log"

	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
)

// OutOfScopeAgent handles questions that have nothing to do with the
// candidate. It never calls the LLM; the reply is the canned redirect in
// the language of the request.
type OutOfScopeAgent struct {
	gate   *orchestrator.GuardrailGate
	logger *log.Logger
}

func NewOutOfScopeAgent(gate *orchestrator.GuardrailGate) *OutOfScopeAgent {
	return &OutOfScopeAgent{
		gate:   gate,
		logger: log.New(log.Writer(), "[AGENT:SCOPE] ", log.LstdFlags),
	}
}

func (a *OutOfScopeAgent) Process(ctx context.Context, rc orchestrator.RequestContext) (string, error) {
	a.logger.Printf("request %s: out of scope question redirected", rc.ID)
	return a.gate.Decline(rc.Language), nil
}
