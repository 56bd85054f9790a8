package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/doganyilmaz/profile-assistant/internal/rag"
	"github.com/doganyilmaz/profile-assistant/internal/telemetry"
)

// Responder answers one request. Implementations must not reassign the
// context's language and must not touch the vector store directly.
type Responder interface {
	Process(ctx context.Context, rc RequestContext) (string, error)
}

// ContextRetriever supplies ranked chunks for building responder context.
// *rag.RetrievalPipeline satisfies it.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, profileID int64, topK int) ([]rag.RetrievedChunk, error)
}

// Responders names the four responders a routing table is built from.
type Responders struct {
	Profile   Responder
	GitHub    Responder
	CV        Responder
	Guardrail Responder
}

// Config tunes per-request behaviour.
type Config struct {
	// Timeout bounds one request end to end. Zero means no deadline.
	Timeout time.Duration
	// TopK is how many chunks are retrieved for responder context.
	TopK int
	// MaxContextLength caps the assembled context string in characters.
	MaxContextLength int
}

// Orchestrator runs the per-request pipeline: language detection, intent
// detection, agent routing and the mandatory guardrail checkpoint. It is the
// only component permitted to swallow a responder failure, always converting
// it into a guardrail decline in the already-detected language.
type Orchestrator struct {
	routes    map[Intent]Responder
	gate      *GuardrailGate
	retriever ContextRetriever
	cfg       Config
	logger    *log.Logger
}

// New builds an orchestrator and validates the routing table exhaustively:
// every intent must map to a responder, so an unrouteable intent is
// structurally unreachable at request time.
func New(cfg Config, responders Responders, retriever ContextRetriever, logger *log.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if responders.Guardrail == nil {
		return nil, fmt.Errorf("guardrail responder must be provided: every response passes through it")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = 2000
	}

	routes := map[Intent]Responder{
		IntentProfileInfo:     responders.Profile,
		IntentGeneralQuestion: responders.Profile,
		IntentGitHubInfo:      responders.GitHub,
		IntentCVRequest:       responders.CV,
		IntentOutOfScope:      responders.Guardrail,
	}
	for _, intent := range AllIntents {
		if routes[intent] == nil {
			return nil, fmt.Errorf("no responder mapped for intent %q", intent)
		}
	}

	return &Orchestrator{
		routes:    routes,
		gate:      NewGuardrailGate(logger),
		retriever: retriever,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// ProcessRequest handles one user query end to end and returns the final
// response text. Failures inside responders never surface: the caller always
// receives either the responder's validated answer or a language-matched
// decline.
func (o *Orchestrator) ProcessRequest(ctx context.Context, userQuery string, profileID int64) (string, error) {
	return o.process(ctx, userQuery, profileID, "", true)
}

// ProcessWithRAGContext handles one user query using caller-supplied context,
// bypassing internal retrieval.
func (o *Orchestrator) ProcessWithRAGContext(ctx context.Context, userQuery string, profileID int64, ragContext string) (string, error) {
	return o.process(ctx, userQuery, profileID, ragContext, false)
}

func (o *Orchestrator) process(ctx context.Context, userQuery string, profileID int64, ragContext string, retrieve bool) (string, error) {
	if profileID <= 0 {
		return "", &rag.ValidationError{Msg: fmt.Sprintf("invalid profile id %d", profileID)}
	}
	start := time.Now()
	requestID := uuid.NewString()

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	o.transition(requestID, StateReceived)

	// Detection stages are pure and total: they never fail and never retry.
	language := DetectLanguage(userQuery)
	o.transition(requestID, StateLanguageDetected)

	intent := DetectIntent(userQuery, language)
	o.transition(requestID, StateIntentDetected)

	if retrieve && o.retriever != nil && wantsContext(intent) {
		ragContext = o.retrieveContext(ctx, userQuery, profileID)
	}

	rc := RequestContext{
		ID:         requestID,
		UserQuery:  userQuery,
		ProfileID:  profileID,
		Language:   language,
		Intent:     intent,
		RAGContext: ragContext,
	}

	responder := o.routes[intent]
	o.transition(requestID, StateRouted)

	response, err := o.invoke(ctx, responder, rc)
	o.transition(requestID, StateProcessed)

	outcome := "ok"
	if err != nil {
		// The raw error text must never reach the end user.
		o.logger.Printf("request %s: responder for intent %s failed: %v", requestID, intent, err)
		response = o.gate.Decline(language)
		outcome = "declined"
	}

	final := o.gate.Check(response, rc)
	o.transition(requestID, StateGuardrailChecked)

	telemetry.ObserveRequest(string(intent), string(language), outcome, time.Since(start))
	o.transition(requestID, StateResponded)
	return final, nil
}

// invoke calls exactly one responder, converting panics into errors so a
// misbehaving responder degrades into the decline path instead of crashing
// the request task.
func (o *Orchestrator) invoke(ctx context.Context, responder Responder, rc RequestContext) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("responder panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	response, err = responder.Process(ctx, rc)
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", ctxErr
		}
	}
	return response, err
}

// retrieveContext is best effort: a retrieval failure downgrades the request
// to an uncontextualized answer rather than failing it.
func (o *Orchestrator) retrieveContext(ctx context.Context, query string, profileID int64) string {
	chunks, err := o.retriever.Retrieve(ctx, query, profileID, o.cfg.TopK)
	if err != nil {
		o.logger.Printf("context retrieval failed for profile %d: %v", profileID, err)
		return ""
	}
	return rag.FormatContext(chunks, o.cfg.MaxContextLength)
}

// wantsContext reports whether an intent benefits from retrieved profile
// context. CV requests and out-of-scope queries never need it.
func wantsContext(intent Intent) bool {
	switch intent {
	case IntentProfileInfo, IntentGeneralQuestion, IntentGitHubInfo:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) transition(requestID string, state State) {
	o.logger.Printf("request %s: %s", requestID, state)
}
