package orchestrator

// Language is a supported user language. The set is closed but extensible;
// English is the designated default.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageTurkish Language = "tr"
)

// DefaultLanguage is returned whenever detection finds no other evidence.
const DefaultLanguage = LanguageEnglish

// Intent classifies what a user query is asking for.
type Intent string

const (
	IntentProfileInfo     Intent = "profile_info"
	IntentGitHubInfo      Intent = "github_info"
	IntentCVRequest       Intent = "cv_request"
	IntentGeneralQuestion Intent = "general_question"
	IntentOutOfScope      Intent = "out_of_scope"
)

// AllIntents enumerates every intent; the routing table must cover all of them.
var AllIntents = []Intent{
	IntentProfileInfo,
	IntentGitHubInfo,
	IntentCVRequest,
	IntentGeneralQuestion,
	IntentOutOfScope,
}

// RequestContext carries everything a responder needs for one request. It is
// created once per request by the orchestrator and never mutated afterwards;
// responders receive it by value.
type RequestContext struct {
	ID         string   `json:"id"`
	UserQuery  string   `json:"user_query"`
	ProfileID  int64    `json:"profile_id"`
	Language   Language `json:"language"`
	Intent     Intent   `json:"intent"`
	RAGContext string   `json:"rag_context,omitempty"`
}

// State names a stage of the per-request pipeline, used for logging and metrics.
type State string

const (
	StateReceived         State = "received"
	StateLanguageDetected State = "language_detected"
	StateIntentDetected   State = "intent_detected"
	StateRouted           State = "routed"
	StateProcessed        State = "processed"
	StateGuardrailChecked State = "guardrail_checked"
	StateResponded        State = "responded"
)
