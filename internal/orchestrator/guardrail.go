package orchestrator

import (
	"log"
	"strings"
)

// declineMessages are the canned, language-matched responses substituted when
// a candidate response fails validation.
var declineMessages = map[Language]string{
	LanguageEnglish: "I can only answer questions about the candidate's profile, projects and CV. Could you rephrase your question?",
	LanguageTurkish: "Yalnızca adayın profili, projeleri ve CV'si hakkındaki soruları yanıtlayabilirim. Sorunuzu yeniden ifade edebilir misiniz?",
}

// speculationMarkers flag responses that admit to guessing. Responders are
// contractually grounded; a response carrying one of these is replaced.
var speculationMarkers = []string{
	"i'm not sure, but",
	"i am not sure, but",
	"i would guess",
	"i don't have information about this, but",
	"as an ai language model",
	"emin değilim ama",
	"tahmin ediyorum",
}

// GuardrailGate is the single mandatory checkpoint every response passes
// through before leaving the core.
type GuardrailGate struct {
	logger *log.Logger
}

// NewGuardrailGate builds the gate.
func NewGuardrailGate(logger *log.Logger) *GuardrailGate {
	if logger == nil {
		logger = log.New(log.Writer(), "[GUARD] ", log.LstdFlags)
	}
	return &GuardrailGate{logger: logger}
}

// Check validates a candidate response: it must be non-empty, in the context's
// language, and free of speculation markers. On any failure the canned decline
// for the context's language is substituted.
func (g *GuardrailGate) Check(response string, rc RequestContext) string {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		g.logger.Printf("request %s: empty response replaced with decline", rc.ID)
		return g.Decline(rc.Language)
	}
	if detected := DetectLanguage(trimmed); detected != rc.Language {
		g.logger.Printf("request %s: response language %s does not match request language %s", rc.ID, detected, rc.Language)
		return g.Decline(rc.Language)
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range speculationMarkers {
		if strings.Contains(lower, marker) {
			g.logger.Printf("request %s: speculative response replaced with decline", rc.ID)
			return g.Decline(rc.Language)
		}
	}
	return trimmed
}

// Decline returns the canned decline message for a language.
func (g *GuardrailGate) Decline(language Language) string {
	if msg, ok := declineMessages[language]; ok {
		return msg
	}
	return declineMessages[DefaultLanguage]
}
