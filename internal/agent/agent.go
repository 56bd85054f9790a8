// Package agent contains the responders the orchestrator routes
// candidate questions to. Each agent answers one intent family and
// produces plain text in the language of the incoming request.
package agent

import (
	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
)

func languageInstruction(language orchestrator.Language) string {
	if language == orchestrator.LanguageTurkish {
		return "Answer in Turkish."
	}
	return "Answer in English."
}
