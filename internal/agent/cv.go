package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/doganyilmaz/profile-assistant/internal/orchestrator"
)

// CVAgent handles requests for the candidate's CV. It does not call the
// LLM; the answer is a fixed offer of the configured download link.
type CVAgent struct {
	downloadURL string
	logger      *log.Logger
}

func NewCVAgent(downloadURL string) *CVAgent {
	return &CVAgent{
		downloadURL: downloadURL,
		logger:      log.New(log.Writer(), "[AGENT:CV] ", log.LstdFlags),
	}
}

func (a *CVAgent) Process(ctx context.Context, rc orchestrator.RequestContext) (string, error) {
	a.logger.Printf("request %s: serving cv request for profile %d", rc.ID, rc.ProfileID)

	if a.downloadURL == "" {
		if rc.Language == orchestrator.LanguageTurkish {
			return "CV şu anda indirilebilir durumda değil. Lütfen e-posta ile iletişime geçin.", nil
		}
		return "The CV is not available for download right now. Please reach out by email instead.", nil
	}

	if rc.Language == orchestrator.LanguageTurkish {
		return fmt.Sprintf("Adayın güncel CV'sini buradan indirebilirsiniz: %s", a.downloadURL), nil
	}
	return fmt.Sprintf("You can download the candidate's current CV here: %s", a.downloadURL), nil
}
