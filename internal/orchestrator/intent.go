package orchestrator

import "strings"

// intentPriority breaks ties among equal nonzero keyword-match counts.
// Explicit asks (CV, GitHub) outrank the broader profile and general buckets.
var intentPriority = []Intent{
	IntentCVRequest,
	IntentGitHubInfo,
	IntentProfileInfo,
	IntentGeneralQuestion,
}

// intentKeywords holds one keyword set per language per intent. OUT_OF_SCOPE
// has no set: it is the result when nothing matches.
var intentKeywords = map[Language]map[Intent][]string{
	LanguageEnglish: {
		IntentProfileInfo: {
			"skill", "skills", "experience", "background", "education",
			"expertise", "proficient", "know", "tell me about",
		},
		IntentGitHubInfo: {
			"github", "repository", "repo", "project", "projects",
			"code", "coding", "programming", "open source",
		},
		IntentCVRequest: {
			"cv", "resume", "download", "pdf", "document",
		},
		IntentGeneralQuestion: {
			"vision", "goal", "career", "interest", "passion",
			"motivates", "why",
		},
	},
	LanguageTurkish: {
		IntentProfileInfo: {
			"beceri", "deneyim", "eğitim", "bilgi", "uzmanlık",
			"ne biliyor", "hangi", "nedir", "geçmiş",
		},
		IntentGitHubInfo: {
			"github", "proje", "projeler", "kod", "depo",
		},
		IntentCVRequest: {
			"cv", "özgeçmiş", "indir", "gönder", "dosya",
		},
		IntentGeneralQuestion: {
			"vizyon", "hedef", "kariyer", "ilgi", "tutku", "neden",
		},
	},
}

// DetectIntent classifies text against the keyword sets for the given
// language. The intent with the highest match count wins; equal nonzero
// counts are broken by the fixed priority order; zero matches everywhere is
// OUT_OF_SCOPE. Like language detection it is total and deterministic.
func DetectIntent(text string, language Language) Intent {
	if strings.TrimSpace(text) == "" {
		return IntentOutOfScope
	}
	sets, ok := intentKeywords[language]
	if !ok {
		sets = intentKeywords[DefaultLanguage]
	}

	lower := strings.ToLower(text)
	counts := make(map[Intent]int, len(sets))
	for intent, keywords := range sets {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				counts[intent]++
			}
		}
	}

	best := IntentOutOfScope
	bestCount := 0
	for _, intent := range intentPriority {
		if counts[intent] > bestCount {
			best = intent
			bestCount = counts[intent]
		}
	}
	return best
}
