package orchestrator

import "strings"

// turkishChars are characters that only appear in Turkish text among the
// supported languages. A single occurrence is decisive.
const turkishChars = "çğıöşüÇĞİÖŞÜ"

// turkishKeywords are common Turkish words; two or more occurrences select
// Turkish even without any Turkish-specific character.
var turkishKeywords = []string{
	"nedir", "nasıl", "hangi", "neden", "kimdir",
	"deneyim", "beceri", "eğitim", "bilgi", "uzmanlık",
	"proje", "projeler", "hakkında", "merhaba",
	"özgeçmiş", "indir", "göster", "anlat",
}

// keywordThreshold is how many keyword hits select a non-default language.
const keywordThreshold = 2

// DetectLanguage returns the language of text. It scans for language-specific
// characters and counts keyword occurrences; a non-default language wins if
// its character set is present or its keyword count reaches the threshold.
// The function is stateless, never fails, and is deterministic for identical
// input. Ties go to the default language.
func DetectLanguage(text string) Language {
	if text == "" {
		return DefaultLanguage
	}
	if strings.ContainsAny(text, turkishChars) {
		return LanguageTurkish
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range turkishKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= keywordThreshold {
				return LanguageTurkish
			}
		}
	}
	return DefaultLanguage
}
