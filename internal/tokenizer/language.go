package tokenizer

import (
	"strings"

	"docrag/internal/domain"
)

// detectSampleRunes bounds how much text DetectLanguage inspects.
const detectSampleRunes = 1000

var (
	spanishMarkers = Set([]string{
		"el", "la", "los", "las", "de", "del", "que", "y", "en", "un", "una",
		"es", "por", "con", "para", "como", "pero", "su", "al", "lo", "se",
	})
	englishMarkers = Set([]string{
		"the", "of", "and", "to", "in", "is", "that", "it", "for", "with",
		"as", "was", "on", "are", "by", "this", "be", "from", "or", "an",
	})
)

// DetectLanguage votes between Spanish and English by counting marker
// words in the first characters of text. Ties resolve to Spanish.
func DetectLanguage(text string) domain.Language {
	sample := []rune(text)
	if len(sample) > detectSampleRunes {
		sample = sample[:detectSampleRunes]
	}
	es, en := 0, 0
	for _, w := range strings.Fields(Normalize(string(sample))) {
		if _, ok := spanishMarkers[w]; ok {
			es++
		}
		if _, ok := englishMarkers[w]; ok {
			en++
		}
	}
	if en > es {
		return domain.LanguageEnglish
	}
	return domain.LanguageSpanish
}

// ResolveLanguage returns lang unless it is auto or empty, in which case
// the language of text is detected.
func ResolveLanguage(lang domain.Language, text string) domain.Language {
	switch lang {
	case domain.LanguageSpanish, domain.LanguageEnglish:
		return lang
	}
	return DetectLanguage(text)
}
