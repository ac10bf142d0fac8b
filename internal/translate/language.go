package translate

import "strings"

// Stopword sets per supported language. Detection counts distinct stopword
// hits rather than calling an external service, which is good enough for
// routing text to translation.
var stopwords = map[string][]string{
	"en": {"the", "and", "of", "to", "in", "is", "that", "for", "with", "are", "was", "this"},
	"es": {"el", "la", "los", "las", "de", "que", "en", "un", "una", "con", "por", "para"},
	"pt": {"o", "os", "as", "de", "que", "em", "um", "uma", "com", "por", "para", "não"},
	"fr": {"le", "la", "les", "de", "que", "en", "un", "une", "avec", "pour", "dans", "est"},
}

// minStopwordHits is the minimum number of distinct stopword matches required
// before a language is reported.
const minStopwordHits = 3

// DetectLanguage guesses the language of text from stopword frequency. It
// returns an ISO 639-1 code ("en", "es", "pt", "fr") or "unknown" when no
// language reaches the minimum number of hits.
func DetectLanguage(text string) string {
	words := tokenize(text)
	if len(words) == 0 {
		return "unknown"
	}

	best := "unknown"
	bestHits := 0
	for _, lang := range []string{"en", "es", "pt", "fr"} {
		hits := 0
		for _, stopword := range stopwords[lang] {
			if _, ok := words[stopword]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best = lang
			bestHits = hits
		}
	}

	if bestHits < minStopwordHits {
		return "unknown"
	}
	return best
}

// IsEnglish reports whether text is detected as English. Unknown text is
// treated as English so that it is never needlessly translated.
func IsEnglish(text string) bool {
	lang := DetectLanguage(text)
	return lang == "en" || lang == "unknown"
}

func tokenize(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,;:!?()[]\"'")
		if field != "" {
			words[field] = struct{}{}
		}
	}
	return words
}
