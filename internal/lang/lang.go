// Package lang implements the whole-text-then-fragment language filter
// used to decide whether a fetched page's outlinks are worth following.
package lang

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// modelLanguages is the fixed allow-list the shared detector is built
// from. Growing this set is a model-size/latency tradeoff, not a
// per-crawl configuration choice.
var modelLanguages = []lingua.Language{lingua.Arabic, lingua.English}

// codeTable maps configuration-supplied language codes (case-insensitive)
// to the lingua.Language they select. Codes outside this table are
// silently dropped by CodeToLanguage.
var codeTable = map[string]lingua.Language{
	"arabic":  lingua.Arabic,
	"ar":      lingua.Arabic,
	"english": lingua.English,
	"en":      lingua.English,
	"french":  lingua.French,
	"fr":      lingua.French,
}

// CodeToLanguage resolves a configured language code to a lingua.Language.
// Unknown codes return ok=false and should be dropped by the caller.
func CodeToLanguage(code string) (lingua.Language, bool) {
	lang, ok := codeTable[strings.ToLower(code)]
	return lang, ok
}

// Filter detects whether text matches one of an accept set of languages,
// using a single detector instance shared across the whole crawl.
type Filter struct {
	detector lingua.LanguageDetector
}

// NewFilter builds the shared detector from the fixed model-language
// allow-list. Construct once at startup; the result is safe for
// concurrent use.
func NewFilter() *Filter {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(modelLanguages...).
		Build()
	return &Filter{detector: detector}
}

// HasLanguage reports whether text, or any of its ASCII-space-separated
// fragments, is detected as one of the accept languages. The whole text
// is tried first; fragment-by-fragment detection is a fallback for pages
// whose dominant language differs from an embedded passage.
func (f *Filter) HasLanguage(text string, accept []lingua.Language) bool {
	if detected, exists := f.detector.DetectLanguageOf(text); exists && containsLanguage(accept, detected) {
		return true
	}
	for _, fragment := range strings.Split(text, " ") {
		if fragment == "" {
			continue
		}
		if detected, exists := f.detector.DetectLanguageOf(fragment); exists && containsLanguage(accept, detected) {
			return true
		}
	}
	return false
}

func containsLanguage(accept []lingua.Language, lang lingua.Language) bool {
	for _, l := range accept {
		if l == lang {
			return true
		}
	}
	return false
}
