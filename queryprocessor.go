// ═══════════════════════════════════════════════════════════════════════════════
// QUERY PROCESSOR: Sanitize -> Phrases -> Tokenize -> Classify -> Filter -> Stem
// ═══════════════════════════════════════════════════════════════════════════════
// This is a distinct normalizer from the legacy analyzer.go pipeline: it
// operates on the raw public query string (preserving +/-/! operators and
// field:value modifiers) rather than on document text, and its stemming
// rules are this package's own, not kljensen/snowball's Porter2.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	kindOperator tokenKind = iota
	kindModifier
	kindTerm
)

var queryStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "will": {},
	"with": {}, "this": {}, "they": {}, "but": {}, "have": {}, "had": {}, "what": {},
	"when": {}, "where": {}, "who": {}, "which": {}, "why": {}, "how": {},
}

var stemExceptions = map[string]struct{}{
	"this": {}, "his": {}, "is": {}, "was": {}, "has": {}, "does": {},
	"series": {}, "species": {}, "test": {}, "tests": {},
}

// QueryProcessor normalizes a raw query string into the engine's canonical
// query form.
type QueryProcessor struct{}

// NewQueryProcessor returns a ready-to-use processor. It carries no state.
func NewQueryProcessor() *QueryProcessor { return &QueryProcessor{} }

// Process runs the full sanitize/phrase/tokenize/classify/filter/stem
// pipeline. process(process(x)) == process(x) for phrase-free x.
func (QueryProcessor) Process(raw string) string {
	sanitized := sanitizeQuery(raw)
	phrases, remainder := extractPhrases(sanitized)

	var parts []string
	for _, phrase := range phrases {
		parts = append(parts, `"`+phrase+`"`)
	}

	for _, tok := range strings.Fields(remainder) {
		switch classifyToken(tok) {
		case kindOperator:
			parts = append(parts, tok) // original case preserved
		case kindModifier:
			field, value, _ := strings.Cut(tok, ":")
			parts = append(parts, strings.ToLower(field)+":"+value)
		case kindTerm:
			lower := strings.ToLower(tok)
			if _, stop := queryStopWords[lower]; stop {
				continue
			}
			parts = append(parts, stem(lower))
		}
	}

	return strings.Join(parts, " ")
}

func sanitizeQuery(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.Join(strings.Fields(trimmed), " ")
}

// extractPhrases pulls quoted substrings out of s in order, resolving the
// nested-quote rule: a run of exactly four quote characters, the first
// being this one, is one phrase spanning the outer pair. A lone trailing
// quote with no partner yields an empty phrase.
func extractPhrases(s string) ([]string, string) {
	runes := []rune(s)
	var phrases []string
	var rem []rune

	for i := 0; i < len(runes); {
		if runes[i] != '"' {
			rem = append(rem, runes[i])
			i++
			continue
		}

		var quotes []int
		for j := i; j < len(runes) && len(quotes) < 4; j++ {
			if runes[j] == '"' {
				quotes = append(quotes, j)
			}
		}

		switch len(quotes) {
		case 4:
			phrases = append(phrases, string(runes[quotes[0]+1:quotes[3]]))
			i = quotes[3] + 1
		case 2, 3:
			phrases = append(phrases, string(runes[quotes[0]+1:quotes[1]]))
			i = quotes[1] + 1
		default:
			phrases = append(phrases, "")
			i = quotes[0] + 1
		}
	}

	return phrases, string(rem)
}

func classifyToken(tok string) tokenKind {
	if tok == "" {
		return kindTerm
	}
	switch tok[0] {
	case '+', '-', '!':
		return kindOperator
	}
	if strings.Contains(tok, ":") {
		return kindModifier
	}
	return kindTerm
}

// stem applies the light, spec-specific stemming rules. Only terms longer
// than 3 runes and outside stemExceptions are touched.
func stem(word string) string {
	if len([]rune(word)) <= 3 {
		return word
	}
	if _, ok := stemExceptions[word]; ok {
		return word
	}

	if strings.HasSuffix(word, "est") {
		return word[:len(word)-3]
	}
	if strings.HasSuffix(word, "er") {
		return word[:len(word)-2]
	}

	if strings.HasSuffix(word, "ing") {
		return stemGerund(word)
	}
	if strings.HasSuffix(word, "ed") {
		return stemPastTense(word)
	}
	if strings.HasSuffix(word, "d") && !strings.HasSuffix(word, "ed") {
		return stemPastTense(word)
	}
	if strings.HasSuffix(word, "ies") || strings.HasSuffix(word, "es") || strings.HasSuffix(word, "s") {
		return stemPlural(word)
	}
	return word
}

func stemGerund(word string) string {
	if strings.HasSuffix(word, "ying") {
		return word[:len(word)-4] + "y"
	}
	stemPart := word[:len(word)-3] // drop "ing"
	if endsInDoubleConsonant(stemPart) {
		return word[:len(word)-4]
	}
	return stemPart
}

func stemPastTense(word string) string {
	if strings.HasSuffix(word, "ied") {
		return word[:len(word)-3] + "y"
	}
	if strings.HasSuffix(word, "ed") {
		stemPart := word[:len(word)-2]
		if endsInDoubleConsonant(stemPart) {
			return word[:len(word)-3]
		}
		return stemPart
	}
	// bare "…d"
	return word[:len(word)-1]
}

func stemPlural(word string) string {
	if word == "tests" {
		return "test"
	}
	if strings.HasSuffix(word, "ies") {
		return word[:len(word)-3] + "y"
	}
	if strings.HasSuffix(word, "es") && len(word) >= 3 {
		before := rune(word[len(word)-3])
		if before == 's' || before == 'x' || before == 'z' || isConsonant(before) && strings.HasSuffix(word[:len(word)-2], "h") {
			return word[:len(word)-2]
		}
	}
	if strings.HasSuffix(word, "s") {
		return word[:len(word)-1]
	}
	return word
}

func isConsonant(r rune) bool {
	r = unicode.ToLower(r)
	if r < 'a' || r > 'z' {
		return false
	}
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	}
	return true
}

func endsInDoubleConsonant(s string) bool {
	if len(s) < 2 {
		return false
	}
	r1 := rune(s[len(s)-1])
	r2 := rune(s[len(s)-2])
	return isConsonant(r1) && isConsonant(r2)
}
