package nlp

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)?`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)
	placeholder     = regexp.MustCompile(`\[(?:NAME|EMAIL)\]`)

	stopwords = map[string]struct{}{
		"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
		"can": {}, "do": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "he": {},
		"her": {}, "his": {}, "i": {}, "i'm": {}, "if": {}, "in": {}, "is": {}, "it": {}, "it's": {},
		"me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "she": {}, "so": {}, "that": {},
		"the": {}, "their": {}, "them": {}, "there": {}, "they": {}, "this": {}, "to": {}, "was": {},
		"we": {}, "were": {}, "what": {}, "when": {}, "which": {}, "who": {}, "will": {}, "with": {},
		"you": {}, "your": {},
	}
)

// Words returns the lowercased word tokens of text with redaction placeholders removed
func Words(text string) []string {
	text = placeholder.ReplaceAllString(text, " ")
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Sentences splits text on terminal punctuation and line breaks, dropping pieces
// that hold nothing but placeholders or punctuation
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		bare := placeholder.ReplaceAllString(s, "")
		if strings.IndexFunc(bare, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			out = append(out, s)
		}
	}
	return out
}

// MeaningfulTokens tokenizes text, removes stopwords, and deduplicates tokens while preserving order.
func MeaningfulTokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range Words(text) {
		if len([]rune(w)) == 1 && !unicode.IsDigit([]rune(w)[0]) {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// findMarkers returns the lexicon entries present in the lowercased text, in lexicon order.
// Single-word entries match whole words; phrases match as substrings.
func findMarkers(lower string, words map[string]int, lexicon []string) []string {
	var found []string
	for _, m := range lexicon {
		if strings.ContainsRune(m, ' ') || !isWordy(m) {
			if strings.Contains(lower, m) {
				found = append(found, m)
			}
			continue
		}
		if words[m] > 0 {
			found = append(found, m)
		}
	}
	return found
}

func isWordy(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '\'' {
			return false
		}
	}
	return true
}

func wordCounts(words []string) map[string]int {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}
	return counts
}
