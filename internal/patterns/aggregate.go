package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"tonelearn/internal/models"
)

const (
	confidenceCap       = 0.99
	confidenceStep      = 0.1
	standaloneThreshold = 0.8
	maxNegativePatterns = 10
	maxNegativeExamples = 3
)

// boilerplate observations models report regardless of the corpus; matched against normalized keys
var boilerplateNegatives = []string{
	"corporate speak",
	"corporate jargon",
	"buzzword",
	"buzzwords",
	"all caps",
	"allcaps",
	"dear",
	"sincerely",
	"to whom it may concern",
}

var folder = cases.Fold()

// AggregateOptions caps list sizes in the merged profile
type AggregateOptions struct {
	MaxExamples    int
	MaxExpressions int
}

func (o AggregateOptions) withDefaults() AggregateOptions {
	if o.MaxExamples <= 0 {
		o.MaxExamples = 10
	}
	if o.MaxExpressions <= 0 {
		o.MaxExpressions = 15
	}
	return o
}

// Aggregate merges batch observations into one profile, weighting every value by
// the batch's email count. The result does not depend on the order of batches
// and every number is rounded to two decimals.
func Aggregate(batches []models.BatchPatterns, opts AggregateOptions) models.WritingPatterns {
	opts = opts.withDefaults()

	var usable []models.BatchPatterns
	total := 0.0
	for _, b := range batches {
		if b.EmailCount <= 0 {
			continue
		}
		usable = append(usable, b)
		total += float64(b.EmailCount)
	}
	if total == 0 {
		return Round(models.WritingPatterns{})
	}

	merged := models.WritingPatterns{
		SentenceStats:     mergeSentences(usable, total, opts.MaxExamples),
		ParagraphPatterns: mergeParagraphs(usable, total),
		OpeningPatterns:   mergeOpenings(usable, total),
		Valedictions: mergePhrases(usable, total, func(p models.WritingPatterns) []models.PhrasePattern {
			return p.Valedictions
		}),
		TypedNames: mergePhrases(usable, total, func(p models.WritingPatterns) []models.PhrasePattern {
			return p.TypedNames
		}),
		NegativePatterns:  mergeNegatives(usable),
		ResponsePatterns:  mergeResponses(usable, total),
		UniqueExpressions: mergeExpressions(usable, total, opts.MaxExpressions),
	}
	return Round(merged)
}

func mergeSentences(batches []models.BatchPatterns, total float64, maxExamples int) models.SentenceStats {
	var out models.SentenceStats
	minSet := false

	type example struct {
		text   string
		weight float64
	}
	var pool []example

	for _, b := range batches {
		w := float64(b.EmailCount)
		s := b.Patterns.SentenceStats
		out.AvgLength += s.AvgLength * w
		out.StdDeviation += s.StdDeviation * w
		out.Distribution.Short += s.Distribution.Short * w
		out.Distribution.Medium += s.Distribution.Medium * w
		out.Distribution.Long += s.Distribution.Long * w

		// a zero minimum means the batch did not report one
		if s.MinLength > 0 && (!minSet || s.MinLength < out.MinLength) {
			out.MinLength = s.MinLength
			minSet = true
		}
		if s.MaxLength > out.MaxLength {
			out.MaxLength = s.MaxLength
		}
		for _, e := range s.Examples {
			if e = strings.TrimSpace(e); e != "" {
				pool = append(pool, example{text: e, weight: w})
			}
		}
	}

	out.AvgLength /= total
	out.StdDeviation /= total
	out.Distribution.Short /= total
	out.Distribution.Medium /= total
	out.Distribution.Long /= total

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].weight != pool[j].weight {
			return pool[i].weight > pool[j].weight
		}
		return pool[i].text < pool[j].text
	})
	seen := make(map[string]bool)
	out.Examples = []string{}
	for _, e := range pool {
		if len(out.Examples) >= maxExamples {
			break
		}
		if seen[e.text] {
			continue
		}
		seen[e.text] = true
		out.Examples = append(out.Examples, e.text)
	}
	return out
}

// group accumulates one identity-keyed entry across batches
type group struct {
	value    float64
	batches  int
	display  weighted
	notes    map[string]float64
	examples map[string]float64
}

// weighted remembers the variant carried by the heaviest batch, ties broken lexically
type weighted struct {
	text   string
	weight float64
}

func (w *weighted) offer(text string, weight float64) {
	if text == "" {
		return
	}
	if weight > w.weight || (weight == w.weight && (w.text == "" || text < w.text)) {
		w.text = text
		w.weight = weight
	}
}

type groups map[string]*group

func (g groups) get(key string) *group {
	if e, ok := g[key]; ok {
		return e
	}
	e := &group{notes: make(map[string]float64), examples: make(map[string]float64)}
	g[key] = e
	return e
}

func mergeParagraphs(batches []models.BatchPatterns, total float64) []models.ParagraphPattern {
	acc := groups{}
	for _, b := range batches {
		w := float64(b.EmailCount)
		for _, p := range b.Patterns.ParagraphPatterns {
			key := identityKey(p.Type)
			if key == "" {
				continue
			}
			e := acc.get(key)
			e.value += p.Percentage * w
			e.batches++
			e.display.offer(strings.TrimSpace(p.Type), w)
			if d := strings.TrimSpace(p.Description); d != "" {
				e.notes[d] += w
			}
		}
	}

	out := make([]models.ParagraphPattern, 0, len(acc))
	for _, e := range acc {
		out = append(out, models.ParagraphPattern{
			Type:        e.display.text,
			Percentage:  e.value / total,
			Description: heaviest(e.notes),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].Type < out[j].Type
	})

	shares := make([]*float64, len(out))
	for i := range out {
		shares[i] = &out[i].Percentage
	}
	capShares(shares)
	return out
}

func mergeOpenings(batches []models.BatchPatterns, total float64) []models.FrequencyPattern {
	acc := groups{}
	for _, b := range batches {
		w := float64(b.EmailCount)
		for _, p := range b.Patterns.OpeningPatterns {
			key := identityKey(p.Pattern)
			if key == "" {
				continue
			}
			e := acc.get(key)
			e.value += p.Frequency * w
			e.batches++
			e.display.offer(strings.TrimSpace(p.Pattern), w)
			if n := strings.TrimSpace(p.Notes); n != "" {
				e.notes[n] += w
			}
		}
	}

	out := make([]models.FrequencyPattern, 0, len(acc))
	for _, e := range acc {
		out = append(out, models.FrequencyPattern{
			Pattern:   e.display.text,
			Frequency: e.value / total,
			Notes:     mergeNotes(e.notes),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Pattern < out[j].Pattern
	})

	shares := make([]*float64, len(out))
	for i := range out {
		shares[i] = &out[i].Frequency
	}
	capShares(shares)
	return out
}

func mergePhrases(batches []models.BatchPatterns, total float64, pick func(models.WritingPatterns) []models.PhrasePattern) []models.PhrasePattern {
	acc := groups{}
	for _, b := range batches {
		w := float64(b.EmailCount)
		for _, p := range pick(b.Patterns) {
			key := identityKey(p.Phrase)
			if key == "" {
				continue
			}
			e := acc.get(key)
			e.value += p.Percentage * w
			e.batches++
			e.display.offer(strings.TrimSpace(p.Phrase), w)
		}
	}

	out := make([]models.PhrasePattern, 0, len(acc))
	for _, e := range acc {
		out = append(out, models.PhrasePattern{Phrase: e.display.text, Percentage: e.value / total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].Phrase < out[j].Phrase
	})

	shares := make([]*float64, len(out))
	for i := range out {
		shares[i] = &out[i].Percentage
	}
	capShares(shares)
	return out
}

// mergeNegatives keeps observations confirmed by several batches or reported with
// high confidence, after dropping boilerplate.
func mergeNegatives(batches []models.BatchPatterns) []models.NegativePattern {
	type negative struct {
		group
		confidence float64 // confidence x weight, summed over reporting batches
		weight     float64
	}
	acc := make(map[string]*negative)

	for _, b := range batches {
		w := float64(b.EmailCount)
		// one confirmation per batch even if the model repeats itself
		counted := make(map[string]bool)
		for _, p := range b.Patterns.NegativePatterns {
			key := NegativeKey(p.Description)
			if key == "" || IsBoilerplate(key) {
				continue
			}
			n, ok := acc[key]
			if !ok {
				n = &negative{group: group{examples: make(map[string]float64)}}
				acc[key] = n
			}
			n.display.offer(strings.TrimSpace(p.Description), w)
			for _, ex := range p.Examples {
				if ex = strings.TrimSpace(ex); ex != "" {
					n.examples[ex] += w
				}
			}
			if counted[key] {
				continue
			}
			counted[key] = true
			n.batches++
			n.confidence += clamp01(p.Confidence) * w
			n.weight += w
		}
	}

	var out []models.NegativePattern
	for _, n := range acc {
		conf := n.confidence / n.weight
		for i := 1; i < n.batches; i++ {
			conf += (1 - conf) * confidenceStep
		}
		conf = math.Min(conf, confidenceCap)

		if n.batches <= 1 && conf <= standaloneThreshold {
			continue
		}
		out = append(out, models.NegativePattern{
			Description: n.display.text,
			Confidence:  conf,
			Examples:    topKeys(n.examples, maxNegativeExamples),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Description < out[j].Description
	})
	if len(out) > maxNegativePatterns {
		out = out[:maxNegativePatterns]
	}
	if out == nil {
		out = []models.NegativePattern{}
	}
	return out
}

func mergeResponses(batches []models.BatchPatterns, total float64) models.ResponsePatterns {
	var out models.ResponsePatterns
	votes := make(map[string]float64)
	display := make(map[string]*weighted)

	for _, b := range batches {
		w := float64(b.EmailCount)
		r := b.Patterns.ResponsePatterns
		out.Immediate += r.Immediate * w
		out.Contemplative += r.Contemplative * w

		style := strings.TrimSpace(r.QuestionHandling)
		if style == "" {
			continue
		}
		key := identityKey(style)
		votes[key] += w
		if display[key] == nil {
			display[key] = &weighted{}
		}
		display[key].offer(style, w)
	}
	out.Immediate /= total
	out.Contemplative /= total

	if winner := heaviest(votes); winner != "" {
		out.QuestionHandling = display[winner].text
	}
	return out
}

// mergeExpressions resolves each phrase to the context carrying the most weight
func mergeExpressions(batches []models.BatchPatterns, total float64, maxExpressions int) []models.UniqueExpression {
	acc := groups{}
	for _, b := range batches {
		w := float64(b.EmailCount)
		for _, u := range b.Patterns.UniqueExpressions {
			key := identityKey(u.Phrase)
			if key == "" {
				continue
			}
			e := acc.get(key)
			e.value += u.Frequency * w
			e.batches++
			e.display.offer(strings.TrimSpace(u.Phrase), w)
			if c := strings.TrimSpace(u.Context); c != "" {
				e.notes[c] += w
			}
		}
	}

	out := make([]models.UniqueExpression, 0, len(acc))
	for _, e := range acc {
		expr := models.UniqueExpression{
			Phrase:       e.display.text,
			Frequency:    e.value / total,
			Context:      heaviest(e.notes),
			ContextCount: len(e.notes),
		}
		if expr.ContextCount > 1 {
			expr.Context = fmt.Sprintf("%s (used in %d contexts)", expr.Context, expr.ContextCount)
		}
		out = append(out, expr)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > maxExpressions {
		out = out[:maxExpressions]
	}
	return out
}

// mergeNotes keeps a single note, or lists every note heaviest first when they disagree
func mergeNotes(notes map[string]float64) string {
	switch len(notes) {
	case 0:
		return ""
	case 1:
		return heaviest(notes)
	}
	return fmt.Sprintf("Multiple contexts: %s", strings.Join(topKeys(notes, len(notes)), "; "))
}

// heaviest returns the key with the greatest weight, ties broken lexically
func heaviest(m map[string]float64) string {
	keys := topKeys(m, 1)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func topKeys(m map[string]float64, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// capShares scales a category down proportionally when its shares add up past 100
func capShares(shares []*float64) {
	sum := 0.0
	for _, s := range shares {
		sum += *s
	}
	if sum <= 100 {
		return
	}
	for _, s := range shares {
		*s = *s * 100 / sum
	}
}

// identityKey groups list entries that differ only in case or spacing
func identityKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NegativeKey folds case and width, strips punctuation and collapses whitespace
func NegativeKey(s string) string {
	s = folder.String(norm.NFKC.String(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsBoilerplate reports whether a normalized negative-pattern key hits the deny-list
func IsBoilerplate(key string) bool {
	padded := " " + key + " "
	for _, term := range boilerplateNegatives {
		if strings.Contains(padded, " "+term+" ") {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
