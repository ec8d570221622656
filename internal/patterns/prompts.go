package patterns

import (
	"fmt"
	"strings"

	"tonelearn/internal/models"
)

const systemPrompt = `You analyse how one person writes email. You only ever see their own replies, with personal names
replaced by [NAME] and addresses replaced by [EMAIL]. Never guess at the hidden names.

Describe HOW they write, not what they wrote about. Report only what the emails actually show.
Percentages are shares of the emails in this batch (0-100). Respond with a single JSON object and nothing else.`

const batchPromptTemplate = `Analyse the writing style of these %d emails (sent %s to %s).

Return JSON with exactly this shape:
{
  "sentencePatterns": {
    "avgLength": <mean words per sentence>,
    "minLength": <shortest sentence in words>,
    "maxLength": <longest sentence in words>,
    "stdDeviation": <standard deviation of sentence length>,
    "distribution": {"short": <%% under 10 words>, "medium": <%% 10-20 words>, "long": <%% over 20 words>},
    "examples": [<up to 5 verbatim characteristic sentences>]
  },
  "paragraphPatterns": [{"type": "<single_line|short_paragraphs|long_paragraphs|bulleted|mixed>", "percentage": <%%>, "description": "<short note>"}],
  "openingPatterns": [{"pattern": "<first words of the email, verbatim>", "frequency": <%%>, "notes": "<when it is used>"}],
  "valediction": [{"phrase": "<closing phrase, verbatim>", "percentage": <%%>}],
  "typedName": [{"phrase": "<name or initial typed after the closing>", "percentage": <%%>}],
  "negativePatterns": [{"description": "<something this writer never does>", "confidence": <0-1>, "examples": [<evidence>]}],
  "responsePatterns": {"immediate": <%% of short direct answers>, "contemplative": <%% of considered replies>, "questionHandling": "<how questions are answered>"},
  "uniqueExpressions": [{"phrase": "<idiom or pet phrase>", "context": "<situation it is used in>", "frequency": <%%>}]
}

Emails:
%s`

// buildBatchPrompt renders one batch of redacted replies for the model
func buildBatchPrompt(batch []models.IndexedExampleRecord, dateRange models.DateRange) string {
	return fmt.Sprintf(batchPromptTemplate,
		len(batch),
		formatRange(dateRange),
		describeAudience(batch),
		formatEmails(batch),
	)
}

func formatRange(r models.DateRange) string {
	if r.Start.IsZero() && r.End.IsZero() {
		return "at unknown dates"
	}
	return fmt.Sprintf("between %s and %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// describeAudience names the relationship types present, never the recipients
func describeAudience(batch []models.IndexedExampleRecord) string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range batch {
		t := r.Relationship.Type
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return "various recipients"
	}
	return strings.Join(types, ", ") + " recipients"
}

func formatEmails(batch []models.IndexedExampleRecord) string {
	var b strings.Builder
	for i, r := range batch {
		fmt.Fprintf(&b, "--- Email %d", i+1)
		if r.Subject != "" {
			fmt.Fprintf(&b, " | Subject: %s", r.Subject)
		}
		b.WriteString(" ---\n")
		b.WriteString(strings.TrimSpace(r.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}
