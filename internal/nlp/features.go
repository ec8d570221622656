// Package nlp extracts a rule-based feature bag from redacted reply text.
package nlp

import (
	"math"
	"regexp"
	"strings"

	"tonelearn/internal/models"
)

// Recipient scopes feature extraction to one addressee
type Recipient struct {
	Email string
	Name  string
}

var (
	formalMarkers = []string{
		"regards", "sincerely", "kindly", "please find", "attached", "would", "could", "appreciate",
		"therefore", "furthermore", "however", "accordingly", "dear", "respectfully", "per our",
		"further to", "at your earliest convenience", "i trust", "pleased",
	}
	informalMarkers = []string{
		"hey", "lol", "gonna", "wanna", "yeah", "yep", "nope", "cool", "awesome", "haha", "btw",
		"omg", "thx", "cheers", "no worries", "!!", "ok", "okay", "hiya", "sup", "gotta", ":)", ":-)",
	}
	intimacyLexicon = []string{
		"love you", "miss you", "xoxo", "xx", "honey", "babe", "sweetie", "darling", "hugs",
		"kisses", "<3", "sweetheart", "love,", "mum", "mom", "dad", "grandma", "sis", "bro",
	}
	professionalLexicon = []string{
		"meeting", "deadline", "project", "client", "invoice", "contract", "proposal", "quarterly",
		"agenda", "stakeholder", "deliverable", "budget", "regards", "schedule", "report", "team",
		"review", "follow up", "action items", "q1", "q2", "q3", "q4",
	}
	positiveLexicon = []string{
		"thanks", "thank", "great", "glad", "happy", "love", "excellent", "wonderful", "appreciate",
		"perfect", "awesome", "excited", "congrats", "congratulations", "nice", "good", "pleased",
	}
	negativeLexicon = []string{
		"sorry", "unfortunately", "problem", "issue", "concern", "disappointed", "frustrated",
		"delay", "wrong", "failed", "cannot", "can't", "unable", "regret", "worried", "bad",
	}
	urgencyLexicon = []string{
		"asap", "urgent", "urgently", "immediately", "today", "tonight", "deadline", "eod", "by tomorrow",
		"right away", "as soon as possible", "critical", "time-sensitive", "now",
	}

	personalDomains = map[string]bool{
		"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "hotmail.com": true,
		"outlook.com": true, "live.com": true, "icloud.com": true, "me.com": true, "aol.com": true,
		"protonmail.com": true, "proton.me": true, "gmx.com": true, "hey.com": true, "fastmail.com": true,
	}

	greetingByName = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|dear|morning)\b[ ,]*\[NAME\]`)
	contraction    = regexp.MustCompile(`\b\w+['’](?:t|s|re|ve|ll|d|m)\b`)
)

// IsPersonalDomain reports whether domain is a consumer webmail provider
func IsPersonalDomain(domain string) bool {
	return personalDomains[strings.ToLower(domain)]
}

// Extract computes the feature bag for text addressed to recipient
func Extract(text string, recipient Recipient) models.NLPFeatures {
	lower := strings.ToLower(text)
	words := Words(text)
	counts := wordCounts(words)
	domain := models.EmailDomain(recipient.Email)

	features := models.NLPFeatures{
		WordCount:             len(words),
		SentenceCount:         len(Sentences(text)),
		FormalityScore:        formality(lower, counts),
		Sentiment:             sentiment(lower, counts),
		Urgency:               urgency(lower, counts),
		Language:              DetectLanguage(text).Code,
		IntimacyMarkers:       findMarkers(lower, counts, intimacyLexicon),
		ProfessionalMarkers:   findMarkers(lower, counts, professionalLexicon),
		RecipientDomain:       domain,
		PersonalDomain:        IsPersonalDomain(domain),
		GreetsRecipientByName: greetsByName(text, recipient.Name),
	}
	return features
}

// greetsByName matches "Hi [NAME]" and, for unredacted text, the recipient's first name
func greetsByName(text, name string) bool {
	if greetingByName.MatchString(text) {
		return true
	}
	first := strings.Fields(name)
	if len(first) == 0 {
		return false
	}
	re := regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|dear|morning)\b[ ,]*` + regexp.QuoteMeta(first[0]) + `\b`)
	return re.MatchString(text)
}

// formality is 0.5 for neutral text and moves toward 1 (formal) or 0 (casual)
func formality(lower string, counts map[string]int) float64 {
	formal := float64(len(findMarkers(lower, counts, formalMarkers)))
	informal := float64(len(findMarkers(lower, counts, informalMarkers)))
	informal += math.Min(float64(len(contraction.FindAllString(lower, -1))), 3) * 0.5
	if formal+informal == 0 {
		return 0.5
	}
	return round2(0.5 + 0.5*(formal-informal)/(formal+informal))
}

func sentiment(lower string, counts map[string]int) models.Sentiment {
	pos := float64(len(findMarkers(lower, counts, positiveLexicon)))
	neg := float64(len(findMarkers(lower, counts, negativeLexicon)))
	if pos+neg == 0 {
		return models.Sentiment{Primary: "neutral", Score: 0}
	}
	score := round2((pos - neg) / (pos + neg))
	switch {
	case score > 0.2:
		return models.Sentiment{Primary: "positive", Score: score}
	case score < -0.2:
		return models.Sentiment{Primary: "negative", Score: score}
	default:
		return models.Sentiment{Primary: "neutral", Score: score}
	}
}

func urgency(lower string, counts map[string]int) models.Urgency {
	hits := float64(len(findMarkers(lower, counts, urgencyLexicon)))
	hits += math.Min(float64(strings.Count(lower, "!")), 3) * 0.25
	score := round2(math.Min(hits/3, 1))
	switch {
	case score >= 0.66:
		return models.Urgency{Level: "high", Score: score}
	case score >= 0.33:
		return models.Urgency{Level: "medium", Score: score}
	default:
		return models.Urgency{Level: "low", Score: score}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
