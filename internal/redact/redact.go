// Package redact replaces personal names and email addresses in free text with
// categorical placeholders before the text leaves the trust boundary.
package redact

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

const (
	NamePlaceholder  = "[NAME]"
	EmailPlaceholder = "[EMAIL]"
)

// Result is the redacted text plus the original entities that were replaced
type Result struct {
	Text        string   `json:"text"`
	NamesFound  []string `json:"names_found"`
	EmailsFound []string `json:"emails_found"`
}

var (
	emailPattern       = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)
	placeholderPattern = regexp.MustCompile(`\[(?:NAME|EMAIL)\]`)

	// "Hi Sarah," / "Thanks, Tom" / "Dear Ms Patel"
	greetingPattern = regexp.MustCompile(`(?m)\b(?:Hi|Hello|Hey|Dear|Morning|Evening|Thanks|Thank you|Cheers)\b,?[ \t]+((?:(?:Mr|Mrs|Ms|Dr)\.?[ \t]+)?[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?)\b`)

	// sign-off block: a valediction line followed by a short capitalised name line
	signOffPattern = regexp.MustCompile(`(?m)^[ \t]*(?:Best|Regards|Kind regards|Best regards|Cheers|Thanks|Thank you|Love|Warmly|Sincerely|Yours|Talk soon|Speak soon|xx|x)[,!.]?[ \t]*\r?\n[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?)[ \t]*$`)
)

// capitalised words that follow greetings but are not names
var notNames = map[string]bool{
	"all": true, "everyone": true, "team": true, "again": true, "guys": true, "folks": true,
	"there": true, "so": true, "much": true, "for": true, "both": true, "you": true,
	"everybody": true, "y'all": true, "friends": true, "sir": true, "madam": true, "the": true,
	"in": true, "a": true, "lot": true, "heaps": true, "tons": true, "very": true,
}

// Redactor is safe for concurrent use. Derive per-message redactors with WithNames.
type Redactor struct {
	names []string
	ac    *ahocorasick.AhoCorasick
}

// New builds a redactor that also replaces the given known names wherever they
// appear as whole words. A hit must either match the name's own casing or start
// with a capital letter, so a contact called "Will" leaves "I will" alone.
func New(knownNames ...string) *Redactor {
	r := &Redactor{names: normalizeNames(knownNames)}
	if len(r.names) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: true,
			MatchOnlyWholeWords:  true,
			MatchKind:            ahocorasick.LeftMostLongestMatch,
		})
		ac := builder.Build(r.names)
		r.ac = &ac
	}
	return r
}

// WithNames returns a redactor whose dictionary also holds names, typically the
// display names of the message participants.
func (r *Redactor) WithNames(names ...string) *Redactor {
	if len(names) == 0 {
		return r
	}
	all := append(append([]string(nil), r.names...), names...)
	return New(all...)
}

// Redact replaces email addresses, then known and heuristically detected names.
// Running it on its own output returns the same text.
func (r *Redactor) Redact(text string) Result {
	res := Result{NamesFound: []string{}, EmailsFound: []string{}}

	// Addresses go first so no name match can land inside one.
	emailsSeen := make(map[string]bool)
	text = emailPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.ToLower(m)
		if !emailsSeen[key] {
			emailsSeen[key] = true
			res.EmailsFound = append(res.EmailsFound, m)
		}
		return EmailPlaceholder
	})

	namesSeen := make(map[string]bool)
	addName := func(n string) {
		key := strings.ToLower(n)
		if !namesSeen[key] {
			namesSeen[key] = true
			res.NamesFound = append(res.NamesFound, n)
		}
	}

	if r.ac != nil {
		text = r.replaceKnown(text, addName)
	}
	text = replaceGroup(text, greetingPattern, addName)
	text = replaceGroup(text, signOffPattern, addName)

	res.Text = text
	return res
}

func (r *Redactor) replaceKnown(text string, found func(string)) string {
	protected := placeholderPattern.FindAllStringIndex(text, -1)
	matches := r.ac.FindAll(text)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m.Start(), m.End()
		if start < last || overlaps(protected, start, end) {
			continue
		}
		if !casingMatches(text[start:end], r.names[m.Pattern()]) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(NamePlaceholder)
		found(text[start:end])
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func casingMatches(hit, name string) bool {
	if hit == name {
		return true
	}
	first, _ := utf8.DecodeRuneInString(hit)
	return unicode.IsUpper(first)
}

// replaceGroup swaps capture group 1 of every match for the name placeholder
func replaceGroup(text string, re *regexp.Regexp, found func(string)) string {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[2], loc[3]
		if start < 0 || start < last {
			continue
		}
		candidate := text[start:end]
		first := strings.ToLower(strings.Fields(candidate)[0])
		if notNames[first] {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(NamePlaceholder)
		found(candidate)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func overlaps(spans [][]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

// normalizeNames expands "Sarah Connor" into the full name plus its parts,
// drops placeholders and very short tokens, and orders longest first.
func normalizeNames(names []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		n = strings.TrimFunc(n, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) })
		key := strings.ToLower(n)
		if len([]rune(n)) < 2 || seen[key] || key == "name" || key == "email" || notNames[key] {
			return
		}
		if strings.ContainsAny(n, "@[]") {
			return
		}
		seen[key] = true
		out = append(out, n)
	}
	for _, n := range names {
		n = strings.Join(strings.Fields(n), " ")
		add(n)
		for _, part := range strings.Fields(n) {
			add(part)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
