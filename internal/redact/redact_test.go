package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_Emails(t *testing.T) {
	r := New()

	res := r.Redact("Send it to sarah.connor@example.com and cc ops@corp.co.uk please")

	assert.Equal(t, "Send it to [EMAIL] and cc [EMAIL] please", res.Text)
	assert.Equal(t, []string{"sarah.connor@example.com", "ops@corp.co.uk"}, res.EmailsFound)
	assert.Empty(t, res.NamesFound)
}

func TestRedact_KnownNamesWholeWordOnly(t *testing.T) {
	r := New("Sarah Connor", "Al")

	res := r.Redact("SARAH said Sarah Connor will call. Also ask Al about the album.")

	assert.Equal(t, "[NAME] said [NAME] will call. Also ask [NAME] about the album.", res.Text)
	assert.ElementsMatch(t, []string{"SARAH", "Sarah Connor", "Al"}, res.NamesFound)
}

func TestRedact_KnownNamesIgnoreLowercaseWords(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		in    string
		want  string
	}{
		{name: "modal verb", names: []string{"Will"}, in: "I will send it. Will said so.", want: "I will send it. [NAME] said so."},
		{name: "common noun", names: []string{"Mark Hope"}, in: "I hope you mark it. Hope agreed.", want: "I hope you mark it. [NAME] agreed."},
		{name: "shouted", names: []string{"Will"}, in: "ask WILL first", want: "ask [NAME] first"},
		{name: "name given in lowercase", names: []string{"june"}, in: "ping june in june", want: "ping [NAME] in [NAME]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.names...).Redact(tt.in).Text)
		})
	}
}

func TestRedact_GreetingAndSignOff(t *testing.T) {
	r := New()

	res := r.Redact("Hi Marcus,\n\nThanks again for the notes.\n\nBest,\nJenny")

	assert.Equal(t, "Hi [NAME],\n\nThanks again for the notes.\n\nBest,\n[NAME]", res.Text)
	assert.Equal(t, []string{"Marcus", "Jenny"}, res.NamesFound)
}

func TestRedact_GreetingSkipsNonNames(t *testing.T) {
	r := New()

	res := r.Redact("Hi All, thanks Everyone for coming. Hey there!")

	assert.Equal(t, "Hi All, thanks Everyone for coming. Hey there!", res.Text)
	assert.Empty(t, res.NamesFound)
}

func TestRedact_NeverInsideEmailToken(t *testing.T) {
	r := New("john")

	res := r.Redact("Reach john at john@example.com")

	assert.Equal(t, "Reach [NAME] at [EMAIL]", res.Text)
	assert.Equal(t, []string{"john@example.com"}, res.EmailsFound)
	assert.Equal(t, []string{"john"}, res.NamesFound)
}

func TestRedact_Idempotent(t *testing.T) {
	r := New("Priya Shah", "Name", "Email")
	inputs := []string{
		"",
		"no names here at all",
		"Hi Priya,\nsee priya.shah@acme.io or ping Shah.\n\nCheers,\nTom",
		"Dear Mr. Holloway, the [NAME] placeholder and [EMAIL] stay put.",
		"Hey Sam Taylor Thanks Jo\n\nLove,\nMum",
		"Thank you Priya! 🙂 héllo wörld",
	}

	for _, in := range inputs {
		once := r.Redact(in)
		twice := r.Redact(once.Text)
		require.Equal(t, once.Text, twice.Text, "input %q", in)
		assert.Empty(t, twice.EmailsFound)
	}
}

func TestWithNames_ExtendsDictionary(t *testing.T) {
	base := New("Alice")
	per := base.WithNames("Bob Builder")

	assert.Equal(t, "[NAME] and Bob", base.Redact("Alice and Bob").Text)
	assert.Equal(t, "[NAME] and [NAME]", per.Redact("Alice and Bob").Text)
	assert.Same(t, base, base.WithNames())
}

func TestNormalizeNames(t *testing.T) {
	got := normalizeNames([]string{" Sarah  Connor ", "sarah", "x", "jo@x.com", "[NAME]", "Team"})

	assert.Equal(t, []string{"Sarah Connor", "Connor", "Sarah"}, got)
}
