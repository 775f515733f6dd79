package signals

import (
	"regexp"
	"strings"

	"temporalos-be/pkg/temporal"
)

// Fragment is one result delivered by the speech recognizer.
type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// TerminalToken is the spoken control word that forces FUTURE mode.
const TerminalToken = "done"

var terminalPattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(TerminalToken) + `\b`)

type keywordRule struct {
	mode    temporal.Mode
	pattern *regexp.Regexp
}

// Checked in order; the first match wins.
var speechKeywords = []keywordRule{
	{temporal.ModePast, regexp.MustCompile(`(?i)\b(past|history)\b`)},
	{temporal.ModePresent, regexp.MustCompile(`(?i)\b(present|current)\b`)},
	{temporal.ModeFuture, regexp.MustCompile(`(?i)\b(future|plan)\b`)},
}

// IsTerminalUtterance reports whether text is, contains, or ends with the word "done".
func IsTerminalUtterance(text string) bool {
	return terminalPattern.MatchString(text)
}

// DetectSpeechMode matches mode keywords in a finalized fragment.
func DetectSpeechMode(text string) (temporal.Mode, bool) {
	for _, rule := range speechKeywords {
		if rule.pattern.MatchString(text) {
			return rule.mode, true
		}
	}
	return "", false
}

// Normalize trims recognizer output.
func (f Fragment) Normalize() Fragment {
	f.Text = strings.TrimSpace(f.Text)
	return f
}

func (f Fragment) Empty() bool {
	return strings.TrimSpace(f.Text) == ""
}
