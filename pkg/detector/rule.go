// Package detector scores temporal modes from page and transcript heuristics without network access.
package detector

import (
	"strings"

	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/temporal"
)

// MinIndicators is the score a mode needs before it can win outright.
const MinIndicators = 2

// PageSignals is the explicit input to the rule detector.
type PageSignals struct {
	URL               string
	PageText          string
	NavText           string
	IsTyping          bool
	HasHistoryElement bool
	HasOrderElement   bool
}

// FromSnapshot lowercases the snapshot fields the detector reads.
func FromSnapshot(s *signals.PageSnapshot) PageSignals {
	if s == nil {
		return PageSignals{}
	}
	return PageSignals{
		URL:               strings.ToLower(s.URL),
		PageText:          strings.ToLower(s.PageText),
		NavText:           strings.ToLower(s.NavText),
		IsTyping:          signals.IsTyping(s),
		HasHistoryElement: signals.HasClass(s, "history"),
		HasOrderElement:   signals.HasClass(s, "prescription", "order"),
	}
}

// Scores counts matched indicators per mode.
type Scores struct {
	Past    int `json:"past"`
	Present int `json:"present"`
	Future  int `json:"future"`
}

func Score(in PageSignals) Scores {
	url, text, nav := in.URL, in.PageText, in.NavText

	past := []bool{
		strings.Contains(url, "history"),
		strings.Contains(url, "past"),
		strings.Contains(url, "previous"),
		strings.Contains(url, "encounters"),
		strings.Contains(text, "past visits"),
		strings.Contains(text, "previous encounters"),
		strings.Contains(text, "medical history"),
		strings.Contains(text, "historical"),
		strings.Contains(nav, "history"),
		strings.Contains(nav, "past"),
		in.HasHistoryElement,
	}

	future := []bool{
		strings.Contains(url, "order"),
		strings.Contains(url, "prescribe"),
		strings.Contains(url, "prescription"),
		strings.Contains(url, "plan"),
		strings.Contains(url, "treatment"),
		strings.Contains(text, "new prescription"),
		strings.Contains(text, "add medication"),
		strings.Contains(text, "treatment plan"),
		strings.Contains(text, "order"),
		strings.Contains(nav, "orders"),
		strings.Contains(nav, "prescription"),
		strings.Contains(nav, "plan"),
		in.HasOrderElement,
	}

	present := []bool{
		strings.Contains(url, "note"),
		strings.Contains(url, "documentation"),
		strings.Contains(url, "assessment"),
		strings.Contains(url, "scribe"),
		in.IsTyping,
		strings.Contains(text, "assessment"),
		strings.Contains(text, "current visit"),
		strings.Contains(text, "today"),
		strings.Contains(nav, "note"),
		strings.Contains(nav, "scribe"),
	}

	return Scores{
		Past:    count(past),
		Present: count(present),
		Future:  count(future),
	}
}

// Decide applies the present-biased decision rule: past or future win only with at least
// MinIndicators matches and a strictly greater score than both others. Everything else is present.
func (s Scores) Decide() temporal.Mode {
	if s.Past >= MinIndicators && s.Past > s.Future && s.Past > s.Present {
		return temporal.ModePast
	}
	if s.Future >= MinIndicators && s.Future > s.Past && s.Future > s.Present {
		return temporal.ModeFuture
	}
	return temporal.ModePresent
}

// Decisive reports whether Decide reached its answer on evidence rather than by default.
func (s Scores) Decisive() bool {
	switch s.Decide() {
	case temporal.ModePast, temporal.ModeFuture:
		return true
	}
	return s.Present >= MinIndicators && s.Present > s.Past && s.Present > s.Future
}

// Detect scores the input and returns the winning mode.
func Detect(in PageSignals) (temporal.Mode, Scores) {
	scores := Score(in)
	return scores.Decide(), scores
}

func count(indicators []bool) int {
	n := 0
	for _, ok := range indicators {
		if ok {
			n++
		}
	}
	return n
}
