package detector

import (
	"strings"

	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/temporal"
)

// StrictTextBudget bounds the visible text the strict detector reads.
const StrictTextBudget = 2000

type WorkflowState string

const (
	WorkflowScrollingHistory WorkflowState = "scrolling_history"
	WorkflowViewingLabs      WorkflowState = "viewing_labs"
	WorkflowWritingNote      WorkflowState = "writing_note"
	WorkflowOrderingMeds     WorkflowState = "ordering_meds"
	WorkflowUnknown          WorkflowState = "unknown"
)

// StrictContext is the verified context the strict detector requires.
type StrictContext struct {
	Host          string        `json:"host"`
	Patient       string        `json:"patient,omitempty"`
	Section       string        `json:"section,omitempty"`
	TimeContext   string        `json:"timeContext,omitempty"`
	VisibleText   string        `json:"-"`
	WorkflowState WorkflowState `json:"workflowState"`
}

// CollectContext builds a StrictContext from a page snapshot.
func CollectContext(s *signals.PageSnapshot) StrictContext {
	if s == nil {
		return StrictContext{WorkflowState: WorkflowUnknown}
	}
	text := s.PageText
	if len(text) > StrictTextBudget {
		text = text[:StrictTextBudget]
	}
	return StrictContext{
		Host:          s.Host,
		Patient:       strings.TrimSpace(s.PatientHeader),
		Section:       strings.TrimSpace(s.SectionText),
		TimeContext:   strings.TrimSpace(s.DateText),
		VisibleText:   text,
		WorkflowState: DetectWorkflowState(text, s.SectionText),
	}
}

func DetectWorkflowState(text, navText string) WorkflowState {
	lower := strings.ToLower(text)
	nav := strings.ToLower(navText)

	switch {
	case strings.Contains(lower, "scroll") || strings.Contains(nav, "history") || strings.Contains(nav, "past"):
		return WorkflowScrollingHistory
	case strings.Contains(nav, "lab") || strings.Contains(lower, "lab result") || strings.Contains(lower, "test result"):
		return WorkflowViewingLabs
	case strings.Contains(nav, "note") || strings.Contains(lower, "writing") || strings.Contains(lower, "documentation"):
		return WorkflowWritingNote
	case strings.Contains(nav, "order") || strings.Contains(nav, "prescribe") || strings.Contains(lower, "medication order"):
		return WorkflowOrderingMeds
	}
	return WorkflowUnknown
}

// HostAllowed reports whether host matches one of the allowed EHR hosts.
// An empty allow list accepts every host.
func HostAllowed(host string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, a := range allowed {
		if a != "" && strings.Contains(host, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

// DetectStrict is fail-closed: without an allowed host and an identified patient it
// returns insufficient_data regardless of any other evidence.
func DetectStrict(ctx StrictContext, allowedHosts []string) temporal.Mode {
	if !HostAllowed(ctx.Host, allowedHosts) {
		return temporal.ModeInsufficientData
	}
	if ctx.Patient == "" {
		return temporal.ModeInsufficientData
	}

	text := strings.ToLower(ctx.VisibleText)
	if strings.Contains(text, "past visits") || strings.Contains(text, "history") ||
		strings.Contains(text, "previous encounters") || ctx.WorkflowState == WorkflowScrollingHistory {
		return temporal.ModePast
	}
	if strings.Contains(text, "plan") || strings.Contains(text, "orders") ||
		strings.Contains(text, "prescribe") || ctx.WorkflowState == WorkflowOrderingMeds {
		return temporal.ModeFuture
	}
	return temporal.ModePresent
}
