package detector

import (
	"testing"

	"temporalos-be/pkg/signals"
	"temporalos-be/pkg/temporal"

	"github.com/stretchr/testify/assert"
)

func TestScoresDecide(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   temporal.Mode
	}{
		{"past wins outright", Scores{Past: 3, Present: 1, Future: 2}, temporal.ModePast},
		{"future wins outright", Scores{Past: 0, Present: 1, Future: 2}, temporal.ModeFuture},
		{"past and future tied", Scores{Past: 2, Present: 1, Future: 2}, temporal.ModePresent},
		{"single indicator is not enough", Scores{Past: 1}, temporal.ModePresent},
		{"nothing matched", Scores{}, temporal.ModePresent},
		{"past tied with present", Scores{Past: 2, Present: 2}, temporal.ModePresent},
		{"present strong", Scores{Present: 4, Future: 1}, temporal.ModePresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scores.Decide())
		})
	}
}

func TestScoresDecisive(t *testing.T) {
	assert.True(t, Scores{Past: 2}.Decisive())
	assert.True(t, Scores{Present: 2, Future: 1}.Decisive())
	assert.False(t, Scores{Past: 2, Future: 2, Present: 1}.Decisive())
	assert.False(t, Scores{Present: 1}.Decisive())
}

func TestDetectFromSnapshot(t *testing.T) {
	t.Run("history tab", func(t *testing.T) {
		snap := &signals.PageSnapshot{
			URL:        "https://ehr.example.com/patient/42/history",
			PageText:   "Past Visits\nMedical History",
			NavText:    "History",
			ClassNames: []string{"history-list"},
		}
		mode, scores := Detect(FromSnapshot(snap))
		assert.Equal(t, temporal.ModePast, mode)
		assert.Equal(t, 5, scores.Past)
	})

	t.Run("ordering", func(t *testing.T) {
		snap := &signals.PageSnapshot{
			URL:      "https://ehr.example.com/orders/new",
			PageText: "New Prescription - add medication",
			NavText:  "Orders",
		}
		mode, _ := Detect(FromSnapshot(snap))
		assert.Equal(t, temporal.ModeFuture, mode)
	})

	t.Run("note writing", func(t *testing.T) {
		snap := &signals.PageSnapshot{
			URL:       "https://ehr.example.com/note",
			PageText:  "Assessment for today",
			ActiveTag: "TEXTAREA",
		}
		mode, scores := Detect(FromSnapshot(snap))
		assert.Equal(t, temporal.ModePresent, mode)
		assert.Equal(t, 4, scores.Present)
	})

	t.Run("empty snapshot defaults to present", func(t *testing.T) {
		mode, scores := Detect(FromSnapshot(nil))
		assert.Equal(t, temporal.ModePresent, mode)
		assert.Equal(t, Scores{}, scores)
	})
}

func TestDetectStrict(t *testing.T) {
	allowed := []string{"heidihealth.com"}

	tests := []struct {
		name string
		ctx  StrictContext
		want temporal.Mode
	}{
		{
			name: "no patient overrides all evidence",
			ctx:  StrictContext{Host: "app.heidihealth.com", VisibleText: "past visits history", WorkflowState: WorkflowScrollingHistory},
			want: temporal.ModeInsufficientData,
		},
		{
			name: "foreign host",
			ctx:  StrictContext{Host: "example.com", Patient: "Room 4 - J. Smith"},
			want: temporal.ModeInsufficientData,
		},
		{
			name: "history text",
			ctx:  StrictContext{Host: "app.heidihealth.com", Patient: "J. Smith", VisibleText: "Previous encounters"},
			want: temporal.ModePast,
		},
		{
			name: "ordering workflow",
			ctx:  StrictContext{Host: "app.heidihealth.com", Patient: "J. Smith", WorkflowState: WorkflowOrderingMeds},
			want: temporal.ModeFuture,
		},
		{
			name: "verified session defaults to present",
			ctx:  StrictContext{Host: "app.heidihealth.com", Patient: "J. Smith", VisibleText: "vitals"},
			want: temporal.ModePresent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStrict(tt.ctx, allowed))
		})
	}
}

func TestHostAllowedEmptyList(t *testing.T) {
	assert.True(t, HostAllowed("anything.local", nil))
	assert.False(t, HostAllowed("anything.local", []string{"heidihealth.com"}))
}

func TestDetectWorkflowState(t *testing.T) {
	assert.Equal(t, WorkflowScrollingHistory, DetectWorkflowState("", "Past"))
	assert.Equal(t, WorkflowViewingLabs, DetectWorkflowState("Lab result pending", ""))
	assert.Equal(t, WorkflowWritingNote, DetectWorkflowState("", "Notes"))
	assert.Equal(t, WorkflowOrderingMeds, DetectWorkflowState("Medication order form", ""))
	assert.Equal(t, WorkflowUnknown, DetectWorkflowState("vitals", "summary"))
}

func TestCollectContext(t *testing.T) {
	ctx := CollectContext(&signals.PageSnapshot{
		Host:          "app.heidihealth.com",
		PatientHeader: "  Room 12 ",
		SectionText:   "Labs",
		PageText:      "results",
	})
	assert.Equal(t, "Room 12", ctx.Patient)
	assert.Equal(t, WorkflowViewingLabs, ctx.WorkflowState)
}

func TestClassifyContext(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		actions    []string
		wantMode   temporal.Mode
		wantReason string
	}{
		{"planning transcript with order action", "we should plan the next visit", []string{"order"}, temporal.ModeFuture, ReasonRulePlanning},
		{"order action alone", "", []string{"order_entry"}, temporal.ModeFuture, ReasonRulePlanning},
		{"historical transcript", "compared with yesterday", nil, temporal.ModePast, ReasonRuleHistory},
		{"scrolling action", "", []string{"scrolling"}, temporal.ModePast, ReasonRuleHistory},
		{"planning beats history", "history then follow-up", nil, temporal.ModeFuture, ReasonRulePlanning},
		{"default", "blood pressure is stable", []string{"typing"}, temporal.ModePresent, ReasonRuleDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyContext(tt.transcript, tt.actions)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Contains(t, got.Reason, "Rule-based")
		})
	}
}
