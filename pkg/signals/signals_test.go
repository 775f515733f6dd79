package signals

import (
	"strings"
	"testing"

	"temporalos-be/pkg/temporal"

	"github.com/stretchr/testify/assert"
)

func TestExtractTranscript(t *testing.T) {
	t.Run("prefers main content", func(t *testing.T) {
		s := &PageSnapshot{MainText: "main body", PageText: "whole page"}
		assert.Equal(t, "main body", ExtractTranscript(s))
	})

	t.Run("falls back to page text", func(t *testing.T) {
		s := &PageSnapshot{MainText: "   ", PageText: "whole page"}
		assert.Equal(t, "whole page", ExtractTranscript(s))
	})

	t.Run("empty when nothing captured", func(t *testing.T) {
		assert.Equal(t, "", ExtractTranscript(&PageSnapshot{}))
		assert.Equal(t, "", ExtractTranscript(nil))
	})

	t.Run("caps at budget", func(t *testing.T) {
		s := &PageSnapshot{PageText: strings.Repeat("a", TranscriptBudget+100)}
		assert.Len(t, ExtractTranscript(s), TranscriptBudget)
	})
}

func TestDetectRecentActions(t *testing.T) {
	tests := []struct {
		name string
		snap *PageSnapshot
		want []string
	}{
		{
			name: "nil snapshot",
			snap: nil,
			want: []string{},
		},
		{
			name: "scrolling past threshold",
			snap: &PageSnapshot{ScrollTop: 201},
			want: []string{ActionScrolling},
		},
		{
			name: "at threshold is not scrolling",
			snap: &PageSnapshot{ScrollTop: 200},
			want: []string{},
		},
		{
			name: "typing in textarea",
			snap: &PageSnapshot{ActiveTag: "textarea"},
			want: []string{ActionTyping},
		},
		{
			name: "contenteditable counts as typing",
			snap: &PageSnapshot{ActiveTag: "DIV", ContentEditable: true},
			want: []string{ActionTyping},
		},
		{
			name: "prescription button text",
			snap: &PageSnapshot{ButtonTexts: []string{"Save", "New Prescription"}},
			want: []string{ActionPrescriptionInterfaceVisible},
		},
		{
			name: "order class and history class",
			snap: &PageSnapshot{ClassNames: []string{"order-panel", "PastVisits"}},
			want: []string{ActionPrescriptionInterfaceVisible, ActionHistoryView},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectRecentActions(tt.snap))
		})
	}
}

func TestIsTerminalUtterance(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"done", true},
		{"DONE", true},
		{"I'm done", true},
		{"done with the exam", true},
		{"okay we are done.", true},
		{"undone", false},
		{"the patient donated blood", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTerminalUtterance(tt.text))
		})
	}
}

func TestDetectSpeechMode(t *testing.T) {
	tests := []struct {
		text   string
		want   temporal.Mode
		wantOK bool
	}{
		{"let's review the history", temporal.ModePast, true},
		{"current symptoms are mild", temporal.ModePresent, true},
		{"what's the plan", temporal.ModeFuture, true},
		{"history and plan", temporal.ModePast, true},
		{"planet", "", false},
		{"blood pressure is fine", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := DetectSpeechMode(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
