package signals

import (
	"strings"
	"unicode/utf8"
)

// TranscriptBudget is the maximum number of characters taken from page text.
const TranscriptBudget = 5000

// ScrollThreshold is the scroll offset past which the clinician counts as scrolling.
const ScrollThreshold = 200

// Action tags produced by DetectRecentActions.
const (
	ActionScrolling                    = "scrolling"
	ActionTyping                       = "typing"
	ActionPrescriptionInterfaceVisible = "prescription_interface_visible"
	ActionHistoryView                  = "history_view"
)

// PageSnapshot is what the overlay client captures from the hosting page.
// All fields are optional; extractors tolerate missing values.
type PageSnapshot struct {
	URL             string   `json:"url"`
	Host            string   `json:"host"`
	PageText        string   `json:"pageText"`
	MainText        string   `json:"mainText"`
	NavText         string   `json:"navText"`
	SectionText     string   `json:"sectionText"`
	DateText        string   `json:"dateText"`
	ActiveTag       string   `json:"activeTag"`
	ContentEditable bool     `json:"contentEditable"`
	ScrollTop       int      `json:"scrollTop"`
	ClassNames      []string `json:"classNames"`
	ButtonTexts     []string `json:"buttonTexts"`
	PatientHeader   string   `json:"patientHeader"`
	PatientID       string   `json:"patientId"`
}

// ExtractTranscript returns up to TranscriptBudget characters of primary-content text,
// falling back to the whole page text. It returns "" when neither is present.
func ExtractTranscript(s *PageSnapshot) string {
	if s == nil {
		return ""
	}
	text := s.MainText
	if strings.TrimSpace(text) == "" {
		text = s.PageText
	}
	return truncate(text, TranscriptBudget)
}

// IsTyping reports whether focus is on an editable element.
func IsTyping(s *PageSnapshot) bool {
	if s == nil {
		return false
	}
	tag := strings.ToUpper(s.ActiveTag)
	return tag == "INPUT" || tag == "TEXTAREA" || s.ContentEditable
}

// HasClass reports whether any class name on the page contains one of the fragments.
func HasClass(s *PageSnapshot, fragments ...string) bool {
	if s == nil {
		return false
	}
	for _, class := range s.ClassNames {
		lower := strings.ToLower(class)
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				return true
			}
		}
	}
	return false
}

// DetectRecentActions derives action tags from the snapshot. It never fails.
func DetectRecentActions(s *PageSnapshot) []string {
	actions := make([]string, 0, 4)
	if s == nil {
		return actions
	}

	if s.ScrollTop > ScrollThreshold {
		actions = append(actions, ActionScrolling)
	}
	if IsTyping(s) {
		actions = append(actions, ActionTyping)
	}
	if HasClass(s, "prescribe", "order") || hasPrescriptionButton(s.ButtonTexts) {
		actions = append(actions, ActionPrescriptionInterfaceVisible)
	}
	if HasClass(s, "history", "past") {
		actions = append(actions, ActionHistoryView)
	}
	return actions
}

func hasPrescriptionButton(texts []string) bool {
	for _, t := range texts {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "prescribe") || strings.Contains(lower, "order") || strings.Contains(lower, "prescription") {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
