// Package voicecall places follow-up phone calls through the VAPI voice platform.
package voicecall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.vapi.ai"

var ErrNotConfigured = errors.New("voice call provider not configured")

type Config struct {
	APIKey        string
	PhoneNumberID string
	AssistantID   string
	BaseURL       string
	Timeout       time.Duration
}

type CallRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	PatientName string `json:"patientName,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
}

type CallResult struct {
	CallID string `json:"callId"`
	Status string `json:"status"`
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

type phoneCall struct {
	PhoneNumberID string     `json:"phoneNumberId,omitempty"`
	AssistantID   string     `json:"assistantId,omitempty"`
	Customer      customer   `json:"customer"`
	Assistant     *assistant `json:"assistant,omitempty"`
}

type customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type assistant struct {
	FirstMessage string         `json:"firstMessage"`
	Model        assistantModel `json:"model"`
}

type assistantModel struct {
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	Temperature float64            `json:"temperature"`
	Messages    []assistantMessage `json:"messages"`
}

type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const schedulerPrompt = "You are a friendly medical assistant scheduling follow-up appointments. Be professional, empathetic, and helpful. Ask for the patient's availability and confirm appointment details."

func FirstMessage(req CallRequest) string {
	name := req.PatientName
	if name == "" {
		name = "the patient"
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = "We'd like to discuss their recent consultation and medication recommendations."
	}
	return fmt.Sprintf("Hello! This is TemporalOS calling to schedule a follow-up appointment for %s. %s", name, purpose)
}

func (c *Client) Outbound(ctx context.Context, req CallRequest) (*CallResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	body := phoneCall{
		PhoneNumberID: c.cfg.PhoneNumberID,
		Customer:      customer{Number: req.PhoneNumber, Name: req.PatientName},
	}
	if c.cfg.AssistantID != "" {
		body.AssistantID = c.cfg.AssistantID
	} else {
		body.Assistant = &assistant{
			FirstMessage: FirstMessage(req),
			Model: assistantModel{
				Provider:    "openai",
				Model:       "gpt-4",
				Temperature: 0.7,
				Messages:    []assistantMessage{{Role: "system", Content: schedulerPrompt}},
			},
		}
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/call/phone", body, &out); err != nil {
		return nil, err
	}
	return &CallResult{CallID: out.ID, Status: out.Status}, nil
}

// Status returns the provider's call record as-is.
func (c *Client) Status(ctx context.Context, callID string) (map[string]interface{}, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	out := map[string]interface{}{}
	if err := c.do(ctx, http.MethodGet, "/call/"+url.PathEscape(callID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("vapi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vapi error (status %d): %s", resp.StatusCode, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
