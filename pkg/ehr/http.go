package ehr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Transcript(ctx context.Context, sessionID string, limit int) (*Transcript, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("sessionId", sessionID)
	}
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))

	var out Transcript
	if err := p.get(ctx, "/transcript?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Transcript == nil {
		out.Transcript = []TranscriptEntry{}
	}
	return &out, nil
}

func (p *HTTPProvider) PatientData(ctx context.Context, patientID string, includeHistory bool) (*PatientData, error) {
	q := url.Values{}
	q.Set("includeHistory", strconv.FormatBool(includeHistory))

	var out PatientData
	if err := p.get(ctx, "/patients/"+url.PathEscape(patientID)+"?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.PatientID == "" {
		out.PatientID = patientID
	}
	return &out, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ehr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPatientNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ehr error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ehr response: %w", err)
	}
	return nil
}
