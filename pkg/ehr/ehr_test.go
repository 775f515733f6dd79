package ehr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 100, ClampLimit(500))
}

func TestDemoProvider(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewDemoProvider(func() time.Time { return now })

	tr, err := p.Transcript(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, tr.Transcript, 1)
	assert.Equal(t, "mock-session-123", tr.SessionID)

	pd, err := p.PatientData(context.Background(), "P-1", true)
	require.NoError(t, err)
	assert.Equal(t, "P-1", pd.PatientID)
	assert.Equal(t, 45, pd.Demographics.Age)
	assert.Equal(t, "140/90", pd.Vitals[0].Value)
	assert.Equal(t, "Troponin", pd.Labs[0].Name)
}

func TestNewProviderWithoutBaseURLIsDemo(t *testing.T) {
	_, ok := NewProvider("", "", 0).(*DemoProvider)
	assert.True(t, ok)
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/transcript":
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			w.Write([]byte(`{"transcript":[{"id":"a","text":"hello","timestamp":1}],"sessionId":"s1"}`))
		case "/patients/P-1":
			w.Write([]byte(`{"demographics":{"age":60}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", "key", time.Second)

	tr, err := p.Transcript(context.Background(), "s1", 1000)
	require.NoError(t, err)
	assert.Equal(t, "hello", tr.Transcript[0].Text)

	pd, err := p.PatientData(context.Background(), "P-1", false)
	require.NoError(t, err)
	assert.Equal(t, "P-1", pd.PatientID)
	assert.Equal(t, 60, pd.Demographics.Age)

	_, err = p.PatientData(context.Background(), "missing", false)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
