package nlp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"temporalos-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagTexts(tags []TemporalTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Text
	}
	return out
}

func TestExtractTemporalTags(t *testing.T) {
	tags := ExtractTemporalTags("Chest pain started two days ago, follow-up next week", nil)

	assert.Equal(t, []string{"ago", "follow-up", "next"}, tagTexts(tags))
	for _, tag := range tags {
		assert.Equal(t, KeywordConfidence, tag.Confidence)
	}
	assert.Equal(t, TemporalPast, tags[0].TemporalType)
	assert.Equal(t, TemporalFuture, tags[1].TemporalType)
}

func TestExtractTemporalTagsWordBoundaries(t *testing.T) {
	tags := ExtractTemporalTags("Thistle nowhere", nil)
	assert.Empty(t, tags)
}

func TestExtractTemporalTagsFromEntities(t *testing.T) {
	entities := []Entity{
		{Text: "3 days ago", Category: CategoryTimeExpression, Score: 0.9},
		{Text: "tomorrow morning", Category: "OTHER", Type: "TIME"},
		{Text: "aspirin", Category: "MEDICATION"},
	}
	tags := ExtractTemporalTags("", entities)
	require.Len(t, tags, 2)
	assert.Equal(t, TemporalPast, tags[0].TemporalType)
	assert.Equal(t, 0.9, tags[0].Confidence)
	assert.Equal(t, TemporalFuture, tags[1].TemporalType)
	assert.Equal(t, 0.5, tags[1].Confidence)
}

func TestInferTemporalType(t *testing.T) {
	assert.Equal(t, TemporalPast, InferTemporalType("last month"))
	assert.Equal(t, TemporalPresent, InferTemporalType("right now"))
	assert.Equal(t, TemporalFuture, InferTemporalType("will recheck"))
	assert.Equal(t, TemporalUnknown, InferTemporalType("at noon"))
}

type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, string, Options) (*Extraction, error) {
	return nil, errors.New("unreachable")
}

func TestAnalyzerSurvivesProviderFailure(t *testing.T) {
	a := NewAnalyzer(failingExtractor{}, logger.NewNopLogger())
	res := a.Analyze(context.Background(), "patient was seen yesterday", Options{IncludePHI: true})

	assert.Empty(t, res.Entities)
	assert.NotNil(t, res.Entities)
	assert.Nil(t, res.PHI)
	assert.Contains(t, tagTexts(res.TemporalTags), "yesterday")
}

func TestHTTPExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":[{"text":"yesterday","category":"TIME_EXPRESSION","score":0.8}],"icd10Codes":[{"code":"I10","description":"Essential hypertension","score":0.9}]}`))
	}))
	defer srv.Close()

	a := NewAnalyzer(NewHTTPExtractor(srv.URL, "key", time.Second), logger.NewNopLogger())
	res := a.Analyze(context.Background(), "BP high since yesterday", Options{IncludeICD10: true})

	require.Len(t, res.Entities, 1)
	require.Len(t, res.ICD10Codes, 1)
	assert.Equal(t, "I10", res.ICD10Codes[0].Code)
	assert.Len(t, res.TemporalTags, 2)
}
