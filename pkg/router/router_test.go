package router

import (
	"context"
	"testing"

	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/terminology"
	"github.com/stretchr/testify/assert"
)

func TestRouter_Route_ConcatenatesInOrderAndCaps(t *testing.T) {
	routes := config.NewTerminologyRoutingRegistry(map[string]*config.TerminologyRoutingEntry{
		"condition": {
			Vocabularies:  []config.VocabularySource{config.VocabularySourceSNOMED, config.VocabularySourceICD10},
			MaxCandidates: 2,
		},
	})

	snomed := &fakeAdapter{candidates: []terminology.Candidate{
		{System: config.VocabularySourceSNOMED, Code: "1"},
		{System: config.VocabularySourceSNOMED, Code: "2"},
	}}
	icd10 := &fakeAdapter{candidates: []terminology.Candidate{
		{System: config.VocabularySourceICD10, Code: "A00"},
	}}

	client := terminology.NewClient(
		terminology.WithAdapter(config.VocabularySourceSNOMED, snomed),
		terminology.WithAdapter(config.VocabularySourceICD10, icd10),
	)

	r := New(routes, client)
	got := r.Route(context.Background(), Entity{EntityType: "condition", SearchTerm: "fever"})

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Code)
	assert.Equal(t, "2", got[1].Code)
	assert.Equal(t, 0, icd10.calls, "should short-circuit once max_candidates is reached")
}

func TestRouter_Route_SkipReturnsNoCandidates(t *testing.T) {
	routes := config.NewTerminologyRoutingRegistry(map[string]*config.TerminologyRoutingEntry{
		"consent": {Skip: true},
	})

	r := New(routes, terminology.NewClient())
	got := r.Route(context.Background(), Entity{EntityType: "consent", SearchTerm: "informed consent"})
	assert.Nil(t, got)
}

func TestRouter_Route_UnknownEntityTypeIsTreatedAsSkip(t *testing.T) {
	routes := config.NewTerminologyRoutingRegistry(map[string]*config.TerminologyRoutingEntry{})

	r := New(routes, terminology.NewClient())
	got := r.Route(context.Background(), Entity{EntityType: "unknown", SearchTerm: "x"})
	assert.Nil(t, got)
}

type fakeAdapter struct {
	candidates []terminology.Candidate
	calls      int
}

func (f *fakeAdapter) Search(ctx context.Context, query string) ([]terminology.Candidate, error) {
	f.calls++
	return f.candidates, nil
}
