package terminology

import (
	"context"
	"errors"
	"testing"

	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/stretchr/testify/assert"
)

type fakeAdapter struct {
	candidates []Candidate
	err        error
	calls      int
}

func (f *fakeAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func TestClient_Search_ReturnsCandidatesAndCaches(t *testing.T) {
	fake := &fakeAdapter{candidates: []Candidate{{System: config.VocabularySourceSNOMED, Code: "386661006", DisplayName: "Fever"}}}
	client := NewClient(WithAdapter(config.VocabularySourceSNOMED, fake))

	got := client.Search(context.Background(), config.VocabularySourceSNOMED, "fever")
	assert.Equal(t, fake.candidates, got)
	assert.Equal(t, 1, fake.calls)

	// Second call should hit the cache, not the adapter.
	got = client.Search(context.Background(), config.VocabularySourceSNOMED, "fever")
	assert.Equal(t, fake.candidates, got)
	assert.Equal(t, 1, fake.calls)
}

func TestClient_Search_UnknownSystemReturnsEmpty(t *testing.T) {
	client := NewClient()
	got := client.Search(context.Background(), config.VocabularySource("unknown"), "fever")
	assert.Nil(t, got)
}

func TestClient_Search_AdapterErrorReturnsEmptyNeverPanics(t *testing.T) {
	fake := &fakeAdapter{err: errors.New("upstream down")}
	client := NewClient(WithAdapter(config.VocabularySourceUMLS, fake))

	got := client.Search(context.Background(), config.VocabularySourceUMLS, "fever")
	assert.Nil(t, got)
	assert.Equal(t, 1, fake.calls)
}
