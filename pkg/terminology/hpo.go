package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const hpoSearchURL = "https://ontology.jax.org/api/hp/search"

type hpoAdapter struct {
	client  *http.Client
	baseURL string
}

func newHPOAdapter(client *http.Client) *hpoAdapter {
	return &hpoAdapter{client: client, baseURL: hpoSearchURL}
}

type hpoSearchResponse struct {
	Terms []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"terms"`
}

func (a *hpoAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build HPO request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call HPO search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HPO search returned status %d", resp.StatusCode)
	}

	var parsed hpoSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode HPO response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Terms))
	for _, term := range parsed.Terms {
		candidates = append(candidates, Candidate{
			System:         config.VocabularySourceHPO,
			Code:           term.ID,
			DisplayName:    term.Name,
			ConfidenceHint: 0.5,
		})
	}
	return candidates, nil
}
