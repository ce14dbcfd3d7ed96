package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const snomedSearchURL = "https://browser.ihtsdotools.org/snowstorm/snomed-ct/browser/MAIN/descriptions"

type snomedAdapter struct {
	client  *http.Client
	baseURL string
}

func newSNOMEDAdapter(client *http.Client) *snomedAdapter {
	return &snomedAdapter{client: client, baseURL: snomedSearchURL}
}

type snomedSearchResponse struct {
	Items []struct {
		Term    string `json:"term"`
		Active  bool   `json:"active"`
		Concept struct {
			ConceptID string `json:"conceptId"`
			Active    bool   `json:"active"`
		} `json:"concept"`
	} `json:"items"`
}

func (a *snomedAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("limit", "10")
	q.Set("active", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build SNOMED request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call SNOMED search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SNOMED search returned status %d", resp.StatusCode)
	}

	var parsed snomedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode SNOMED response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if !item.Concept.Active {
			continue
		}
		candidates = append(candidates, Candidate{
			System:         config.VocabularySourceSNOMED,
			Code:           item.Concept.ConceptID,
			DisplayName:    item.Term,
			ConfidenceHint: 0.5,
		})
	}
	return candidates, nil
}
