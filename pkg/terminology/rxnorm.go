package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const rxnormSearchURL = "https://rxnav.nlm.nih.gov/REST/drugs.json"

type rxnormAdapter struct {
	client  *http.Client
	baseURL string
}

func newRxNormAdapter(client *http.Client) *rxnormAdapter {
	return &rxnormAdapter{client: client, baseURL: rxnormSearchURL}
}

type rxnormResponse struct {
	DrugGroup struct {
		ConceptGroup []struct {
			TTY               string `json:"tty"`
			ConceptProperties []struct {
				RxCUI string `json:"rxcui"`
				Name  string `json:"name"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

func (a *rxnormAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("name", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build RxNorm request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call RxNorm search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RxNorm search returned status %d", resp.StatusCode)
	}

	var parsed rxnormResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode RxNorm response: %w", err)
	}

	var candidates []Candidate
	for _, group := range parsed.DrugGroup.ConceptGroup {
		for _, prop := range group.ConceptProperties {
			candidates = append(candidates, Candidate{
				System:         config.VocabularySourceRxNorm,
				Code:           prop.RxCUI,
				DisplayName:    prop.Name,
				ConfidenceHint: 0.5,
			})
			if len(candidates) >= 10 {
				return candidates, nil
			}
		}
	}
	return candidates, nil
}
