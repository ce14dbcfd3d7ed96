package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const umlsSearchURL = "https://uts-ws.nlm.nih.gov/rest/search/current"

type umlsAdapter struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func newUMLSAdapter(apiKey string, client *http.Client) *umlsAdapter {
	return &umlsAdapter{client: client, apiKey: apiKey, baseURL: umlsSearchURL}
}

type umlsSearchResponse struct {
	Result struct {
		Results []struct {
			UI         string `json:"ui"`
			Name       string `json:"name"`
			RootSource string `json:"rootSource"`
		} `json:"results"`
	} `json:"result"`
}

func (a *umlsAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("string", query)
	q.Set("apiKey", a.apiKey)
	q.Set("pageSize", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build UMLS request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call UMLS search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("UMLS search returned status %d", resp.StatusCode)
	}

	var parsed umlsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode UMLS response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Result.Results))
	for _, r := range parsed.Result.Results {
		if r.UI == "" || r.UI == "NONE" {
			continue
		}
		candidates = append(candidates, Candidate{
			System:         config.VocabularySourceUMLS,
			Code:           r.UI,
			DisplayName:    r.Name,
			ConfidenceHint: 0.5,
		})
	}
	return candidates, nil
}
