package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const loincExpandURL = "https://fhir.loinc.org/ValueSet/$expand"

type loincAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

func newLOINCAdapter(username, password string, client *http.Client) *loincAdapter {
	return &loincAdapter{client: client, baseURL: loincExpandURL, username: username, password: password}
}

type loincExpandResponse struct {
	Expansion struct {
		Contains []struct {
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"contains"`
	} `json:"expansion"`
}

func (a *loincAdapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("filter", query)
	q.Set("count", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build LOINC request: %w", err)
	}
	if a.username != "" {
		req.SetBasicAuth(a.username, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call LOINC search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LOINC search returned status %d", resp.StatusCode)
	}

	var parsed loincExpandResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode LOINC response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Expansion.Contains))
	for _, item := range parsed.Expansion.Contains {
		candidates = append(candidates, Candidate{
			System:         config.VocabularySourceLOINC,
			Code:           item.Code,
			DisplayName:    item.Display,
			ConfidenceHint: 0.5,
		})
	}
	return candidates, nil
}
