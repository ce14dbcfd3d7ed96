package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/elixirtrials/elixirtrials/pkg/config"
)

const icd10SearchURL = "https://clinicaltables.nlm.nih.gov/api/icd10cm/v3/search"

type icd10Adapter struct {
	client  *http.Client
	baseURL string
}

func newICD10Adapter(client *http.Client) *icd10Adapter {
	return &icd10Adapter{client: client, baseURL: icd10SearchURL}
}

// icd10Response follows the NLM Clinical Tables convention:
// [totalCount, codes[], extraData, displayStrings[][2]]
type icd10Response struct {
	Total    int
	Codes    []string
	Display  [][]string
}

func (r *icd10Response) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 4 {
		return fmt.Errorf("unexpected ICD-10 response shape: %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &r.Total); err != nil {
		return fmt.Errorf("decode total: %w", err)
	}
	if err := json.Unmarshal(raw[1], &r.Codes); err != nil {
		return fmt.Errorf("decode codes: %w", err)
	}
	if err := json.Unmarshal(raw[3], &r.Display); err != nil {
		return fmt.Errorf("decode display strings: %w", err)
	}
	return nil
}

func (a *icd10Adapter) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("terms", query)
	q.Set("maxList", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build ICD-10 request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ICD-10 search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ICD-10 search returned status %d", resp.StatusCode)
	}

	var parsed icd10Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ICD-10 response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Codes))
	for i, code := range parsed.Codes {
		displayName := code
		if i < len(parsed.Display) && len(parsed.Display[i]) > 1 {
			displayName = parsed.Display[i][1]
		}
		candidates = append(candidates, Candidate{
			System:         config.VocabularySourceICD10,
			Code:           code,
			DisplayName:    displayName,
			ConfidenceHint: 0.5,
		})
	}
	return candidates, nil
}
