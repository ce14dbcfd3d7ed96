package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/quality"
)

// extractedCriterion is one raw criterion candidate as Gemini returns it,
// before parse normalizes/dedupes it into Criterion rows.
type extractedCriterion struct {
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Assertion  string  `json:"assertion"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number"`
}

type extractResult struct {
	Criteria []extractedCriterion `json:"criteria"`
}

var extractCriteriaSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"criteria": {
			Type: "array",
			Items: &llmgateway.Schema{
				Type: "object",
				Properties: map[string]*llmgateway.Schema{
					"text":        {Type: "string"},
					"type":        {Type: "string", Enum: []string{"inclusion", "exclusion"}},
					"assertion":   {Type: "string", Enum: []string{"affirmed", "negated"}},
					"category":    {Type: "string"},
					"confidence":  {Type: "number"},
					"page_number": {Type: "integer"},
				},
				Required: []string{"text", "type", "assertion", "confidence", "page_number"},
			},
		},
	},
	Required: []string{"criteria"},
}

// RunExtract renders the full parsed document into a single structured-
// output Gemini call that returns a flat list of candidate eligibility
// statements. It performs no database writes of its own — parse owns
// turning these candidates into persisted CriteriaBatch/Criterion rows,
// since only parse can dedupe against what a prior extraction batch
// already produced.
func RunExtract(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	pages, err := decodeStateValue[[]quality.PageText](in, "pages")
	if err != nil {
		return nil, fmt.Errorf("read ingested pages: %w", err)
	}

	documentText := renderDocumentText(pages)

	callResult, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "extract_criteria",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: extractCriteriaSchema,
		Variables: map[string]any{
			"protocol_id":   protocolID,
			"document_text": documentText,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extract criteria call: %w", err)
	}

	var result extractResult
	if err := json.Unmarshal(callResult.JSON, &result); err != nil {
		return nil, fmt.Errorf("decode extract criteria response: %w", err)
	}

	return State{
		"criteria":         result.Criteria,
		"source_llm_name":  string(callResult.Target),
		"source_llm_model": callResult.Model,
	}, nil
}

// renderDocumentText joins page-keyed text into one prompt body with
// explicit page markers, so the model's page_number output can be
// trusted without a second pass to re-locate each criterion.
func renderDocumentText(pages []quality.PageText) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n--- page %d ---\n%s\n", p.PageNumber, p.Text)
	}
	return b.String()
}
