package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/ent/criteriabatch"
	"github.com/elixirtrials/elixirtrials/ent/criterion"
)

// enumerationSplit matches a leading list marker ("1.", "2)", "- ", "* ")
// at the start of a line, used to split one extracted block of text that
// actually bundles several distinct eligibility statements.
var enumerationSplit = regexp.MustCompile(`(?m)^\s*(?:[0-9]+[.)]|[-*\x{2022}])\s+`)

// parsedCriterion is one deduplicated, normalized candidate ready to
// become a Criterion row.
type parsedCriterion struct {
	Text       string
	Type       string
	Assertion  string
	Category   string
	Confidence float64
	PageNumber int
}

// criterionRef is the (criterion_id, text) pair ground needs to run entity
// extraction against each persisted criterion without re-querying the DB.
type criterionRef struct {
	CriterionID string `json:"criterion_id"`
	Text        string `json:"text"`
}

// RunParse normalizes extract's raw candidate list — splitting bundled
// enumerations, normalizing assertion casing, and deduping identical
// statements within the same (type) group — then persists one
// CriteriaBatch and its Criterion rows in a single transaction.
func RunParse(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	rawCriteria, err := decodeStateValue[[]extractedCriterion](in, "criteria")
	if err != nil {
		return nil, fmt.Errorf("read extracted criteria: %w", err)
	}
	sourceLLMName, _ := decodeStateValue[string](in, "source_llm_name")
	sourceLLMModel, _ := decodeStateValue[string](in, "source_llm_model")

	parsed := normalizeAndDedupe(rawCriteria)

	client := entClient(deps)
	tx, err := client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin parse transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	batchID := uuid.NewString()
	_, err = tx.CriteriaBatch.Create().
		SetID(batchID).
		SetProtocolID(protocolID).
		SetReviewStatus(criteriabatch.ReviewStatusPendingReview).
		SetSourceLlmName(sourceLLMName).
		SetSourceLlmVersion(sourceLLMModel).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create criteria batch: %w", err)
	}

	refs := make([]criterionRef, 0, len(parsed))
	for _, c := range parsed {
		criterionID := uuid.NewString()
		_, err := tx.Criterion.Create().
			SetID(criterionID).
			SetBatchID(batchID).
			SetCriterionType(criterion.CriterionType(c.Type)).
			SetText(c.Text).
			SetAssertion(criterion.Assertion(c.Assertion)).
			SetNillableCategory(nonEmptyPtr(c.Category)).
			SetConfidence(c.Confidence).
			SetPageNumber(c.PageNumber).
			Save(ctx)
		if err != nil {
			return nil, fmt.Errorf("create criterion: %w", err)
		}
		refs = append(refs, criterionRef{CriterionID: criterionID, Text: c.Text})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit parse transaction: %w", err)
	}

	return State{
		"batch_id": batchID,
		"criteria": refs,
	}, nil
}

// normalizeAndDedupe splits bundled enumerations out of each raw
// criterion's text, normalizes assertion casing, and drops any statement
// whose (type, normalized text) pair already appeared earlier in the
// batch — extract sometimes repeats a statement once per page it's
// referenced from.
func normalizeAndDedupe(raw []extractedCriterion) []parsedCriterion {
	seen := make(map[string]struct{})
	out := make([]parsedCriterion, 0, len(raw))

	for _, c := range raw {
		for _, piece := range splitEnumeration(c.Text) {
			normalized := normalizeAssertion(c.Assertion)
			key := strings.ToLower(c.Type) + "|" + normalizeForDedup(piece)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, parsedCriterion{
				Text:       piece,
				Type:       strings.ToLower(c.Type),
				Assertion:  normalized,
				Category:   c.Category,
				Confidence: c.Confidence,
				PageNumber: c.PageNumber,
			})
		}
	}
	return out
}

// splitEnumeration breaks text apart on leading list markers. Text with no
// such markers is returned as a single-element slice unchanged.
func splitEnumeration(text string) []string {
	pieces := enumerationSplit.Split(text, -1)
	var out []string
	for _, p := range pieces {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

func normalizeAssertion(assertion string) string {
	switch strings.ToLower(strings.TrimSpace(assertion)) {
	case "negated", "negative", "not":
		return "negated"
	default:
		return "affirmed"
	}
}

func normalizeForDedup(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
