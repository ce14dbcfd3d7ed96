package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/elixirtrials/elixirtrials/pkg/events"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/router"
	"github.com/elixirtrials/elixirtrials/pkg/terminology"
)

// groundConcurrency bounds how many criteria are grounded at once, to
// respect the MedGemma/Gemini per-project quota rather than fan out one
// goroutine per criterion.
const groundConcurrency = 4

const (
	agenticRetryConfidenceFloor = 0.5
	maxGroundingAttempts        = 3
)

// entityCandidate is one extracted entity before grounding, as Gemini's
// structured entity-extraction call returns it. Compound phrases ("type 2
// diabetes mellitus with nephropathy") are expected to already be
// decomposed into separate entities by that call's prompt.
type entityCandidate struct {
	EntityText string `json:"entity_text"`
	EntityType string `json:"entity_type"`
	SpanStart  int    `json:"span_start"`
	SpanEnd    int    `json:"span_end"`
}

type entityExtractionResult struct {
	Entities []entityCandidate `json:"entities"`
}

// groundingDecision is MedGemma's structured verdict over the candidates
// reconciliation starts from.
type groundingDecision struct {
	SelectedCode   string  `json:"selected_code"`
	SelectedSystem string  `json:"selected_system"`
	ConceptID      int64   `json:"concept_id"`
	PreferredTerm  string  `json:"preferred_term"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// groundedEntity is one fully-resolved entity, ready for persist to turn
// into an Entity row.
type groundedEntity struct {
	CriterionID         string  `json:"criterion_id"`
	EntityText          string  `json:"entity_text"`
	EntityType          string  `json:"entity_type"`
	SpanStart           int     `json:"span_start"`
	SpanEnd             int     `json:"span_end"`
	SelectedCode        string  `json:"selected_code"`
	SelectedSystem      string  `json:"selected_system"`
	ConceptID           int64   `json:"concept_id"`
	PreferredTerm       string  `json:"preferred_term"`
	GroundingConfidence float64 `json:"grounding_confidence"`
	GroundingMethod     string  `json:"grounding_method"`
}

var entityExtractionSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"entities": {
			Type: "array",
			Items: &llmgateway.Schema{
				Type: "object",
				Properties: map[string]*llmgateway.Schema{
					"entity_text": {Type: "string"},
					"entity_type": {Type: "string", Enum: []string{"condition", "measurement", "drug", "procedure", "demographic", "consent", "other"}},
					"span_start":  {Type: "integer"},
					"span_end":    {Type: "integer"},
				},
				Required: []string{"entity_text", "entity_type", "span_start", "span_end"},
			},
		},
	},
	Required: []string{"entities"},
}

var groundingDecisionSchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"selected_code":   {Type: "string"},
		"selected_system": {Type: "string"},
		"concept_id":      {Type: "integer"},
		"preferred_term":  {Type: "string"},
		"confidence":      {Type: "number"},
		"reasoning":       {Type: "string"},
	},
	Required: []string{"confidence", "reasoning"},
}

// RunGround extracts clinical entities from every criterion in the batch
// and grounds each to a terminology code and/or OMOP concept. It is the
// one node never treated as checkpoint-resumable: a resumed run always
// re-executes ground from scratch rather than trusting a partial prior
// pass, since an interrupted ground run has no well-defined "done so far"
// boundary cheaper to re-derive than to re-run.
func RunGround(ctx context.Context, deps *Deps, protocolID string, in State) (State, error) {
	refs, err := decodeStateValue[[]criterionRef](in, "criteria")
	if err != nil {
		return nil, fmt.Errorf("read parsed criteria: %w", err)
	}
	batchID, err := decodeStateValue[string](in, "batch_id")
	if err != nil {
		return nil, fmt.Errorf("read batch id: %w", err)
	}

	sem := semaphore.NewWeighted(groundConcurrency)
	results := make([][]groundedEntity, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("ground node interrupted: %w", err)
		}

		wg.Add(1)
		go func(i int, ref criterionRef) {
			defer wg.Done()
			defer sem.Release(1)

			results[i] = groundCriterion(ctx, deps, protocolID, batchID, ref)
		}(i, ref)
	}
	wg.Wait()

	var all []groundedEntity
	for _, r := range results {
		all = append(all, r...)
	}

	return State{
		"batch_id": batchID,
		"entities": all,
		"criteria": refs,
	}, nil
}

// groundCriterion extracts entities from one criterion's text and grounds
// each one. A failure extracting entities for this criterion degrades to
// zero entities for it rather than failing the whole ground node.
func groundCriterion(ctx context.Context, deps *Deps, protocolID, batchID string, ref criterionRef) []groundedEntity {
	entities, err := extractEntities(ctx, deps, ref.Text)
	if err != nil {
		deps.Logger.Warn("entity extraction failed for criterion", "criterion_id", ref.CriterionID, "error", err)
		return nil
	}

	out := make([]groundedEntity, 0, len(entities))
	for _, e := range entities {
		ge := groundEntity(ctx, deps, ref.CriterionID, e)
		out = append(out, ge)

		writeGroundingAuditLog(ctx, deps, protocolID, ref.CriterionID, ge)

		publishGroundingProgress(ctx, deps, protocolID, batchID, len(out), len(entities))
	}
	return out
}

func extractEntities(ctx context.Context, deps *Deps, criterionText string) ([]entityCandidate, error) {
	result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "ground_entity_extraction",
		Target:         llmgateway.TargetGemini,
		ResponseSchema: entityExtractionSchema,
		Variables: map[string]any{
			"criterion_text": criterionText,
		},
	})
	if err != nil {
		return nil, err
	}

	var parsed entityExtractionResult
	if err := json.Unmarshal(result.JSON, &parsed); err != nil {
		return nil, fmt.Errorf("decode entity extraction response: %w", err)
	}
	return parsed.Entities, nil
}

// groundEntity runs the dual-path grounding and agentic retry algorithm
// for one entity. It never returns an error: every failure mode resolves
// to a grounded-or-not-grounded groundedEntity so the caller can always
// write an audit log entry and move on.
func groundEntity(ctx context.Context, deps *Deps, criterionID string, e entityCandidate) groundedEntity {
	base := groundedEntity{
		CriterionID: criterionID,
		EntityText:  e.EntityText,
		EntityType:  e.EntityType,
		SpanStart:   e.SpanStart,
		SpanEnd:     e.SpanEnd,
	}

	if e.EntityType == "consent" {
		base.GroundingMethod = "skipped"
		return base
	}

	candidates, concept := dualPathLookup(ctx, deps, e, e.EntityText)

	decision, confidence := reconcile(ctx, deps, e, candidates, concept)
	base.SelectedCode = decision.SelectedCode
	base.SelectedSystem = decision.SelectedSystem
	base.ConceptID = decision.ConceptID
	base.PreferredTerm = decision.PreferredTerm
	base.GroundingConfidence = confidence
	base.GroundingMethod = groundingMethodFor(candidates, concept)

	if confidence < agenticRetryConfidenceFloor && !hasUsableCode(decision) {
		final, method := agenticRetry(ctx, deps, e, candidates, concept)
		base.SelectedCode = final.SelectedCode
		base.SelectedSystem = final.SelectedSystem
		base.ConceptID = final.ConceptID
		base.PreferredTerm = final.PreferredTerm
		base.GroundingConfidence = final.Confidence
		base.GroundingMethod = method
	}

	return base
}

// dualPathLookup runs Path A (terminology router) and Path B (OMOP mapper)
// concurrently against searchTerm; either path failing independently
// still lets the other inform the decision. searchTerm is the entity's
// own text on the first pass and a model-proposed rephrasing on every
// agentic retry attempt, so a retry is a fresh grounded lookup rather
// than an unchecked LLM assertion.
func dualPathLookup(ctx context.Context, deps *Deps, e entityCandidate, searchTerm string) ([]terminology.Candidate, *omopConceptResult) {
	var candidates []terminology.Candidate
	var concept *omopConceptResult

	pathsDone := make(chan struct{}, 2)

	go func() {
		defer func() { pathsDone <- struct{}{} }()
		candidates = deps.Router.Route(ctx, router.Entity{EntityType: e.EntityType, SearchTerm: searchTerm})
	}()

	go func() {
		defer func() { pathsDone <- struct{}{} }()
		if deps.OMOP == nil {
			return
		}
		c, err := deps.OMOP.Map(ctx, searchTerm, omopDomainHint(e.EntityType))
		if err != nil {
			deps.Logger.Warn("omop mapping failed", "entity_text", searchTerm, "error", err)
			return
		}
		if c != nil {
			concept = &omopConceptResult{ConceptID: c.ConceptID, ConceptName: c.ConceptName, Confidence: c.Confidence}
		}
	}()

	<-pathsDone
	<-pathsDone

	return candidates, concept
}

type omopConceptResult struct {
	ConceptID   int64
	ConceptName string
	Confidence  float64
}

func omopDomainHint(entityType string) string {
	switch entityType {
	case "condition":
		return "Condition"
	case "measurement":
		return "Measurement"
	case "drug":
		return "Drug"
	case "procedure":
		return "Procedure"
	default:
		return ""
	}
}

// reconcile calls MedGemma to decide among the candidates from both paths,
// falling back to a schema-enforcing Gemini call if MedGemma's own output
// does not parse as valid JSON against groundingDecisionSchema. The
// reconciled confidence prefers Path B's concept_id per the grounding
// algorithm: confidence = 0.6*decision_confidence + 0.4*max(path
// confidences).
func reconcile(ctx context.Context, deps *Deps, e entityCandidate, candidates []terminology.Candidate, concept *omopConceptResult) (groundingDecision, float64) {
	decision, err := callGroundingDecision(ctx, deps, llmgateway.TargetMedGemma, e, candidates, concept)
	if err != nil {
		decision, err = callGroundingDecision(ctx, deps, llmgateway.TargetGemini, e, candidates, concept)
		if err != nil {
			deps.Logger.Warn("grounding decision call failed on both targets", "entity_text", e.EntityText, "error", err)
			decision = groundingDecision{}
		}
	}

	if concept != nil {
		decision.ConceptID = concept.ConceptID
		if decision.PreferredTerm == "" {
			decision.PreferredTerm = concept.ConceptName
		}
	}

	pathConfidence := maxPathConfidence(candidates, concept)
	confidence := 0.6*decision.Confidence + 0.4*pathConfidence
	return decision, confidence
}

func callGroundingDecision(ctx context.Context, deps *Deps, target llmgateway.Target, e entityCandidate, candidates []terminology.Candidate, concept *omopConceptResult) (groundingDecision, error) {
	result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
		TemplateName:   "ground_decision",
		Target:         target,
		ResponseSchema: groundingDecisionSchema,
		Variables: map[string]any{
			"entity_text":       e.EntityText,
			"entity_type":       e.EntityType,
			"terminology_paths": candidates,
			"omop_concept":      concept,
		},
	})
	if err != nil {
		return groundingDecision{}, err
	}

	var decision groundingDecision
	if err := json.Unmarshal(result.JSON, &decision); err != nil {
		return groundingDecision{}, fmt.Errorf("decode grounding decision: %w", err)
	}
	return decision, nil
}

func maxPathConfidence(candidates []terminology.Candidate, concept *omopConceptResult) float64 {
	best := 0.0
	for _, c := range candidates {
		best = math.Max(best, c.ConfidenceHint)
	}
	if concept != nil {
		best = math.Max(best, concept.Confidence)
	}
	return best
}

func hasUsableCode(d groundingDecision) bool {
	return d.SelectedCode != "" || d.ConceptID != 0
}

func groundingMethodFor(candidates []terminology.Candidate, concept *omopConceptResult) string {
	if concept != nil && concept.Confidence >= 0.95 {
		return "exact"
	}
	if len(candidates) > 0 || concept != nil {
		return "search"
	}
	return "expert_review"
}

// agenticRetry runs up to maxGroundingAttempts total (including the
// reconciliation pass already spent) retry cycles. Each cycle asks the
// model for either a skip verdict or a rephrased search term, re-runs
// dualPathLookup and reconcile with that term, and only then has a real
// grounding decision to judge; the model never asserts a code directly.
// A cycle whose proposed term repeats one already tried (including the
// entity's own original text) ends the retry immediately as
// grounding_method=expert_review instead of looping on the same search;
// exhausting every attempt without a usable code or adequate confidence
// ends the same way.
func agenticRetry(ctx context.Context, deps *Deps, e entityCandidate, candidates []terminology.Candidate, concept *omopConceptResult) (groundingDecision, string) {
	triedTerms := map[string]bool{normalizeSearchTerm(e.EntityText): true}
	currentTerm := e.EntityText

	for attempt := 2; attempt <= maxGroundingAttempts; attempt++ {
		result, err := deps.Gateway.Call(ctx, llmgateway.CallRequest{
			TemplateName:   "ground_agentic_retry",
			Target:         llmgateway.TargetGemini,
			ResponseSchema: agenticRetrySchema,
			Variables: map[string]any{
				"entity_text":       e.EntityText,
				"entity_type":       e.EntityType,
				"search_term":       currentTerm,
				"terminology_paths": candidates,
				"omop_concept":      concept,
				"attempt":           attempt,
			},
		})
		if err != nil {
			continue
		}

		var answer agenticRetryAnswer
		if err := json.Unmarshal(result.JSON, &answer); err != nil {
			continue
		}

		if answer.Skip {
			return groundingDecision{}, "skipped"
		}

		nextTerm := answer.RephrasedQuery
		if nextTerm == "" {
			nextTerm = answer.DerivedTerm
		}
		if nextTerm == "" {
			deps.Logger.Warn("agentic retry proposed no search term", "entity_text", e.EntityText, "attempt", attempt)
			return groundingDecision{}, "expert_review"
		}
		if triedTerms[normalizeSearchTerm(nextTerm)] {
			deps.Logger.Warn("agentic retry repeated a search term, ending early",
				"entity_text", e.EntityText, "term", nextTerm, "attempt", attempt)
			return groundingDecision{}, "expert_review"
		}
		triedTerms[normalizeSearchTerm(nextTerm)] = true
		currentTerm = nextTerm

		candidates, concept = dualPathLookup(ctx, deps, e, nextTerm)
		decision, confidence := reconcile(ctx, deps, e, candidates, concept)
		if confidence >= agenticRetryConfidenceFloor || hasUsableCode(decision) {
			decision.Confidence = confidence
			return decision, "agentic"
		}
	}

	return groundingDecision{}, "expert_review"
}

// normalizeSearchTerm collapses casing and surrounding whitespace so that
// "Type 2 Diabetes" and "type 2 diabetes " count as the same attempted
// search term for cycle detection.
func normalizeSearchTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

type agenticRetryAnswer struct {
	Skip           bool    `json:"skip"`
	RephrasedQuery string  `json:"rephrased_query"`
	DerivedTerm    string  `json:"derived_term"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

var agenticRetrySchema = &llmgateway.Schema{
	Type: "object",
	Properties: map[string]*llmgateway.Schema{
		"skip":            {Type: "boolean"},
		"rephrased_query": {Type: "string"},
		"derived_term":    {Type: "string"},
		"confidence":      {Type: "number"},
		"reasoning":       {Type: "string"},
	},
	Required: []string{"skip", "confidence", "reasoning"},
}

func writeGroundingAuditLog(ctx context.Context, deps *Deps, protocolID, criterionID string, ge groundedEntity) {
	details := map[string]interface{}{
		"schema_version":       "structured_v1",
		"protocol_id":          protocolID,
		"entity_text":          ge.EntityText,
		"entity_type":          ge.EntityType,
		"grounding_method":     ge.GroundingMethod,
		"grounding_confidence": ge.GroundingConfidence,
		"selected_code":        ge.SelectedCode,
		"selected_system":      ge.SelectedSystem,
		"concept_id":           ge.ConceptID,
	}

	_, err := entClient(deps).AuditLog.Create().
		SetID(uuid.NewString()).
		SetEventType("entity_grounded").
		SetTargetType("entity").
		SetTargetID(criterionID).
		SetDetails(details).
		Save(ctx)
	if err != nil {
		deps.Logger.Warn("failed to write grounding audit log", "criterion_id", criterionID, "error", err)
	}
}

func publishGroundingProgress(ctx context.Context, deps *Deps, protocolID, batchID string, done, total int) {
	if deps.Events == nil {
		return
	}
	_ = deps.Events.PublishGroundingProgress(ctx, protocolID, events.GroundingProgressPayload{
		Type:          events.EventTypeGroundingProgress,
		ProtocolID:    protocolID,
		BatchID:       batchID,
		EntitiesDone:  done,
		EntitiesTotal: total,
		Timestamp:     time.Now().Format(time.RFC3339Nano),
	})
}
