// Package omop maps free-text search terms to standard OMOP concepts using
// a dedicated, read-only connection to the OMOP vocabulary database.
package omop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elixirtrials/elixirtrials/pkg/database"
)

// Concept is the normalized result of a successful mapping.
type Concept struct {
	ConceptID     int64
	ConceptName   string
	VocabularyID  string
	Confidence    float64
}

const minTrigramSimilarity = 0.6

// Mapper resolves (query_text, domain_hint) pairs to a standard OMOP
// concept via a fixed, ordered strategy: exact concept name, exact
// synonym, trigram-fuzzy concept name, then nil.
type Mapper struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMapper wraps an already-connected OMOP vocabulary pool.
func NewMapper(pool *database.OMOPPool) *Mapper {
	return newMapperFromDB(pool.DB())
}

func newMapperFromDB(db *sql.DB) *Mapper {
	return &Mapper{db: db, logger: slog.Default()}
}

// Map resolves queryText to a standard concept, optionally filtered by
// domainHint (OMOP domain_id, e.g. "Condition", "Drug", "Measurement").
// Returns (nil, nil) when nothing clears the similarity threshold; an
// error is returned only for genuine database/connectivity failures.
func (m *Mapper) Map(ctx context.Context, queryText, domainHint string) (*Concept, error) {
	if concept, err := m.exactConceptName(ctx, queryText, domainHint); err != nil {
		return nil, err
	} else if concept != nil {
		return concept, nil
	}

	if concept, err := m.exactSynonym(ctx, queryText, domainHint); err != nil {
		return nil, err
	} else if concept != nil {
		return concept, nil
	}

	if concept, err := m.trigramFuzzy(ctx, queryText, domainHint); err != nil {
		return nil, err
	} else if concept != nil {
		return concept, nil
	}

	return nil, nil
}

func (m *Mapper) exactConceptName(ctx context.Context, queryText, domainHint string) (*Concept, error) {
	query := `
		SELECT concept_id, concept_name, vocabulary_id
		FROM concept
		WHERE standard_concept = 'S'
		  AND lower(concept_name) = lower($1)
		  AND ($2 = '' OR domain_id = $2)
		LIMIT 1`

	return m.queryOne(ctx, query, queryText, domainHint, 1.0)
}

func (m *Mapper) exactSynonym(ctx context.Context, queryText, domainHint string) (*Concept, error) {
	query := `
		SELECT c.concept_id, c.concept_name, c.vocabulary_id
		FROM concept c
		JOIN concept_synonym s ON s.concept_id = c.concept_id
		WHERE c.standard_concept = 'S'
		  AND lower(s.concept_synonym_name) = lower($1)
		  AND ($2 = '' OR c.domain_id = $2)
		LIMIT 1`

	return m.queryOne(ctx, query, queryText, domainHint, 0.9)
}

func (m *Mapper) trigramFuzzy(ctx context.Context, queryText, domainHint string) (*Concept, error) {
	query := `
		SELECT concept_id, concept_name, vocabulary_id, similarity(concept_name, $1) AS sim
		FROM concept
		WHERE standard_concept = 'S'
		  AND ($2 = '' OR domain_id = $2)
		  AND similarity(concept_name, $1) >= $3
		ORDER BY sim DESC
		LIMIT 1`

	row := m.db.QueryRowContext(ctx, query, queryText, domainHint, minTrigramSimilarity)

	var concept Concept
	var similarity float64
	err := row.Scan(&concept.ConceptID, &concept.ConceptName, &concept.VocabularyID, &similarity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trigram fuzzy concept lookup: %w", err)
	}

	concept.Confidence = similarity
	return &concept, nil
}

func (m *Mapper) queryOne(ctx context.Context, query, queryText, domainHint string, confidence float64) (*Concept, error) {
	row := m.db.QueryRowContext(ctx, query, queryText, domainHint)

	var concept Concept
	err := row.Scan(&concept.ConceptID, &concept.ConceptName, &concept.VocabularyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("concept lookup: %w", err)
	}

	concept.Confidence = confidence
	return &concept, nil
}
