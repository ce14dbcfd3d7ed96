// Package integrity exposes one read-only audit call that surfaces data
// consistency problems across the review pipeline's tables without
// mutating anything — orphaned rows, grounding gaps, and audit trail
// holes a reviewer or an operator would otherwise only notice by accident.
package integrity

import (
	"context"
	"database/sql"
	"fmt"
)

// Severity classifies how urgently a Finding needs attention.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category names the four checks Check runs, used as Finding.Category.
const (
	CategoryOrphanedEntities    = "orphaned_entities"
	CategoryIncompleteAuditLogs = "incomplete_audit_logs"
	CategoryUngroundedEntities  = "ungrounded_entities"
	CategoryReviewsWithoutAudit = "reviews_without_audit_trail"
)

// Finding is one consistency problem surfaced by a single category.
type Finding struct {
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	TargetType string   `json:"target_type"`
	TargetID   string   `json:"target_id"`
	Detail     string   `json:"detail"`
}

// Report is the full result of one Check call.
type Report struct {
	ProtocolID string    `json:"protocol_id,omitempty"`
	Findings   []Finding `json:"findings"`
}

// Checker runs the four read-only integrity categories against the raw
// SQL connection, grounded on the database package's existing
// health-check style (plain functions over *sql.DB, no ent transaction
// needed since nothing here writes).
type Checker struct {
	db *sql.DB
}

// NewChecker wraps the database connection the checker queries.
func NewChecker(db *sql.DB) *Checker {
	return &Checker{db: db}
}

// Check runs all four categories and returns their combined findings. An
// empty protocolID short-circuits to an empty report without running any
// query, per the "empty scope yields empty result" contract — there being
// no protocol to scope the audit-trail and grounding checks to.
//
// Orphaned-entity detection is the one category that can never be scoped
// to a protocol_id: an orphaned Entity's criterion_id points at nothing,
// so there is no path back to the protocol it once belonged to. It always
// runs globally regardless of the requested protocolID (in practice it
// should stay empty forever given entities.criterion_id carries an
// ON DELETE CASCADE foreign key; the check exists as a defensive net
// against anything that bypasses that constraint, e.g. a direct SQL
// DELETE run outside the application).
func (c *Checker) Check(ctx context.Context, protocolID string) (*Report, error) {
	report := &Report{ProtocolID: protocolID}
	if protocolID == "" {
		return report, nil
	}

	orphaned, err := c.orphanedEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("orphaned entities check: %w", err)
	}
	report.Findings = append(report.Findings, orphaned...)

	incomplete, err := c.incompleteAuditLogs(ctx, protocolID)
	if err != nil {
		return nil, fmt.Errorf("incomplete audit logs check: %w", err)
	}
	report.Findings = append(report.Findings, incomplete...)

	ungrounded, err := c.ungroundedEntities(ctx, protocolID)
	if err != nil {
		return nil, fmt.Errorf("ungrounded entities check: %w", err)
	}
	report.Findings = append(report.Findings, ungrounded...)

	reviewsWithoutAudit, err := c.reviewsWithoutAuditTrail(ctx, protocolID)
	if err != nil {
		return nil, fmt.Errorf("reviews without audit trail check: %w", err)
	}
	report.Findings = append(report.Findings, reviewsWithoutAudit...)

	return report, nil
}

const orphanedEntitiesQuery = `
SELECT e.entity_id, e.criterion_id
FROM entities e
LEFT JOIN criteria c ON c.criterion_id = e.criterion_id
WHERE c.criterion_id IS NULL
`

func (c *Checker) orphanedEntities(ctx context.Context) ([]Finding, error) {
	rows, err := c.db.QueryContext(ctx, orphanedEntitiesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var entityID, criterionID string
		if err := rows.Scan(&entityID, &criterionID); err != nil {
			return nil, err
		}
		findings = append(findings, Finding{
			Category:   CategoryOrphanedEntities,
			Severity:   SeverityError,
			TargetType: "entity",
			TargetID:   entityID,
			Detail:     fmt.Sprintf("references missing criterion %s", criterionID),
		})
	}
	return findings, rows.Err()
}

// protocolTargetsCTE enumerates every (target_type, target_id) pair that
// belongs to the given protocol — the batch itself, its criteria, and
// their entities — so the audit-trail join categories below only consider
// rows the protocol actually owns.
const protocolTargetsCTE = `
WITH protocol_targets AS (
	SELECT 'batch'::text AS target_type, b.batch_id AS target_id
	FROM criteria_batches b WHERE b.protocol_id = $1
	UNION ALL
	SELECT 'criteria', c.criterion_id
	FROM criteria c JOIN criteria_batches b ON b.batch_id = c.batch_id
	WHERE b.protocol_id = $1
	UNION ALL
	SELECT 'entity', e.entity_id
	FROM entities e
	JOIN criteria c ON c.criterion_id = e.criterion_id
	JOIN criteria_batches b ON b.batch_id = c.batch_id
	WHERE b.protocol_id = $1
)
`

const incompleteAuditLogsQuery = protocolTargetsCTE + `
SELECT a.audit_log_id, a.target_type, a.target_id
FROM audit_logs a
JOIN protocol_targets pt ON pt.target_type = a.target_type AND pt.target_id = a.target_id
WHERE a.event_type = 'review_action'
  AND NOT EXISTS (
	SELECT 1 FROM reviews r
	WHERE r.target_type = a.target_type AND r.target_id = a.target_id
	  AND r.created_at BETWEEN a.created_at - interval '1 second' AND a.created_at + interval '1 second'
  )
`

// incompleteAuditLogs finds review_action audit log entries with no
// corresponding Review row within one second, the same join as
// reviewsWithoutAuditTrail run in the opposite direction: here the audit
// log is the row that exists but can't be explained by any review.
func (c *Checker) incompleteAuditLogs(ctx context.Context, protocolID string) ([]Finding, error) {
	rows, err := c.db.QueryContext(ctx, incompleteAuditLogsQuery, protocolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var auditLogID, targetType, targetID string
		if err := rows.Scan(&auditLogID, &targetType, &targetID); err != nil {
			return nil, err
		}
		findings = append(findings, Finding{
			Category:   CategoryIncompleteAuditLogs,
			Severity:   SeverityWarning,
			TargetType: targetType,
			TargetID:   targetID,
			Detail:     fmt.Sprintf("audit log %s has no matching review within 1s", auditLogID),
		})
	}
	return findings, rows.Err()
}

const reviewsWithoutAuditTrailQuery = protocolTargetsCTE + `
SELECT r.review_id, r.target_type, r.target_id
FROM reviews r
JOIN protocol_targets pt ON pt.target_type = r.target_type AND pt.target_id = r.target_id
WHERE NOT EXISTS (
	SELECT 1 FROM audit_logs a
	WHERE a.target_type = r.target_type AND a.target_id = r.target_id
	  AND a.created_at BETWEEN r.created_at - interval '1 second' AND r.created_at + interval '1 second'
)
`

func (c *Checker) reviewsWithoutAuditTrail(ctx context.Context, protocolID string) ([]Finding, error) {
	rows, err := c.db.QueryContext(ctx, reviewsWithoutAuditTrailQuery, protocolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var reviewID, targetType, targetID string
		if err := rows.Scan(&reviewID, &targetType, &targetID); err != nil {
			return nil, err
		}
		findings = append(findings, Finding{
			Category:   CategoryReviewsWithoutAudit,
			Severity:   SeverityWarning,
			TargetType: targetType,
			TargetID:   targetID,
			Detail:     fmt.Sprintf("review %s has no matching audit log within 1s", reviewID),
		})
	}
	return findings, rows.Err()
}

const ungroundedEntitiesQuery = `
SELECT e.entity_id
FROM entities e
JOIN criteria c ON c.criterion_id = e.criterion_id
JOIN criteria_batches b ON b.batch_id = c.batch_id
WHERE b.protocol_id = $1
  AND e.entity_type <> 'consent'
  AND e.grounding_method <> 'expert_review'
  AND e.umls_cui IS NULL
  AND e.snomed_code IS NULL
  AND e.icd10_code IS NULL
  AND e.rxnorm_code IS NULL
  AND e.loinc_code IS NULL
  AND e.hpo_code IS NULL
`

func (c *Checker) ungroundedEntities(ctx context.Context, protocolID string) ([]Finding, error) {
	rows, err := c.db.QueryContext(ctx, ungroundedEntitiesQuery, protocolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var entityID string
		if err := rows.Scan(&entityID); err != nil {
			return nil, err
		}
		findings = append(findings, Finding{
			Category:   CategoryUngroundedEntities,
			Severity:   SeverityWarning,
			TargetType: "entity",
			TargetID:   entityID,
			Detail:     "no vocabulary code set and not expert-reviewed",
		})
	}
	return findings, rows.Err()
}
