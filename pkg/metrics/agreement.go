package metrics

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersionCount is one row of a batch's review-action breakdown by
// the schema_version recorded in AuditLog.details (text_v1, structured_v1,
// v1.5-multi).
type SchemaVersionCount struct {
	SchemaVersion string `json:"schema_version"`
	Count         int    `json:"count"`
}

// BatchAgreementReport summarizes how a batch's criteria reviews landed:
// how many were approved as-is versus rejected or modified, and which
// review-edit schema versions produced those decisions.
type BatchAgreementReport struct {
	BatchID        string               `json:"batch_id"`
	TotalCriteria  int                  `json:"total_criteria"`
	Approved       int                  `json:"approved"`
	Rejected       int                  `json:"rejected"`
	Modified       int                  `json:"modified"`
	Reviewed       int                  `json:"reviewed"`
	AgreementRate  float64              `json:"agreement_rate"`
	SchemaVersions []SchemaVersionCount `json:"schema_versions"`
}

// AgreementCalculator computes BatchAgreementReport on demand — unlike
// Recorder's live counters, these numbers reflect one batch's current
// review state and are recomputed fresh on every call rather than
// accumulated.
type AgreementCalculator struct {
	db *sql.DB
}

// NewAgreementCalculator wraps the connection agreement queries run
// against, mirroring pkg/integrity.Checker's read-only-query shape.
func NewAgreementCalculator(db *sql.DB) *AgreementCalculator {
	return &AgreementCalculator{db: db}
}

const batchReviewStatusCountsQuery = `
SELECT
	count(*) FILTER (WHERE review_status = 'approved') AS approved,
	count(*) FILTER (WHERE review_status = 'rejected') AS rejected,
	count(*) FILTER (WHERE review_status = 'modified') AS modified,
	count(*) AS total
FROM criteria
WHERE batch_id = $1
`

const batchSchemaVersionBreakdownQuery = `
SELECT coalesce(a.details->>'schema_version', 'unknown') AS schema_version, count(*)
FROM audit_logs a
JOIN criteria c ON c.criterion_id = a.target_id AND a.target_type = 'criteria'
WHERE c.batch_id = $1 AND a.event_type = 'review_action'
GROUP BY coalesce(a.details->>'schema_version', 'unknown')
ORDER BY schema_version
`

// BatchAgreement computes one batch's approval/rejection/modification
// counts and its review-action schema_version breakdown.
func (a *AgreementCalculator) BatchAgreement(ctx context.Context, batchID string) (*BatchAgreementReport, error) {
	report := &BatchAgreementReport{BatchID: batchID}

	row := a.db.QueryRowContext(ctx, batchReviewStatusCountsQuery, batchID)
	if err := row.Scan(&report.Approved, &report.Rejected, &report.Modified, &report.TotalCriteria); err != nil {
		return nil, fmt.Errorf("query batch review status counts: %w", err)
	}
	report.Reviewed = report.Approved + report.Rejected + report.Modified
	report.AgreementRate = computeAgreementRate(report.Approved, report.Reviewed)

	rows, err := a.db.QueryContext(ctx, batchSchemaVersionBreakdownQuery, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch schema version breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sv SchemaVersionCount
		if err := rows.Scan(&sv.SchemaVersion, &sv.Count); err != nil {
			return nil, fmt.Errorf("scan schema version breakdown row: %w", err)
		}
		report.SchemaVersions = append(report.SchemaVersions, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema version breakdown: %w", err)
	}

	return report, nil
}

// computeAgreementRate is the fraction of reviewed criteria a reviewer
// approved without change. A batch with zero reviewed criteria reports 0
// rather than dividing by zero — "no agreement data yet" reads more
// honestly as 0 than as NaN on a dashboard.
func computeAgreementRate(approved, reviewed int) float64 {
	if reviewed == 0 {
		return 0
	}
	return float64(approved) / float64(reviewed)
}
