package reextract

// CompareStatus classifies one row of a batch-to-batch diff.
type CompareStatus string

const (
	CompareUnchanged CompareStatus = "unchanged"
	CompareChanged   CompareStatus = "changed"
	CompareRemoved   CompareStatus = "removed"
	CompareAdded     CompareStatus = "added"
)

// CompareRow is one entry of a batch comparison: a matched pair, or a
// one-sided row for a criterion with no acceptable counterpart on the
// other side.
type CompareRow struct {
	OldCriterionID string        `json:"old_criterion_id,omitempty"`
	NewCriterionID string        `json:"new_criterion_id,omitempty"`
	Status         CompareStatus `json:"status"`
	Score          float64       `json:"score"`
}

// classifyCompare turns bestMatches' pairing into the diff rows the
// review UI shows for a re-extraction: unchanged/changed pairs score
// 70 and above, while a pair scoring below the changed threshold is not
// treated as a real match at all and is instead split into a removed row
// for the old side and an added row for the new side (this is what makes
// a 3-criteria-vs-3-criteria re-extraction report 4 diff rows when one
// pair's text diverged too far to count as the same statement).
func classifyCompare(oldItems, newItems []matchable) []CompareRow {
	matched, unmatchedOld, unmatchedNew := bestMatches(oldItems, newItems)

	rows := make([]CompareRow, 0, len(matched)+len(unmatchedOld)+len(unmatchedNew))
	for _, m := range matched {
		switch {
		case m.Score >= compareUnchangedThreshold:
			rows = append(rows, CompareRow{OldCriterionID: m.OldID, NewCriterionID: m.NewID, Status: CompareUnchanged, Score: m.Score})
		case m.Score >= compareChangedThreshold:
			rows = append(rows, CompareRow{OldCriterionID: m.OldID, NewCriterionID: m.NewID, Status: CompareChanged, Score: m.Score})
		default:
			rows = append(rows, CompareRow{OldCriterionID: m.OldID, Status: CompareRemoved, Score: m.Score})
			rows = append(rows, CompareRow{NewCriterionID: m.NewID, Status: CompareAdded, Score: m.Score})
		}
	}
	for _, o := range unmatchedOld {
		rows = append(rows, CompareRow{OldCriterionID: o.ID, Status: CompareRemoved})
	}
	for _, n := range unmatchedNew {
		rows = append(rows, CompareRow{NewCriterionID: n.ID, Status: CompareAdded})
	}
	return rows
}
