package reextract

import "testing"

// TestClassifyCompare_ScenarioS4 mirrors the documented re-extraction walk:
// batch A has 3 criteria, batch B has 3 criteria; one pair is identical
// text, one differs only by whitespace, and one diverges substantially.
// Expected: 2 unchanged + 1 removed + 1 added (the diverging pair splits
// into a removed/added pair rather than counting as one "changed" row).
func TestClassifyCompare_ScenarioS4(t *testing.T) {
	old := []matchable{
		{ID: "a1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "a2", Text: "History of type 2 diabetes", Type: "inclusion"},
		{ID: "a3", Text: "No prior cardiac surgery within 6 months", Type: "exclusion"},
	}
	newer := []matchable{
		{ID: "b1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "b2", Text: "History of  type 2  diabetes", Type: "inclusion"},
		{ID: "b3", Text: "Willing and able to provide written informed consent", Type: "exclusion"},
	}

	rows := classifyCompare(old, newer)

	counts := map[CompareStatus]int{}
	for _, r := range rows {
		counts[r.Status]++
	}

	if counts[CompareUnchanged] != 2 {
		t.Fatalf("expected 2 unchanged rows, got %d (%v)", counts[CompareUnchanged], rows)
	}
	if counts[CompareRemoved] != 1 {
		t.Fatalf("expected 1 removed row, got %d (%v)", counts[CompareRemoved], rows)
	}
	if counts[CompareAdded] != 1 {
		t.Fatalf("expected 1 added row, got %d (%v)", counts[CompareAdded], rows)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 total diff rows, got %d (%v)", len(rows), rows)
	}
}

func TestClassifyCompare_UnmatchedNewIsAdded(t *testing.T) {
	old := []matchable{{ID: "a1", Text: "Age >= 18 years", Type: "inclusion"}}
	newer := []matchable{
		{ID: "b1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "b2", Text: "Body mass index under 35", Type: "inclusion"},
	}

	rows := classifyCompare(old, newer)

	var added int
	for _, r := range rows {
		if r.Status == CompareAdded {
			added++
			if r.NewCriterionID != "b2" {
				t.Fatalf("expected added row to reference b2, got %v", r)
			}
		}
	}
	if added != 1 {
		t.Fatalf("expected exactly 1 added row, got %d", added)
	}
}

func TestClassifyCompare_UnmatchedOldIsRemoved(t *testing.T) {
	old := []matchable{
		{ID: "a1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "a2", Text: "Body mass index under 35", Type: "inclusion"},
	}
	newer := []matchable{{ID: "b1", Text: "Age >= 18 years", Type: "inclusion"}}

	rows := classifyCompare(old, newer)

	var removed int
	for _, r := range rows {
		if r.Status == CompareRemoved {
			removed++
			if r.OldCriterionID != "a2" {
				t.Fatalf("expected removed row to reference a2, got %v", r)
			}
		}
	}
	if removed != 1 {
		t.Fatalf("expected exactly 1 removed row, got %d", removed)
	}
}
