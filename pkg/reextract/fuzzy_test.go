package reextract

import "testing"

func TestTokenSetRatio_IdenticalText(t *testing.T) {
	score := tokenSetRatio("Age >= 18 years", "Age >= 18 years")
	if score < 99.9 {
		t.Fatalf("expected near-100 score for identical text, got %v", score)
	}
}

func TestTokenSetRatio_WhitespaceOnlyDifference(t *testing.T) {
	score := tokenSetRatio("History of type 2 diabetes", "History of  type 2  diabetes")
	if score < inheritanceThreshold {
		t.Fatalf("expected whitespace-only difference to clear inheritance threshold, got %v", score)
	}
}

func TestTokenSetRatio_ReorderedTokensScoreHigh(t *testing.T) {
	score := tokenSetRatio("diabetes type 2 history of", "history of type 2 diabetes")
	if score < compareUnchangedThreshold {
		t.Fatalf("expected token reordering alone to score as unchanged, got %v", score)
	}
}

func TestTokenSetRatio_SubstantiallyDifferentTextScoresLow(t *testing.T) {
	score := tokenSetRatio("Age >= 18 years", "No prior cardiac surgery within 6 months")
	if score >= compareChangedThreshold {
		t.Fatalf("expected unrelated statements to score below the changed threshold, got %v", score)
	}
}

func TestTokenSetRatio_ExtraBoilerplateIsForgiving(t *testing.T) {
	a := "History of type 2 diabetes"
	b := "History of type 2 diabetes confirmed by investigator"
	score := tokenSetRatio(a, b)
	if score < compareChangedThreshold {
		t.Fatalf("expected shared-token overlap to score at least changed, got %v", score)
	}
}

func TestBestMatches_RespectsCriterionType(t *testing.T) {
	old := []matchable{{ID: "o1", Text: "Age >= 18 years", Type: "inclusion"}}
	newer := []matchable{{ID: "n1", Text: "Age >= 18 years", Type: "exclusion"}}

	matched, unmatchedOld, unmatchedNew := bestMatches(old, newer)
	if len(matched) != 0 {
		t.Fatalf("expected no cross-type matches, got %v", matched)
	}
	if len(unmatchedOld) != 1 || len(unmatchedNew) != 1 {
		t.Fatalf("expected both sides to be reported unmatched, got old=%v new=%v", unmatchedOld, unmatchedNew)
	}
}

func TestBestMatches_GreedyAssignmentIsOneToOne(t *testing.T) {
	old := []matchable{
		{ID: "o1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "o2", Text: "History of type 2 diabetes", Type: "inclusion"},
	}
	newer := []matchable{
		{ID: "n1", Text: "Age >= 18 years", Type: "inclusion"},
		{ID: "n2", Text: "History of type 2 diabetes", Type: "inclusion"},
	}

	matched, unmatchedOld, unmatchedNew := bestMatches(old, newer)
	if len(matched) != 2 {
		t.Fatalf("expected 2 matched pairs, got %d", len(matched))
	}
	if len(unmatchedOld) != 0 || len(unmatchedNew) != 0 {
		t.Fatalf("expected no leftovers, got old=%v new=%v", unmatchedOld, unmatchedNew)
	}

	seenOld := map[string]bool{}
	seenNew := map[string]bool{}
	for _, m := range matched {
		if seenOld[m.OldID] || seenNew[m.NewID] {
			t.Fatalf("expected each id used at most once, got duplicate in %v", m)
		}
		seenOld[m.OldID] = true
		seenNew[m.NewID] = true
	}
}
