// Package reextract archives a protocol's current criteria batch, runs the
// pipeline again, and carries reviewer decisions over onto the new batch's
// criteria wherever a fuzzy text match says the new criterion is really the
// same eligibility statement the old one was.
package reextract

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// inheritanceThreshold is the score at or above which a new criterion
// inherits review_status, the audit trail, and field_mappings from its
// matched archived criterion.
const inheritanceThreshold = 90.0

// compareUnchangedThreshold and compareChangedThreshold classify a matched
// pair for the batch-comparison diff. These are deliberately the same
// unchanged cutoff as inheritance (symmetry invariant: a pair that
// inherits also compares as unchanged) but add a middle "changed" band
// inheritance itself has no use for.
const (
	compareUnchangedThreshold = 90.0
	compareChangedThreshold   = 70.0
)

// matchable is the minimal shape fuzzy matching needs from a criterion,
// independent of ent so this file stays unit-testable without a database.
type matchable struct {
	ID   string
	Text string
	Type string
}

// pairScore is one candidate (old, new) pairing with its fuzzy score.
type pairScore struct {
	oldIdx int
	newIdx int
	score  float64
}

// matchResult is one accepted pairing after greedy assignment, or a
// one-sided row when an item had no same-type counterpart at all.
type matchResult struct {
	OldID string
	NewID string
	Score float64
}

// bestMatches pairs each new item with at most one old item of the same
// criterion_type, preferring the highest-scoring pairs first and never
// reusing an item on either side once it's matched (greedy, not globally
// optimal, but the pack examples offer no bipartite-matching library and a
// batch's criterion count is small enough that greedy-by-score is a faithful
// stand-in for rapidfuzz's own one-sided matching). Old or new items left
// over after every viable pair is exhausted are returned unmatched.
func bestMatches(oldItems, newItems []matchable) (matched []matchResult, unmatchedOld, unmatchedNew []matchable) {
	var candidates []pairScore
	for oi, o := range oldItems {
		for ni, n := range newItems {
			if o.Type != n.Type {
				continue
			}
			candidates = append(candidates, pairScore{oi, ni, tokenSetRatio(o.Text, n.Text)})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	usedOld := make(map[int]bool, len(oldItems))
	usedNew := make(map[int]bool, len(newItems))

	for _, c := range candidates {
		if usedOld[c.oldIdx] || usedNew[c.newIdx] {
			continue
		}
		usedOld[c.oldIdx] = true
		usedNew[c.newIdx] = true
		matched = append(matched, matchResult{
			OldID: oldItems[c.oldIdx].ID,
			NewID: newItems[c.newIdx].ID,
			Score: c.score,
		})
	}

	for i, o := range oldItems {
		if !usedOld[i] {
			unmatchedOld = append(unmatchedOld, o)
		}
	}
	for i, n := range newItems {
		if !usedNew[i] {
			unmatchedNew = append(unmatchedNew, n)
		}
	}
	return matched, unmatchedOld, unmatchedNew
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func sortedUniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func tokenSetDiff(tokens, remove []string) []string {
	skip := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		skip[t] = struct{}{}
	}
	var out []string
	for _, t := range tokens {
		if _, ok := skip[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func tokenIntersection(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	var out []string
	for _, t := range a {
		if _, ok := inB[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// simpleRatio scores two strings on a 0-100 scale via agext/levenshtein's
// normalized similarity, mirroring rapidfuzz's plain ratio() — the
// building block token_set_ratio below runs three times per comparison.
func simpleRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 100
	}
	return levenshtein.Match(a, b, nil) * 100
}

// tokenSetRatio reimplements rapidfuzz.token_set_ratio: split both strings
// into token sets, pull out the tokens they share, then score the shared
// tokens against each side's full (shared + leftover) token string and
// against each other, taking the best of the three. This makes the score
// insensitive to word order and to one side carrying extra boilerplate
// ("confirmed by investigator", trailing qualifiers) that the other
// dropped, which a plain Levenshtein ratio would punish unfairly.
func tokenSetRatio(a, b string) float64 {
	tokensA := sortedUniqueTokens(tokenize(a))
	tokensB := sortedUniqueTokens(tokenize(b))

	shared := tokenIntersection(tokensA, tokensB)
	onlyA := tokenSetDiff(tokensA, shared)
	onlyB := tokenSetDiff(tokensB, shared)

	sharedStr := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(strings.Join([]string{sharedStr, strings.Join(onlyA, " ")}, " "))
	combinedB := strings.TrimSpace(strings.Join([]string{sharedStr, strings.Join(onlyB, " ")}, " "))

	best := simpleRatio(sharedStr, combinedA)
	if r := simpleRatio(sharedStr, combinedB); r > best {
		best = r
	}
	if r := simpleRatio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}
