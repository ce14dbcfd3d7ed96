package terminology

import "github.com/elixirtrials/elixirtrials/pkg/config"

// Candidate is the common shape every vocabulary adapter normalizes its
// heterogeneous upstream response into.
type Candidate struct {
	System         config.VocabularySource
	Code           string
	DisplayName    string
	ConfidenceHint float64
}
