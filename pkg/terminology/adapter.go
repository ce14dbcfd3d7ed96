package terminology

import "context"

// Adapter is implemented by each vocabulary-specific backend. Search must
// not return a partial result alongside an error; callers treat a non-nil
// error as "no candidates available this call".
type Adapter interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}
