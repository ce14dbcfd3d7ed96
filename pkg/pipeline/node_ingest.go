package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/elixirtrials/elixirtrials/pkg/quality"
)

// ingestOutput is the State shape RunIngest returns; extract reads
// "pages" back out of the checkpoint to build its extraction prompt.
type ingestOutput struct {
	Pages []quality.PageText `json:"pages"`
}

// RunIngest fetches a protocol's PDF bytes through the storage adapter,
// extracts page-keyed text, scores extraction quality, and records both
// on the Protocol row. It never treats a low-quality or text-empty PDF as
// a hard failure (a scanned protocol with no text layer still produces a
// near-zero quality score and an empty page list) — only a storage fetch
// failure or a PDF the library cannot open at all is a NodeFailureError.
func RunIngest(ctx context.Context, deps *Deps, protocolID string, _ State) (State, error) {
	row, err := entClient(deps).Protocol.Get(ctx, protocolID)
	if err != nil {
		return nil, fmt.Errorf("load protocol: %w", err)
	}

	raw, err := deps.Storage.FetchPDF(ctx, row.FileURI)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf: %w", err)
	}

	pages, err := extractPages(raw)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	score := quality.ScorePages(pages)

	metadata := map[string]interface{}{}
	for k, v := range row.Metadata {
		metadata[k] = v
	}
	metadata["quality_score"] = score.Value
	metadata["text_extractability"] = score.TextExtractability
	metadata["page_count_sufficiency"] = score.PageCountSufficient
	metadata["encoding_bonus"] = score.EncodingBonus
	metadata["page_count"] = score.PageCount

	if _, err := row.Update().SetMetadata(metadata).Save(ctx); err != nil {
		return nil, fmt.Errorf("persist ingest metadata: %w", err)
	}

	return State{"pages": pages}, nil
}

// extractPages opens raw PDF bytes and returns one PageText per page.
// ledongthuc/pdf exposes per-page text extraction without writing to disk,
// which the storage adapter's in-memory FetchPDF result needs (no local
// path to hand a CLI-style extractor).
func extractPages(raw []byte) ([]quality.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf reader: %w", err)
	}

	total := reader.NumPage()
	pages := make([]quality.PageText, 0, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, quality.PageText{PageNumber: i, Text: ""})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page (broken content stream, unsupported
			// font) degrades that page to empty text rather than failing
			// ingest for the whole protocol.
			pages = append(pages, quality.PageText{PageNumber: i, Text: ""})
			continue
		}
		pages = append(pages, quality.PageText{PageNumber: i, Text: text})
	}

	return pages, nil
}
