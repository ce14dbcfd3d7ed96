package api

// uploadProtocolResponse is the body for POST /protocols/upload. upload_url
// is a storage-adapter-specific string the client treats as opaque: a
// local:// reference in local-storage mode, a placeholder HTTPS string in
// signed-URL mode. storage.Adapter has no upload-URL-generation method of
// its own (it only fetches), so this handler synthesizes the string itself.
type uploadProtocolResponse struct {
	ProtocolID string `json:"protocol_id"`
	UploadURL  string `json:"upload_url"`
}

// criterionRerunResponse is the body for POST /reviews/criteria/:id/rerun.
// It is a proposal only — nothing in the handler writes it to the
// database; a reviewer who likes it still has to submit it through the
// ordinary action endpoint as a modify.
type criterionRerunResponse struct {
	CriterionID   string                   `json:"criterion_id"`
	Assertion     string                   `json:"assertion"`
	Category      string                   `json:"category"`
	FieldMappings []map[string]interface{} `json:"field_mappings"`
	Confidence    float64                  `json:"confidence"`
	Reasoning     string                   `json:"reasoning"`
}

// acceptedResponse is returned by endpoints that enqueue asynchronous work
// (upload confirmation, re-extraction) rather than completing it inline.
type acceptedResponse struct {
	ProtocolID string `json:"protocol_id"`
	Status     string `json:"status"`
}
