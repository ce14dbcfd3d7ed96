package api

// uploadProtocolRequest is the body for POST /protocols/upload.
type uploadProtocolRequest struct {
	Title string `json:"title" binding:"required"`
}

// confirmUploadRequest is the body for POST /protocols/confirm-upload.
type confirmUploadRequest struct {
	ProtocolID string `json:"protocol_id" binding:"required"`
}

// reviewActionRequest is the body for POST /reviews/criteria/:id/action.
// The route always targets a Criterion row; review.Request.TargetType is
// set to TargetCriteria by the handler rather than read from the body.
type reviewActionRequest struct {
	Action        string                   `json:"action" binding:"required"`
	Comment       string                   `json:"comment"`
	TextEdit      map[string]interface{}   `json:"text_edit"`
	FieldMappings []map[string]interface{} `json:"field_mappings"`
}

// reextractRequest is the optional body for POST /protocols/:id/reextract.
type reextractRequest struct {
	Reason string `json:"reason"`
}
