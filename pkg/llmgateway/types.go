package llmgateway

// Target names one of the two LLM backends the gateway can dispatch a call
// to. Each target gets its own circuit breaker and LLMProviderConfig entry.
type Target string

const (
	TargetGemini   Target = "gemini"
	TargetMedGemma Target = "medgemma"
)

// providerName maps a Target to the LLMProviderRegistry entry backing it.
var providerName = map[Target]string{
	TargetGemini:   "gemini-default",
	TargetMedGemma: "medgemma-vertex",
}

// CallRequest describes one model invocation: which prompt template to
// render, what variables to render it with, the schema the response must
// conform to, and which target to invoke.
type CallRequest struct {
	TemplateName   string
	Variables      map[string]any
	ResponseSchema *Schema
	Temperature    float32
	Model          string
	Target         Target
}

// Schema is a minimal JSON-Schema-compatible description used both to
// request structured output from the model and to validate/unmarshal its
// response. It mirrors the subset of JSON Schema the genai SDK's
// GenerateContentConfig.ResponseSchema accepts.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Enum       []string           `json:"enum,omitempty"`
}

// CallResult is the outcome of a successful Call: the raw JSON text the
// model returned alongside the parsed bytes, ready for the caller to
// json.Unmarshal into its own typed struct.
type CallResult struct {
	RawText string
	JSON    []byte
	Target  Target
	Model   string
}
