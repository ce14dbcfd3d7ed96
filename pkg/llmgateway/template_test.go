package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGoTemplate_RewritesJinjaPlaceholders(t *testing.T) {
	got := toGoTemplate("Extract entities from: {{document_text}}, protocol {{protocol_id}}.")
	assert.Equal(t, "Extract entities from: {{.Document_text}}, protocol {{.Protocol_id}}.", got)
}

func TestToGoTemplate_LeavesGoTemplateActionsUntouched(t *testing.T) {
	got := toGoTemplate("{{ if .X }}yes{{ end }}")
	assert.Equal(t, "{{ if .X }}yes{{ end }}", got)
}

func TestRenderTemplate_SubstitutesVariables(t *testing.T) {
	out, err := renderTemplate("extract", "Entity type: {{entity_type}}, term: {{term}}", map[string]any{
		"entity_type": "condition",
		"term":        "diabetes",
	})
	require.NoError(t, err)
	assert.Equal(t, "Entity type: condition, term: diabetes", out)
}

func TestRenderTemplate_MissingVariableErrors(t *testing.T) {
	_, err := renderTemplate("extract", "Entity type: {{entity_type}}", map[string]any{})
	require.Error(t, err)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Document_text", capitalize("document_text"))
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Already", capitalize("Already"))
}
