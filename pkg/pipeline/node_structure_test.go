package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroundedEntityLookup_IndexesByEntityText(t *testing.T) {
	entities := []groundedEntity{
		{EntityText: "type 2 diabetes mellitus", ConceptID: 201826},
		{EntityText: "hemoglobin a1c", ConceptID: 3004410},
	}

	lookup := groundedEntityLookup(entities)

	assert.Len(t, lookup, 2)
	assert.Equal(t, int64(201826), lookup["type 2 diabetes mellitus"].ConceptID)
	assert.Equal(t, int64(3004410), lookup["hemoglobin a1c"].ConceptID)
	_, ok := lookup["not present"]
	assert.False(t, ok)
}

func TestExprNodeSchema_ChildrenReferencesItself(t *testing.T) {
	children, ok := exprNodeSchema.Properties["children"]
	if assert.True(t, ok) {
		assert.Same(t, exprNodeSchema, children.Items)
	}
}
