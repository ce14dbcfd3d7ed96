package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elixirtrials/elixirtrials/ent/protocol"
)

func TestOrder_ListsAllSevenNodesOnce(t *testing.T) {
	assert.Len(t, Order, 7)
	seen := make(map[NodeName]bool)
	for _, n := range Order {
		assert.False(t, seen[n], "node %q listed twice", n)
		seen[n] = true
	}
}

func TestStatusForNode_CoversEveryNode(t *testing.T) {
	for _, n := range Order {
		_, ok := statusForNode[n]
		assert.True(t, ok, "missing statusForNode entry for %q", n)
	}
}

func TestStatusForNode_GroupsNodesIntoExpectedPhases(t *testing.T) {
	assert.Equal(t, protocol.StatusExtracting, statusForNode[NodeIngest])
	assert.Equal(t, protocol.StatusExtracting, statusForNode[NodeExtract])
	assert.Equal(t, protocol.StatusGrounding, statusForNode[NodeParse])
	assert.Equal(t, protocol.StatusGrounding, statusForNode[NodeGround])
	assert.Equal(t, protocol.StatusStructuring, statusForNode[NodePersist])
	assert.Equal(t, protocol.StatusStructuring, statusForNode[NodeStructure])
	assert.Equal(t, protocol.StatusStructuring, statusForNode[NodeOrdinalResolve])
}

func TestFailedStatusForNode_HasNoEntryForGround(t *testing.T) {
	_, ok := failedStatusForNode[NodeGround]
	assert.False(t, ok, "ground should have no failed-status mapping; its node errors fall back to pipeline_failed")
}

func TestFailedStatusForNode_CoversEveryNodeExceptGround(t *testing.T) {
	for _, n := range Order {
		if n == NodeGround {
			continue
		}
		_, ok := failedStatusForNode[n]
		assert.True(t, ok, "missing failedStatusForNode entry for %q", n)
	}
}
