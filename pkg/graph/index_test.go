package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_ExcludesPairEdges(t *testing.T) {
	g := &Graph{
		Nodes: []Node{
			{ID: "ps", Type: TypeParallelStart},
			{ID: "pj", Type: TypeParallelJoin},
			{ID: "a", Type: TypeDialogue, Name: "hello"},
		},
		Edges: []Edge{
			{ID: "pair", Source: "ps", Target: "pj", SourceHandle: HandlePair, TargetHandle: HandlePair},
			{ID: "b0", Source: "ps", Target: "a", SourceHandle: "out_b0"},
			{ID: "b0in", Source: "a", Target: "pj", TargetHandle: "in_b0"},
		},
	}

	idx := NewIndex(g)

	out := idx.Outgoing("ps")
	require.Len(t, out, 1)
	assert.Equal(t, "b0", out[0].ID)

	in := idx.Incoming("pj")
	require.Len(t, in, 1)
	assert.Equal(t, "b0in", in[0].ID)

	assert.True(t, idx.HasName("hello"))
	assert.False(t, idx.HasName("nobody"))
}

func TestIndex_FirstNodeWins(t *testing.T) {
	g := &Graph{Nodes: []Node{
		{ID: "x", Type: TypeMove},
		{ID: "x", Type: TypeCamera},
	}}

	n, ok := NewIndex(g).Node("x")
	require.True(t, ok)
	assert.Equal(t, TypeMove, n.Type)
}

func TestNode_BranchIDs(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{"missing", nil, nil},
		{"strings", map[string]any{"branches": []string{"b0", "b1"}}, []string{"b0", "b1"}},
		{"decoded json", map[string]any{"branches": []any{"b0", 3.0, "b1"}}, []string{"b0", "b1"}},
		{"wrong type", map[string]any{"branches": "b0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Node{Params: tt.params}
			assert.Equal(t, tt.want, n.BranchIDs())
		})
	}
}

func TestHandles(t *testing.T) {
	assert.Equal(t, "out_b0", OutHandle("b0"))
	assert.Equal(t, "in_b0", InHandle("b0"))

	id, ok := BranchFromOutHandle("out_left")
	assert.True(t, ok)
	assert.Equal(t, "left", id)

	_, ok = BranchFromOutHandle("out_")
	assert.False(t, ok)

	_, ok = BranchFromInHandle("out_left")
	assert.False(t, ok)
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue("  "))
	assert.True(t, IsEmptyValue([]any{}))
	assert.True(t, IsEmptyValue(map[string]any{}))
	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue(0.0))
	assert.False(t, IsEmptyValue(false))
}
