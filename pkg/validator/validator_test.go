package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

func secs(v float64) *float64 { return &v }

func node(id, typ string, params map[string]any) graph.Node {
	return graph.Node{ID: id, Type: typ, Params: params}
}

func edge(id, source, target string) graph.Edge {
	return graph.Edge{ID: id, Source: source, Target: target}
}

// validGraph is a warning-free graph exercising a fork/join pair.
func validGraph() *graph.Graph {
	return &graph.Graph{
		Nodes: []graph.Node{
			node("s", graph.TypeStart, nil),
			node("p", graph.TypeParallelStart, map[string]any{"branches": []any{"a", "b"}, "joinId": "j"}),
			node("a1", graph.TypeDialogue, map[string]any{"speaker": "Ann", "text": "left"}),
			node("b1", graph.TypePlaySound, map[string]any{"sound": "door.wav"}),
			node("j", graph.TypeParallelJoin, map[string]any{"branches": []any{"a", "b"}, "pairId": "p"}),
			{ID: "after", Type: graph.TypeMove, Name: "walk_out", Params: map[string]any{"target": "door"}},
			node("e", graph.TypeEnd, nil),
		},
		Edges: []graph.Edge{
			edge("e0", "s", "p"),
			{ID: "pair", Source: "p", Target: "j", SourceHandle: graph.HandlePair, TargetHandle: graph.HandlePair},
			{ID: "ea", Source: "p", Target: "a1", SourceHandle: "out_a"},
			{ID: "eb", Source: "p", Target: "b1", SourceHandle: "out_b"},
			{ID: "ja", Source: "a1", Target: "j", TargetHandle: "in_a"},
			{ID: "jb", Source: "b1", Target: "j", TargetHandle: "in_b"},
			{ID: "e1", Source: "j", Target: "after", WaitSeconds: secs(1)},
			edge("e2", "after", "e"),
		},
	}
}

func findNode(g *graph.Graph, id string) *graph.Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

func findEdge(g *graph.Graph, id string) *graph.Edge {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i]
		}
	}
	return nil
}

func has(r *Report, sev core.Severity, rule, nodeID, edgeID string) bool {
	for _, d := range r.Diagnostics {
		if d.Severity == sev && d.Rule == rule &&
			(nodeID == "" || d.NodeID == nodeID) &&
			(edgeID == "" || d.EdgeID == edgeID) {
			return true
		}
	}
	return false
}

func TestValidate_ValidGraph(t *testing.T) {
	r := Validate(validGraph())
	assert.Empty(t, r.Diagnostics)
	assert.False(t, r.HasErrors())
}

func TestValidate_EmptyGraph(t *testing.T) {
	r := Validate(&graph.Graph{})

	require.Len(t, r.Diagnostics, 2)
	assert.Equal(t, 2, r.Count(core.SeverityError))
	assert.True(t, r.HasErrors())
	assert.True(t, has(r, core.SeverityError, "start_node", "", ""))
	assert.True(t, has(r, core.SeverityError, "end_node", "", ""))
}

func TestValidate_DisconnectedNode(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("s", graph.TypeStart, nil),
			node("e", graph.TypeEnd, nil),
			node("aux", graph.TypeDialogue, map[string]any{"speaker": "Ann", "text": "unused"}),
		},
		Edges: []graph.Edge{edge("e1", "s", "e")},
	}

	r := Validate(g)
	require.Len(t, r.Diagnostics, 1)
	d := r.Diagnostics[0]
	assert.Equal(t, core.SeverityWarn, d.Severity)
	assert.Equal(t, "disconnected", d.Rule)
	assert.Equal(t, "aux", d.NodeID)
	assert.False(t, r.HasErrors())
}

func TestValidate_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *graph.Graph)
		sev    core.Severity
		rule   string
		node   string
		edge   string
	}{
		{
			name: "multiple start",
			mutate: func(g *graph.Graph) {
				g.Nodes = append(g.Nodes, node("s2", graph.TypeStart, nil))
				g.Edges = append(g.Edges, edge("x", "s2", "e"))
			},
			sev: core.SeverityError, rule: "start_node", node: "s2",
		},
		{
			name:   "start with incoming edge",
			mutate: func(g *graph.Graph) { findEdge(g, "e2").Target = "s" },
			sev:    core.SeverityError, rule: "start_edges", node: "s",
		},
		{
			name: "end with outgoing edge",
			mutate: func(g *graph.Graph) {
				g.Nodes = append(g.Nodes, node("e9", graph.TypeEnd, nil))
				g.Edges = append(g.Edges, edge("x", "e", "e9"))
			},
			sev: core.SeverityError, rule: "end_edges", node: "e",
		},
		{
			name:   "no end reachable",
			mutate: func(g *graph.Graph) { findEdge(g, "e2").Target = "ghost" },
			sev:    core.SeverityError, rule: "end_reachable",
		},
		{
			name: "unreachable island",
			mutate: func(g *graph.Graph) {
				g.Nodes = append(g.Nodes,
					node("i1", graph.TypeMove, map[string]any{"target": "x"}),
					node("i2", graph.TypeMove, map[string]any{"target": "y"}))
				g.Edges = append(g.Edges, edge("x1", "i1", "i2"), edge("x2", "i2", "i1"))
			},
			sev: core.SeverityWarn, rule: "reachability", node: "i1",
		},
		{
			name: "linear fork",
			mutate: func(g *graph.Graph) {
				g.Nodes = append(g.Nodes, node("e9", graph.TypeEnd, nil))
				g.Edges = append(g.Edges, edge("x", "after", "e9"))
			},
			sev: core.SeverityWarn, rule: "multiple_outgoing", node: "after",
		},
		{
			name:   "missing required param",
			mutate: func(g *graph.Graph) { delete(findNode(g, "a1").Params, "text") },
			sev:    core.SeverityWarn, rule: "required_param", node: "a1",
		},
		{
			name:   "unknown type",
			mutate: func(g *graph.Graph) { findNode(g, "after").Type = "screen_shake" },
			sev:    core.SeverityTip, rule: "unknown_type", node: "after",
		},
		{
			name:   "duplicate node",
			mutate: func(g *graph.Graph) { g.Nodes = append(g.Nodes, node("a1", graph.TypeMove, nil)) },
			sev:    core.SeverityError, rule: "duplicate_node", node: "a1",
		},
		{
			name:   "missing joinId",
			mutate: func(g *graph.Graph) { delete(findNode(g, "p").Params, "joinId") },
			sev:    core.SeverityError, rule: "parallel_pair", node: "p",
		},
		{
			name:   "joinId to wrong node type",
			mutate: func(g *graph.Graph) { findNode(g, "p").Params["joinId"] = "after" },
			sev:    core.SeverityError, rule: "parallel_pair", node: "p",
		},
		{
			name:   "missing pairId",
			mutate: func(g *graph.Graph) { delete(findNode(g, "j").Params, "pairId") },
			sev:    core.SeverityError, rule: "parallel_pair", node: "j",
		},
		{
			name:   "pairId unresolved",
			mutate: func(g *graph.Graph) { findNode(g, "j").Params["pairId"] = "ghost" },
			sev:    core.SeverityError, rule: "parallel_pair", node: "j",
		},
		{
			name:   "branch sets differ",
			mutate: func(g *graph.Graph) { findNode(g, "j").Params["branches"] = []any{"a"} },
			sev:    core.SeverityWarn, rule: "parallel_branches", node: "p",
		},
		{
			name: "undeclared fork handle",
			mutate: func(g *graph.Graph) {
				g.Edges = append(g.Edges, graph.Edge{ID: "ec", Source: "p", Target: "a1", SourceHandle: "out_c"})
			},
			sev: core.SeverityWarn, rule: "parallel_handles", node: "p", edge: "ec",
		},
		{
			name:   "branch missing join edge",
			mutate: func(g *graph.Graph) { findEdge(g, "jb").TargetHandle = "" },
			sev:    core.SeverityWarn, rule: "parallel_branches", node: "j",
		},
		{
			name:   "duplicate branch id",
			mutate: func(g *graph.Graph) { findNode(g, "p").Params["branches"] = []any{"a", "b", "a"} },
			sev:    core.SeverityWarn, rule: "parallel_branches", node: "p",
		},
		{
			name:   "dangling target",
			mutate: func(g *graph.Graph) { g.Edges = append(g.Edges, edge("x", "after", "ghost")) },
			sev:    core.SeverityError, rule: "edge_reference", edge: "x",
		},
		{
			name:   "duplicate edge id",
			mutate: func(g *graph.Graph) { findEdge(g, "e2").ID = "e1" },
			sev:    core.SeverityWarn, rule: "duplicate_edge", edge: "e1",
		},
		{
			name:   "negative wait",
			mutate: func(g *graph.Graph) { findEdge(g, "e2").WaitSeconds = secs(-1) },
			sev:    core.SeverityWarn, rule: "edge_wait", edge: "e2",
		},
		{
			name: "guard var with global prefix",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e1").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "global.door", ConditionEquals: "open"}
			},
			sev: core.SeverityWarn, rule: "guard_fields", edge: "e1",
		},
		{
			name: "guard without equals",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e1").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "door"}
			},
			sev: core.SeverityWarn, rule: "guard_fields", edge: "e1",
		},
		{
			name: "unknown guard policy",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e1").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open", ConditionIfFalse: "maybe"}
			},
			sev: core.SeverityWarn, rule: "guard_policy", edge: "e1",
		},
		{
			name: "timeout without seconds",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e1").Guard = graph.Guard{
					ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open",
					ConditionIfFalse: graph.IfFalseWaitUntilTrue, StopWaitingWhen: graph.StopTimeout,
				}
			},
			sev: core.SeverityWarn, rule: "guard_stop", edge: "e1",
		},
		{
			name: "node_reached names no node",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e1").Guard = graph.Guard{
					ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open",
					ConditionIfFalse: graph.IfFalseWaitUntilTrue, StopWaitingWhen: graph.StopNodeReached, StopNodeName: "nobody",
				}
			},
			sev: core.SeverityWarn, rule: "guard_stop", edge: "e1",
		},
		{
			name:   "reserved type",
			mutate: func(g *graph.Graph) { findNode(g, "after").Type = "wait" },
			sev:    core.SeverityError, rule: "reserved_type", node: "after",
		},
		{
			name: "empty node id",
			mutate: func(g *graph.Graph) {
				g.Nodes = append(g.Nodes, node("", graph.TypeDialogue, map[string]any{"speaker": "Ann", "text": "hidden"}))
			},
			sev: core.SeverityError, rule: "node_id",
		},
		{
			name: "guard without wait",
			mutate: func(g *graph.Graph) {
				findEdge(g, "e2").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open"}
			},
			sev: core.SeverityTip, rule: "guard_no_effect", edge: "e2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGraph()
			tt.mutate(g)

			r := Validate(g)
			assert.True(t, has(r, tt.sev, tt.rule, tt.node, tt.edge), "diagnostics: %v", r.Diagnostics)
		})
	}
}

func TestValidate_ReservedTypesBlockExport(t *testing.T) {
	for _, typ := range graph.ReservedTypes {
		t.Run(typ, func(t *testing.T) {
			g := validGraph()
			findNode(g, "after").Type = typ

			r := Validate(g)
			assert.True(t, r.HasErrors())
			assert.True(t, has(r, core.SeverityError, "reserved_type", "after", ""))
			assert.False(t, has(r, core.SeverityTip, "unknown_type", "after", ""), "reserved type also reported as unknown")
		})
	}
}

func TestValidate_GuardOnForkEntryHasEffect(t *testing.T) {
	g := validGraph()
	findEdge(g, "ea").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open"}

	r := Validate(g)
	assert.False(t, has(r, core.SeverityTip, "guard_no_effect", "", "ea"))
}

func TestValidate_NodeReachedMatchesName(t *testing.T) {
	g := validGraph()
	findEdge(g, "e1").Guard = graph.Guard{
		ConditionEnabled: true, ConditionVar: "door", ConditionEquals: "open",
		ConditionIfFalse: graph.IfFalseWaitUntilTrue, StopWaitingWhen: graph.StopNodeReached, StopNodeName: "walk_out",
	}

	assert.Empty(t, Validate(g).Diagnostics)
}

func TestValidate_PairEdgesIgnored(t *testing.T) {
	g := validGraph()
	// A pair edge pointing nowhere is still bookkeeping only.
	findEdge(g, "pair").Target = "ghost"

	assert.Empty(t, Validate(g).Diagnostics)
}

func TestValidate_BranchCondition(t *testing.T) {
	build := func(cond any) *graph.Graph {
		return &graph.Graph{
			Nodes: []graph.Node{
				node("s", graph.TypeStart, nil),
				node("b", graph.TypeBranch, map[string]any{"condition": cond}),
				node("e1", graph.TypeEnd, nil),
				node("e2", graph.TypeEnd, nil),
			},
			Edges: []graph.Edge{
				edge("x0", "s", "b"),
				{ID: "x1", Source: "b", Target: "e1", SourceHandle: graph.HandleTrue},
				{ID: "x2", Source: "b", Target: "e2", SourceHandle: graph.HandleFalse},
			},
		}
	}

	assert.Empty(t, Validate(build("hasKey && door == 'open'")).Diagnostics)

	r := Validate(build("(hasKey"))
	assert.True(t, has(r, core.SeverityTip, "branch_condition", "b", ""))
	assert.False(t, r.HasErrors())

	r = Validate(build(""))
	assert.True(t, has(r, core.SeverityWarn, "required_param", "b", ""))
}

func TestValidate_RunFunctionAlias(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("s", graph.TypeStart, nil),
			node("f", graph.TypeRunFunction, map[string]any{"functionName": "shake"}),
			node("e", graph.TypeEnd, nil),
		},
		Edges: []graph.Edge{edge("x0", "s", "f"), edge("x1", "f", "e")},
	}

	assert.Empty(t, Validate(g).Diagnostics)
}

func TestValidator_Options(t *testing.T) {
	g := validGraph()
	findEdge(g, "e1").Guard = graph.Guard{ConditionEnabled: true, ConditionVar: "global.door", ConditionEquals: "open"}

	v := New(Options{
		RequiredParams: map[string][]string{graph.TypeMove: {"target", "speed"}},
		GlobalPrefix:   "g:",
	})
	r := v.Validate(g)

	assert.True(t, has(r, core.SeverityWarn, "required_param", "after", ""))
	assert.False(t, has(r, core.SeverityWarn, "guard_fields", "", "e1"))
	// Other defaults survive an override.
	assert.False(t, has(r, core.SeverityWarn, "required_param", "a1", ""))
}

func TestValidator_CustomConditionCheck(t *testing.T) {
	g := &graph.Graph{
		Nodes: []graph.Node{
			node("s", graph.TypeStart, nil),
			node("b", graph.TypeBranch, map[string]any{"condition": "anything"}),
			node("e", graph.TypeEnd, nil),
		},
		Edges: []graph.Edge{
			edge("x0", "s", "b"),
			{ID: "x1", Source: "b", Target: "e", SourceHandle: graph.HandleTrue},
		},
	}

	v := New(Options{CheckCondition: func(string) error { return errors.New("nope") }})
	assert.True(t, has(v.Validate(g), core.SeverityTip, "branch_condition", "b", ""))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	g := validGraph()
	before := validGraph()

	Validate(g)
	assert.Equal(t, before, g)
}

func TestReport_Helpers(t *testing.T) {
	r := &Report{Diagnostics: []Diagnostic{
		{Severity: core.SeverityError, Rule: "start_node", Message: "m1"},
		{Severity: core.SeverityWarn, Rule: "disconnected", NodeID: "x", Message: "m2"},
		{Severity: core.SeverityWarn, Rule: "edge_wait", EdgeID: "e", Message: "m3"},
		{Severity: core.SeverityTip, Rule: "unknown_type", NodeID: "x", Message: "m4"},
	}}

	assert.True(t, r.HasErrors())
	assert.Equal(t, 2, r.Count(core.SeverityWarn))
	assert.Len(t, r.Filter(core.SeverityTip), 1)
	assert.Len(t, r.ForNode("x"), 2)

	assert.Equal(t, "[warn] disconnected: m2 (node: x)", r.Diagnostics[1].String())
	assert.Equal(t, "[warn] edge_wait: m3 (edge: e)", r.Diagnostics[2].String())

	warnOnly := &Report{Diagnostics: r.Diagnostics[1:]}
	assert.False(t, warnOnly.HasErrors())
}
