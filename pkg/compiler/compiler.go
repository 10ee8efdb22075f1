// Package compiler turns a cutscene graph into the flat, ordered action list
// consumed by the engine.
//
// The walk is depth-first from the start node. Linear chains are followed
// iteratively; only branch sides recurse. The set of nodes on the current
// path detects cycles, so two branch sides converging on the same end are
// fine while a node re-entered from its own subtree is not.
//
// Compilation is fail-fast: the first structural problem aborts the walk,
// since a partial action list is unsafe to hand to the engine.
package compiler

import (
	"strings"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

// Options configures compilation.
type Options struct {
	// MarkNamedNodes emits a mark_node action before every named node so
	// "stop waiting when node reached" guards have something to match.
	MarkNamedNodes bool
}

// Compile compiles g into an action list. The graph does not need to be
// warning-free; it needs exactly one start and at least one end.
func Compile(g *graph.Graph, opts Options) ([]Action, error) {
	c := &compiler{
		idx:    graph.NewIndex(g),
		opts:   opts,
		onPath: make(map[string]bool),
	}

	starts := c.idx.NodesOfType(graph.TypeStart)
	switch len(starts) {
	case 0:
		return nil, core.ErrMissingStart
	case 1:
	default:
		return nil, core.ErrMultipleStart.WithNode(starts[1].ID)
	}

	actions, err := c.sequence(starts[0].ID)
	if err != nil {
		return nil, err
	}

	if len(c.idx.NodesOfType(graph.TypeEnd)) == 0 {
		return nil, core.ErrMissingEnd
	}
	return actions, nil
}

type compiler struct {
	idx    *graph.Index
	opts   Options
	onPath map[string]bool
}

// enter marks id as being on the current path.
func (c *compiler) enter(id string) (*graph.Node, error) {
	if c.onPath[id] {
		return nil, core.ErrCycleDetected.WithNode(id).
			WithMessagef("cycle detected: node %q is re-entered from its own subtree", id)
	}
	n, ok := c.idx.Node(id)
	if !ok {
		return nil, core.ErrDanglingReference.WithMessagef("node %q does not exist", id)
	}
	c.onPath[id] = true
	return n, nil
}

func (c *compiler) leave(ids []string) {
	for _, id := range ids {
		delete(c.onPath, id)
	}
}

// sequence compiles from id until an end node or a dead end.
func (c *compiler) sequence(id string) ([]Action, error) {
	var out []Action
	var entered []string
	defer func() { c.leave(entered) }()

	for {
		n, err := c.enter(id)
		if err != nil {
			return nil, err
		}
		entered = append(entered, id)

		switch classify(n).(type) {
		case terminalShape:
			return nonNil(out), nil
		case passShape:
		case linearShape:
			out = append(out, c.emit(n, linearAction(n))...)
		case branchShape:
			action, err := c.branch(n)
			if err != nil {
				return nil, err
			}
			return append(out, c.emit(n, action)...), nil
		case parallelShape:
			action, joinID, err := c.parallel(n)
			if err != nil {
				return nil, err
			}
			out = append(out, c.emit(n, action)...)
			id = joinID
			continue
		}

		next, err := c.successor(n)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nonNil(out), nil
		}
		out = append(out, transition(next)...)
		id = next.Target
	}
}

// emit prefixes a named node's action with its marker when enabled.
func (c *compiler) emit(n *graph.Node, action Action) []Action {
	if c.opts.MarkNamedNodes && strings.TrimSpace(n.Name) != "" {
		return []Action{MarkNode(n.Name), action}
	}
	return []Action{action}
}

// successor returns the single outgoing edge of n, nil at a dead end.
func (c *compiler) successor(n *graph.Node) (*graph.Edge, error) {
	edges := c.idx.Outgoing(n.ID)
	switch len(edges) {
	case 0:
		return nil, nil
	case 1:
		return c.resolve(edges[0])
	default:
		return nil, core.ErrAmbiguousFlow.WithNode(n.ID).
			WithMessagef("%s node has %d outgoing edges; only branch and parallel_start may fork", n.Type, len(edges))
	}
}

// resolve checks that the edge target exists.
func (c *compiler) resolve(e *graph.Edge) (*graph.Edge, error) {
	if _, ok := c.idx.Node(e.Target); !ok {
		return nil, core.ErrDanglingReference.WithEdge(e.ID).
			WithMessagef("edge target %q does not reference an existing node", e.Target)
	}
	return e, nil
}

// transition compiles an edge's delay. An enabled guard wraps the wait and
// only the wait: the graph transition itself always proceeds.
func transition(e *graph.Edge) []Action {
	seconds := e.Wait()
	if seconds <= 0 {
		return nil
	}
	wait := []Action{Wait(seconds)}
	if e.ConditionEnabled {
		return []Action{Guard(&e.Guard, wait)}
	}
	return wait
}

// branch compiles both sides of a branch node independently.
func (c *compiler) branch(n *graph.Node) (Action, error) {
	edges := c.idx.Outgoing(n.ID)
	if len(edges) > 2 {
		return nil, core.ErrAmbiguousFlow.WithNode(n.ID).
			WithMessagef("branch node has %d outgoing edges, want out_true and out_false", len(edges))
	}

	var onTrue, onFalse *graph.Edge
	var rest []*graph.Edge
	for _, e := range edges {
		switch {
		case e.SourceHandle == graph.HandleTrue && onTrue == nil:
			onTrue = e
		case e.SourceHandle == graph.HandleFalse && onFalse == nil:
			onFalse = e
		case e.SourceHandle == graph.HandleTrue || e.SourceHandle == graph.HandleFalse:
			return nil, core.ErrAmbiguousFlow.WithNode(n.ID).WithEdge(e.ID).
				WithMessagef("branch node has more than one %s edge", e.SourceHandle)
		default:
			rest = append(rest, e)
		}
	}
	// Edges without a recognised handle fill the free sides in order.
	for _, e := range rest {
		if onTrue == nil {
			onTrue = e
		} else {
			onFalse = e
		}
	}

	trueActions, err := c.side(onTrue)
	if err != nil {
		return nil, err
	}
	falseActions, err := c.side(onFalse)
	if err != nil {
		return nil, err
	}

	action := Action{
		FieldType:         ActionBranch,
		FieldTrueActions:  trueActions,
		FieldFalseActions: falseActions,
	}
	if cond, ok := n.Param(graph.ParamCondition); ok {
		action[FieldCondition] = deepCopy(cond)
	}
	return action, nil
}

func (c *compiler) side(e *graph.Edge) ([]Action, error) {
	if e == nil {
		return []Action{}, nil
	}
	if _, err := c.resolve(e); err != nil {
		return nil, err
	}
	seq, err := c.sequence(e.Target)
	if err != nil {
		return nil, err
	}
	return nonNil(append(transition(e), seq...)), nil
}
