package compiler

import (
	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

// parallel compiles a parallel_start and returns the id of its join, from
// which compilation continues.
func (c *compiler) parallel(fork *graph.Node) (Action, string, error) {
	joinID := fork.StringParam(graph.ParamJoinID)
	if joinID == "" {
		return nil, "", core.ErrMissingLink.WithNode(fork.ID)
	}
	join, ok := c.idx.Node(joinID)
	if !ok {
		return nil, "", core.ErrMissingLink.WithNode(fork.ID).
			WithMessagef("joinId %q does not match any node", joinID)
	}
	if join.Type != graph.TypeParallelJoin {
		return nil, "", core.ErrMissingLink.WithNode(fork.ID).
			WithMessagef("joinId %q refers to a %s node, not a parallel_join", joinID, join.Type)
	}

	branches := [][]Action{}
	seen := make(map[string]bool)
	for _, id := range fork.BranchIDs() {
		if seen[id] {
			continue
		}
		seen[id] = true

		var entries []*graph.Edge
		for _, e := range c.idx.Outgoing(fork.ID) {
			if e.SourceHandle == graph.OutHandle(id) {
				entries = append(entries, e)
			}
		}
		switch len(entries) {
		case 0:
			continue
		case 1:
		default:
			return nil, "", core.ErrAmbiguousFlow.WithNode(fork.ID).
				WithMessagef("parallel branch %q has %d entry edges", id, len(entries))
		}

		seq, err := c.parallelBranch(entries[0], join.ID)
		if err != nil {
			return nil, "", err
		}
		if len(seq) > 0 {
			branches = append(branches, seq)
		}
	}

	return Action{FieldType: ActionParallel, FieldBranches: branches}, join.ID, nil
}

// parallelBranch walks linearly from the entry edge to the join. The entry
// edge's wait and guard gate only this branch; the guard wraps the whole
// branch sequence and is evaluated at runtime.
func (c *compiler) parallelBranch(entry *graph.Edge, joinID string) ([]Action, error) {
	var seq []Action
	var entered []string
	defer func() { c.leave(entered) }()

	if seconds := entry.Wait(); seconds > 0 {
		seq = append(seq, Wait(seconds))
	}

	via := entry
	for via.Target != joinID {
		if _, err := c.resolve(via); err != nil {
			return nil, err
		}
		n, err := c.enter(via.Target)
		if err != nil {
			return nil, err
		}
		entered = append(entered, n.ID)

		switch classify(n).(type) {
		case linearShape:
			seq = append(seq, c.emit(n, linearAction(n))...)
		case branchShape, parallelShape:
			return nil, core.ErrParallelRefork.WithNode(n.ID).
				WithMessagef("parallel branch forks again at %s node %q before reaching join %q", n.Type, n.ID, joinID)
		case terminalShape, passShape:
			return nil, core.ErrParallelDeadEnd.WithNode(n.ID).
				WithMessagef("parallel branch reaches %s node %q instead of join %q", n.Type, n.ID, joinID)
		}

		edges := c.idx.Outgoing(n.ID)
		switch len(edges) {
		case 0:
			return nil, core.ErrParallelDeadEnd.WithNode(n.ID).
				WithMessagef("parallel branch dead-ends at node %q before reaching join %q", n.ID, joinID)
		case 1:
		default:
			return nil, core.ErrParallelRefork.WithNode(n.ID).
				WithMessagef("parallel branch forks again at node %q (%d outgoing edges)", n.ID, len(edges))
		}

		via = edges[0]
		seq = append(seq, transition(via)...)
	}

	if entry.ConditionEnabled && len(seq) > 0 {
		return []Action{Guard(&entry.Guard, seq)}, nil
	}
	return seq, nil
}
