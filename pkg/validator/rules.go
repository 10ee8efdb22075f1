package validator

import (
	"sort"
	"strings"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

// checkTerminals: exactly one start, at least one end.
func (p *pass) checkTerminals() {
	switch len(p.starts) {
	case 0:
		p.add(core.SeverityError, core.ErrCategoryStructural, "start_node", "", "",
			"graph must have exactly one start node")
	case 1:
	default:
		for _, n := range p.starts {
			p.add(core.SeverityError, core.ErrCategoryStructural, "start_node", n.ID, "",
				"multiple start nodes found; %q is one of %d", n.ID, len(p.starts))
		}
	}

	if len(p.ends) == 0 {
		p.add(core.SeverityError, core.ErrCategoryStructural, "end_node", "", "",
			"graph must have at least one end node")
	}
}

// checkNodeEdges covers per-node edge counts and connectivity.
func (p *pass) checkNodeEdges() {
	for _, n := range p.nodes {
		in := len(p.idx.Incoming(n.ID))
		out := len(p.idx.Outgoing(n.ID))

		switch n.Type {
		case graph.TypeStart:
			if in > 0 {
				p.add(core.SeverityError, core.ErrCategoryStructural, "start_edges", n.ID, "",
					"start node must have no incoming edges, but has %d", in)
			}
			if out == 0 {
				p.add(core.SeverityError, core.ErrCategoryStructural, "start_edges", n.ID, "",
					"start node has no outgoing edge")
			}
		case graph.TypeEnd:
			if out > 0 {
				p.add(core.SeverityError, core.ErrCategoryStructural, "end_edges", n.ID, "",
					"end node must have no outgoing edges, but has %d", out)
			}
		}

		switch {
		case in+out == 0 && !isTerminalOrJoin(n.Type):
			p.flagged[n.ID] = true
			p.add(core.SeverityWarn, core.ErrCategoryStructural, "disconnected", n.ID, "",
				"%s node %q is not connected to anything", n.Type, n.ID)
		case in == 0 && n.Type != graph.TypeStart && n.Type != graph.TypeParallelStart:
			p.flagged[n.ID] = true
			p.add(core.SeverityWarn, core.ErrCategoryStructural, "no_incoming", n.ID, "",
				"%s node %q has no incoming edge and can never run", n.Type, n.ID)
		}

		switch n.Type {
		case graph.TypeBranch:
			if out > 2 {
				p.add(core.SeverityWarn, core.ErrCategoryStructural, "branch_edges", n.ID, "",
					"branch node has %d outgoing edges, want out_true and out_false", out)
			}
		case graph.TypeParallelStart:
		default:
			if out > 1 {
				p.add(core.SeverityWarn, core.ErrCategoryStructural, "multiple_outgoing", n.ID, "",
					"%s node has %d outgoing edges; only branch and parallel_start may fork", n.Type, out)
			}
		}
	}
}

func isTerminalOrJoin(t graph.NodeType) bool {
	return t == graph.TypeStart || t == graph.TypeEnd || t == graph.TypeParallelJoin
}

// checkParams covers required parameters, unknown types and condition syntax.
func (p *pass) checkParams() {
	for _, n := range p.nodes {
		switch {
		case graph.IsReserved(n.Type):
			p.add(core.SeverityError, core.ErrCategoryParameter, "reserved_type", n.ID, "",
				"node type %q is reserved for compiler-generated actions", n.Type)
		case !graph.IsBuiltin(n.Type):
			p.add(core.SeverityTip, core.ErrCategoryParameter, "unknown_type", n.ID, "",
				"node type %q is not built in; it is exported with its parameters unchanged", n.Type)
		}

		for _, key := range p.v.required[n.Type] {
			if hasParam(n, key) {
				continue
			}
			p.add(core.SeverityWarn, core.ErrCategoryParameter, "required_param", n.ID, "",
				"%s node is missing required parameter %q", n.Type, key)
		}

		if n.Type == graph.TypeBranch {
			if expr := n.StringParam(graph.ParamCondition); expr != "" {
				if err := p.v.check(expr); err != nil {
					p.add(core.SeverityTip, core.ErrCategoryParameter, "branch_condition", n.ID, "",
						"branch condition does not parse: %v", err)
				}
			}
		}
	}
}

func hasParam(n *graph.Node, key string) bool {
	if v, ok := n.Param(key); ok && !graph.IsEmptyValue(v) {
		return true
	}
	if alias, ok := paramAliases[n.Type][key]; ok {
		if v, ok := n.Param(alias); ok && !graph.IsEmptyValue(v) {
			return true
		}
	}
	return false
}

// checkParallelPairs covers parallel_start/parallel_join pairing integrity.
func (p *pass) checkParallelPairs() {
	for _, n := range p.nodes {
		switch n.Type {
		case graph.TypeParallelStart:
			p.checkFork(n)
		case graph.TypeParallelJoin:
			p.checkJoin(n)
		}
	}
}

func (p *pass) checkFork(fork *graph.Node) {
	branches := p.checkBranchSet(fork)

	for _, e := range p.idx.Outgoing(fork.ID) {
		id, ok := graph.BranchFromOutHandle(e.SourceHandle)
		if !ok || !branches[id] {
			p.add(core.SeverityWarn, core.ErrCategoryReferential, "parallel_handles", fork.ID, e.ID,
				"edge handle %q does not match a declared branch", e.SourceHandle)
		}
	}
	for _, id := range sortedKeys(branches) {
		if n := countHandles(p.idx.Outgoing(fork.ID), id, true); n != 1 {
			p.add(core.SeverityWarn, core.ErrCategoryReferential, "parallel_branches", fork.ID, "",
				"branch %q has %d edges leaving %s, want exactly one", id, n, graph.OutHandle(id))
		}
	}

	joinID := fork.StringParam(graph.ParamJoinID)
	if joinID == "" {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", fork.ID, "",
			"parallel_start has no joinId")
		return
	}
	join, ok := p.idx.Node(joinID)
	if !ok {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", fork.ID, "",
			"joinId %q does not match any node", joinID)
		return
	}
	if join.Type != graph.TypeParallelJoin {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", fork.ID, "",
			"joinId %q refers to a %s node, not a parallel_join", joinID, join.Type)
		return
	}
	if pairID := join.StringParam(graph.ParamPairID); pairID != "" && pairID != fork.ID {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", fork.ID, "",
			"parallel_join %q is paired with %q", joinID, pairID)
	}

	joinBranches := branchSet(join.BranchIDs())
	if !sameKeys(branches, joinBranches) {
		p.add(core.SeverityWarn, core.ErrCategoryReferential, "parallel_branches", fork.ID, "",
			"parallel_start declares branches [%s] but parallel_join %q declares [%s]",
			strings.Join(sortedKeys(branches), ", "), joinID, strings.Join(sortedKeys(joinBranches), ", "))
	}
	for _, id := range sortedKeys(branches) {
		if n := countHandles(p.idx.Incoming(joinID), id, false); n != 1 {
			p.add(core.SeverityWarn, core.ErrCategoryReferential, "parallel_branches", joinID, "",
				"branch %q has %d edges entering %s, want exactly one", id, n, graph.InHandle(id))
		}
	}
}

func (p *pass) checkJoin(join *graph.Node) {
	branches := p.checkBranchSet(join)

	for _, e := range p.idx.Incoming(join.ID) {
		id, ok := graph.BranchFromInHandle(e.TargetHandle)
		if !ok || !branches[id] {
			p.add(core.SeverityWarn, core.ErrCategoryReferential, "parallel_handles", join.ID, e.ID,
				"edge handle %q does not match a declared branch", e.TargetHandle)
		}
	}

	pairID := join.StringParam(graph.ParamPairID)
	if pairID == "" {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", join.ID, "",
			"parallel_join has no pairId")
		return
	}
	fork, ok := p.idx.Node(pairID)
	if !ok {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", join.ID, "",
			"pairId %q does not match any node", pairID)
		return
	}
	if fork.Type != graph.TypeParallelStart {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", join.ID, "",
			"pairId %q refers to a %s node, not a parallel_start", pairID, fork.Type)
		return
	}
	if joinID := fork.StringParam(graph.ParamJoinID); joinID != join.ID {
		p.add(core.SeverityError, core.ErrCategoryReferential, "parallel_pair", join.ID, "",
			"parallel_start %q points to join %q instead", pairID, joinID)
	}
}

// checkBranchSet reports duplicate branch ids and returns the declared set.
func (p *pass) checkBranchSet(n *graph.Node) map[string]bool {
	seen := make(map[string]bool)
	for _, id := range n.BranchIDs() {
		if seen[id] {
			p.add(core.SeverityWarn, core.ErrCategoryParameter, "parallel_branches", n.ID, "",
				"branch id %q is declared more than once", id)
		}
		seen[id] = true
	}
	return seen
}

func countHandles(edges []*graph.Edge, branchID string, outgoing bool) int {
	n := 0
	for _, e := range edges {
		if outgoing && e.SourceHandle == graph.OutHandle(branchID) {
			n++
		}
		if !outgoing && e.TargetHandle == graph.InHandle(branchID) {
			n++
		}
	}
	return n
}

func branchSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sameKeys(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkEdges covers referential integrity and delays.
func (p *pass) checkEdges() {
	seen := make(map[string]bool)
	for i := range p.idx.Graph.Edges {
		e := &p.idx.Graph.Edges[i]
		if e.IsPair() {
			continue
		}

		if seen[e.ID] {
			p.add(core.SeverityWarn, core.ErrCategoryReferential, "duplicate_edge", "", e.ID,
				"edge id %q is used by more than one edge", e.ID)
		}
		seen[e.ID] = true

		if _, ok := p.idx.Node(e.Source); !ok {
			p.add(core.SeverityError, core.ErrCategoryReferential, "edge_reference", "", e.ID,
				"edge source %q does not reference an existing node", e.Source)
		}
		if _, ok := p.idx.Node(e.Target); !ok {
			p.add(core.SeverityError, core.ErrCategoryReferential, "edge_reference", "", e.ID,
				"edge target %q does not reference an existing node", e.Target)
		}
		if e.WaitSeconds != nil && *e.WaitSeconds < 0 {
			p.add(core.SeverityWarn, core.ErrCategoryParameter, "edge_wait", "", e.ID,
				"waitSeconds must not be negative, got %g", *e.WaitSeconds)
		}
	}
}

// checkGuards covers edge guard completeness.
func (p *pass) checkGuards() {
	for i := range p.idx.Graph.Edges {
		e := &p.idx.Graph.Edges[i]
		if e.IsPair() || !e.ConditionEnabled {
			continue
		}

		if strings.TrimSpace(e.ConditionVar) == "" {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_fields", "", e.ID,
				"guard is enabled but conditionVar is empty")
		} else if strings.HasPrefix(e.ConditionVar, p.v.globalPrefix) {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_fields", "", e.ID,
				"conditionVar %q must not include the %q prefix", e.ConditionVar, p.v.globalPrefix)
		}
		if graph.IsEmptyValue(e.ConditionEquals) {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_fields", "", e.ID,
				"guard is enabled but conditionEquals is empty")
		}

		switch e.IfFalse() {
		case graph.IfFalseSkip:
		case graph.IfFalseWaitUntilTrue:
			p.checkStopCondition(e)
		default:
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_policy", "", e.ID,
				"conditionIfFalse %q is not one of skip, wait_until_true", e.ConditionIfFalse)
		}

		if src, ok := p.idx.Node(e.Source); ok && src.Type != graph.TypeParallelStart && e.Wait() <= 0 {
			p.add(core.SeverityTip, core.ErrCategoryGuard, "guard_no_effect", "", e.ID,
				"guard only gates the transition delay; without waitSeconds it has no effect")
		}
	}
}

func (p *pass) checkStopCondition(e *graph.Edge) {
	switch e.StopKind() {
	case graph.StopNone:
	case graph.StopGlobalVar:
		if strings.TrimSpace(e.StopVar) == "" {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopWaitingWhen is global_var but stopVar is empty")
		} else if strings.HasPrefix(e.StopVar, p.v.globalPrefix) {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopVar %q must not include the %q prefix", e.StopVar, p.v.globalPrefix)
		}
		if graph.IsEmptyValue(e.StopEquals) {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopWaitingWhen is global_var but stopEquals is empty")
		}
	case graph.StopNodeReached:
		name := strings.TrimSpace(e.StopNodeName)
		if name == "" {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopWaitingWhen is node_reached but stopNodeName is empty")
		} else if !p.idx.HasName(name) {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopNodeName %q does not match any node name", name)
		}
	case graph.StopTimeout:
		if e.StopTimeoutSeconds == nil || *e.StopTimeoutSeconds <= 0 {
			p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
				"stopWaitingWhen is timeout but stopTimeoutSeconds is not positive")
		}
	default:
		p.add(core.SeverityWarn, core.ErrCategoryGuard, "guard_stop", "", e.ID,
			"stopWaitingWhen %q is not one of none, global_var, node_reached, timeout", e.StopWaitingWhen)
	}
}

// checkReachability runs a BFS from the single start node.
func (p *pass) checkReachability() {
	if len(p.starts) != 1 {
		return
	}

	reached := map[string]bool{p.starts[0].ID: true}
	queue := []string{p.starts[0].ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range p.idx.Outgoing(current) {
			if reached[e.Target] {
				continue
			}
			if _, ok := p.idx.Node(e.Target); !ok {
				continue
			}
			reached[e.Target] = true
			queue = append(queue, e.Target)
		}
	}

	endReached := false
	for _, n := range p.nodes {
		if reached[n.ID] {
			if n.Type == graph.TypeEnd {
				endReached = true
			}
			continue
		}
		if p.flagged[n.ID] {
			continue
		}
		p.add(core.SeverityWarn, core.ErrCategoryStructural, "reachability", n.ID, "",
			"%s node %q is not reachable from start", n.Type, n.ID)
	}

	if len(p.ends) > 0 && !endReached {
		p.add(core.SeverityError, core.ErrCategoryStructural, "end_reachable", "", "",
			"no end node is reachable from start; export is impossible")
	}
}
