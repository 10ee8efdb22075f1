// Package graph holds the cutscene graph model and the document loader.
//
// A Graph is owned by the editor. Everything in this module only borrows it
// for the duration of a single call and never mutates it.
package graph

import "strings"

// NodeType is an open tag. Unknown types are legal and pass through the
// compiler verbatim.
type NodeType = string

// Built-in node types.
const (
	// Flow control
	TypeStart         NodeType = "start"
	TypeEnd           NodeType = "end"
	TypeBranch        NodeType = "branch"
	TypeParallelStart NodeType = "parallel_start"
	TypeParallelJoin  NodeType = "parallel_join"

	// Actions
	TypeDialogue      NodeType = "dialogue"
	TypeMove          NodeType = "move"
	TypeCamera        NodeType = "camera"
	TypePlayAnimation NodeType = "play_animation"
	TypePlaySound     NodeType = "play_sound"
	TypeSetVariable   NodeType = "set_variable"
	TypeRunFunction   NodeType = "run_function"
)

// Handle tags.
const (
	HandleTrue  = "out_true"
	HandleFalse = "out_false"

	// HandlePair marks the bookkeeping link between a parallel_start and its
	// parallel_join. Pair edges are never traversed.
	HandlePair = "__pair"

	outPrefix = "out_"
	inPrefix  = "in_"
)

// Parameter keys with structural meaning.
const (
	ParamCondition = "condition"
	ParamBranches  = "branches"
	ParamJoinID    = "joinId"
	ParamPairID    = "pairId"
)

// False-branch policies of an edge guard.
const (
	IfFalseSkip          = "skip"
	IfFalseWaitUntilTrue = "wait_until_true"
)

// Secondary stop conditions while waiting on a guard.
const (
	StopNone        = "none"
	StopGlobalVar   = "global_var"
	StopNodeReached = "node_reached"
	StopTimeout     = "timeout"
)

// BuiltinTypes lists every node type the tooling knows about.
var BuiltinTypes = []NodeType{
	TypeStart, TypeEnd, TypeBranch, TypeParallelStart, TypeParallelJoin,
	TypeDialogue, TypeMove, TypeCamera, TypePlayAnimation, TypePlaySound,
	TypeSetVariable, TypeRunFunction,
}

// IsBuiltin reports whether t is one of BuiltinTypes.
func IsBuiltin(t NodeType) bool {
	for _, b := range BuiltinTypes {
		if b == t {
			return true
		}
	}
	return false
}

// ReservedTypes are action types the compiler emits itself. A node carrying
// one of them would compile to an action of the same type with the wrong
// fields, so they cannot be used as node types.
var ReservedTypes = []NodeType{"wait", "parallel", "guard", "mark_node"}

// IsReserved reports whether t is one of ReservedTypes.
func IsReserved(t NodeType) bool {
	for _, r := range ReservedTypes {
		if r == t {
			return true
		}
	}
	return false
}

// Node is a typed unit of behavior.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"` // Display name, not unique
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param returns the raw parameter value for key.
func (n *Node) Param(key string) (any, bool) {
	if n.Params == nil {
		return nil, false
	}
	v, ok := n.Params[key]
	return v, ok
}

// StringParam returns the parameter as a trimmed string, or "" if it is
// missing or not a string.
func (n *Node) StringParam(key string) string {
	v, ok := n.Param(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// BranchIDs returns the ordered branch identifiers declared in
// params.branches. Non-string entries are ignored.
func (n *Node) BranchIDs() []string {
	v, ok := n.Param(ParamBranches)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		ids := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids
	}
	return nil
}

// Edge is a directed transition between two nodes.
type Edge struct {
	ID           string   `json:"id" yaml:"id"`
	Source       string   `json:"source" yaml:"source"`
	Target       string   `json:"target" yaml:"target"`
	SourceHandle string   `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	WaitSeconds  *float64 `json:"waitSeconds,omitempty" yaml:"waitSeconds,omitempty"`

	Guard `yaml:",inline"`
}

// Guard is the optional conditional attached to an edge.
type Guard struct {
	ConditionEnabled bool   `json:"conditionEnabled,omitempty" yaml:"conditionEnabled,omitempty"`
	ConditionVar     string `json:"conditionVar,omitempty" yaml:"conditionVar,omitempty"`
	ConditionEquals  any    `json:"conditionEquals,omitempty" yaml:"conditionEquals,omitempty"`
	ConditionIfFalse string `json:"conditionIfFalse,omitempty" yaml:"conditionIfFalse,omitempty"` // skip, wait_until_true

	// Only consulted when ConditionIfFalse is wait_until_true.
	StopWaitingWhen    string   `json:"stopWaitingWhen,omitempty" yaml:"stopWaitingWhen,omitempty"`
	StopVar            string   `json:"stopVar,omitempty" yaml:"stopVar,omitempty"`
	StopEquals         any      `json:"stopEquals,omitempty" yaml:"stopEquals,omitempty"`
	StopNodeName       string   `json:"stopNodeName,omitempty" yaml:"stopNodeName,omitempty"`
	StopTimeoutSeconds *float64 `json:"stopTimeoutSeconds,omitempty" yaml:"stopTimeoutSeconds,omitempty"`
}

// IfFalse returns the false-branch policy, defaulting to skip.
func (g *Guard) IfFalse() string {
	if g.ConditionIfFalse == "" {
		return IfFalseSkip
	}
	return g.ConditionIfFalse
}

// StopKind returns the secondary stop condition, defaulting to none.
func (g *Guard) StopKind() string {
	if g.StopWaitingWhen == "" {
		return StopNone
	}
	return g.StopWaitingWhen
}

// IsPair reports whether the edge is the non-traversable fork/join link.
func (e *Edge) IsPair() bool {
	return e.SourceHandle == HandlePair || e.TargetHandle == HandlePair
}

// Wait returns the edge delay in seconds, 0 if none is set.
func (e *Edge) Wait() float64 {
	if e.WaitSeconds == nil {
		return 0
	}
	return *e.WaitSeconds
}

// Graph is a node set plus an edge set.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// OutHandle returns the fork handle for a parallel branch id.
func OutHandle(branchID string) string { return outPrefix + branchID }

// InHandle returns the join handle for a parallel branch id.
func InHandle(branchID string) string { return inPrefix + branchID }

// BranchFromOutHandle extracts the branch id from an out_<id> handle.
func BranchFromOutHandle(handle string) (string, bool) {
	return cutPrefix(handle, outPrefix)
}

// BranchFromInHandle extracts the branch id from an in_<id> handle.
func BranchFromInHandle(handle string) (string, bool) {
	return cutPrefix(handle, inPrefix)
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || len(s) == len(prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// IsEmptyValue reports whether a parameter value counts as missing:
// nil, a blank string, or an empty list or map.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
