package compiler

import "github.com/devicelab-dev/cutscene-compiler/pkg/graph"

// Action is one element of the compiled IR: an open record whose "type"
// field names the engine action. Node types the compiler does not know
// about pass through as {type, ...params}.
type Action map[string]any

// Action types emitted by the compiler itself.
const (
	ActionWait     = "wait"
	ActionBranch   = "branch"
	ActionParallel = "parallel"
	ActionGuard    = "guard"
	ActionMarkNode = "mark_node"
)

// Field keys.
const (
	FieldType         = "type"
	FieldSeconds      = "seconds"
	FieldCondition    = "condition"
	FieldTrueActions  = "true_actions"
	FieldFalseActions = "false_actions"
	FieldBranches     = "branches"
	FieldActions      = "actions"
	FieldVar          = "var"
	FieldEquals       = "equals"
	FieldIfFalse      = "if_false"
	FieldStopWaiting  = "stop_waiting_when"
	FieldName         = "name"
)

// run_function parameter keys.
const (
	ParamFunction       = "function"
	ParamFunctionLegacy = "functionName"
	ParamArgs           = "args"
)

// Type returns the action type tag.
func (a Action) Type() string {
	s, _ := a[FieldType].(string)
	return s
}

// Actions returns a nested action list stored under key, e.g. true_actions.
func (a Action) Actions(key string) []Action {
	list, _ := a[key].([]Action)
	return list
}

// Branches returns the per-branch sequences of a parallel action.
func (a Action) Branches() [][]Action {
	b, _ := a[FieldBranches].([][]Action)
	return b
}

// Wait creates a wait action.
func Wait(seconds float64) Action {
	return Action{FieldType: ActionWait, FieldSeconds: seconds}
}

// MarkNode creates the lightweight marker emitted before a named node.
func MarkNode(name string) Action {
	return Action{FieldType: ActionMarkNode, FieldName: name}
}

// Guard wraps actions in a runtime-evaluated edge guard.
func Guard(g *graph.Guard, actions []Action) Action {
	a := Action{
		FieldType:    ActionGuard,
		FieldVar:     g.ConditionVar,
		FieldEquals:  g.ConditionEquals,
		FieldIfFalse: g.IfFalse(),
		FieldActions: nonNil(actions),
	}
	if g.IfFalse() != graph.IfFalseWaitUntilTrue {
		return a
	}

	switch g.StopKind() {
	case graph.StopGlobalVar:
		a[FieldStopWaiting] = map[string]any{
			FieldType:   graph.StopGlobalVar,
			FieldVar:    g.StopVar,
			FieldEquals: g.StopEquals,
		}
	case graph.StopNodeReached:
		a[FieldStopWaiting] = map[string]any{
			FieldType: graph.StopNodeReached,
			FieldName: g.StopNodeName,
		}
	case graph.StopTimeout:
		seconds := 0.0
		if g.StopTimeoutSeconds != nil {
			seconds = *g.StopTimeoutSeconds
		}
		a[FieldStopWaiting] = map[string]any{
			FieldType:    graph.StopTimeout,
			FieldSeconds: seconds,
		}
	}
	return a
}

func nonNil(actions []Action) []Action {
	if actions == nil {
		return []Action{}
	}
	return actions
}
