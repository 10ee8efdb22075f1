package compiler

import (
	"encoding/json"
	"strings"

	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

// shape is the control-flow role of a node. Node.Type is open, but every
// node falls into exactly one of these.
type shape interface{ isShape() }

type (
	passShape     struct{} // start, parallel_join: no action of their own
	terminalShape struct{} // end
	linearShape   struct{} // everything else
	branchShape   struct{}
	parallelShape struct{}
)

func (passShape) isShape()     {}
func (terminalShape) isShape() {}
func (linearShape) isShape()   {}
func (branchShape) isShape()   {}
func (parallelShape) isShape() {}

func classify(n *graph.Node) shape {
	switch n.Type {
	case graph.TypeStart, graph.TypeParallelJoin:
		return passShape{}
	case graph.TypeEnd:
		return terminalShape{}
	case graph.TypeBranch:
		return branchShape{}
	case graph.TypeParallelStart:
		return parallelShape{}
	default:
		return linearShape{}
	}
}

// linearAction translates a node 1:1 into {type, ...params}. Linkage ids
// are bookkeeping and never reach the engine.
func linearAction(n *graph.Node) Action {
	a := make(Action, len(n.Params)+1)
	for k, v := range n.Params {
		if k == graph.ParamJoinID || k == graph.ParamPairID {
			continue
		}
		a[k] = deepCopy(v)
	}
	if n.Type == graph.TypeRunFunction {
		normalizeRunFunction(a)
	}
	a[FieldType] = n.Type
	return a
}

// normalizeRunFunction maps the legacy function key onto the canonical one
// and decodes a JSON-encoded argument list. Arguments that fail to decode
// are dropped.
func normalizeRunFunction(a Action) {
	if legacy, ok := a[ParamFunctionLegacy]; ok {
		delete(a, ParamFunctionLegacy)
		if current, has := a[ParamFunction]; !has || graph.IsEmptyValue(current) {
			a[ParamFunction] = legacy
		}
	}

	raw, ok := a[ParamArgs].(string)
	if !ok {
		return
	}
	delete(a, ParamArgs)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return
	}
	if list, ok := decoded.([]any); ok {
		a[ParamArgs] = list
		return
	}
	a[ParamArgs] = []any{decoded}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = deepCopy(item)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, item := range t {
			s[i] = deepCopy(item)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
