// Package validator statically analyses a cutscene graph before export.
// It never mutates the graph and never fails: every finding is returned as a
// diagnostic so the editor can show all problems at once.
package validator

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/cutscene-compiler/pkg/condition"
	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/graph"
)

// DefaultGlobalPrefix is the engine's global-scope marker. Guard variables
// are already resolved in global scope and must not carry it.
const DefaultGlobalPrefix = "global."

// DefaultRequiredParams maps node type to the parameters that must be non-empty.
var DefaultRequiredParams = map[string][]string{
	graph.TypeDialogue:      {"speaker", "text"},
	graph.TypeMove:          {"target"},
	graph.TypeCamera:        {"target"},
	graph.TypePlayAnimation: {"target", "animation"},
	graph.TypePlaySound:     {"sound"},
	graph.TypeSetVariable:   {"variable"},
	graph.TypeRunFunction:   {"function"},
	graph.TypeBranch:        {graph.ParamCondition},
	graph.TypeParallelStart: {graph.ParamBranches},
	graph.TypeParallelJoin:  {graph.ParamBranches},
}

// paramAliases lists legacy keys accepted in place of a required parameter.
var paramAliases = map[string]map[string]string{
	graph.TypeRunFunction: {"function": "functionName"},
}

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Severity core.Severity      `json:"severity"`
	Rule     string             `json:"rule"`
	Category core.ErrorCategory `json:"category"`
	NodeID   string             `json:"nodeId,omitempty"`
	EdgeID   string             `json:"edgeId,omitempty"`
	Message  string             `json:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", d.Severity, d.Rule, d.Message)
	if d.NodeID != "" {
		fmt.Fprintf(&b, " (node: %s)", d.NodeID)
	}
	if d.EdgeID != "" {
		fmt.Fprintf(&b, " (edge: %s)", d.EdgeID)
	}
	return b.String()
}

// Report contains the validation result in check order.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors returns true if any diagnostic blocks export.
func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity.IsBlocking() {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with the given severity.
func (r *Report) Count(sev core.Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics with the given severity.
func (r *Report) Filter(sev core.Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// ForNode returns the diagnostics naming the given node.
func (r *Report) ForNode(id string) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.NodeID == id {
			out = append(out, d)
		}
	}
	return out
}

// Options configures a Validator. Zero values select defaults.
type Options struct {
	// RequiredParams overrides DefaultRequiredParams per node type.
	RequiredParams map[string][]string
	// GlobalPrefix is the global-scope marker guard variables must not carry.
	GlobalPrefix string
	// CheckCondition reports whether a branch condition parses.
	CheckCondition func(expr string) error
}

// Validator validates cutscene graphs.
type Validator struct {
	required     map[string][]string
	globalPrefix string
	check        func(string) error
}

// New creates a new Validator.
func New(opts Options) *Validator {
	required := make(map[string][]string, len(DefaultRequiredParams)+len(opts.RequiredParams))
	for k, v := range DefaultRequiredParams {
		required[k] = v
	}
	for k, v := range opts.RequiredParams {
		required[k] = v
	}

	v := &Validator{
		required:     required,
		globalPrefix: opts.GlobalPrefix,
		check:        opts.CheckCondition,
	}
	if v.globalPrefix == "" {
		v.globalPrefix = DefaultGlobalPrefix
	}
	if v.check == nil {
		v.check = condition.Check
	}
	return v
}

// Validate runs every check with default options.
func Validate(g *graph.Graph) *Report {
	return New(Options{}).Validate(g)
}

// Validate runs every check against g and returns all findings.
func (v *Validator) Validate(g *graph.Graph) *Report {
	p := &pass{
		v:       v,
		idx:     graph.NewIndex(g),
		report:  &Report{},
		flagged: make(map[string]bool),
	}
	p.collectNodes()

	p.checkTerminals()
	p.checkNodeEdges()
	p.checkParams()
	p.checkParallelPairs()
	p.checkEdges()
	p.checkGuards()
	p.checkReachability()

	return p.report
}

// pass holds the state of a single Validate call.
type pass struct {
	v      *Validator
	idx    *graph.Index
	report *Report

	// nodes holds first occurrences in graph order.
	nodes  []*graph.Node
	starts []*graph.Node
	ends   []*graph.Node

	// flagged marks nodes that already carry a connectivity warning.
	flagged map[string]bool
}

func (p *pass) add(sev core.Severity, cat core.ErrorCategory, rule, nodeID, edgeID, format string, args ...any) {
	p.report.Diagnostics = append(p.report.Diagnostics, Diagnostic{
		Severity: sev,
		Rule:     rule,
		Category: cat,
		NodeID:   nodeID,
		EdgeID:   edgeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *pass) collectNodes() {
	g := p.idx.Graph
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if first, _ := p.idx.Node(n.ID); first != n {
			p.add(core.SeverityError, core.ErrCategoryStructural, "duplicate_node", n.ID, "",
				"node id %q is used by more than one node", n.ID)
			continue
		}
		if strings.TrimSpace(n.ID) == "" {
			p.add(core.SeverityError, core.ErrCategoryStructural, "node_id", "", "",
				"%s node has an empty id", n.Type)
		}
		p.nodes = append(p.nodes, n)
		switch n.Type {
		case graph.TypeStart:
			p.starts = append(p.starts, n)
		case graph.TypeEnd:
			p.ends = append(p.ends, n)
		}
	}
}
