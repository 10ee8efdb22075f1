// Package condition checks and evaluates branch condition expressions.
//
// Conditions use JavaScript expression syntax and are evaluated with goja,
// the same engine the runtime scripting layer embeds.
package condition

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// ErrEmpty is returned for a blank condition.
var ErrEmpty = errors.New("condition is empty")

// Check reports whether expr parses as a single JavaScript expression.
// It never runs the expression.
func Check(expr string) error {
	src, err := wrap(expr)
	if err != nil {
		return err
	}
	if _, err := goja.Compile("condition", src, true); err != nil {
		return fmt.Errorf("invalid condition %q: %w", expr, err)
	}
	return nil
}

func wrap(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", ErrEmpty
	}
	// Parenthesised so statements like "x = 1; y" are rejected.
	return "(" + expr + "\n)", nil
}

// Engine evaluates conditions against a variable set.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]any
	mu        sync.Mutex
}

// New creates an Engine with no variables defined.
func New() *Engine {
	return &Engine{
		runtime:   goja.New(),
		variables: make(map[string]any),
	}
}

// SetVariable sets a variable accessible to conditions as a global
func (e *Engine) SetVariable(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]any) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// Eval evaluates expr and returns its JavaScript truthiness. Identifiers
// that were never set evaluate as undefined rather than failing.
func (e *Engine) Eval(expr string) (bool, error) {
	src, err := wrap(expr)
	if err != nil {
		return false, err
	}

	prog, err := goja.Compile("condition", src, true)
	if err != nil {
		return false, fmt.Errorf("invalid condition %q: %w", expr, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		v, err := e.runtime.RunProgram(prog)
		if err == nil {
			return v.ToBoolean(), nil
		}
		name, ok := undefinedReference(err)
		if !ok {
			return false, fmt.Errorf("condition eval error: %w", err)
		}
		if _, defined := e.variables[name]; defined {
			return false, fmt.Errorf("condition eval error: %w", err)
		}
		e.variables[name] = nil
		e.runtime.Set(name, goja.Undefined())
	}
}

// undefinedReference extracts the identifier from a goja ReferenceError.
func undefinedReference(err error) (string, bool) {
	var exc *goja.Exception
	if !errors.As(err, &exc) {
		return "", false
	}
	msg := exc.Value().String()
	const prefix = "ReferenceError: "
	const suffix = " is not defined"
	if !strings.HasPrefix(msg, prefix) || !strings.HasSuffix(msg, suffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(msg, prefix), suffix), true
}
