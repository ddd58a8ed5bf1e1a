// internal/rules/rules.go
package rules

import (
	"fmt"
	"strings"
)

// Operator names the comparison a simple condition performs.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

// Context carries the field values a condition tree is evaluated against.
type Context map[string]interface{}

// Node is one node of a condition tree.
type Node interface {
	Evaluate(ctx Context) (bool, error)
}

// Simple compares a single context field against a value.
type Simple struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// And passes when every child passes. An empty And passes.
type And struct {
	Children []Node
}

// Or passes when any child passes. An empty Or fails.
type Or struct {
	Children []Node
}

// Not inverts its child.
type Not struct {
	Child Node
}

func (n *And) Evaluate(ctx Context) (bool, error) {
	for _, child := range n.Children {
		ok, err := child.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (n *Or) Evaluate(ctx Context) (bool, error) {
	for _, child := range n.Children {
		ok, err := child.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (n *Not) Evaluate(ctx Context) (bool, error) {
	if n.Child == nil {
		return false, fmt.Errorf("not node has no child")
	}
	ok, err := n.Child.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n *Simple) Evaluate(ctx Context) (bool, error) {
	value, exists := ctx[n.Field]
	if !exists {
		return false, fmt.Errorf("field %q not present in context", n.Field)
	}

	switch n.Operator {
	case OpEq:
		return equals(value, n.Value), nil
	case OpNeq:
		return !equals(value, n.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		left, ok := toFloat(value)
		if !ok {
			return false, fmt.Errorf("field %q is not numeric", n.Field)
		}
		right, ok := toFloat(n.Value)
		if !ok {
			return false, fmt.Errorf("comparison value for %q is not numeric", n.Field)
		}
		switch n.Operator {
		case OpGt:
			return left > right, nil
		case OpGte:
			return left >= right, nil
		case OpLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpIn:
		return contains(n.Value, value), nil
	case OpContains:
		return contains(value, n.Value), nil
	default:
		return false, fmt.Errorf("unknown operator %q", n.Operator)
	}
}

// equals compares numerically when both sides are numeric, otherwise by
// direct equality.
func equals(a, b interface{}) bool {
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return a == b
}

// contains reports whether haystack holds needle: substring match for
// strings (case-insensitive), membership for slices.
func contains(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(h), strings.ToLower(n))
	case []string:
		for _, item := range h {
			if equals(item, needle) {
				return true
			}
		}
	case []interface{}:
		for _, item := range h {
			if equals(item, needle) {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
