// internal/rules/rules_test.go
package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Simple conditions
// ==========================

func TestSimple_Operators(t *testing.T) {
	ctx := Context{
		"yearsInBusiness": 2.5,
		"annualRevenue":   1200000,
		"industry":        "Manufacturing",
		"products":        []string{"invoice_financing", "working_capital"},
	}

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"gte passes", &Simple{Field: "yearsInBusiness", Operator: OpGte, Value: 2.0}, true},
		{"gte fails", &Simple{Field: "yearsInBusiness", Operator: OpGte, Value: 3.0}, false},
		{"gt on boundary fails", &Simple{Field: "yearsInBusiness", Operator: OpGt, Value: 2.5}, false},
		{"lt passes", &Simple{Field: "yearsInBusiness", Operator: OpLt, Value: 5}, true},
		{"lte on boundary passes", &Simple{Field: "yearsInBusiness", Operator: OpLte, Value: 2.5}, true},
		{"int field vs float value", &Simple{Field: "annualRevenue", Operator: OpGte, Value: 1000000.0}, true},
		{"eq numeric cross-type", &Simple{Field: "annualRevenue", Operator: OpEq, Value: 1200000.0}, true},
		{"eq string", &Simple{Field: "industry", Operator: OpEq, Value: "Manufacturing"}, true},
		{"neq string", &Simple{Field: "industry", Operator: OpNeq, Value: "Retail"}, true},
		{"contains substring case-insensitive", &Simple{Field: "industry", Operator: OpContains, Value: "manufact"}, true},
		{"contains misses", &Simple{Field: "industry", Operator: OpContains, Value: "retail"}, false},
		{"in slice", &Simple{Field: "industry", Operator: OpIn, Value: []string{"Retail", "Manufacturing"}}, true},
		{"in slice misses", &Simple{Field: "industry", Operator: OpIn, Value: []string{"Retail"}}, false},
		{"slice field contains member", &Simple{Field: "products", Operator: OpContains, Value: "working_capital"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimple_Errors(t *testing.T) {
	ctx := Context{"industry": "Retail"}

	tests := []struct {
		name string
		node Node
	}{
		{"missing field", &Simple{Field: "creditScore", Operator: OpGte, Value: 700}},
		{"non-numeric field for ordering", &Simple{Field: "industry", Operator: OpGt, Value: 1}},
		{"non-numeric value for ordering", &Simple{Field: "industry", Operator: OpLt, Value: "x"}},
		{"unknown operator", &Simple{Field: "industry", Operator: Operator("matches"), Value: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.node.Evaluate(ctx)
			assert.Error(t, err)
		})
	}
}

// ==========================
// Composite nodes
// ==========================

func TestComposite_Evaluation(t *testing.T) {
	ctx := Context{
		"yearsInBusiness": 3.0,
		"annualRevenue":   800000,
	}

	vintage := &Simple{Field: "yearsInBusiness", Operator: OpGte, Value: 2.0}
	revenue := &Simple{Field: "annualRevenue", Operator: OpGte, Value: 1000000}

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"and requires all", &And{Children: []Node{vintage, revenue}}, false},
		{"and all pass", &And{Children: []Node{vintage}}, true},
		{"empty and passes", &And{}, true},
		{"or requires one", &Or{Children: []Node{revenue, vintage}}, true},
		{"or none pass", &Or{Children: []Node{revenue}}, false},
		{"empty or fails", &Or{}, false},
		{"not inverts", &Not{Child: revenue}, true},
		{"nested tree", &And{Children: []Node{
			vintage,
			&Or{Children: []Node{
				revenue,
				&Not{Child: &Simple{Field: "annualRevenue", Operator: OpLt, Value: 500000}},
			}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComposite_PropagatesErrors(t *testing.T) {
	broken := &Simple{Field: "missing", Operator: OpEq, Value: 1}

	_, err := (&And{Children: []Node{broken}}).Evaluate(Context{})
	assert.Error(t, err)

	_, err = (&Or{Children: []Node{broken}}).Evaluate(Context{})
	assert.Error(t, err)

	_, err = (&Not{}).Evaluate(Context{})
	assert.Error(t, err)
}

// ==========================
// Gates
// ==========================

func TestFirstFailure(t *testing.T) {
	gates := []Gate{
		{
			Name:      "minimum_vintage",
			Condition: &Simple{Field: "yearsInBusiness", Operator: OpGte, Value: 2.0},
			Reason:    "Requires 2+ years in business",
		},
		{
			Name:      "minimum_revenue",
			Condition: &Simple{Field: "annualRevenue", Operator: OpGte, Value: 1000000},
			Reason:    "Requires 10L+ annual revenue",
		},
	}

	t.Run("all gates pass", func(t *testing.T) {
		reason, failed := FirstFailure(gates, Context{"yearsInBusiness": 4.0, "annualRevenue": 2000000})
		assert.False(t, failed)
		assert.Empty(t, reason)
	})

	t.Run("first failing gate wins", func(t *testing.T) {
		reason, failed := FirstFailure(gates, Context{"yearsInBusiness": 1.0, "annualRevenue": 0})
		assert.True(t, failed)
		assert.Equal(t, "Requires 2+ years in business", reason)
	})

	t.Run("later gate fails alone", func(t *testing.T) {
		reason, failed := FirstFailure(gates, Context{"yearsInBusiness": 4.0, "annualRevenue": 500000})
		assert.True(t, failed)
		assert.Equal(t, "Requires 10L+ annual revenue", reason)
	})

	t.Run("evaluation error fails the gate", func(t *testing.T) {
		reason, failed := FirstFailure(gates, Context{"annualRevenue": 2000000})
		assert.True(t, failed)
		assert.Equal(t, "Requires 2+ years in business", reason)
	})
}
