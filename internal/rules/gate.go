// internal/rules/gate.go
package rules

// Gate pairs a condition with the reason reported when it fails. Gates are
// evaluated in declaration order so the first unmet requirement wins.
type Gate struct {
	Name      string
	Condition Node
	Reason    string
}

// FirstFailure evaluates gates in order against ctx and returns the reason
// of the first gate that does not pass. Evaluation errors fail the gate:
// a rule that cannot be evaluated never admits anyone.
func FirstFailure(gates []Gate, ctx Context) (string, bool) {
	for _, gate := range gates {
		ok, err := gate.Condition.Evaluate(ctx)
		if err != nil || !ok {
			return gate.Reason, true
		}
	}
	return "", false
}
