// Package inference answers posterior queries over a network exactly.
//
// Three algorithms are provided and always agree on the probability;
// they differ in the number of sums and multiplications performed:
//
//	Enumeration           sums the full joint over every hidden assignment
//	VariableElimination   joins restricted CPT factors and sums out early
//	BestOrderElimination  variable elimination after reordering by depth
//	                      and domain size
package inference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Algorithm selects how a query is answered
type Algorithm int

const (
	Enumeration          Algorithm = 1
	VariableElimination  Algorithm = 2
	BestOrderElimination Algorithm = 3
)

// ParseAlgorithm reads a selector such as "2"
func ParseAlgorithm(s string) (Algorithm, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("algorithm %q: %w", s, internalerr.ErrFormat)
	}
	a := Algorithm(n)
	if !a.Valid() {
		return 0, fmt.Errorf("algorithm %d: %w", n, internalerr.ErrFormat)
	}
	return a, nil
}

// Valid reports whether a is one of the known selectors
func (a Algorithm) Valid() bool {
	return a >= Enumeration && a <= BestOrderElimination
}

func (a Algorithm) String() string {
	switch a {
	case Enumeration:
		return "enumeration"
	case VariableElimination:
		return "elimination"
	case BestOrderElimination:
		return "best-order"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// Result is the answer to one query
type Result struct {
	Probability float64
	Ops         factor.Ops
}

// Func answers P(target = value | ev)
type Func func(net *network.Network, target network.VarID, value int, ev network.Evidence) (Result, error)

// For returns the implementation of an algorithm
func For(a Algorithm) (Func, error) {
	switch a {
	case Enumeration:
		return Enumerate, nil
	case VariableElimination:
		return Eliminate, nil
	case BestOrderElimination:
		return BestOrderEliminate, nil
	default:
		return nil, fmt.Errorf("algorithm %d: %w", int(a), internalerr.ErrFormat)
	}
}

// normalize turns unnormalized weights over the target's domain into the
// rounded posterior of value. Adding up the domain costs card-1 sums.
func normalize(weights []float64, value int) (float64, factor.Ops, error) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	ops := factor.Ops{Sums: len(weights) - 1}
	if total == 0 {
		return 0, ops, internalerr.ErrInconsistentEvidence
	}
	return network.Round(weights[value] / total), ops, nil
}
