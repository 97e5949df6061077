package network

import (
	"fmt"
	"math"
	"strings"
)

// Precision is the number of decimal places probabilities are rounded to
const Precision = 5

// VarID addresses a variable inside the arena of its network.
// IDs are stable for the lifetime of the network and are shared by
// every pruned or reordered view of it.
type VarID int

// Variable is a named discrete random variable with an ordered domain,
// an ordered parent list and a conditional probability table.
//
// Values are addressed by their code: the position in the domain.
// The CPT is stored densely in mixed radix over (parents..., own value)
// with the own value varying fastest.
type Variable struct {
	id      VarID
	name    string
	values  []string
	codes   map[string]int
	parents []VarID
	cards   []int // cards of parents in order, then own card
	cpt     []float64
	filled  []bool // per parent combination, used while building
	depth   int
}

// ID returns the arena index of the variable
func (v *Variable) ID() VarID { return v.id }

// Name returns the variable name
func (v *Variable) Name() string { return v.name }

// Card returns the size of the domain
func (v *Variable) Card() int { return len(v.values) }

// Value returns the label for a value code
func (v *Variable) Value(code int) string { return v.values[code] }

// Values returns a copy of the ordered domain
func (v *Variable) Values() []string {
	out := make([]string, len(v.values))
	copy(out, v.values)
	return out
}

// Code returns the code of a value label
func (v *Variable) Code(value string) (int, bool) {
	code, ok := v.codes[value]
	return code, ok
}

// NumParents returns the number of parents (0 for roots)
func (v *Variable) NumParents() int { return len(v.parents) }

// Parent returns the i-th parent
func (v *Variable) Parent(i int) VarID { return v.parents[i] }

// Parents returns a copy of the parent list
func (v *Variable) Parents() []VarID {
	out := make([]VarID, len(v.parents))
	copy(out, v.parents)
	return out
}

// Depth is 0 for roots, otherwise 1 + the maximum depth of the parents
func (v *Variable) Depth() int { return v.depth }

// Prob returns the CPT entry for the given codes: one per parent in
// parent order, followed by the variable's own value code.
func (v *Variable) Prob(codes []int) float64 {
	idx := 0
	for i, c := range codes {
		idx = idx*v.cards[i] + c
	}
	return v.cpt[idx]
}

// rows returns the number of parent combinations
func (v *Variable) rows() int {
	return len(v.cpt) / len(v.values)
}

// rowIndex encodes parent codes into a row number
func (v *Variable) rowIndex(parentCodes []int) int {
	idx := 0
	for i, c := range parentCodes {
		idx = idx*v.cards[i] + c
	}
	return idx
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s{%s}", v.name, strings.Join(v.values, ","))
}

// Round rounds p to Precision decimal places
func Round(p float64) float64 {
	scale := math.Pow10(Precision)
	return math.Round(p*scale) / scale
}
