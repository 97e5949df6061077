// Package factor implements the table algebra used by variable
// elimination: restriction of CPTs to evidence, join and sum-out.
//
// A Factor is a dense table over its scope. Rows are addressed in mixed
// radix with the first scope variable varying slowest, so a row key is
// the tuple of value codes of the scope, one per position.
package factor

import (
	"fmt"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// MaxCells bounds the number of rows a single factor may hold
const MaxCells = 1 << 24

// Ops counts the arithmetic performed by an algebra operation
type Ops struct {
	Sums       int
	Multiplies int
}

// Add returns the element-wise sum of two counters
func (o Ops) Add(other Ops) Ops {
	return Ops{
		Sums:       o.Sums + other.Sums,
		Multiplies: o.Multiplies + other.Multiplies,
	}
}

func (o Ops) String() string {
	return fmt.Sprintf("sums=%d multiplies=%d", o.Sums, o.Multiplies)
}

// Factor maps assignments of its scope to non-negative reals
type Factor struct {
	scope []network.VarID
	cards []int
	table []float64
	names []string
}

// Scope returns a copy of the hidden variables of the factor
func (f *Factor) Scope() []network.VarID {
	out := make([]network.VarID, len(f.scope))
	copy(out, f.scope)
	return out
}

// Contains reports whether v is in the scope
func (f *Factor) Contains(v network.VarID) bool {
	return f.position(v) >= 0
}

// Len returns the number of rows
func (f *Factor) Len() int { return len(f.table) }

// FullyEliminated reports whether at most one variable is left in scope
func (f *Factor) FullyEliminated() bool { return len(f.scope) <= 1 }

// At returns the value for one code per scope position
func (f *Factor) At(codes ...int) float64 {
	if len(codes) != len(f.scope) {
		panic(fmt.Sprintf("factor: %d codes for scope of %d", len(codes), len(f.scope)))
	}
	idx := 0
	for i, c := range codes {
		idx = idx*f.cards[i] + c
	}
	return f.table[idx]
}

func (f *Factor) position(v network.VarID) int {
	for i, id := range f.scope {
		if id == v {
			return i
		}
	}
	return -1
}

func (f *Factor) String() string {
	var sb strings.Builder
	sb.WriteString("Factor(")
	sb.WriteString(strings.Join(f.names, ","))
	sb.WriteString(")")
	codes := make([]int, len(f.scope))
	for _, p := range f.table {
		sb.WriteString(" ")
		for i, c := range codes {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(fmt.Sprint(c))
		}
		fmt.Fprintf(&sb, "=%g", p)
		advance(codes, f.cards)
	}
	return sb.String()
}

// FromVariable restricts the CPT of v to the evidence. The scope is every
// parent of v, then v itself, that is not observed.
func FromVariable(net *network.Network, v network.VarID, ev network.Evidence) *Factor {
	return restrict(net, v, ev, false)
}

// ForQuery builds the factor of the query variable. It is FromVariable
// except that v stays in scope even when observed; rows that disagree
// with the observed value are zero.
func ForQuery(net *network.Network, v network.VarID, ev network.Evidence) *Factor {
	return restrict(net, v, ev, true)
}

func restrict(net *network.Network, id network.VarID, ev network.Evidence, keepSelf bool) *Factor {
	v := net.Var(id)
	members := append(v.Parents(), id)

	f := &Factor{}
	hiddenAt := make([]int, len(members)) // member -> scope position, -1 when observed
	for i, m := range members {
		self := i == len(members)-1
		if ev.Has(m) && !(self && keepSelf) {
			hiddenAt[i] = -1
			continue
		}
		hiddenAt[i] = len(f.scope)
		f.scope = append(f.scope, m)
		f.cards = append(f.cards, net.Var(m).Card())
		f.names = append(f.names, net.Var(m).Name())
	}
	f.table = make([]float64, cells(f.cards))

	codes := make([]int, len(members))
	hidden := make([]int, len(f.scope))
	for row := range f.table {
		consistent := true
		for i, m := range members {
			if pos := hiddenAt[i]; pos >= 0 {
				codes[i] = hidden[pos]
				if observed, ok := ev[m]; ok && observed != codes[i] {
					consistent = false
				}
			} else {
				codes[i] = ev[m]
			}
		}
		if consistent {
			f.table[row] = v.Prob(codes)
		}
		advance(hidden, f.cards)
	}
	return f
}

// Join returns the product of a and b. The scope is a's scope followed by
// the variables of b not in a. Rows agreeing on every shared variable are
// multiplied; with no shared variables every row of a meets every row of
// b. Each emitted row costs one multiplication.
func Join(a, b *Factor) (*Factor, Ops, error) {
	out := &Factor{
		scope: append([]network.VarID(nil), a.scope...),
		cards: append([]int(nil), a.cards...),
		names: append([]string(nil), a.names...),
	}
	for i, v := range b.scope {
		if a.position(v) < 0 {
			out.scope = append(out.scope, v)
			out.cards = append(out.cards, b.cards[i])
			out.names = append(out.names, b.names[i])
		}
	}

	size := 1
	for _, c := range out.cards {
		if size > MaxCells/c {
			return nil, Ops{}, fmt.Errorf("join of %v and %v: %w", a.names, b.names, internalerr.ErrFactorTooLarge)
		}
		size *= c
	}

	aStride := strides(a, out.scope)
	bStride := strides(b, out.scope)
	out.table = make([]float64, size)

	codes := make([]int, len(out.scope))
	ai, bi := 0, 0
	for row := range out.table {
		out.table[row] = a.table[ai] * b.table[bi]
		ai, bi = step(codes, out.cards, aStride, bStride, ai, bi)
	}
	return out, Ops{Multiplies: size}, nil
}

// SumOut marginalizes the variables at the given scope positions. Rows are
// grouped by their projection on the retained positions, whose order is
// preserved. Each addition beyond the first in a group is counted.
func (f *Factor) SumOut(positions ...int) (*Factor, Ops) {
	drop := make([]bool, len(f.scope))
	for _, p := range positions {
		drop[p] = true
	}

	out := &Factor{}
	for i, v := range f.scope {
		if !drop[i] {
			out.scope = append(out.scope, v)
			out.cards = append(out.cards, f.cards[i])
			out.names = append(out.names, f.names[i])
		}
	}
	out.table = make([]float64, cells(out.cards))

	// stride of each source position within the result, zero when dropped
	target := make([]int, len(f.scope))
	stride := 1
	for i := len(f.scope) - 1; i >= 0; i-- {
		if !drop[i] {
			target[i] = stride
			stride *= f.cards[i]
		}
	}

	var ops Ops
	seen := make([]bool, len(out.table))
	codes := make([]int, len(f.scope))
	ti := 0
	for _, p := range f.table {
		if seen[ti] {
			ops.Sums++
		}
		seen[ti] = true
		out.table[ti] += p
		ti, _ = step(codes, f.cards, target, nil, ti, 0)
	}
	return out, ops
}

// EliminateAllBut sums out every scope variable except v
func (f *Factor) EliminateAllBut(v network.VarID) (*Factor, Ops) {
	var positions []int
	for i, id := range f.scope {
		if id != v {
			positions = append(positions, i)
		}
	}
	return f.SumOut(positions...)
}

// EliminateUnshared sums out every scope variable that appears in the
// scope of none of the others, since no later join can need it.
func (f *Factor) EliminateUnshared(others []*Factor) (*Factor, Ops) {
	var positions []int
	for i, id := range f.scope {
		shared := false
		for _, o := range others {
			if o.Contains(id) {
				shared = true
				break
			}
		}
		if !shared {
			positions = append(positions, i)
		}
	}
	return f.SumOut(positions...)
}

// cells returns the number of rows of a table with the given cards
func cells(cards []int) int {
	n := 1
	for _, c := range cards {
		n *= c
	}
	return n
}

// strides returns, for each variable of scope, its stride in f
// (zero when f does not contain it)
func strides(f *Factor, scope []network.VarID) []int {
	own := make([]int, len(f.scope))
	s := 1
	for i := len(f.scope) - 1; i >= 0; i-- {
		own[i] = s
		s *= f.cards[i]
	}
	out := make([]int, len(scope))
	for i, v := range scope {
		if p := f.position(v); p >= 0 {
			out[i] = own[p]
		}
	}
	return out
}

// advance moves codes to the next assignment, last position fastest
func advance(codes, cards []int) {
	for i := len(codes) - 1; i >= 0; i-- {
		codes[i]++
		if codes[i] < cards[i] {
			return
		}
		codes[i] = 0
	}
}

// step advances codes like advance and keeps two derived row indices in
// sync. A nil stride slice leaves its index untouched.
func step(codes, cards, aStride, bStride []int, ai, bi int) (int, int) {
	for i := len(codes) - 1; i >= 0; i-- {
		codes[i]++
		if aStride != nil {
			ai += aStride[i]
		}
		if bStride != nil {
			bi += bStride[i]
		}
		if codes[i] < cards[i] {
			return ai, bi
		}
		codes[i] = 0
		if aStride != nil {
			ai -= aStride[i] * cards[i]
		}
		if bStride != nil {
			bi -= bStride[i] * cards[i]
		}
	}
	return ai, bi
}
