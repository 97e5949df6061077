package inference

import (
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Enumerate answers the query by summing the full joint distribution over
// every assignment of the hidden variables, once per value of the target,
// then normalizing. The whole network is walked; nothing is pruned.
//
// Each full assignment costs one multiplication per variable but the
// first; each assignment after the first of a target value costs a sum.
func Enumerate(net *network.Network, target network.VarID, value int, ev network.Evidence) (Result, error) {
	tv := net.Var(target)

	var hidden []network.VarID
	for _, id := range net.Order() {
		if id != target && !ev.Has(id) {
			hidden = append(hidden, id)
		}
	}

	codes := make([]int, net.ArenaLen())
	for id, code := range ev {
		codes[id] = code
	}

	var ops factor.Ops
	weights := make([]float64, tv.Card())
	it := newAssignments(net, hidden)
	for t := range weights {
		if observed, ok := ev[target]; ok && observed != t {
			continue
		}
		codes[target] = t

		it.Reset()
		first := true
		for it.Next() {
			it.Apply(codes)
			weights[t] += joint(net, codes)
			ops.Multiplies += net.Len() - 1
			if !first {
				ops.Sums++
			}
			first = false
		}
	}

	p, nops, err := normalize(weights, value)
	if err != nil {
		return Result{}, err
	}
	return Result{Probability: p, Ops: ops.Add(nops)}, nil
}

// joint multiplies every variable's CPT entry under a full assignment
func joint(net *network.Network, codes []int) float64 {
	p := 1.0
	for i := 0; i < net.Len(); i++ {
		v := net.At(i)
		row := make([]int, 0, v.NumParents()+1)
		for j := 0; j < v.NumParents(); j++ {
			row = append(row, codes[v.Parent(j)])
		}
		row = append(row, codes[v.ID()])
		p *= v.Prob(row)
	}
	return p
}

// assignments iterates over every joint assignment of a set of variables,
// last variable fastest. It is restartable with Reset.
type assignments struct {
	vars    []network.VarID
	cards   []int
	codes   []int
	started bool
	done    bool
}

func newAssignments(net *network.Network, vars []network.VarID) *assignments {
	it := &assignments{
		vars:  vars,
		cards: make([]int, len(vars)),
		codes: make([]int, len(vars)),
	}
	for i, id := range vars {
		it.cards[i] = net.Var(id).Card()
	}
	return it
}

// Reset rewinds the iterator to the first assignment
func (it *assignments) Reset() {
	for i := range it.codes {
		it.codes[i] = 0
	}
	it.started = false
	it.done = false
}

// Next moves to the next assignment and reports whether there is one.
// An empty variable set has exactly one (empty) assignment.
func (it *assignments) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		return true
	}
	for i := len(it.codes) - 1; i >= 0; i-- {
		it.codes[i]++
		if it.codes[i] < it.cards[i] {
			return true
		}
		it.codes[i] = 0
	}
	it.done = true
	return false
}

// Apply writes the current assignment into codes indexed by VarID
func (it *assignments) Apply(codes []int) {
	for i, id := range it.vars {
		codes[id] = it.codes[i]
	}
}
