package inference

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Eliminate answers the query with variable elimination in the network's
// own order.
//
// The network is pruned to the ancestors of the target and the evidence.
// The target's factor goes first, then one restricted factor per other
// variable. The last two factors are repeatedly joined and, while other
// factors remain, every variable none of them mentions is summed out of
// the product.
func Eliminate(net *network.Network, target network.VarID, value int, ev network.Evidence) (Result, error) {
	pruned := net.Prune(relevant(target, ev)...)

	factors := make([]*factor.Factor, 0, pruned.Len())
	factors = append(factors, factor.ForQuery(pruned, target, ev))
	for _, id := range pruned.Order() {
		if id != target {
			factors = append(factors, factor.FromVariable(pruned, id, ev))
		}
	}

	var ops factor.Ops
	for len(factors) > 1 {
		last := factors[len(factors)-1]
		prev := factors[len(factors)-2]
		factors = factors[:len(factors)-2]

		joined, jops, err := factor.Join(last, prev)
		if err != nil {
			return Result{}, err
		}
		ops = ops.Add(jops)

		if len(factors) > 0 {
			var eops factor.Ops
			joined, eops = joined.EliminateUnshared(factors)
			ops = ops.Add(eops)
		}
		factors = append(factors, joined)
	}

	final := factors[0]
	if !final.FullyEliminated() {
		var eops factor.Ops
		final, eops = final.EliminateAllBut(target)
		ops = ops.Add(eops)
	}
	if !final.Contains(target) {
		return Result{}, fmt.Errorf("final factor %v lost the query variable", final)
	}

	tv := pruned.Var(target)
	weights := make([]float64, tv.Card())
	for code := range weights {
		weights[code] = final.At(code)
	}
	p, nops, err := normalize(weights, value)
	if err != nil {
		return Result{}, err
	}
	return Result{Probability: p, Ops: ops.Add(nops)}, nil
}

// BestOrderEliminate prunes the network, reorders it by depth and domain
// size, then runs Eliminate on the reordered view.
func BestOrderEliminate(net *network.Network, target network.VarID, value int, ev network.Evidence) (Result, error) {
	keep := relevant(target, ev)
	ordered := net.Prune(keep...).BestOrder(keep...)
	return Eliminate(ordered, target, value, ev)
}

// relevant lists the target followed by the observed variables
func relevant(target network.VarID, ev network.Evidence) []network.VarID {
	ids := make([]network.VarID, 0, len(ev)+1)
	ids = append(ids, target)
	for id := range ev {
		ids = append(ids, id)
	}
	return ids
}
