package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Observation is one (variable, observed value) pair of the evidence
type Observation struct {
	Var   string
	Value string
}

// Query asks for P(Target = Value | Evidence) using Algorithm
type Query struct {
	Target    string
	Value     string
	Evidence  []Observation
	Algorithm inference.Algorithm
}

// String renders the query in input-file syntax
func (q Query) String() string {
	return fmt.Sprintf("P(%s=%s|%s),%d", q.Target, q.Value, joinObservations(q.Evidence), int(q.Algorithm))
}

// Key is a canonical form of the query: evidence is sorted by variable
// name, so queries that differ only in evidence order share a key.
func (q Query) Key() string {
	ev := append([]Observation(nil), q.Evidence...)
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].Var < ev[j].Var })
	return Query{Target: q.Target, Value: q.Value, Evidence: ev, Algorithm: q.Algorithm}.String()
}

// Resolved is a query bound to the variables of a network
type Resolved struct {
	Target   network.VarID
	Value    int
	Evidence network.Evidence
}

// Resolve binds the query's names and values to codes of net.
// The same variable may be observed twice only with the same value.
func (q Query) Resolve(net *network.Network) (Resolved, error) {
	tv, err := net.Lookup(q.Target)
	if err != nil {
		return Resolved{}, fmt.Errorf("query %s: %w", q, err)
	}
	value, ok := tv.Code(q.Value)
	if !ok {
		return Resolved{}, fmt.Errorf("query %s: %q is not a value of %s: %w", q, q.Value, q.Target, internalerr.ErrLookup)
	}

	ev := make(network.Evidence, len(q.Evidence))
	for _, o := range q.Evidence {
		v, err := net.Lookup(o.Var)
		if err != nil {
			return Resolved{}, fmt.Errorf("query %s: evidence: %w", q, err)
		}
		code, ok := v.Code(o.Value)
		if !ok {
			return Resolved{}, fmt.Errorf("query %s: %q is not a value of %s: %w", q, o.Value, o.Var, internalerr.ErrLookup)
		}
		if prev, seen := ev[v.ID()]; seen && prev != code {
			return Resolved{}, fmt.Errorf("query %s: %s observed with two values: %w", q, o.Var, internalerr.ErrFormat)
		}
		ev[v.ID()] = code
	}
	return Resolved{Target: tv.ID(), Value: value, Evidence: ev}, nil
}

// Evaluate answers the query on net with the selected algorithm.
//
//	1: enumeration, with the target prepended to the observed variables
//	2: variable elimination in the network's order
//	3: variable elimination after BestOrder
func (q Query) Evaluate(net *network.Network) (inference.Result, error) {
	r, err := q.Resolve(net)
	if err != nil {
		return inference.Result{}, err
	}
	solve, err := inference.For(q.Algorithm)
	if err != nil {
		return inference.Result{}, fmt.Errorf("query %s: %w", q, err)
	}
	res, err := solve(net, r.Target, r.Value, r.Evidence)
	if err != nil {
		return inference.Result{}, fmt.Errorf("query %s: %w", q, err)
	}
	return res, nil
}

func joinObservations(obs []Observation) string {
	parts := make([]string, len(obs))
	for i, o := range obs {
		parts[i] = o.Var + "=" + o.Value
	}
	return strings.Join(parts, ",")
}
