package network

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// arena owns the variables of a network. It is immutable once built and
// shared by every view derived from the network.
type arena struct {
	vars   []*Variable
	byName map[string]VarID
}

// Network is an ordered view over an arena of variables. The order is
// topological and is the default enumeration and elimination order.
// Networks are values: Prune and BestOrder return new views and never
// modify the receiver.
type Network struct {
	arena *arena
	order []VarID
}

// Evidence maps observed variables to their value codes
type Evidence map[VarID]int

// Has reports whether v is observed
func (e Evidence) Has(v VarID) bool {
	_, ok := e[v]
	return ok
}

// Len returns the number of variables in this view
func (n *Network) Len() int { return len(n.order) }

// ArenaLen returns the number of variables in the underlying arena.
// Every VarID of the network is below this bound.
func (n *Network) ArenaLen() int { return len(n.arena.vars) }

// At returns the i-th variable of the view
func (n *Network) At(i int) *Variable { return n.arena.vars[n.order[i]] }

// Var returns the variable with the given id
func (n *Network) Var(id VarID) *Variable { return n.arena.vars[id] }

// Order returns a copy of the variable order
func (n *Network) Order() []VarID {
	out := make([]VarID, len(n.order))
	copy(out, n.order)
	return out
}

// Lookup finds a variable by name. Variables dropped from this view are
// still found, since names resolve against the arena.
func (n *Network) Lookup(name string) (*Variable, error) {
	id, ok := n.arena.byName[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, internalerr.ErrLookup)
	}
	return n.arena.vars[id], nil
}

// Contains reports whether the view includes v
func (n *Network) Contains(v VarID) bool {
	return n.IndexOf(v) >= 0
}

// IndexOf returns the position of v in the view, or -1
func (n *Network) IndexOf(v VarID) int {
	for i, id := range n.order {
		if id == v {
			return i
		}
	}
	return -1
}

// Names returns the variable names in view order
func (n *Network) Names() []string {
	names := make([]string, len(n.order))
	for i, id := range n.order {
		names[i] = n.arena.vars[id].name
	}
	return names
}

// MaxDepth returns the largest depth of any variable in the view
func (n *Network) MaxDepth() int {
	deepest := 0
	for _, id := range n.order {
		if d := n.arena.vars[id].depth; d > deepest {
			deepest = d
		}
	}
	return deepest
}

func (n *Network) String() string {
	return "[" + strings.Join(n.Names(), ",") + "]"
}

// Prune returns a view holding only the given variables and their
// ancestors, in the receiver's relative order.
func (n *Network) Prune(keep ...VarID) *Network {
	relevant := make([]bool, len(n.arena.vars))
	stack := append([]VarID(nil), keep...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if relevant[id] {
			continue
		}
		relevant[id] = true
		stack = append(stack, n.arena.vars[id].parents...)
	}

	order := make([]VarID, 0, len(n.order))
	for _, id := range n.order {
		if relevant[id] {
			order = append(order, id)
		}
	}
	return &Network{arena: n.arena, order: order}
}

// BestOrder reorders the view for variable elimination. Variables are
// grouped by depth, shallowest first. Buckets no deeper than the deepest
// member of relevant keep all their variables; deeper buckets keep only
// members of relevant. Within a bucket, variables with larger domains
// come first and ties keep their current order.
func (n *Network) BestOrder(relevant ...VarID) *Network {
	isRelevant := make(map[VarID]bool, len(relevant))
	maxDepth := 0
	for _, id := range relevant {
		isRelevant[id] = true
		if d := n.arena.vars[id].depth; d > maxDepth {
			maxDepth = d
		}
	}

	buckets := make(map[int][]VarID)
	depths := make([]int, 0)
	for _, id := range n.order {
		d := n.arena.vars[id].depth
		if _, seen := buckets[d]; !seen {
			depths = append(depths, d)
		}
		buckets[d] = append(buckets[d], id)
	}
	sort.Ints(depths)

	order := make([]VarID, 0, len(n.order))
	for _, d := range depths {
		bucket := buckets[d]
		sort.SliceStable(bucket, func(i, j int) bool {
			return n.arena.vars[bucket[i]].Card() > n.arena.vars[bucket[j]].Card()
		})
		for _, id := range bucket {
			if d <= maxDepth || isRelevant[id] {
				order = append(order, id)
			}
		}
	}
	return &Network{arena: n.arena, order: order}
}
