package network

import (
	"fmt"
	"math"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Tolerance is the slack allowed when a CPT row is checked for summing to one
const Tolerance = 1e-5

// Builder assembles a Network. Variables are declared first (the
// declaration order is the topological order), then defined with their
// domain and parents, then their CPT rows are added.
type Builder struct {
	vars    []*Variable
	byName  map[string]VarID
	defined []bool
}

// NewBuilder creates an empty network builder
func NewBuilder() *Builder {
	return &Builder{
		byName: make(map[string]VarID),
	}
}

// Declare registers variable names in topological order
func (b *Builder) Declare(names ...string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty variable name: %w", internalerr.ErrFormat)
		}
		if _, dup := b.byName[name]; dup {
			return fmt.Errorf("variable %q declared twice: %w", name, internalerr.ErrFormat)
		}
		id := VarID(len(b.vars))
		b.vars = append(b.vars, &Variable{id: id, name: name})
		b.defined = append(b.defined, false)
		b.byName[name] = id
	}
	return nil
}

// Define sets the domain and parents of a declared variable.
// Parents must be declared before the variable itself.
func (b *Builder) Define(name string, values []string, parents []string) error {
	v, err := b.lookup(name)
	if err != nil {
		return err
	}
	if b.defined[v.id] {
		return fmt.Errorf("variable %q defined twice: %w", name, internalerr.ErrFormat)
	}
	if len(values) == 0 {
		return fmt.Errorf("variable %q has no values: %w", name, internalerr.ErrFormat)
	}

	v.values = make([]string, 0, len(values))
	v.codes = make(map[string]int, len(values))
	for _, val := range values {
		val = strings.TrimSpace(val)
		if val == "" {
			return fmt.Errorf("variable %q has an empty value: %w", name, internalerr.ErrFormat)
		}
		if _, dup := v.codes[val]; dup {
			return fmt.Errorf("variable %q repeats value %q: %w", name, val, internalerr.ErrFormat)
		}
		v.codes[val] = len(v.values)
		v.values = append(v.values, val)
	}

	v.parents = make([]VarID, 0, len(parents))
	v.cards = make([]int, 0, len(parents)+1)
	rows := 1
	for _, pname := range parents {
		p, err := b.lookup(strings.TrimSpace(pname))
		if err != nil {
			return fmt.Errorf("parent of %q: %w", name, err)
		}
		if p.id >= v.id {
			return fmt.Errorf("parent %q of %q is not declared before it: %w", p.name, name, internalerr.ErrFormat)
		}
		if !b.defined[p.id] {
			return fmt.Errorf("parent %q of %q is not defined yet: %w", p.name, name, internalerr.ErrFormat)
		}
		for _, seen := range v.parents {
			if seen == p.id {
				return fmt.Errorf("parent %q of %q listed twice: %w", p.name, name, internalerr.ErrFormat)
			}
		}
		v.parents = append(v.parents, p.id)
		v.cards = append(v.cards, p.Card())
		rows *= p.Card()
		if p.depth+1 > v.depth {
			v.depth = p.depth + 1
		}
	}
	v.cards = append(v.cards, len(v.values))
	v.cpt = make([]float64, rows*len(v.values))
	v.filled = make([]bool, rows)
	b.defined[v.id] = true
	return nil
}

// AddRow sets the CPT row of a variable for one combination of parent
// values. probs maps own values to probabilities. At most one value may
// be left out; it receives the rounded complement of the others.
func (b *Builder) AddRow(name string, parentValues []string, probs map[string]float64) error {
	v, err := b.lookup(name)
	if err != nil {
		return err
	}
	if !b.defined[v.id] {
		return fmt.Errorf("CPT row for undefined variable %q: %w", name, internalerr.ErrFormat)
	}
	if len(parentValues) != len(v.parents) {
		return fmt.Errorf("CPT row for %q has %d parent values, want %d: %w",
			name, len(parentValues), len(v.parents), internalerr.ErrFormat)
	}

	parentCodes := make([]int, len(parentValues))
	for i, pv := range parentValues {
		p := b.vars[v.parents[i]]
		code, ok := p.Code(strings.TrimSpace(pv))
		if !ok {
			return fmt.Errorf("CPT row for %q: %q is not a value of %q: %w", name, pv, p.name, internalerr.ErrLookup)
		}
		parentCodes[i] = code
	}
	row := v.rowIndex(parentCodes)

	missing := -1
	sum := 0.0
	entries := make([]float64, len(v.values))
	given := make([]bool, len(v.values))
	for val, p := range probs {
		code, ok := v.Code(strings.TrimSpace(val))
		if !ok {
			return fmt.Errorf("CPT row for %q: unknown value %q: %w", name, val, internalerr.ErrLookup)
		}
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("CPT row for %q: P(%s)=%v out of range: %w", name, val, p, internalerr.ErrProbability)
		}
		entries[code] = p
		given[code] = true
		sum += p
	}
	for code, ok := range given {
		if ok {
			continue
		}
		if missing >= 0 {
			return fmt.Errorf("CPT row for %q leaves more than one value unspecified: %w", name, internalerr.ErrFormat)
		}
		missing = code
	}

	if missing >= 0 {
		complement := Round(1 - sum)
		if complement < -Tolerance {
			return fmt.Errorf("CPT row for %q sums to %v: %w", name, sum, internalerr.ErrProbability)
		}
		entries[missing] = math.Max(complement, 0)
	} else if math.Abs(sum-1) > Tolerance {
		return fmt.Errorf("CPT row for %q sums to %v: %w", name, sum, internalerr.ErrProbability)
	}

	copy(v.cpt[row*len(v.values):], entries)
	v.filled[row] = true
	return nil
}

// Build validates that every variable is fully defined and returns the
// network in declaration order.
func (b *Builder) Build() (*Network, error) {
	for _, v := range b.vars {
		if !b.defined[v.id] {
			return nil, fmt.Errorf("variable %q declared but not defined: %w", v.name, internalerr.ErrFormat)
		}
		for row, ok := range v.filled {
			if !ok {
				return nil, fmt.Errorf("variable %q is missing CPT row %d of %d: %w",
					v.name, row+1, v.rows(), internalerr.ErrFormat)
			}
		}
	}

	a := &arena{
		vars:   b.vars,
		byName: b.byName,
	}
	order := make([]VarID, len(b.vars))
	for i := range order {
		order[i] = VarID(i)
	}

	// The builder must not alias a built network.
	b.vars = nil
	b.byName = make(map[string]VarID)
	b.defined = nil
	for _, v := range a.vars {
		v.filled = nil
	}

	return &Network{arena: a, order: order}, nil
}

func (b *Builder) lookup(name string) (*Variable, error) {
	id, ok := b.byName[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, internalerr.ErrLookup)
	}
	return b.vars[id], nil
}
