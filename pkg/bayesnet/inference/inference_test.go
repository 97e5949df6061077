package inference_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

var (
	boolean    = []string{"true", "false"}
	algorithms = []inference.Algorithm{
		inference.Enumeration,
		inference.VariableElimination,
		inference.BestOrderElimination,
	}
)

type row struct {
	parents []string
	probs   map[string]float64
}

type varDef struct {
	name    string
	values  []string
	parents []string
	rows    []row
}

func build(t testing.TB, defs ...varDef) *network.Network {
	t.Helper()
	b := network.NewBuilder()
	names := make([]string, len(defs))
	for i, s := range defs {
		names[i] = s.name
	}
	require.NoError(t, b.Declare(names...))
	for _, s := range defs {
		require.NoError(t, b.Define(s.name, s.values, s.parents))
		for _, r := range s.rows {
			require.NoError(t, b.AddRow(s.name, r.parents, r.probs))
		}
	}
	net, err := b.Build()
	require.NoError(t, err)
	return net
}

func rainSick(t testing.TB) *network.Network {
	return build(t,
		varDef{name: "Rain", values: boolean, rows: []row{
			{probs: map[string]float64{"true": 0.3}},
		}},
		varDef{name: "Sick", values: boolean, parents: []string{"Rain"}, rows: []row{
			{parents: []string{"true"}, probs: map[string]float64{"true": 0.8}},
			{parents: []string{"false"}, probs: map[string]float64{"true": 0.1}},
		}},
	)
}

// diamond builds A -> B, A -> C, (B, C) -> D, D -> E
func diamond(t testing.TB) *network.Network {
	cond := func(pTrue, pFalse float64) []row {
		return []row{
			{parents: []string{"true"}, probs: map[string]float64{"true": pTrue}},
			{parents: []string{"false"}, probs: map[string]float64{"true": pFalse}},
		}
	}
	return build(t,
		varDef{name: "A", values: boolean, rows: []row{{probs: map[string]float64{"true": 0.4}}}},
		varDef{name: "B", values: boolean, parents: []string{"A"}, rows: cond(0.9, 0.2)},
		varDef{name: "C", values: boolean, parents: []string{"A"}, rows: cond(0.3, 0.6)},
		varDef{name: "D", values: boolean, parents: []string{"B", "C"}, rows: []row{
			{parents: []string{"true", "true"}, probs: map[string]float64{"true": 0.95}},
			{parents: []string{"true", "false"}, probs: map[string]float64{"true": 0.7}},
			{parents: []string{"false", "true"}, probs: map[string]float64{"true": 0.4}},
			{parents: []string{"false", "false"}, probs: map[string]float64{"true": 0.05}},
		}},
		varDef{name: "E", values: boolean, parents: []string{"D"}, rows: cond(0.8, 0.1)},
	)
}

type observed map[string]string

// ask resolves names against net and runs one algorithm
func ask(t testing.TB, net *network.Network, alg inference.Algorithm, target, value string, ev observed) (inference.Result, error) {
	t.Helper()
	tv, err := net.Lookup(target)
	require.NoError(t, err)
	code, ok := tv.Code(value)
	require.True(t, ok)

	evidence := make(network.Evidence, len(ev))
	for name, val := range ev {
		v, err := net.Lookup(name)
		require.NoError(t, err)
		c, ok := v.Code(val)
		require.True(t, ok)
		evidence[v.ID()] = c
	}

	solve, err := inference.For(alg)
	require.NoError(t, err)
	return solve(net, tv.ID(), code, evidence)
}

func TestRainSick(t *testing.T) {
	net := rainSick(t)

	tests := []struct {
		target, value string
		ev            observed
		want          float64
		ops           factor.Ops
	}{
		{target: "Sick", value: "true", want: 0.31, ops: factor.Ops{Sums: 3, Multiplies: 4}},
		{target: "Sick", value: "false", want: 0.69, ops: factor.Ops{Sums: 3, Multiplies: 4}},
		{target: "Rain", value: "true", ev: observed{"Sick": "true"}, want: 0.77419, ops: factor.Ops{Sums: 1, Multiplies: 2}},
		{target: "Rain", value: "false", ev: observed{"Sick": "false"}, want: 0.91304, ops: factor.Ops{Sums: 1, Multiplies: 2}},
	}

	for _, tt := range tests {
		for _, alg := range algorithms {
			t.Run(fmt.Sprintf("%s=%s|%v/%s", tt.target, tt.value, tt.ev, alg), func(t *testing.T) {
				res, err := ask(t, net, alg, tt.target, tt.value, tt.ev)
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Probability)
				assert.Equal(t, tt.ops, res.Ops)
			})
		}
	}
}

func TestObservedTarget(t *testing.T) {
	net := rainSick(t)
	for _, alg := range algorithms {
		res, err := ask(t, net, alg, "Sick", "true", observed{"Sick": "true"})
		require.NoError(t, err, alg.String())
		assert.Equal(t, 1.0, res.Probability, alg.String())

		res, err = ask(t, net, alg, "Sick", "false", observed{"Sick": "true", "Rain": "false"})
		require.NoError(t, err, alg.String())
		assert.Equal(t, 0.0, res.Probability, alg.String())
	}
}

func TestInconsistentEvidence(t *testing.T) {
	net := build(t,
		varDef{name: "A", values: boolean, rows: []row{{probs: map[string]float64{"true": 1}}}},
		varDef{name: "B", values: boolean, parents: []string{"A"}, rows: []row{
			{parents: []string{"true"}, probs: map[string]float64{"true": 1}},
			{parents: []string{"false"}, probs: map[string]float64{"true": 0.5}},
		}},
	)
	for _, alg := range algorithms {
		_, err := ask(t, net, alg, "A", "true", observed{"B": "false"})
		assert.ErrorIs(t, err, internalerr.ErrInconsistentEvidence, alg.String())

		_, err = ask(t, net, alg, "A", "true", observed{"A": "false"})
		assert.ErrorIs(t, err, internalerr.ErrInconsistentEvidence, alg.String())
	}
}

func TestEliminationPrunesDescendants(t *testing.T) {
	net := diamond(t)

	enum, err := ask(t, net, inference.Enumeration, "B", "true", observed{"A": "true"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, enum.Probability)
	// C, D and E stay hidden: 8 assignments per target value
	assert.Equal(t, factor.Ops{Sums: 15, Multiplies: 64}, enum.Ops)

	ve, err := ask(t, net, inference.VariableElimination, "B", "true", observed{"A": "true"})
	require.NoError(t, err)
	assert.Equal(t, 0.9, ve.Probability)
	assert.Equal(t, factor.Ops{Sums: 1, Multiplies: 2}, ve.Ops)
}

func TestEnumerationCounts(t *testing.T) {
	net := diamond(t)
	res, err := ask(t, net, inference.Enumeration, "E", "true", nil)
	require.NoError(t, err)
	// 16 assignments per target value, 4 multiplications each
	assert.Equal(t, factor.Ops{Sums: 31, Multiplies: 128}, res.Ops)
}

func TestAlgorithmsAgreeOnDiamond(t *testing.T) {
	net := diamond(t)
	queries := []struct {
		target, value string
		ev            observed
	}{
		{"E", "true", nil},
		{"A", "true", observed{"E": "true"}},
		{"D", "false", observed{"B": "true", "C": "false"}},
		{"C", "true", observed{"B": "false", "E": "false"}},
		{"B", "true", observed{"D": "true"}},
	}
	for _, q := range queries {
		enum, err := ask(t, net, inference.Enumeration, q.target, q.value, q.ev)
		require.NoError(t, err)
		for _, alg := range algorithms[1:] {
			res, err := ask(t, net, alg, q.target, q.value, q.ev)
			require.NoError(t, err)
			assert.InDelta(t, enum.Probability, res.Probability, 1.1e-5, "%s=%s|%v %s", q.target, q.value, q.ev, alg)
			assert.Less(t, res.Ops.Multiplies, enum.Ops.Multiplies, "%s=%s|%v %s", q.target, q.value, q.ev, alg)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, alg := range algorithms {
		got, err := inference.ParseAlgorithm(fmt.Sprint(int(alg)))
		require.NoError(t, err)
		assert.Equal(t, alg, got)
	}
	got, err := inference.ParseAlgorithm(" 2 ")
	require.NoError(t, err)
	assert.Equal(t, inference.VariableElimination, got)

	for _, bad := range []string{"0", "4", "", "two"} {
		_, err := inference.ParseAlgorithm(bad)
		assert.ErrorIs(t, err, internalerr.ErrFormat, bad)
	}

	_, err = inference.For(inference.Algorithm(9))
	assert.ErrorIs(t, err, internalerr.ErrFormat)
	assert.Equal(t, "algorithm(9)", inference.Algorithm(9).String())
	assert.Equal(t, "best-order", inference.BestOrderElimination.String())
}

// randomNetwork builds a network of 2 to 6 variables with up to two
// parents each and strictly positive CPT entries
func randomNetwork(t testing.TB, rng *rand.Rand) *network.Network {
	n := 2 + rng.Intn(5)
	defs := make([]varDef, n)
	for i := range defs {
		s := varDef{name: fmt.Sprintf("V%d", i)}
		for c := 0; c < 2+rng.Intn(2); c++ {
			s.values = append(s.values, fmt.Sprintf("v%d", c))
		}
		if i > 0 {
			for _, p := range rng.Perm(i)[:rng.Intn(min(i, 2)+1)] {
				s.parents = append(s.parents, defs[p].name)
			}
		}

		combos := [][]string{nil}
		for _, pname := range s.parents {
			var parent varDef
			for _, other := range defs[:i] {
				if other.name == pname {
					parent = other
				}
			}
			var next [][]string
			for _, combo := range combos {
				for _, val := range parent.values {
					next = append(next, append(append([]string(nil), combo...), val))
				}
			}
			combos = next
		}

		for _, combo := range combos {
			weights := make([]float64, len(s.values))
			total := 0.0
			for j := range weights {
				weights[j] = 0.1 + rng.Float64()
				total += weights[j]
			}
			probs := make(map[string]float64)
			for j := 0; j < len(weights)-1; j++ {
				probs[s.values[j]] = weights[j] / total
			}
			s.rows = append(s.rows, row{parents: combo, probs: probs})
		}
		defs[i] = s
	}
	return build(t, defs...)
}

func TestAlgorithmsAgreeOnRandomNetworks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("all algorithms return the same posterior", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			net := randomNetwork(t, rng)

			target := net.At(rng.Intn(net.Len()))
			ev := make(network.Evidence)
			for i := 0; i < rng.Intn(3); i++ {
				v := net.At(rng.Intn(net.Len()))
				if v.ID() != target.ID() {
					ev[v.ID()] = rng.Intn(v.Card())
				}
			}

			total := 0.0
			for value := 0; value < target.Card(); value++ {
				var probs []float64
				for _, alg := range algorithms {
					solve, _ := inference.For(alg)
					res, err := solve(net, target.ID(), value, ev)
					if err != nil {
						return false
					}
					probs = append(probs, res.Probability)
				}
				for _, p := range probs[1:] {
					if math.Abs(p-probs[0]) > 1.1e-5 {
						return false
					}
				}
				total += probs[0]
			}
			return math.Abs(total-1) < 5e-5
		},
		gen.Int64(),
	))

	properties.Property("elimination never multiplies more than enumeration", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			net := randomNetwork(t, rng)
			target := net.At(rng.Intn(net.Len()))

			enum, err := inference.Enumerate(net, target.ID(), 0, nil)
			if err != nil {
				return false
			}
			ve, err := inference.Eliminate(net, target.ID(), 0, nil)
			if err != nil {
				return false
			}
			return ve.Ops.Multiplies <= enum.Ops.Multiplies
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
