package bayesnet

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/bayesnet/internal/debuglog"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/metrics"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/query"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store/memstore"
)

// Engine answers batches of queries against a network
type Engine struct {
	ledger  store.Ledger
	metrics *metrics.Registry
	log     logrus.FieldLogger
	workers int
	runID   string
	now     func() time.Time
}

// Options configures an Engine. Zero values select an in-memory ledger,
// no metrics, a discarding logger and a single worker.
type Options struct {
	Ledger  store.Ledger
	Metrics *metrics.Registry
	Logger  logrus.FieldLogger
	Workers int
}

// New creates an Engine. Every Engine is one run: its ledger entries
// share a run ID and results are only reused within that run.
func New(opts Options) *Engine {
	e := &Engine{
		ledger:  opts.Ledger,
		metrics: opts.Metrics,
		log:     opts.Logger,
		workers: opts.Workers,
		runID:   store.NewID(),
		now:     time.Now,
	}
	if e.ledger == nil {
		e.ledger = memstore.New()
	}
	if e.log == nil {
		e.log = debuglog.Discard()
	}
	if e.workers < 1 {
		e.workers = 1
	}
	e.log = e.log.WithField("run", e.runID)
	return e
}

// Close cleanly shuts down the Engine
func (e *Engine) Close() error {
	return e.ledger.Close()
}

// RunID identifies this run in the ledger
func (e *Engine) RunID() string { return e.runID }

// Ledger returns the ledger results are recorded in
func (e *Engine) Ledger() store.Ledger { return e.ledger }

// Answer evaluates one query, reusing the ledger entry of an identical
// query already answered in this run.
func (e *Engine) Answer(ctx context.Context, net *network.Network, q query.Query) (inference.Result, error) {
	key := q.Key()
	log := e.log.WithFields(logrus.Fields{"query": key, "algorithm": q.Algorithm.String()})

	entry, found, err := e.ledger.Lookup(ctx, e.runID, key)
	if err != nil {
		return inference.Result{}, err
	}
	if found {
		if e.metrics != nil {
			e.metrics.RecordLedgerHit()
		}
		log.Debug("Answered from ledger")
		return inference.Result{
			Probability: entry.Probability,
			Ops:         factor.Ops{Sums: entry.Sums, Multiplies: entry.Multiplies},
		}, nil
	}

	start := e.now()
	res, err := q.Evaluate(net)
	elapsed := time.Since(start)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordError()
		}
		log.WithError(err).Warn("Query failed")
		return inference.Result{}, err
	}
	if e.metrics != nil {
		e.metrics.RecordQuery(q.Algorithm.String(), res.Ops.Sums, res.Ops.Multiplies, elapsed)
	}

	err = e.ledger.Record(ctx, store.Entry{
		ID:          store.NewID(),
		RunID:       e.runID,
		Key:         key,
		Algorithm:   int(q.Algorithm),
		Probability: res.Probability,
		Sums:        res.Ops.Sums,
		Multiplies:  res.Ops.Multiplies,
		CreatedAt:   start,
	})
	if err != nil {
		return inference.Result{}, err
	}

	log.WithFields(logrus.Fields{
		"probability": res.Probability,
		"sums":        res.Ops.Sums,
		"multiplies":  res.Ops.Multiplies,
		"elapsed":     elapsed,
	}).Debug("Answered query")
	return res, nil
}

// Run answers every query and returns the results in query order.
// Queries are independent and run on up to Workers goroutines; the first
// failure cancels the rest and is returned.
func (e *Engine) Run(ctx context.Context, net *network.Network, queries []query.Query) ([]inference.Result, error) {
	results := make([]inference.Result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Answer(gctx, net, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"queries":   len(queries),
		"variables": net.Len(),
		"workers":   e.workers,
	}).Info("Run complete")
	return results, nil
}
