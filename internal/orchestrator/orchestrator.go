// Package orchestrator expands target names into tools and runs one lifecycle
// operation across them.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"devkit/internal/catalog"
	"devkit/internal/tools"
)

// Executor runs a single lifecycle operation. *tools.Engine satisfies it.
type Executor interface {
	Do(ctx context.Context, op tools.Operation, desc catalog.Descriptor, opts tools.Options) tools.Result
}

// Reporter receives notifications as targets move through a batch.
type Reporter interface {
	Start(target string, op tools.Operation)
	Complete(res tools.Result)
}

// Orchestrator binds an executor to a catalog.
type Orchestrator struct {
	Catalog     *catalog.Catalog
	Executor    Executor
	Concurrency int
	Reporter    Reporter
	Logger      *zap.Logger
}

// Resolution is the outcome of expanding user supplied target names.
type Resolution struct {
	Targets  []string
	Unknown  []string
	Warnings []string
}

// ResolveTargets expands "all" and category aliases into descriptor names.
// Order follows the input, duplicates are dropped and matching ignores case.
func (o *Orchestrator) ResolveTargets(names []string) Resolution {
	var (
		res  Resolution
		seen = map[string]struct{}{}
	)
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		res.Targets = append(res.Targets, name)
	}

	unknownSeen := map[string]struct{}{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if name == catalog.AllTarget {
			for _, n := range o.Catalog.Names() {
				add(n)
			}
			continue
		}
		if members, ok := o.Catalog.Category(name); ok {
			for _, n := range members {
				add(n)
			}
			continue
		}
		if desc, ok := o.Catalog.Get(name); ok {
			add(desc.Key())
			continue
		}
		if _, dup := unknownSeen[name]; dup {
			continue
		}
		unknownSeen[name] = struct{}{}
		res.Unknown = append(res.Unknown, name)
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown tool or category %q", raw))
	}
	return res
}

// Run applies op to every resolved target. A failing target never stops the
// others; targets not started before ctx is cancelled are recorded as
// canceled.
func (o *Orchestrator) Run(ctx context.Context, op tools.Operation, names []string, opts tools.Options) *Batch {
	log := o.logger().With(zap.String("operation", string(op)))
	resolved := o.ResolveTargets(names)
	batch := NewBatch(op, resolved)
	log.Info("batch started",
		zap.String("run_id", batch.RunID),
		zap.Strings("targets", resolved.Targets),
		zap.Strings("unknown", resolved.Unknown),
	)
	for _, w := range resolved.Warnings {
		log.Warn(w)
	}

	var mu sync.Mutex
	record := func(res tools.Result) {
		mu.Lock()
		batch.Results[res.Target] = res
		mu.Unlock()
		if o.Reporter != nil {
			o.Reporter.Complete(res)
		}
	}

	for _, name := range resolved.Unknown {
		record(tools.Result{
			Target:    name,
			Operation: op,
			Outcome:   tools.Failure{Kind: tools.KindUnknownTarget, Reason: fmt.Sprintf("no tool or category named %q", name)},
		})
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency())
	for _, name := range resolved.Targets {
		name := name
		desc, _ := o.Catalog.Get(name)
		if err := ctx.Err(); err != nil {
			record(canceled(name, op, err))
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(canceled(name, op, err))
				return nil
			}
			if o.Reporter != nil {
				o.Reporter.Start(name, op)
			}
			record(o.Executor.Do(ctx, op, desc, opts))
			return nil
		})
	}
	_ = g.Wait()

	batch.Finished = time.Now()
	ok, failed, skipped := batch.Counts()
	log.Info("batch finished",
		zap.String("run_id", batch.RunID),
		zap.Int("succeeded", ok),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
		zap.Duration("duration", batch.Finished.Sub(batch.Started)),
	)
	return batch
}

func canceled(target string, op tools.Operation, err error) tools.Result {
	return tools.Result{
		Target:    target,
		Operation: op,
		Outcome:   tools.Failure{Kind: tools.KindCanceled, Reason: "not started: " + err.Error()},
	}
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
