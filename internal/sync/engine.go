package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/BrandonGoding/squaresync/internal/model"
)

const (
	otelScope     = "squaresync/sync"
	spanReconcile = "sync.reconcile"
	metricCreated = "squaresync.sync.objects.created"
	metricUpdated = "squaresync.sync.objects.updated"
	metricSkipped = "squaresync.sync.objects.skipped"
	metricErrors  = "squaresync.sync.errors"
)

// ErrUnknownKind is returned by [Engine.RunOnce] when asked for an entity
// kind no registered source handles.
var ErrUnknownKind = errors.New("unknown entity kind")

// Engine orchestrates sync passes across all registered sources, in
// registration order (taxes and categories before the items that reference
// them). Create one with [NewEngine]; run a single pass with [Engine.RunOnce]
// or the polling daemon loop with [Engine.Run].
type Engine struct {
	reconciler *Reconciler
	sources    []Source
	store      EntityStore
	interval   time.Duration
	log        *slog.Logger

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer     trace.Tracer
	cntCreated metric.Int64Counter
	cntUpdated metric.Int64Counter
	cntSkipped metric.Int64Counter
	cntErrors  metric.Int64Counter
}

// NewEngine creates an Engine over the given sources.
func NewEngine(reconciler *Reconciler, store EntityStore, sources []Source, interval time.Duration, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		reconciler: reconciler,
		sources:    sources,
		store:      store,
		interval:   interval,
		log:        logger,

		tracer:     tracer,
		cntCreated: mustCounter(metricCreated, "Number of remote objects created during sync"),
		cntUpdated: mustCounter(metricUpdated, "Number of remote objects updated during sync"),
		cntSkipped: mustCounter(metricSkipped, "Number of entities skipped as unchanged during sync"),
		cntErrors:  mustCounter(metricErrors, "Number of entity sync errors"),
	}
}

// Kinds returns the entity kinds the engine can sync, in sync order.
func (e *Engine) Kinds() []string {
	kinds := make([]string, len(e.sources))
	for i, src := range e.sources {
		kinds[i] = src.Kind()
	}
	return kinds
}

// RunOnce performs a single pass over the named kinds, or over every
// registered source when no kinds are given. Per-entity failures are
// reflected in the stats and the first one is returned; an unknown kind
// fails before anything runs.
func (e *Engine) RunOnce(ctx context.Context, kinds ...string) (Stats, error) {
	sources := e.sources
	if len(kinds) > 0 {
		sources = make([]Source, 0, len(kinds))
		for _, kind := range kinds {
			src := e.source(kind)
			if src == nil {
				return Stats{}, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
			}
			sources = append(sources, src)
		}
	}
	return e.reconcile(ctx, sources)
}

func (e *Engine) source(kind string) Source {
	for _, src := range e.sources {
		if src.Kind() == kind {
			return src
		}
	}
	return nil
}

// reconcile runs one pass over the given sources, recording a trace span and
// metrics.
func (e *Engine) reconcile(ctx context.Context, sources []Source) (Stats, error) {
	ctx, span := e.tracer.Start(ctx, spanReconcile)
	defer span.End()

	var stats Stats
	var firstErr error
	for _, src := range sources {
		s, err := e.reconciler.Run(ctx, src)
		stats.Add(s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if stats.Created > 0 {
		e.cntCreated.Add(ctx, int64(stats.Created))
	}
	if stats.Updated > 0 {
		e.cntUpdated.Add(ctx, int64(stats.Updated))
	}
	if stats.Skipped > 0 {
		e.cntSkipped.Add(ctx, int64(stats.Skipped))
	}
	if stats.Errors > 0 {
		e.cntErrors.Add(ctx, int64(stats.Errors))
	}

	span.SetAttributes(
		attribute.Int("sync.created", stats.Created),
		attribute.Int("sync.updated", stats.Updated),
		attribute.Int("sync.skipped", stats.Skipped),
		attribute.Int("sync.errors", stats.Errors),
	)
	if firstErr != nil {
		span.RecordError(firstErr)
	}
	return stats, firstErr
}

// Run starts the polling loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// Run an immediate first pass.
	if _, err := e.RunOnce(ctx); err != nil {
		e.log.Error("initial sync pass failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				e.log.Error("sync pass failed", "error", err)
			}
		}
	}
}

// EnsureCategory guarantees that a local category with the given name exists
// and is synced remotely, returning its remote object id. Used for fixed
// categories the back office expects, like the membership category.
func (e *Engine) EnsureCategory(ctx context.Context, name string) (string, error) {
	cat, err := e.store.GetCategoryByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("looking up category %q: %w", name, err)
	}
	if cat == nil {
		cat = &model.Category{Name: name, Active: true}
		if err := e.store.InsertCategory(ctx, cat); err != nil {
			return "", fmt.Errorf("creating category %q: %w", name, err)
		}
		e.log.Info("created local category", "name", name, "id", cat.ID)
	}
	if cat.Remote.Exists() {
		return cat.Remote.ID, nil
	}

	if _, err := e.RunOnce(ctx, "category"); err != nil {
		return "", fmt.Errorf("syncing categories: %w", err)
	}

	cat, err = e.store.GetCategoryByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("re-reading category %q: %w", name, err)
	}
	if cat == nil || !cat.Remote.Exists() {
		return "", fmt.Errorf("category %q was not assigned a remote id", name)
	}
	return cat.Remote.ID, nil
}
