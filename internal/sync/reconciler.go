package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BrandonGoding/squaresync/internal/catalog"
	"github.com/BrandonGoding/squaresync/internal/model"
	"github.com/BrandonGoding/squaresync/internal/square"
)

// outcome classifies what a single-entity pass did.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
)

// Stats tracks the number of entities handled in a single reconcile pass.
type Stats struct {
	Created int
	Updated int
	Skipped int
	Errors  int
}

// Add accumulates another pass's stats into this one.
func (s *Stats) Add(o Stats) {
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Errors += o.Errors
}

// Reconciler performs a single sync pass for one entity kind. It is stateless
// between calls — remote ids and versions live on the local records.
type Reconciler struct {
	client CatalogClient
	log    *slog.Logger
}

// NewReconciler creates a Reconciler wired to the given catalog client.
func NewReconciler(client CatalogClient, logger *slog.Logger) *Reconciler {
	return &Reconciler{client: client, log: logger}
}

// Run syncs every entity the source lists. It returns aggregate statistics
// and the first error encountered; the pass continues past individual entity
// errors so one bad record never blocks the rest of the batch.
func (r *Reconciler) Run(ctx context.Context, src Source) (Stats, error) {
	var stats Stats
	var firstErr error

	entities, err := src.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing %s entities: %w", src.Kind(), err)
	}

	for _, e := range entities {
		out, err := r.syncOne(ctx, src, e)
		if err != nil {
			r.log.Error("sync failed", "key", e.Key(), "error", err)
			stats.Errors++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		switch out {
		case outcomeCreated:
			stats.Created++
		case outcomeUpdated:
			stats.Updated++
		case outcomeSkipped:
			stats.Skipped++
		}
	}

	r.log.Info("reconcile complete",
		"kind", src.Kind(),
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)

	return stats, firstErr
}

func (r *Reconciler) syncOne(ctx context.Context, src Source, e Entity) (outcome, error) {
	if src.RemoteID(e) == "" {
		return r.create(ctx, src, e)
	}
	return r.update(ctx, src, e)
}

// create builds the entity's request graph with fresh temporary ids and
// upserts it. On failure the entity keeps no remote id, so the next pass
// rebuilds the graph with new temporary ids and tries again.
func (r *Reconciler) create(ctx context.Context, src Source, e Entity) (outcome, error) {
	req, err := src.Build(ctx, e)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("building %s: %w", e.Key(), err)
	}
	if req == nil {
		r.log.Debug("nothing to sync", "key", e.Key())
		return outcomeSkipped, nil
	}

	res, err := r.client.Upsert(ctx, square.IdempotencyKey(src.Kind()), req)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("creating %s: %w", e.Key(), err)
	}
	if err := src.SaveResult(ctx, e, req, res); err != nil {
		return outcomeSkipped, fmt.Errorf("saving result for %s: %w", e.Key(), err)
	}
	r.log.Info("created remote object", "key", e.Key())
	return outcomeCreated, nil
}

// update fetches the current remote object for its authoritative version,
// skips unchanged entities, and otherwise upserts the desired graph with the
// fetched versions merged in.
func (r *Reconciler) update(ctx context.Context, src Source, e Entity) (outcome, error) {
	objectID := src.RemoteID(e)

	remote, err := r.client.Retrieve(ctx, objectID)
	if errors.Is(err, square.ErrNotFound) {
		// The remote object was deleted out from under us. Drop the local
		// refs so the next pass re-creates it.
		r.log.Warn("remote object gone, clearing refs", "key", e.Key(), "object_id", objectID)
		if err := src.ClearRemote(ctx, e); err != nil {
			return outcomeSkipped, fmt.Errorf("clearing refs for %s: %w", e.Key(), err)
		}
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, fmt.Errorf("retrieving %s for %s: %w", objectID, e.Key(), err)
	}

	req, err := src.Build(ctx, e)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("building %s: %w", e.Key(), err)
	}
	if req == nil {
		return outcomeSkipped, nil
	}

	if !src.Changed(e, req, remote) {
		r.log.Debug("unchanged", "key", e.Key())
		return outcomeSkipped, nil
	}

	mergeVersions(req, remote)

	res, err := r.client.Upsert(ctx, square.IdempotencyKey(src.Kind()), req)
	if err != nil {
		return outcomeSkipped, fmt.Errorf("updating %s: %w", e.Key(), err)
	}
	if err := src.SaveResult(ctx, e, req, res); err != nil {
		return outcomeSkipped, fmt.Errorf("saving result for %s: %w", e.Key(), err)
	}
	r.log.Info("updated remote object", "key", e.Key())
	return outcomeUpdated, nil
}

// mergeVersions copies the authoritative versions from the fetched remote
// object onto the request graph. Nested variations are matched by id;
// variations with temporary ids are new and stay version-less.
func mergeVersions(req, remote *catalog.Object) {
	req.Version = remote.Version
	if req.ItemData == nil {
		return
	}
	for _, v := range req.ItemData.Variations {
		if catalog.IsTempID(v.ID) {
			continue
		}
		if rv := remote.FindVariation(v.ID); rv != nil {
			v.Version = rv.Version
		}
	}
}

// refFor resolves the persisted remote ref for the root of a request graph:
// the id-mapping translation of the request's client id wins, then the
// returned object's own id. The version comes from the returned object when
// its id agrees. A zero ref means the response was unusable.
func refFor(req *catalog.Object, res *square.UpsertResult) model.RemoteRef {
	id := res.Resolve(req.ID)
	if id == "" && !catalog.IsTempID(req.ID) {
		id = req.ID
	}
	if id == "" && res.Object != nil && !catalog.IsTempID(res.Object.ID) {
		id = res.Object.ID
	}
	if id == "" {
		return model.RemoteRef{}
	}
	ref := model.RemoteRef{ID: id}
	if res.Object != nil && res.Object.ID == id {
		ref.Version = res.Object.Version
	}
	return ref
}

// variationRefFor resolves the remote ref for one nested variation of a
// request graph, matching the returned graph by resolved id first and by
// variation name as a fallback for responses without id mappings.
func variationRefFor(reqVar *catalog.Object, res *square.UpsertResult) model.RemoteRef {
	id := res.Resolve(reqVar.ID)
	if id == "" && !catalog.IsTempID(reqVar.ID) {
		id = reqVar.ID
	}

	var returned *catalog.Object
	if res.Object != nil {
		if id != "" {
			returned = res.Object.FindVariation(id)
		}
		if returned == nil && reqVar.ItemVariationData != nil {
			returned = res.Object.FindVariationByName(reqVar.ItemVariationData.Name)
		}
	}
	if returned != nil && !catalog.IsTempID(returned.ID) {
		return model.RemoteRef{ID: returned.ID, Version: returned.Version}
	}
	if id == "" {
		return model.RemoteRef{}
	}
	return model.RemoteRef{ID: id}
}

// errUnusableResponse is returned by SaveResult implementations when a
// successful upsert response carries no resolvable id for the root object.
var errUnusableResponse = errors.New("upsert response carries no resolvable object id")
