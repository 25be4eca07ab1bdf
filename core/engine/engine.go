package engine

import (
	"context"
	"time"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/cache"
	"github.com/elimucloud/dawati/core/resource"
	"github.com/elimucloud/dawati/core/session"
)

type (
	Options struct {
		Session         *session.Session
		Cache           *cache.Store
		Gateway         Gateway
		Logger          core.Logger
		RefreshInterval time.Duration
		ResultBuffer    int
	}

	// Engine is the mutation coordinator: it guards, authorizes, issues the
	// network exchange and reconciles the cache, in that order. Reads flow
	// from the cache and are refreshed on staleness or on demand.
	Engine struct {
		sess            *session.Session
		cache           *cache.Store
		gw              Gateway
		logger          core.Logger
		refreshInterval time.Duration
		results         chan Result
	}
)

func New(opts *Options) *Engine {
	buf := opts.ResultBuffer
	if buf <= 0 {
		buf = 64
	}
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Engine{
		sess:            opts.Session,
		cache:           opts.Cache,
		gw:              opts.Gateway,
		logger:          opts.Logger,
		refreshInterval: interval,
		results:         make(chan Result, buf),
	}
}

// Cache exposes the underlying store, e.g. for Clear on logout.
func (e *Engine) Cache() *cache.Store { return e.cache }

// List returns all records of the kind. Fresh cache entries are served
// directly; stale entries are served immediately while a re-fetch runs in
// the background (stale-while-revalidate); misses fetch synchronously.
func (e *Engine) List(ctx context.Context, kind resource.Kind, includeDeleted ...bool) ([]resource.Record, error) {
	d := cache.ListDescriptor(includeDeleted...)
	if ent, ok := e.cache.Read(kind, d); ok {
		if ent.Fresh(e.cache.TTL(), cache.NowFunc()) {
			return ent.Records, nil
		}
		go e.refresh(context.WithoutCancel(ctx), kind, d)
		return ent.Records, nil
	}
	return e.fetchList(ctx, kind, d)
}

// Get returns a single record by id, same freshness rules as List.
func (e *Engine) Get(ctx context.Context, kind resource.Kind, id string) (*resource.Record, error) {
	d := cache.DetailDescriptor(id)
	if ent, ok := e.cache.Read(kind, d); ok {
		if rec, ok := ent.Single(); ok {
			if ent.Fresh(e.cache.TTL(), cache.NowFunc()) {
				return &rec, nil
			}
			go e.refresh(context.WithoutCancel(ctx), kind, d)
			return &rec, nil
		}
	}
	return e.fetchDetail(ctx, kind, d)
}

func (e *Engine) fetchList(ctx context.Context, kind resource.Kind, d cache.Descriptor) ([]resource.Record, error) {
	gen, started := e.cache.BeginFetch(kind, d)
	records, err := e.gw.List(ctx, kind, d.IncludeDeleted)
	if err != nil {
		if started {
			e.cache.AbortFetch(kind, d)
		}
		return nil, err
	}
	if started {
		e.cache.CompleteFetch(kind, d, gen, records)
	}
	return records, nil
}

func (e *Engine) fetchDetail(ctx context.Context, kind resource.Kind, d cache.Descriptor) (*resource.Record, error) {
	gen, started := e.cache.BeginFetch(kind, d)
	rec, err := e.gw.Get(ctx, kind, d.ID)
	if err != nil {
		if started {
			e.cache.AbortFetch(kind, d)
		}
		if core.IsNotFound(err) {
			// deleted by another session: drop whatever we hold on it
			e.cache.InvalidateKind(kind)
		}
		return nil, err
	}
	if started {
		e.cache.CompleteFetch(kind, d, gen, []resource.Record{*rec})
	}
	return rec, nil
}

// refresh re-fetches one entry; BeginFetch de-duplicates concurrent
// refreshes of the same entry. Failures keep the stale value readable.
func (e *Engine) refresh(ctx context.Context, kind resource.Kind, d cache.Descriptor) {
	gen, started := e.cache.BeginFetch(kind, d)
	if !started {
		return
	}

	var records []resource.Record
	var err error
	if d.List {
		records, err = e.gw.List(ctx, kind, d.IncludeDeleted)
	} else {
		var rec *resource.Record
		if rec, err = e.gw.Get(ctx, kind, d.ID); err == nil {
			records = []resource.Record{*rec}
		}
	}
	if err != nil {
		e.cache.AbortFetch(kind, d)
		if e.logger != nil {
			e.logger.Warn("cache refresh failed", map[string]interface{}{"kind": kind, "key": d.Key(), "err": err.Error()})
		}
		return
	}
	e.cache.CompleteFetch(kind, d, gen, records)
}

// StartRefresher runs the periodic staleness sweep until ctx is done.
func (e *Engine) StartRefresher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.RefreshStale(ctx)
			}
		}
	}()
}

// RefreshStale re-fetches every entry due for a refresh, skipping entries
// with a fetch already in flight.
func (e *Engine) RefreshStale(ctx context.Context) {
	for kind, descriptors := range e.cache.StaleEntries() {
		for _, d := range descriptors {
			e.refresh(ctx, kind, d)
		}
	}
}
