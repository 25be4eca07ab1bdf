package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/cache"
	"github.com/elimucloud/dawati/core/resource"
)

type validatable interface {
	Validate() error
}

// Perform runs one lifecycle transition end to end:
// local state guard → authorization → network exchange → reconciliation.
// Failures leave the cache untouched; there is no optimistic application
// and no automatic retry. Performing the same transition twice on an
// already-transitioned record fails the guard and changes nothing.
func (e *Engine) Perform(ctx context.Context, kind resource.Kind, id string, tr resource.Transition, payload interface{}) (*resource.Record, error) {
	res := Result{RequestID: uuid.NewString(), Kind: kind, ID: id, Transition: tr}

	rec, err := e.currentRecord(ctx, kind, id)
	if err != nil {
		return e.fail(res, err)
	}
	if err := resource.ValidateTransition(rec, tr); err != nil {
		return e.fail(res, err)
	}
	if err := e.authorize(ctx, kind, tr); err != nil {
		return e.fail(res, err)
	}
	if v, ok := payload.(validatable); ok {
		if err := v.Validate(); err != nil {
			return e.fail(res, err)
		}
	}

	var resp *Response
	if tr == resource.TransitionSoftDelete {
		resp, err = e.gw.Delete(ctx, kind, id)
	} else {
		resp, err = e.gw.Transition(ctx, kind, id, tr, payload)
	}
	if err != nil {
		if core.IsNotFound(err) {
			// gone server-side; force every view of the kind to re-fetch
			e.cache.InvalidateKind(kind)
		}
		return e.fail(res, err)
	}

	if tr == resource.TransitionSoftDelete && (resp == nil || resp.Record == nil) {
		// the server only acknowledges deletes; scrub the id from default
		// listings before marking the kind stale, so no view keeps serving
		// the deleted record while the re-fetch is pending
		e.cache.Patch(kind, id, func(r *resource.Record) { r.SoftDeleted = true })
		e.cache.InvalidateKind(kind)
	} else {
		res.Record = e.reconcile(kind, id, resp)
	}
	res.Message = fmt.Sprintf("%s %s succeeded", kind, tr)
	e.publish(res)
	return res.Record, nil
}

// Create issues a create mutation. The new id exists in no cache entry yet,
// so reconciliation is always an invalidation of the kind's listings.
func (e *Engine) Create(ctx context.Context, payload resource.NewRecord) (*resource.Record, error) {
	kind := resource.Kind(payload.Kind)
	res := Result{RequestID: uuid.NewString(), Kind: kind, Transition: resource.TransitionCreate}

	if err := e.authorize(ctx, kind, resource.TransitionCreate); err != nil {
		return e.fail(res, err)
	}
	if err := payload.Validate(); err != nil {
		return e.fail(res, err)
	}

	resp, err := e.gw.Create(ctx, kind, payload)
	if err != nil {
		return e.fail(res, err)
	}

	e.cache.InvalidateKind(kind)
	if resp.Record != nil {
		res.ID = resp.Record.ID
		res.Record = resp.Record
		e.cache.Write(kind, cache.DetailDescriptor(resp.Record.ID), []resource.Record{*resp.Record})
	}
	res.Message = fmt.Sprintf("%s created", kind)
	e.publish(res)
	return res.Record, nil
}

// Edit issues an edit mutation and reconciles like any other transition.
func (e *Engine) Edit(ctx context.Context, payload resource.EditRecord) (*resource.Record, error) {
	kind := resource.Kind(payload.Kind)
	res := Result{RequestID: uuid.NewString(), Kind: kind, ID: payload.ID, Transition: resource.TransitionEdit}

	rec, err := e.currentRecord(ctx, kind, payload.ID)
	if err != nil {
		return e.fail(res, err)
	}
	if err := resource.ValidateTransition(rec, resource.TransitionEdit); err != nil {
		return e.fail(res, err)
	}
	if err := e.authorize(ctx, kind, resource.TransitionEdit); err != nil {
		return e.fail(res, err)
	}
	if err := payload.Validate(); err != nil {
		return e.fail(res, err)
	}

	resp, err := e.gw.Edit(ctx, kind, payload)
	if err != nil {
		if core.IsNotFound(err) {
			e.cache.InvalidateKind(kind)
		}
		return e.fail(res, err)
	}

	res.Record = e.reconcile(kind, payload.ID, resp)
	res.Message = fmt.Sprintf("%s edited", kind)
	e.publish(res)
	return res.Record, nil
}

// Delete soft-deletes the record; a deleted record disappears from default
// listings but is retained server-side for audit.
func (e *Engine) Delete(ctx context.Context, kind resource.Kind, id string) error {
	_, err := e.Perform(ctx, kind, id, resource.TransitionSoftDelete, nil)
	return err
}

// currentRecord resolves the record the guard runs against: the cached
// detail entry, then any cached listing, then a fetch.
func (e *Engine) currentRecord(ctx context.Context, kind resource.Kind, id string) (*resource.Record, error) {
	if ent, ok := e.cache.Read(kind, cache.DetailDescriptor(id)); ok {
		if rec, ok := ent.Single(); ok {
			return &rec, nil
		}
	}
	for _, includeDeleted := range []bool{false, true} {
		if ent, ok := e.cache.Read(kind, cache.ListDescriptor(includeDeleted)); ok {
			for i := range ent.Records {
				if ent.Records[i].ID == id {
					rec := ent.Records[i]
					return &rec, nil
				}
			}
		}
	}
	return e.fetchDetail(ctx, kind, cache.DetailDescriptor(id))
}

// reconcile applies the server's view of the mutation to the cache: a full
// record patches every entry containing the id, a bare acknowledgement
// invalidates the kind instead. A patch that found the id nowhere falls
// back to invalidation.
func (e *Engine) reconcile(kind resource.Kind, id string, resp *Response) *resource.Record {
	if resp == nil || resp.Record == nil {
		e.cache.InvalidateKind(kind)
		return nil
	}
	updated := *resp.Record
	patched := e.cache.Patch(kind, id, func(r *resource.Record) { *r = updated })
	if patched == 0 {
		e.cache.InvalidateKind(kind)
	}
	return resp.Record
}

func (e *Engine) fail(res Result, err error) (*resource.Record, error) {
	res.Err = err
	res.Message = err.Error()
	e.publish(res)
	return nil, err
}
