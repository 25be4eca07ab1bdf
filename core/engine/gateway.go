package engine

import (
	"context"

	"github.com/elimucloud/dawati/core/resource"
)

type (
	// Response is what a mutation exchange came back with: either the full
	// updated record or a bare acknowledgement. The reconciliation choice
	// (patch vs invalidate) follows this, it is never guessed.
	Response struct {
		Record *resource.Record
		Ack    bool
	}

	// Gateway issues request/response exchanges against the resource
	// endpoints, attaching the session's bearer credential. The HTTP
	// implementation lives in the gateway package.
	Gateway interface {
		List(ctx context.Context, kind resource.Kind, includeDeleted bool) ([]resource.Record, error)
		Get(ctx context.Context, kind resource.Kind, id string) (*resource.Record, error)
		Create(ctx context.Context, kind resource.Kind, payload resource.NewRecord) (*Response, error)
		Edit(ctx context.Context, kind resource.Kind, payload resource.EditRecord) (*Response, error)
		Transition(ctx context.Context, kind resource.Kind, id string, tr resource.Transition, payload interface{}) (*Response, error)
		Delete(ctx context.Context, kind resource.Kind, id string) (*Response, error)
	}
)
