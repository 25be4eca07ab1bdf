package resource

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("record not found")
)

type (
	// QueryFilter applies AND operation on available fields.
	QueryFilter struct {
		Kind           Kind
		IncludeDeleted bool
		Search         string // case-insensitive match on Record.Name
	}

	// Repository is the authoritative record store behind the devserver.
	// The client engine never talks to it directly; it only sees the gateway.
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, kind Kind, id string) (Record, error)
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
	}
)
