package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimucloud/dawati/core/session"
)

func Test_inmemStore(t *testing.T) {
	ctx := context.Background()
	store := NewInmemStore()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, session.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, store.Set(ctx, "k", "v2"))
	val, _ = store.Get(ctx, "k")
	assert.Equal(t, "v2", val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, session.ErrKeyNotFound)

	// deleting a missing key is a no-op
	assert.NoError(t, store.Delete(ctx, "k"))
}
