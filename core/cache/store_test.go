package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimucloud/dawati/core/resource"
)

const ttl = 30 * time.Second

func mockNow(t *testing.T, at time.Time) {
	t.Helper()
	NowFunc = func() time.Time { return at }
	t.Cleanup(func() { NowFunc = time.Now })
}

func records(ids ...string) []resource.Record {
	recs := make([]resource.Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, resource.Record{ID: id, Kind: resource.KindStaff, Name: "rec " + id})
	}
	return recs
}

func Test_Store_ReadWrite(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mockNow(t, now)
	s := NewStore(ttl)

	_, ok := s.Read(resource.KindStaff, ListDescriptor())
	assert.False(t, ok, "miss on empty store")

	s.Write(resource.KindStaff, ListDescriptor(), records("a", "b"))

	ent, ok := s.Read(resource.KindStaff, ListDescriptor())
	require.True(t, ok)
	assert.Len(t, ent.Records, 2)
	assert.True(t, ent.Fresh(ttl, now))
	assert.False(t, ent.Stale)

	// same kind, different descriptor: separate entry
	_, ok = s.Read(resource.KindStaff, ListDescriptor(true))
	assert.False(t, ok)
	_, ok = s.Read(resource.KindStaff, DetailDescriptor("a"))
	assert.False(t, ok)

	// expired by TTL but still readable
	ent, ok = s.Read(resource.KindStaff, ListDescriptor())
	require.True(t, ok)
	assert.False(t, ent.Fresh(ttl, now.Add(ttl+time.Second)))
}

func Test_Store_snapshotIsolation(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a"))

	ent, ok := s.Read(resource.KindStaff, ListDescriptor())
	require.True(t, ok)
	ent.Records[0].Name = "mutated"

	ent2, _ := s.Read(resource.KindStaff, ListDescriptor())
	assert.Equal(t, "rec a", ent2.Records[0].Name, "reader mutations must not leak into the store")
}

func Test_Store_Patch(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a", "b"))
	s.Write(resource.KindStaff, ListDescriptor(true), records("a", "b", "c"))
	s.Write(resource.KindStaff, DetailDescriptor("a"), records("a"))
	s.Write(resource.KindTeacher, ListDescriptor(), records("a")) // other kind, untouched

	patched := s.Patch(resource.KindStaff, "a", func(r *resource.Record) { r.Name = "patched" })
	assert.Equal(t, 3, patched, "every staff entry holding the id")

	for _, d := range []Descriptor{ListDescriptor(), ListDescriptor(true), DetailDescriptor("a")} {
		ent, ok := s.Read(resource.KindStaff, d)
		require.True(t, ok, d.Key())
		assert.Equal(t, "patched", ent.Records[0].Name, d.Key())
	}
	ent, _ := s.Read(resource.KindTeacher, ListDescriptor())
	assert.Equal(t, "rec a", ent.Records[0].Name, "other kinds untouched")

	// id present nowhere
	assert.Zero(t, s.Patch(resource.KindStaff, "zzz", func(r *resource.Record) { r.Name = "x" }))
}

func Test_Store_Patch_softDeleted(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a", "b"))
	s.Write(resource.KindStaff, ListDescriptor(true), records("a", "b"))
	s.Write(resource.KindStaff, DetailDescriptor("a"), records("a"))

	patched := s.Patch(resource.KindStaff, "a", func(r *resource.Record) { r.SoftDeleted = true })
	assert.Equal(t, 3, patched)

	// dropped from the default listing
	ent, _ := s.Read(resource.KindStaff, ListDescriptor())
	require.Len(t, ent.Records, 1)
	assert.Equal(t, "b", ent.Records[0].ID)

	// kept in the deleted-inclusive listing and the detail entry
	ent, _ = s.Read(resource.KindStaff, ListDescriptor(true))
	assert.Len(t, ent.Records, 2)
	ent, _ = s.Read(resource.KindStaff, DetailDescriptor("a"))
	require.Len(t, ent.Records, 1)
	assert.True(t, ent.Records[0].SoftDeleted)
}

func Test_Store_Invalidate(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a"))
	s.Write(resource.KindStaff, DetailDescriptor("a"), records("a"))

	s.Invalidate(resource.KindStaff, ListDescriptor())

	ent, ok := s.Read(resource.KindStaff, ListDescriptor())
	require.True(t, ok, "stale value stays readable")
	assert.True(t, ent.Stale)
	ent, _ = s.Read(resource.KindStaff, DetailDescriptor("a"))
	assert.False(t, ent.Stale, "only the named entry is invalidated")

	s.InvalidateKind(resource.KindStaff)
	ent, _ = s.Read(resource.KindStaff, DetailDescriptor("a"))
	assert.True(t, ent.Stale)
}

// an invalidation supersedes any patch that follows it
func Test_Store_invalidateBeatsPatch(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a"))

	s.Invalidate(resource.KindStaff, ListDescriptor())
	patched := s.Patch(resource.KindStaff, "a", func(r *resource.Record) { r.Name = "late patch" })
	assert.Zero(t, patched, "stale entries must not be patched")

	ent, _ := s.Read(resource.KindStaff, ListDescriptor())
	assert.Equal(t, "rec a", ent.Records[0].Name)
	assert.True(t, ent.Stale)
}

// an invalidation supersedes a fetch that began before it
func Test_Store_invalidateBeatsInFlightFetch(t *testing.T) {
	s := NewStore(ttl)
	d := ListDescriptor()
	s.Write(resource.KindStaff, d, records("a"))

	gen, ok := s.BeginFetch(resource.KindStaff, d)
	require.True(t, ok)

	s.Invalidate(resource.KindStaff, d)

	stored := s.CompleteFetch(resource.KindStaff, d, gen, records("a", "b"))
	assert.False(t, stored, "result raced by an invalidation is discarded")

	ent, _ := s.Read(resource.KindStaff, d)
	assert.True(t, ent.Stale, "entry stays due for a re-fetch")
	assert.Len(t, ent.Records, 1)

	// the next fetch picks up the bumped generation and lands
	gen, ok = s.BeginFetch(resource.KindStaff, d)
	require.True(t, ok)
	assert.True(t, s.CompleteFetch(resource.KindStaff, d, gen, records("a", "b")))
	ent, _ = s.Read(resource.KindStaff, d)
	assert.False(t, ent.Stale)
	assert.Len(t, ent.Records, 2)
}

func Test_Store_BeginFetch_dedupe(t *testing.T) {
	s := NewStore(ttl)
	d := ListDescriptor()

	_, ok := s.BeginFetch(resource.KindStaff, d)
	require.True(t, ok)
	_, ok = s.BeginFetch(resource.KindStaff, d)
	assert.False(t, ok, "concurrent fetch of the same entry is de-duplicated")

	s.AbortFetch(resource.KindStaff, d)
	_, ok = s.BeginFetch(resource.KindStaff, d)
	assert.True(t, ok, "abort releases the in-flight flag")
}

func Test_Store_StaleEntries(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mockNow(t, now)
	s := NewStore(ttl)

	s.Write(resource.KindStaff, ListDescriptor(), records("a"))
	s.Write(resource.KindStaff, DetailDescriptor("a"), records("a"))
	s.Write(resource.KindGroup, ListDescriptor(), nil)

	assert.Empty(t, s.StaleEntries(), "everything fresh")

	s.Invalidate(resource.KindStaff, DetailDescriptor("a"))
	due := s.StaleEntries()
	require.Len(t, due[resource.KindStaff], 1)
	assert.Equal(t, DetailDescriptor("a"), due[resource.KindStaff][0])

	// TTL expiry makes everything due
	NowFunc = func() time.Time { return now.Add(ttl + time.Second) }
	due = s.StaleEntries()
	assert.Len(t, due[resource.KindStaff], 2)
	assert.Len(t, due[resource.KindGroup], 1)

	// entries with a fetch in flight are skipped
	_, ok := s.BeginFetch(resource.KindGroup, ListDescriptor())
	require.True(t, ok)
	assert.Empty(t, s.StaleEntries()[resource.KindGroup])
}

func Test_Store_Clear(t *testing.T) {
	s := NewStore(ttl)
	s.Write(resource.KindStaff, ListDescriptor(), records("a"))
	s.Clear()
	_, ok := s.Read(resource.KindStaff, ListDescriptor())
	assert.False(t, ok)
}

func Test_Descriptor_Key(t *testing.T) {
	assert.Equal(t, "list", ListDescriptor().Key())
	assert.Equal(t, "list+deleted", ListDescriptor(true).Key())
	assert.Equal(t, "detail/a1", DetailDescriptor("a1").Key())
}
