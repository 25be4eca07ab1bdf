package cache

import (
	"sync"
	"time"

	"github.com/elimucloud/dawati/core/resource"
)

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

type (
	// Entry is a read-only snapshot of a cache entry. Detail entries hold
	// exactly one record.
	Entry struct {
		Descriptor Descriptor
		Records    []resource.Record
		FetchedAt  time.Time
		Stale      bool
		InFlight   bool
	}

	entry struct {
		descriptor Descriptor
		records    []resource.Record
		fetchedAt  time.Time
		stale      bool
		inFlight   bool
		gen        uint64
	}

	// Store is the in-memory keyed store mapping (kind, descriptor) to the
	// last known server-derived value plus freshness metadata.
	//
	// Ordering rule: an Invalidate supersedes any concurrent Patch or
	// in-flight fetch of the same entry. Each entry carries a generation
	// counter; Invalidate bumps it, and fetches begun before the bump are
	// discarded on completion.
	Store struct {
		mu      sync.RWMutex
		entries map[resource.Kind]map[string]*entry
		ttl     time.Duration
	}
)

// Single returns the record for detail entries.
func (e Entry) Single() (resource.Record, bool) {
	if e.Descriptor.List || len(e.Records) != 1 {
		return resource.Record{}, false
	}
	return e.Records[0], true
}

// Fresh reports whether the entry may be served without a re-fetch.
func (e Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return !e.Stale && !e.FetchedAt.IsZero() && now.Sub(e.FetchedAt) <= ttl
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[resource.Kind]map[string]*entry),
		ttl:     ttl,
	}
}

func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) get(kind resource.Kind, d Descriptor) *entry {
	if byKey, ok := s.entries[kind]; ok {
		return byKey[d.Key()]
	}
	return nil
}

func (s *Store) getOrCreate(kind resource.Kind, d Descriptor) *entry {
	byKey, ok := s.entries[kind]
	if !ok {
		byKey = make(map[string]*entry)
		s.entries[kind] = byKey
	}
	ent, ok := byKey[d.Key()]
	if !ok {
		ent = &entry{descriptor: d, stale: true}
		byKey[d.Key()] = ent
	}
	return ent
}

func (e *entry) snapshot() Entry {
	records := make([]resource.Record, len(e.records))
	copy(records, e.records)
	return Entry{
		Descriptor: e.descriptor,
		Records:    records,
		FetchedAt:  e.fetchedAt,
		Stale:      e.stale,
		InFlight:   e.inFlight,
	}
}

// Read returns the entry for (kind, d), if any. Side-effect-free: a stale
// entry is still returned as-is (stale-while-revalidate), the caller decides
// whether to trigger a re-fetch.
func (s *Store) Read(kind resource.Kind, d Descriptor) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent := s.get(kind, d)
	if ent == nil || ent.fetchedAt.IsZero() {
		observeRead(kind, readMiss)
		return Entry{}, false
	}
	if ent.stale || NowFunc().Sub(ent.fetchedAt) > s.ttl {
		observeRead(kind, readStale)
	} else {
		observeRead(kind, readHit)
	}
	return ent.snapshot(), true
}

// Write replaces the stored value and resets the freshness metadata.
func (s *Store) Write(kind resource.Kind, d Descriptor, records []resource.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(s.getOrCreate(kind, d), records)
}

func (s *Store) write(ent *entry, records []resource.Record) {
	ent.records = make([]resource.Record, len(records))
	copy(ent.records, records)
	ent.fetchedAt = NowFunc()
	ent.stale = false
	ent.inFlight = false
	ent.gen++
}

// BeginFetch marks the entry in-flight and returns its generation token.
// It returns ok=false when a fetch for the same entry is already running,
// so concurrent readers and staleness timers de-duplicate.
func (s *Store) BeginFetch(kind resource.Kind, d Descriptor) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.getOrCreate(kind, d)
	if ent.inFlight {
		return 0, false
	}
	ent.inFlight = true
	return ent.gen, true
}

// CompleteFetch stores a fetch result. The result is discarded when the
// entry was invalidated after the fetch began (a full re-fetch supersedes
// data raced by an invalidation).
func (s *Store) CompleteFetch(kind resource.Kind, d Descriptor, gen uint64, records []resource.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.get(kind, d)
	if ent == nil {
		return false
	}
	ent.inFlight = false
	if ent.gen != gen {
		return false
	}
	s.write(ent, records)
	return true
}

// AbortFetch clears the in-flight flag after a failed fetch; the previous
// value (possibly stale) is left untouched.
func (s *Store) AbortFetch(kind resource.Kind, d Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent := s.get(kind, d); ent != nil {
		ent.inFlight = false
	}
}

// Patch applies updater to the record matching id inside every entry of the
// kind that contains it; entries not holding the id are left alone, and
// stale entries are skipped (their next read re-fetches anyway, and an
// invalidation must not be undone by a late patch). Patches for different
// ids are commutative.
//
// A record patched to soft-deleted is dropped from list entries whose
// descriptor excludes deleted records.
func (s *Store) Patch(kind resource.Kind, id string, updater func(*resource.Record)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var patched int
	for _, ent := range s.entries[kind] {
		if ent.stale || ent.fetchedAt.IsZero() {
			continue
		}
		for i := range ent.records {
			if ent.records[i].ID != id {
				continue
			}
			updater(&ent.records[i])
			patched++
			if ent.records[i].SoftDeleted && ent.descriptor.List && !ent.descriptor.IncludeDeleted {
				ent.records = append(ent.records[:i], ent.records[i+1:]...)
			}
			break
		}
	}
	if patched > 0 {
		observePatch(kind)
	}
	return patched
}

// Invalidate marks the entry stale so the next read triggers a re-fetch;
// the current (stale) value remains readable until then.
func (s *Store) Invalidate(kind resource.Kind, d Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ent := s.get(kind, d); ent != nil {
		ent.stale = true
		ent.gen++
		observeInvalidation(kind)
	}
}

// InvalidateKind marks every entry of the kind stale.
func (s *Store) InvalidateKind(kind resource.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ent := range s.entries[kind] {
		ent.stale = true
		ent.gen++
	}
	observeInvalidation(kind)
}

// StaleEntries lists descriptors of entries due for a re-fetch and not
// already in flight. Used by the background refresher.
func (s *Store) StaleEntries() map[resource.Kind][]Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := NowFunc()
	due := make(map[resource.Kind][]Descriptor)
	for kind, byKey := range s.entries {
		for _, ent := range byKey {
			if ent.inFlight {
				continue
			}
			if ent.stale || (!ent.fetchedAt.IsZero() && now.Sub(ent.fetchedAt) > s.ttl) {
				due[kind] = append(due[kind], ent.descriptor)
			}
		}
	}
	return due
}

// Clear evicts everything (e.g. on logout).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[resource.Kind]map[string]*entry)
}
