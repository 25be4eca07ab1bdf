package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/elimucloud/dawati/core/resource"
)

type DB struct {
	mutex sync.RWMutex
	table map[string]*resource.Record
}

func Open() *DB {
	return &DB{table: make(map[string]*resource.Record)}
}

type recordRepository struct {
	db *DB
}

var _ resource.Repository = (*recordRepository)(nil)

func NewRecordRepository(db *DB) resource.Repository {
	return &recordRepository{db: db}
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec resource.Record) (resource.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *recordRepository) GetRecord(_ context.Context, kind resource.Kind, id string) (resource.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[id]; ok && rec.Kind == kind {
		return *rec, nil
	}
	return resource.Record{}, resource.ErrNotFound
}

func (repo *recordRepository) QueryRecords(_ context.Context, filter resource.QueryFilter) ([]resource.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]resource.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if rec.Kind != filter.Kind {
			continue
		}
		if rec.SoftDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(filter.Search)) {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}

func (repo *recordRepository) UpdateRecord(_ context.Context, rec resource.Record) (resource.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[rec.ID]; !ok {
		return resource.Record{}, resource.ErrNotFound
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}
