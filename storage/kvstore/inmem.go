package kvstore

import (
	"context"
	"sync"

	"github.com/elimucloud/dawati/core/session"
)

type inmemStore struct {
	mutex sync.RWMutex
	table map[string]string
}

var _ session.Store = (*inmemStore)(nil)

// NewInmemStore returns a process-local session store; contents are lost on
// restart. Good enough for tests and short-lived CLI runs.
func NewInmemStore() session.Store {
	return &inmemStore{table: make(map[string]string)}
}

func (s *inmemStore) Get(_ context.Context, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if val, ok := s.table[key]; ok {
		return val, nil
	}
	return "", session.ErrKeyNotFound
}

func (s *inmemStore) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[key] = value
	return nil
}

func (s *inmemStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.table, key)
	return nil
}
