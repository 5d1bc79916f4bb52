package secrets

import "sync"

var _ Store = (*MemStore)(nil)

// MemStore is an unsealed in-memory Store for tests.
type MemStore struct {
	lock    sync.RWMutex
	secrets map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{secrets: make(map[string]string)}
}

func (s *MemStore) Write(key, secret string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.secrets[key] = secret
	return nil
}

func (s *MemStore) Read(key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	secret, ok := s.secrets[key]
	return secret, ok
}

func (s *MemStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.secrets, key)
	return nil
}
