package storefakes

import (
	"sync"

	"github.com/taxbook/taxbook-go/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credentials.Store for tests.
type FakeStore struct {
	lock    sync.RWMutex
	access  string
	refresh string

	// SetErr and ClearErr, when set, are returned by the corresponding
	// write so tests can exercise persistence failures.
	SetErr   error
	ClearErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith starts the store pre-populated.
func NewFakeStoreWith(access, refresh string) *FakeStore {
	return &FakeStore{access: access, refresh: refresh}
}

func (s *FakeStore) Access() (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.access, s.access != ""
}

func (s *FakeStore) Refresh() (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.refresh, s.refresh != ""
}

func (s *FakeStore) SetTokens(access, refresh string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	return nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.access = ""
	s.refresh = ""
	return nil
}
