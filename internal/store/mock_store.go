// ABOUTME: Mock LogoStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory LogoStore implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	logos   map[string]*Logo // keyed by filename
	current string

	// PingErr is returned from Ping when set.
	PingErr error
}

var _ LogoStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{logos: make(map[string]*Logo)}
}

func (m *MockStore) StoreLogo(_ context.Context, rawURL, name string) (*Logo, error) {
	filename, err := LogoFilename(rawURL, name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	logo := &Logo{Filename: filename, URL: rawURL, AddedAt: time.Now().UTC()}
	m.logos[filename] = logo

	cp := *logo
	return &cp, nil
}

func (m *MockStore) ListLogos(_ context.Context) ([]*Logo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logos := make([]*Logo, 0, len(m.logos))
	for _, logo := range m.logos {
		cp := *logo
		logos = append(logos, &cp)
	}
	sort.Slice(logos, func(i, j int) bool {
		if !logos[i].AddedAt.Equal(logos[j].AddedAt) {
			return logos[i].AddedAt.After(logos[j].AddedAt)
		}
		return logos[i].Filename < logos[j].Filename
	})
	return logos, nil
}

func (m *MockStore) GetLogo(_ context.Context, filename string) (*Logo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logo, ok := m.logos[filename]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *logo
	return &cp, nil
}

func (m *MockStore) DeleteLogo(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logo, ok := m.logos[filename]
	if !ok {
		return ErrNotFound
	}
	delete(m.logos, filename)
	if m.current == logo.URL {
		m.current = ""
	}
	return nil
}

func (m *MockStore) SetCurrentLogo(_ context.Context, rawURL string) error {
	if _, err := ValidateLogoURL(rawURL); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = rawURL
	return nil
}

func (m *MockStore) CurrentLogo(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == "" {
		return "", ErrNotFound
	}
	return m.current, nil
}

func (m *MockStore) Ping(_ context.Context) error {
	return m.PingErr
}

func (m *MockStore) Close() error {
	return nil
}
