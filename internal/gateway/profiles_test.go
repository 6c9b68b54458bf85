// ABOUTME: Tests for the cached profile lookup used by enrichment

package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/loyaltyapi"
	"github.com/2389/loyalty-form/internal/profilecache"
)

type stubUsers struct {
	calls int
	err   error
}

func (s *stubUsers) GetUser(_ context.Context, userID string) (*loyaltyapi.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &loyaltyapi.User{ID: userID, FirstName: "Ann", LastName: "Lee"}, nil
}

func TestCachedProfiles_WithoutCache(t *testing.T) {
	users := &stubUsers{}
	p := newCachedProfiles(users, nil)

	for i := 0; i < 2; i++ {
		profile, err := p.LookupProfile(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, auth.Profile{FirstName: "Ann", LastName: "Lee"}, profile)
	}
	assert.Equal(t, 2, users.calls)
}

func TestCachedProfiles_WithCache(t *testing.T) {
	cache := profilecache.New(time.Minute, 10)
	defer cache.Close()

	users := &stubUsers{}
	p := newCachedProfiles(users, cache)

	for i := 0; i < 3; i++ {
		profile, err := p.LookupProfile(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "Ann", profile.FirstName)
	}
	assert.Equal(t, 1, users.calls)
	assert.Equal(t, 1, cache.Len())
}

func TestCachedProfiles_ErrorsAreNotCached(t *testing.T) {
	cache := profilecache.New(time.Minute, 10)
	defer cache.Close()

	users := &stubUsers{err: errors.New("upstream down")}
	p := newCachedProfiles(users, cache)

	_, err := p.LookupProfile(context.Background(), "42")
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	users.err = nil
	profile, err := p.LookupProfile(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Lee", profile.LastName)
	assert.Equal(t, 2, users.calls)
}
