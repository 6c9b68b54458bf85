// ABOUTME: Adapts the loyalty API client to the normalizer's profile lookup
// ABOUTME: Serves repeat lookups from the profile cache when one is configured

package gateway

import (
	"context"

	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/loyaltyapi"
	"github.com/2389/loyalty-form/internal/profilecache"
)

// userGetter is the part of the loyalty API client used for enrichment.
type userGetter interface {
	GetUser(ctx context.Context, userID string) (*loyaltyapi.User, error)
}

// cachedProfiles implements auth.ProfileLookup. cache may be nil.
type cachedProfiles struct {
	users userGetter
	cache *profilecache.Cache
}

func newCachedProfiles(users userGetter, cache *profilecache.Cache) *cachedProfiles {
	return &cachedProfiles{users: users, cache: cache}
}

func (p *cachedProfiles) LookupProfile(ctx context.Context, userID string) (auth.Profile, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(userID); ok {
			return auth.Profile(cached), nil
		}
	}

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return auth.Profile{}, err
	}

	profile := auth.Profile{FirstName: user.FirstName, LastName: user.LastName}
	if p.cache != nil {
		p.cache.Put(userID, profilecache.Profile(profile))
	}
	return profile, nil
}
