// ABOUTME: Behavior tests shared by SQLiteStore and MockStore
// ABOUTME: Covers logo upsert, listing, deletion and current-logo bookkeeping

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func eachStore(t *testing.T, fn func(t *testing.T, s LogoStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("mock", func(t *testing.T) { fn(t, NewMockStore()) })
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "logos.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewSQLiteStore_Memory(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.StoreLogo(ctx, "https://cdn.example.com/a.png", "")
	require.NoError(t, err)

	logos, err := s.ListLogos(ctx)
	require.NoError(t, err)
	assert.Len(t, logos, 1)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "logos.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	_, err = s.StoreLogo(ctx, "https://cdn.example.com/brand.svg", "")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentLogo(ctx, "https://cdn.example.com/brand.svg"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	logo, err := s.GetLogo(ctx, "brand.svg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/brand.svg", logo.URL)

	current, err := s.CurrentLogo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/brand.svg", current)
}

func TestStoreLogo_FilenameFromURL(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		logo, err := s.StoreLogo(context.Background(), "https://cdn.example.com/images/logo-v2.png?size=1", "")
		require.NoError(t, err)
		assert.Equal(t, "logo-v2.png", logo.Filename)
		assert.Equal(t, "https://cdn.example.com/images/logo-v2.png?size=1", logo.URL)
		assert.WithinDuration(t, time.Now(), logo.AddedAt, time.Minute)
	})
}

func TestStoreLogo_CustomNameSanitized(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		logo, err := s.StoreLogo(context.Background(), "https://cdn.example.com/x.png", "my brand/../logo!.png")
		require.NoError(t, err)
		assert.Equal(t, "mybrand..logo.png", logo.Filename)
	})
}

func TestStoreLogo_Upsert(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		ctx := context.Background()
		_, err := s.StoreLogo(ctx, "https://a.example.com/logo.png", "")
		require.NoError(t, err)
		_, err = s.StoreLogo(ctx, "https://b.example.com/logo.png", "")
		require.NoError(t, err)

		logos, err := s.ListLogos(ctx)
		require.NoError(t, err)
		require.Len(t, logos, 1)
		assert.Equal(t, "https://b.example.com/logo.png", logos[0].URL)
	})
}

func TestStoreLogo_InvalidURL(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		for _, raw := range []string{"", "not a url", "ftp://example.com/a.png", "/relative.png", "javascript:alert(1)"} {
			_, err := s.StoreLogo(context.Background(), raw, "")
			assert.ErrorIs(t, err, ErrInvalidURL, raw)
		}
	})
}

func TestGetLogo_NotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		_, err := s.GetLogo(context.Background(), "missing.png")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestDeleteLogo_ClearsCurrent(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		ctx := context.Background()
		_, err := s.StoreLogo(ctx, "https://cdn.example.com/a.png", "")
		require.NoError(t, err)
		_, err = s.StoreLogo(ctx, "https://cdn.example.com/b.png", "")
		require.NoError(t, err)
		require.NoError(t, s.SetCurrentLogo(ctx, "https://cdn.example.com/a.png"))

		require.NoError(t, s.DeleteLogo(ctx, "b.png"))
		current, err := s.CurrentLogo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/a.png", current)

		require.NoError(t, s.DeleteLogo(ctx, "a.png"))
		_, err = s.CurrentLogo(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		logos, err := s.ListLogos(ctx)
		require.NoError(t, err)
		assert.Empty(t, logos)
	})
}

func TestDeleteLogo_NotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		assert.ErrorIs(t, s.DeleteLogo(context.Background(), "missing.png"), ErrNotFound)
	})
}

func TestCurrentLogo(t *testing.T) {
	eachStore(t, func(t *testing.T, s LogoStore) {
		ctx := context.Background()
		_, err := s.CurrentLogo(ctx)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.SetCurrentLogo(ctx, "nope"), ErrInvalidURL)

		require.NoError(t, s.SetCurrentLogo(ctx, "https://cdn.example.com/a.png"))
		require.NoError(t, s.SetCurrentLogo(ctx, "https://cdn.example.com/b.png"))
		current, err := s.CurrentLogo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/b.png", current)
	})
}

func TestLogoFilename(t *testing.T) {
	tests := []struct {
		url, name, want string
	}{
		{"https://example.com/images/logo.png", "", "logo.png"},
		{"https://example.com/", "", DefaultLogoFilename},
		{"https://example.com", "", DefaultLogoFilename},
		{"https://example.com/%E2%9C%93", "", DefaultLogoFilename},
		{"https://example.com/a.png", "custom.svg", "custom.svg"},
		{"https://example.com/a.png", "***", "a.png"},
	}
	for _, tt := range tests {
		got, err := LogoFilename(tt.url, tt.name)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "logo.png", SanitizeFilename("logo.png"))
	assert.Equal(t, "a_b-c.svg", SanitizeFilename("a_b-c.svg"))
	assert.Equal(t, "etcpasswd", SanitizeFilename("/etc/passwd"))
	assert.Equal(t, "", SanitizeFilename("✓ ✓"))
}
