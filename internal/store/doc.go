// Package store persists the logo registry using SQLite.
//
// # Data Model
//
//   - Logo: a logo URL keyed by a sanitized filename
//   - current logo: a single URL in the settings table that pages fall back
//     to when no branding rule matches
//
// Filenames keep only [a-zA-Z0-9._-]. When no name is supplied the last URL
// path segment is used, and "logo" when that is empty.
//
// # SQLite Configuration
//
// The store uses modernc.org/sqlite (pure Go) with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Default location: ~/.local/share/loyalty-form/logos.db
//
// # Testing
//
// NewMockStore returns an in-memory LogoStore with the same semantics.
// NewSQLiteStore(":memory:") gives a throwaway real database.
package store
