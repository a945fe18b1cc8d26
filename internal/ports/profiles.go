package ports

import (
	"context"

	"vwapReversionBot/internal/domain"
)

// ProfileStore defines the interface for named parameter bundles (symbol
// lists plus trading and data settings) persisted between runs.
type ProfileStore interface {
	// Save writes the profile under its name, stamping LastModified.
	Save(ctx context.Context, profile *domain.Profile) error
	// Load retrieves a profile by name.
	// Returns nil, ErrProfileNotFound if no such profile exists.
	Load(ctx context.Context, name string) (*domain.Profile, error)
	// List returns the names of all stored profiles, sorted.
	List(ctx context.Context) ([]string, error)
	// Delete removes a stored profile by name.
	Delete(ctx context.Context, name string) error
	// Export copies the named profile to an arbitrary file path.
	Export(ctx context.Context, name, path string) error
	// Import reads a profile file from an arbitrary path, stores it under
	// the name recorded inside the file, and returns it.
	Import(ctx context.Context, path string) (*domain.Profile, error)
}
