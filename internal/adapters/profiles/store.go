package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/benbjohnson/clock"

	"vwapReversionBot/internal/domain"
	"vwapReversionBot/internal/ports"
)

// Store implements the ports.ProfileStore interface using one JSON file per
// profile inside a directory. File names are "<profile name>.json".
type Store struct {
	dir    string
	logger ports.Logger
	clock  clock.Clock
}

// Config holds configuration for the profile store.
type Config struct {
	Dir    string
	Logger ports.Logger
	Clock  clock.Clock // Defaults to the real clock
}

// NewStore creates a new profile store, creating the directory if needed.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for profile store")
	}
	dir := cfg.Dir
	if dir == "" {
		dir = "./profiles" // Default directory
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("failed to create profiles directory '%s': %w", dir, err)
		cfg.Logger.Error(context.Background(), err, "Profile store initialization failed")
		return nil, err
	}

	return &Store{dir: dir, logger: cfg.Logger, clock: clk}, nil
}

// path returns the file path for a profile name.
func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// validateName rejects names that would escape the store directory.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("profile name '%s' must be a plain file name", name)
	}
	return nil
}

// Save writes the profile under its name. LastModified is always stamped with
// the current time; Created is stamped only when unset, so re-saving an
// existing profile keeps its original creation time.
func (s *Store) Save(ctx context.Context, profile *domain.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is required")
	}
	if err := validateName(profile.Name); err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	if profile.Created.IsZero() {
		profile.Created = now
	}
	profile.LastModified = now
	profile.Version = domain.ProfileVersion

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile '%s': %w", profile.Name, err)
	}
	if err := os.WriteFile(s.path(profile.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write profile '%s': %w", profile.Name, err)
	}

	s.logger.Info(ctx, "Profile saved", map[string]interface{}{
		"profile": profile.Name,
		"path":    s.path(profile.Name),
	})
	return nil
}

// Load retrieves a profile by name.
func (s *Store) Load(ctx context.Context, name string) (*domain.Profile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: '%s'", ports.ErrProfileNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile '%s': %w", name, err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ports.ErrInvalidProfile, name, err)
	}
	// Older files may omit the name field; fall back to the file name.
	if profile.Name == "" {
		profile.Name = name
	}

	s.logger.Debug(ctx, "Profile loaded", map[string]interface{}{"profile": name})
	return &profile, nil
}

// List returns the names of all stored profiles, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory '%s': %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a stored profile by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: '%s'", ports.ErrProfileNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete profile '%s': %w", name, err)
	}

	s.logger.Info(ctx, "Profile deleted", map[string]interface{}{"profile": name})
	return nil
}

// Export copies the named profile file to an arbitrary path, byte for byte.
func (s *Store) Export(ctx context.Context, name, path string) error {
	if err := validateName(name); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: '%s'", ports.ErrProfileNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to read profile '%s': %w", name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to export profile '%s' to '%s': %w", name, path, err)
	}

	s.logger.Info(ctx, "Profile exported", map[string]interface{}{
		"profile": name,
		"path":    path,
	})
	return nil
}

// Import reads a profile file from an arbitrary path and stores a copy under
// the name recorded inside the file. Files without a name field are stored
// under the source file's base name.
func (s *Store) Import(ctx context.Context, path string) (*domain.Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: '%s'", ports.ErrProfileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file '%s': %w", path, err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ports.ErrInvalidProfile, path, err)
	}
	if profile.Name == "" {
		base := filepath.Base(path)
		profile.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := validateName(profile.Name); err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ports.ErrInvalidProfile, path, err)
	}

	if err := os.WriteFile(s.path(profile.Name), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to store imported profile '%s': %w", profile.Name, err)
	}

	s.logger.Info(ctx, "Profile imported", map[string]interface{}{
		"profile": profile.Name,
		"source":  path,
	})
	return &profile, nil
}
