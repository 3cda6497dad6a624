// Package checkpoint saves and restores named snapshots of the record store.
//
// A checkpoint is a directory under the checkpoints root holding one JSON
// array per table: companies.json and press_releases.json.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/jonathan/prflow/internal/schemas"
	"github.com/jonathan/prflow/internal/types"
)

const (
	companiesFile     = "companies.json"
	pressReleasesFile = "press_releases.json"
)

var (
	// ErrNotFound is returned when restoring a checkpoint that does not exist.
	ErrNotFound = errors.New("checkpoint not found")

	namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// NameError reports a checkpoint name outside [a-zA-Z0-9_-].
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("checkpoint name must be alphanumeric, hyphens, underscores: %q", e.Name)
}

// Store is the record store a checkpoint reads from and restores into.
// *db.DB implements it.
type Store interface {
	ExportCompanies(ctx context.Context) ([]types.Company, error)
	ExportPressReleases(ctx context.Context) ([]types.PressRelease, error)
	ReplaceAll(ctx context.Context, companies []types.Company, releases []types.PressRelease) error
}

// Summary counts the rows in a checkpoint.
type Summary struct {
	Name          string `json:"name"`
	Dir           string `json:"dir"`
	Companies     int    `json:"companies"`
	PressReleases int    `json:"press_releases"`
}

// Manager creates, lists and restores checkpoints under Dir.
type Manager struct {
	store Store
	dir   string
}

// NewManager creates a Manager rooted at dir.
func NewManager(store Store, dir string) *Manager {
	return &Manager{store: store, dir: dir}
}

func validName(name string) error {
	if !namePattern.MatchString(name) {
		return &NameError{Name: name}
	}
	return nil
}

// Create snapshots both tables into dir/name, replacing an existing
// checkpoint of the same name.
func (m *Manager) Create(ctx context.Context, name string) (*Summary, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	companies, err := m.store.ExportCompanies(ctx)
	if err != nil {
		return nil, err
	}
	releases, err := m.store.ExportPressReleases(ctx)
	if err != nil {
		return nil, err
	}

	if companies == nil {
		companies = []types.Company{}
	}
	if releases == nil {
		releases = []types.PressRelease{}
	}

	out := filepath.Join(m.dir, name)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if err := writeJSON(filepath.Join(out, companiesFile), companies); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(out, pressReleasesFile), releases); err != nil {
		return nil, err
	}

	log.Printf("[checkpoint] saved %q: %d companies, %d press releases", name, len(companies), len(releases))
	return &Summary{Name: name, Dir: out, Companies: len(companies), PressReleases: len(releases)}, nil
}

// List returns the checkpoint names in lexical order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() && namePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Restore replaces the store's contents with checkpoint name. Both files
// are validated before anything is written. A table whose file is absent
// keeps its current rows.
func (m *Manager) Restore(ctx context.Context, name string) (*Summary, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	in := filepath.Join(m.dir, name)
	info, err := os.Stat(in)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q at %s", ErrNotFound, name, in)
	}

	var companies []types.Company
	found, err := readSnapshot(filepath.Join(in, companiesFile), schemas.Companies, &companies)
	if err != nil {
		return nil, err
	}
	if !found {
		if companies, err = m.store.ExportCompanies(ctx); err != nil {
			return nil, err
		}
	}

	var releases []types.PressRelease
	found, err = readSnapshot(filepath.Join(in, pressReleasesFile), schemas.PressReleases, &releases)
	if err != nil {
		return nil, err
	}
	if !found {
		if releases, err = m.store.ExportPressReleases(ctx); err != nil {
			return nil, err
		}
	}

	if err := m.store.ReplaceAll(ctx, companies, releases); err != nil {
		return nil, fmt.Errorf("failed to restore checkpoint %q: %w", name, err)
	}
	log.Printf("[checkpoint] restored %q: %d companies, %d press releases", name, len(companies), len(releases))
	return &Summary{Name: name, Dir: in, Companies: len(companies), PressReleases: len(releases)}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readSnapshot validates path against schema and decodes it into v.
// It reports false when the file does not exist.
func readSnapshot(path, schema string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := schemas.Validate(schema, data); err != nil {
		return false, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}
