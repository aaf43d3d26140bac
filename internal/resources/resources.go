// Package resources implements the read-only fixture store (C3): given a
// resourceId it supplies the document bytes and filename used to set up a
// test case.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tylerbutler/wopi-validator-core/internal/model"
)

// UnknownResourceError is returned when a resourceId has no catalog entry.
type UnknownResourceError struct {
	ResourceID string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("resources: unknown resource %q", e.ResourceID)
}

// Manager loads fixture bytes from a directory bundled with the tool. It
// satisfies model.ResourceManager. Declared resources are read eagerly by
// LoadDir (the catalog is small — dozens of fixtures, not thousands),
// so GetFileContents never touches disk on the request path.
type Manager struct {
	mu        sync.RWMutex
	resources map[string]*model.Resource
}

// NewManager builds an empty Manager. Use Register or LoadDir to populate it.
func NewManager() *Manager {
	return &Manager{resources: make(map[string]*model.Resource)}
}

// Register adds or replaces a resource's catalog entry in memory — used when
// the catalog XML declares <Resources> inline rather than as files on disk.
func (m *Manager) Register(res *model.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resources[res.ID] = res
}

// LoadDir registers every declared resource's bytes from fixtureDir,
// resolving each Resource.Filename relative to it. Call once at startup
// after the catalog has been parsed.
func (m *Manager) LoadDir(fixtureDir string, declared []*model.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range declared {
		path := filepath.Join(fixtureDir, res.Filename)

		data, err := os.ReadFile(path) //nolint:gosec // fixtureDir is operator-supplied, not attacker input
		if err != nil {
			return fmt.Errorf("resources: loading fixture %q: %w", res.ID, err)
		}

		m.resources[res.ID] = &model.Resource{ID: res.ID, Filename: res.Filename, Bytes: data}
	}

	return nil
}

// GetFileContents returns the fixture bytes for resourceID.
func (m *Manager) GetFileContents(resourceID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.resources[resourceID]
	if !ok {
		return nil, &UnknownResourceError{ResourceID: resourceID}
	}

	return res.Bytes, nil
}

// GetFileName returns the fixture filename (with extension) for resourceID.
func (m *Manager) GetFileName(resourceID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.resources[resourceID]
	if !ok {
		return "", &UnknownResourceError{ResourceID: resourceID}
	}

	return res.Filename, nil
}

// Extension returns the fixture's file extension, without the leading dot.
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 && ext[0] == '.' {
		return ext[1:]
	}

	return ext
}
