// Package testdata serves scenario fixtures loaded from JSON files.
//
// Every *.json file below the data directory becomes a category named after
// its file stem; keys inside a category are gjson paths, so nested values are
// reachable as "admin.address.city".
package testdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/tidwall/gjson"

	"github.com/entrhq/e2ekit/pkg/logging"
)

// DefaultPattern selects data files relative to the data directory.
const DefaultPattern = "**.json"

// UsersCategory holds the credentials returned by Credentials.
const UsersCategory = "users"

var (
	// ErrNotFound is returned when a category or key does not exist.
	ErrNotFound = errors.New("test data not found")

	// ErrDisposed is returned by lookups on a disposed Manager.
	ErrDisposed = errors.New("test data manager is disposed")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithPattern replaces the glob selecting data files. Separators in the
// pattern are "/".
func WithPattern(pattern string) Option {
	return func(m *Manager) {
		m.pattern = pattern
	}
}

// WithEnv replaces the environment lookup used by Env.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.lookupEnv = lookup
	}
}

// Manager holds the test data of one scenario scope.
type Manager struct {
	root      string
	pattern   string
	log       *logging.Logger
	lookupEnv func(string) (string, bool)

	mu       sync.RWMutex
	data     map[string]string
	disposed bool
}

// NewManager loads every data file below root. Files that cannot be read or
// parsed are logged and skipped; a missing root yields an empty manager.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:      root,
		pattern:   DefaultPattern,
		log:       logging.Nop(),
		lookupEnv: os.LookupEnv,
		data:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.load(); err != nil {
		m.log.Errorf("Failed to load test data: %v", err)
	}
	return m
}

func (m *Manager) load() error {
	if m.root == "" {
		return nil
	}
	if _, err := os.Stat(m.root); os.IsNotExist(err) {
		m.log.Debugf("Test data directory %s does not exist", m.root)
		return nil
	}

	matcher, err := glob.Compile(m.pattern, '/')
	if err != nil {
		return fmt.Errorf("invalid test data pattern '%s': %w", m.pattern, err)
	}

	return filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			m.log.Warnf("Skipping %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(m.root, path)
		if err != nil || !matcher.Match(filepath.ToSlash(rel)) {
			return nil
		}
		m.loadFile(path)
		return nil
	})
}

func (m *Manager) loadFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		m.log.Errorf("Failed to read test data %s: %v", path, err)
		return
	}
	if !gjson.ValidBytes(content) || !gjson.ParseBytes(content).IsObject() {
		m.log.Errorf("Test data %s is not a JSON object", path)
		return
	}

	category := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, exists := m.data[category]; exists {
		m.log.Warnf("Test data category %q redefined by %s", category, path)
	}
	m.data[category] = string(content)
	m.log.Infof("Loaded test data from: %s", path)
}

// Categories returns the loaded category names, sorted.
func (m *Manager) Categories() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup resolves key inside category.
func (m *Manager) lookup(category, key string) (gjson.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.disposed {
		return gjson.Result{}, ErrDisposed
	}
	raw, ok := m.data[category]
	if !ok {
		return gjson.Result{}, fmt.Errorf("%w: category %q", ErrNotFound, category)
	}
	result := gjson.Get(raw, key)
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s.%s", ErrNotFound, category, key)
	}
	return result, nil
}

// Get decodes the value at key in category into out.
func (m *Manager) Get(category, key string, out any) error {
	result, err := m.lookup(category, key)
	if err != nil {
		m.log.Warnf("Test data not found: %s.%s", category, key)
		return err
	}
	if err := json.Unmarshal([]byte(result.Raw), out); err != nil {
		return fmt.Errorf("failed to decode test data %s.%s: %w", category, key, err)
	}
	return nil
}

// String returns the value at key rendered as text, or "" when missing.
func (m *Manager) String(category, key string) string {
	result, err := m.lookup(category, key)
	if err != nil {
		m.log.Warnf("Test data not found: %s.%s", category, key)
		return ""
	}
	return result.String()
}

// Credentials returns the string fields of userType in the users category,
// or an empty map.
func (m *Manager) Credentials(userType string) map[string]string {
	creds := map[string]string{}
	result, err := m.lookup(UsersCategory, userType)
	if err != nil {
		m.log.Warnf("Credentials not found for user type %q", userType)
		return creds
	}
	result.ForEach(func(key, value gjson.Result) bool {
		creds[key.String()] = value.String()
		return true
	})
	return creds
}

// Env returns the environment variable name, or "".
func (m *Manager) Env(name string) string {
	value, _ := m.lookupEnv(name)
	return value
}

// Dispose drops the loaded data. Later lookups fail with ErrDisposed.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.disposed = true
}

// Disposed reports whether Dispose has been called.
func (m *Manager) Disposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}
