package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/gobwas/glob"

	"github.com/entrhq/e2ekit/pkg/browser"
	"github.com/entrhq/e2ekit/pkg/logging"
)

// ErrBinaryNotFound is returned when no downloaded browser binary exists.
var ErrBinaryNotFound = errors.New("browser binary not found")

var (
	// project drivers directory: WebDrivers/chrome-<version>/
	projectDirPattern = glob.MustCompile("chrome-*")

	// playwright and rod cache layouts: <cache>/chromium-<revision>/
	cacheDirPattern = glob.MustCompile("{chromium,chromium_headless_shell,chrome}-*")
)

// searchRoot is one directory whose version sub-directories may hold a binary.
type searchRoot struct {
	dir         string
	pattern     glob.Glob
	newestFirst bool
}

// Discoverer finds previously downloaded Chromium builds on disk.
type Discoverer struct {
	roots []searchRoot
	goos  string
	log   *logging.Logger
}

// NewDiscoverer searches driversDir first, then each cache dir in order.
func NewDiscoverer(driversDir string, cacheDirs []string, goos string, log *logging.Logger) *Discoverer {
	if goos == "" {
		goos = runtime.GOOS
	}
	if log == nil {
		log = logging.Nop()
	}

	d := &Discoverer{goos: goos, log: log}
	if driversDir != "" {
		d.roots = append(d.roots, searchRoot{dir: driversDir, pattern: projectDirPattern})
	}
	for _, dir := range cacheDirs {
		if dir == "" {
			continue
		}
		d.roots = append(d.roots, searchRoot{dir: dir, pattern: cacheDirPattern, newestFirst: true})
	}
	return d
}

// DefaultCacheDirs returns the download caches of playwright and go-rod.
func DefaultCacheDirs() []string {
	var dirs []string
	if p := os.Getenv("PLAYWRIGHT_BROWSERS_PATH"); p != "" && p != "0" {
		dirs = append(dirs, p)
	} else if cache, err := os.UserCacheDir(); err == nil {
		dirs = append(dirs, filepath.Join(cache, "ms-playwright"))
	}
	return append(dirs, launcher.DefaultBrowserDir)
}

// BinaryPaths lists the relative locations of a Chromium executable inside
// one version directory, following the host's naming convention.
func BinaryPaths(goos string) []string {
	switch goos {
	case "windows":
		return []string{
			"chrome.exe",
			filepath.Join("chrome-win", "chrome.exe"),
			filepath.Join("chrome-win64", "chrome.exe"),
			filepath.Join("chrome-win", "headless_shell.exe"),
		}
	case "darwin":
		return []string{
			"chrome",
			"chromium",
			filepath.Join("chrome-mac", "Chromium.app", "Contents", "MacOS", "Chromium"),
			filepath.Join("chrome-mac-arm64", "Chromium.app", "Contents", "MacOS", "Chromium"),
			filepath.Join("chrome-mac", "headless_shell"),
		}
	default:
		return []string{
			"chrome",
			"chromium",
			filepath.Join("chrome-linux", "chrome"),
			filepath.Join("chrome-linux64", "chrome"),
			filepath.Join("chrome-linux", "headless_shell"),
		}
	}
}

// Find returns the first binary found for engine.
func (d *Discoverer) Find(engine browser.Engine) (string, error) {
	if engine != browser.EnginePrimary {
		return "", fmt.Errorf("%w: discovery only supports %s", ErrBinaryNotFound, browser.EnginePrimary)
	}

	for _, root := range d.roots {
		if path, ok := d.searchRoot(root); ok {
			d.log.Infof("Found existing browser binary: %s", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %d search locations", ErrBinaryNotFound, len(d.roots))
}

// Candidates returns every binary found, in search order.
func (d *Discoverer) Candidates() []string {
	var found []string
	for _, root := range d.roots {
		for _, dir := range d.versionDirs(root) {
			if path, ok := d.binaryIn(dir); ok {
				found = append(found, path)
			}
		}
	}
	return found
}

// Roots returns the directories searched, in order.
func (d *Discoverer) Roots() []string {
	dirs := make([]string, 0, len(d.roots))
	for _, root := range d.roots {
		dirs = append(dirs, root.dir)
	}
	return dirs
}

func (d *Discoverer) searchRoot(root searchRoot) (string, bool) {
	for _, dir := range d.versionDirs(root) {
		if path, ok := d.binaryIn(dir); ok {
			return path, true
		}
	}
	return "", false
}

func (d *Discoverer) versionDirs(root searchRoot) []string {
	entries, err := os.ReadDir(root.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			d.log.Debugf("Cannot read %s: %v", root.dir, err)
		}
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && root.pattern.Match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if root.newestFirst {
		sort.SliceStable(names, func(i, j int) bool {
			return versionLess(names[j], names[i])
		})
	}

	dirs := make([]string, 0, len(names))
	for _, name := range names {
		dirs = append(dirs, filepath.Join(root.dir, name))
	}
	return dirs
}

func (d *Discoverer) binaryIn(dir string) (string, bool) {
	for _, rel := range BinaryPaths(d.goos) {
		path := filepath.Join(dir, rel)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// versionLess orders directory names by their numeric revision suffix when
// both have one, otherwise by name.
func versionLess(a, b string) bool {
	ra, okA := revision(a)
	rb, okB := revision(b)
	if okA && okB && ra != rb {
		return ra < rb
	}
	return a < b
}

func revision(name string) (int, bool) {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	return n, err == nil
}
