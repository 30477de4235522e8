// Package lockfile implements .intlbot.lock, a lock file that tracks MD5
// checksums of scanned source files. This enables incremental extraction:
// files whose content has not changed since the last run are skipped
// without re-scanning or rewriting.
//
// The lock file is stored alongside .intlbot.yaml at the project root.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = ".intlbot.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the .intlbot.lock file structure.
type LockFile struct {
	Version int               `yaml:"version"`
	Files   map[string]string `yaml:"files"` // source path -> md5 of content

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version: Version,
		Files:   make(map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Files == nil {
		lf.Files = make(map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of source content.
func Hash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}

// FileKey builds the lock file key for a source file path.
func FileKey(relPath string) string {
	return filepath.ToSlash(relPath)
}

// IsChanged checks if a source file has changed since the last extraction.
// Returns true if the file is new or its content differs.
func (lf *LockFile) IsChanged(relPath string, content []byte) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	oldHash, ok := lf.Files[FileKey(relPath)]
	if !ok {
		return true
	}
	return oldHash != Hash(content)
}

// Update records the checksum of a source file after a successful scan.
func (lf *LockFile) Update(relPath string, content []byte) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.Files[FileKey(relPath)] = Hash(content)
}

// Clean removes entries for files no longer present in the current scan
// set. This prevents stale entries from accumulating.
func (lf *LockFile) Clean(currentPaths []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(currentPaths))
	for _, p := range currentPaths {
		valid[FileKey(p)] = true
	}

	for k := range lf.Files {
		if !valid[k] {
			delete(lf.Files, k)
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of tracked files.
func (lf *LockFile) Stats() int {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return len(lf.Files)
}

// TrackedFiles returns a sorted list of tracked source paths.
func (lf *LockFile) TrackedFiles() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	files := make([]string, 0, len(lf.Files))
	for f := range lf.Files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	n := lf.Stats()
	if n == 0 {
		return "empty"
	}
	return fmt.Sprintf("%d tracked files", n)
}
