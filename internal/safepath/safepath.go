// Package safepath guards filesystem writes driven by untrusted archive
// metadata: entry paths must stay inside the extraction root, and the
// cumulative decompressed size must stay under a ceiling.
package safepath

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

var ErrTraversal = errors.New("unsafe archive entry path")
var ErrSizeLimit = errors.New("extraction size limit exceeded")

// Join resolves an archive entry name against root and returns the
// target path, or ErrTraversal if the entry would land outside root.
// Called once per entry, immediately before that entry is written.
func Join(root, name string) (string, error) {
	name = strings.TrimSpace(name)
	// Reject before Clean, which would turn "" into ".".
	if name == "" {
		return "", ErrTraversal
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	// Many archives carry "." or "./" as their first directory entry.
	// Treat that as the extraction root itself.
	if clean == "." {
		return root, nil
	}
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", ErrTraversal
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrTraversal
	}

	target := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", ErrTraversal
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrTraversal
	}
	return target, nil
}

// SizeGuard tracks cumulative bytes written across all entries of one
// extraction. It is safe for concurrent use, so entry writes may be
// parallelized without losing the ceiling.
type SizeGuard struct {
	mu      sync.Mutex
	limit   int64
	written int64
}

// NewSizeGuard returns a guard with the given ceiling in bytes.
// A non-positive limit disables the guard.
func NewSizeGuard(limit int64) *SizeGuard {
	return &SizeGuard{limit: limit}
}

// Add records n more bytes and fails with ErrSizeLimit once the total
// crosses the ceiling.
func (g *SizeGuard) Add(n int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.written += n
	if g.limit > 0 && g.written > g.limit {
		return ErrSizeLimit
	}
	return nil
}

// Written returns the total recorded so far.
func (g *SizeGuard) Written() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.written
}

// Writer wraps w so every write counts against the guard. The check
// runs before the underlying write, so a decompression bomb aborts
// mid-stream instead of after the disk fills.
func (g *SizeGuard) Writer(w io.Writer) io.Writer {
	return &guardedWriter{g: g, w: w}
}

type guardedWriter struct {
	g *SizeGuard
	w io.Writer
}

func (gw *guardedWriter) Write(p []byte) (int, error) {
	if err := gw.g.Add(int64(len(p))); err != nil {
		return 0, err
	}
	return gw.w.Write(p)
}
