// Package storage defines the raw note store file-system abstraction.
package storage

import "time"

// FileInfo describes one stored note file relative to the store root.
type FileInfo struct {
	Path    string // tenant-relative, forward slashes
	Mtime   time.Time
	Sidecar bool // true for .enc.json encrypted payloads
}

// Provider is the interface for raw note store operations. All paths are
// relative to the store root; implementations must reject traversal.
type Provider interface {
	// List returns every note file (plain or encrypted sidecar) under the
	// root, skipping any path with a hidden segment.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path. Missing files are not an error.
	Delete(path string) error
}
