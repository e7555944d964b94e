// Package storagefs defines the storage boundary a scan/write operation
// resolves paths against before internal/workerexec ever opens DuckDB's
// own file readers. It mirrors internal/adapters' "thin, stateless,
// explicit" interface discipline (no silent retries, no hidden
// fallbacks), narrowed from a full query-engine adapter down to the
// three verbs a file-oriented DataFrame engine actually needs: list,
// open for read, open for write.
package storagefs

import (
	"context"
	"io"
)

// ObjectInfo describes one listed path without opening it.
type ObjectInfo struct {
	Path  string
	Size  int64
	IsDir bool
}

// FileSystem is the storage interface ScanSourceInfo.Paths and
// WriteInfo.Path are resolved against. Implementations must be
// stateless and safe for concurrent use by multiple worker goroutines,
// the same contract internal/adapters.EngineAdapter documents for
// engine adapters.
type FileSystem interface {
	// List expands a path (a single file, a directory, or a glob
	// pattern) into the concrete object paths it matches. A path naming
	// one file that exists returns a single-element slice.
	List(ctx context.Context, path string) ([]ObjectInfo, error)

	// OpenRead opens path for sequential reading. The caller must Close it.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWrite opens path for writing, creating parent directories as
	// needed and truncating any existing object at path. The caller
	// must Close it to flush and finalize the write.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
}

// Registry maps a URI scheme ("file", "s3", ...) to the FileSystem that
// serves it, the storagefs analogue of internal/adapters.AdapterRegistry
// keyed by transport instead of by SQL engine name.
type Registry struct {
	byScheme map[string]FileSystem
	fallback FileSystem
}

// NewRegistry builds an empty registry. Use WithFallback to set the
// scheme used for bare paths (no "scheme://" prefix).
func NewRegistry() *Registry {
	return &Registry{byScheme: make(map[string]FileSystem)}
}

// Register associates scheme with fs. Registering the same scheme twice
// replaces the previous binding.
func (r *Registry) Register(scheme string, fs FileSystem) {
	r.byScheme[scheme] = fs
}

// WithFallback sets the FileSystem used for paths with no recognized
// "scheme://" prefix, returning r for chaining at construction time.
func (r *Registry) WithFallback(fs FileSystem) *Registry {
	r.fallback = fs
	return r
}

// Resolve returns the FileSystem that should serve path.
func (r *Registry) Resolve(path string) (FileSystem, error) {
	scheme := schemeOf(path)
	if scheme == "" {
		if r.fallback == nil {
			return nil, errNoFallback
		}
		return r.fallback, nil
	}
	fs, ok := r.byScheme[scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}
	return fs, nil
}

func schemeOf(path string) string {
	for i := 0; i < len(path); i++ {
		switch {
		case path[i] == ':':
			if i+2 < len(path) && path[i+1] == '/' && path[i+2] == '/' {
				return path[:i]
			}
			return ""
		case path[i] == '/':
			return ""
		}
	}
	return ""
}
