package storagefs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is the FileSystem implementation registered under the "file"
// scheme and used as the default Registry fallback: it resolves every
// path directly against the process's local filesystem. cmd/workerd
// installs it both ways; internal/workerexec's ReadFile resolves paths
// through it when the executor has storage attached, while WriteFile
// writes through DuckDB COPY and does not use it.
type Local struct{}

// NewLocal returns a Local filesystem. It carries no state: every call
// re-derives everything it needs from the path argument, matching
// internal/adapters' "stateless, replaceable" adapter discipline.
func NewLocal() Local { return Local{} }

func (Local) List(ctx context.Context, path string) ([]ObjectInfo, error) {
	matches, err := filepath.Glob(path)
	if err != nil {
		return nil, fmt.Errorf("storagefs: glob %q: %w", path, err)
	}
	if matches == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			matches = []string{path}
		}
	}

	out := make([]ObjectInfo, 0, len(matches))
	for _, m := range matches {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		info, err := os.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("storagefs: stat %q: %w", m, err)
		}
		if info.IsDir() {
			entries, err := expandDir(m)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
			continue
		}
		out = append(out, ObjectInfo{Path: m, Size: info.Size()})
	}
	return out, nil
}

func expandDir(dir string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, ObjectInfo{Path: p, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storagefs: walk %q: %w", dir, err)
	}
	return out, nil
}

func (Local) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storagefs: open %q: %w", path, err)
	}
	return f, nil
}

func (Local) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storagefs: mkdir %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("storagefs: create %q: %w", path, err)
	}
	return f, nil
}
