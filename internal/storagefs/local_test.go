package storagefs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")
	fs := NewLocal()

	w, err := fs.OpenWrite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenWrite: %v", err)
	}
	if _, err := w.Write([]byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := fs.OpenRead(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenRead: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "a,b\n1,2\n" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalListExpandsDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.parquet", "b.parquet"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	fs := NewLocal()
	got, err := fs.List(context.Background(), dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestLocalListGlobPattern(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "part-1.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fs := NewLocal()
	got, err := fs.List(context.Background(), filepath.Join(dir, "*.parquet"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
}

func TestRegistryResolveFallbackAndScheme(t *testing.T) {
	reg := NewRegistry().WithFallback(NewLocal())
	reg.Register("file", NewLocal())

	if _, err := reg.Resolve("/tmp/data.parquet"); err != nil {
		t.Fatalf("Resolve bare path: %v", err)
	}
	if _, err := reg.Resolve("file:///tmp/data.parquet"); err != nil {
		t.Fatalf("Resolve file:// path: %v", err)
	}
	if _, err := reg.Resolve("s3://bucket/key"); err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
}

func TestRegistryResolveNoFallbackErrors(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("data.parquet"); err == nil {
		t.Fatal("expected error when no fallback is configured")
	}
}
