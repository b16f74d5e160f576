package artifact

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

type memoryBackend struct {
	mu    sync.Mutex
	blobs map[string][]byte
	gets  atomic.Int64
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{blobs: make(map[string][]byte)}
}

func (m *memoryBackend) Put(_ context.Context, digest string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[digest]; !ok {
		m.blobs[digest] = append([]byte(nil), content...)
	}
	return nil
}

func (m *memoryBackend) Get(_ context.Context, digest string) ([]byte, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.blobs[digest]
	if !ok {
		return nil, appErr.Newf(appErr.BlobNotFound, "blob %s not found", digest)
	}
	return content, nil
}

func makeTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	writeTar(t, gw, files)
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func makeTarZst(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	writeTar(t, zw, files)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTar(t *testing.T, w interface{ Write([]byte) (int, error) }, files map[string]string) {
	t.Helper()
	tw := tar.NewWriter(w)
	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestStore(t *testing.T) (*Store, *memoryBackend) {
	t.Helper()
	backend := newMemoryBackend()
	store, err := NewStore(backend, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store, backend
}

func TestPutIsIdempotent(t *testing.T) {
	t.Parallel()
	store, backend := newTestStore(t)
	ctx := context.Background()

	content := []byte("hello archive")
	first, err := store.Put(ctx, content)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	second, err := store.Put(ctx, content)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if first != second {
		t.Fatalf("digests differ: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("digest is not sha-256 hex: %q", first)
	}
	if len(backend.blobs) != 1 {
		t.Fatalf("expected one stored blob, got %d", len(backend.blobs))
	}
}

func TestUnpackTarGzip(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	archive := makeTarGz(t, map[string]string{
		"statement/en.pdf": "pdf bytes",
		"att/notes.txt":    "notes",
	})
	digest, err := store.Put(ctx, archive)
	if err != nil {
		t.Fatal(err)
	}

	dir, err := store.Unpack(ctx, digest, "task")
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "att", "notes.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "notes" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestUnpackTarZstd(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	archive := makeTarZst(t, map[string]string{"solution.cpp": "int main() {}"})
	digest, err := store.Put(ctx, archive)
	if err != nil {
		t.Fatal(err)
	}

	dir, err := store.Unpack(ctx, digest, "sub")
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "solution.cpp")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
}

func TestUnpackExtractsOnce(t *testing.T) {
	t.Parallel()
	store, backend := newTestStore(t)
	ctx := context.Background()

	archive := makeTarGz(t, map[string]string{"a.txt": "a"})
	digest, err := store.Put(ctx, archive)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	dirs := make([]string, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dirs[i], errs[i] = store.Unpack(ctx, digest, "task")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if errs[i] != nil {
			t.Fatalf("unpack %d: %v", i, errs[i])
		}
		if dirs[i] != dirs[0] {
			t.Fatalf("unpack %d returned %s, want %s", i, dirs[i], dirs[0])
		}
	}
	if n := backend.gets.Load(); n != 1 {
		t.Fatalf("backend fetched %d times, want 1", n)
	}

	// A later call must reuse the extracted tree without another fetch.
	if _, err := store.Unpack(ctx, digest, "task"); err != nil {
		t.Fatal(err)
	}
	if n := backend.gets.Load(); n != 1 {
		t.Fatalf("backend fetched %d times after reuse, want 1", n)
	}
}

func TestUnpackUnknownDigest(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	digest := "0000000000000000000000000000000000000000000000000000000000000000"
	_, err := store.Unpack(context.Background(), digest, "task")
	if appErr.GetCode(err) != appErr.BlobNotFound {
		t.Fatalf("expected BlobNotFound, got %v", err)
	}
}

func TestUnpackCorruptContent(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	digest, err := store.Put(ctx, []byte("definitely not an archive"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Unpack(ctx, digest, "task")
	if appErr.GetCode(err) != appErr.InvalidArchive {
		t.Fatalf("expected InvalidArchive, got %v", err)
	}
}

func TestUnpackRejectsPathEscape(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	archive := makeTarGz(t, map[string]string{"../evil.txt": "escape"})
	digest, err := store.Put(ctx, archive)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Unpack(ctx, digest, "task")
	if appErr.GetCode(err) != appErr.InvalidArchive {
		t.Fatalf("expected InvalidArchive, got %v", err)
	}
}

func TestUnpackValidatesArguments(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Unpack(ctx, "nothex", "task"); appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("expected ValidationFailed for bad digest, got %v", err)
	}
	digest := "00000000000000000000000000000000000000000000000000000000000000ff"
	if _, err := store.Unpack(ctx, digest, "a/b"); appErr.GetCode(err) != appErr.ValidationFailed {
		t.Fatalf("expected ValidationFailed for bad prefix, got %v", err)
	}
}
