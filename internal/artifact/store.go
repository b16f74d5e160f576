package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/logger"
)

// workspaceDirName is the subdirectory under the temp root that holds all
// unpacked archives.
const workspaceDirName = "task-wizard"

// BlobBackend stores immutable content addressed by sha-256 hex digest.
// Put with an already stored digest must succeed without rewriting.
type BlobBackend interface {
	Put(ctx context.Context, digest string, content []byte) error
	Get(ctx context.Context, digest string) ([]byte, error)
}

// Store is a content-addressed archive store. Put records raw bytes under
// their digest; Unpack materializes an archive blob as a directory tree in
// the local workspace, extracting at most once per (prefix, digest) pair.
type Store struct {
	backend BlobBackend
	rootDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store over the given backend. rootDir is the workspace
// root; empty means the system temp directory.
func NewStore(backend BlobBackend, rootDir string) (*Store, error) {
	if backend == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("blob backend is required")
	}
	if rootDir == "" {
		rootDir = os.TempDir()
	}
	return &Store{
		backend: backend,
		rootDir: filepath.Join(rootDir, workspaceDirName),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Put stores content and returns its sha-256 hex digest.
// Storing the same content twice is a no-op on the second call.
func (s *Store) Put(ctx context.Context, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	if err := s.backend.Put(ctx, digest, content); err != nil {
		return "", appErr.Wrapf(err, appErr.BlobWriteFailed, "store blob %s failed", digest)
	}
	return digest, nil
}

// Unpack returns a directory containing the extracted archive identified by
// digest. The directory is {root}/{prefix}-{digest}; once it exists it is
// never written again. Concurrent calls for the same key block on a per-key
// mutex so only one of them extracts.
func (s *Store) Unpack(ctx context.Context, digest, prefix string) (string, error) {
	if err := validateDigest(digest); err != nil {
		return "", err
	}
	if err := validatePrefix(prefix); err != nil {
		return "", err
	}

	dir := filepath.Join(s.rootDir, fmt.Sprintf("%s-%s", prefix, digest))
	if dirExists(dir) {
		return dir, nil
	}

	lock := s.keyLock(prefix + "-" + digest)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished while we waited.
	if dirExists(dir) {
		return dir, nil
	}

	content, err := s.backend.Get(ctx, digest)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.rootDir, 0o755); err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceFailed, "create workspace root failed")
	}
	tempDir, err := os.MkdirTemp(s.rootDir, "."+prefix+"-extract-")
	if err != nil {
		return "", appErr.Wrapf(err, appErr.WorkspaceFailed, "create extraction dir failed")
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	if err := extractArchive(content, tempDir); err != nil {
		return "", err
	}

	if err := os.Rename(tempDir, dir); err != nil {
		// A concurrent process may have raced us to the rename.
		if dirExists(dir) {
			return dir, nil
		}
		return "", appErr.Wrapf(err, appErr.WorkspaceFailed, "move extracted tree failed")
	}

	logger.Debug(ctx, "archive unpacked",
		zap.String("digest", digest),
		zap.String("dir", dir),
	)
	return dir, nil
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func validateDigest(digest string) error {
	if len(digest) != sha256.Size*2 {
		return appErr.ValidationError("digest", "must be a sha-256 hex digest")
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return appErr.ValidationError("digest", "must be a sha-256 hex digest")
	}
	return nil
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return appErr.ValidationError("prefix", "required")
	}
	if strings.ContainsAny(prefix, "/\\") || strings.Contains(prefix, "..") {
		return appErr.ValidationError("prefix", "must not contain path separators")
	}
	return nil
}
