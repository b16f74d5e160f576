package artifact

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// extractArchive detects the compression format (tar+zstd or tar+gzip) and
// extracts the tree into dstDir.
func extractArchive(content []byte, dstDir string) error {
	decompressed, err := decompress(content)
	if err != nil {
		return err
	}
	defer decompressed.Close()
	return extractTar(decompressed, dstDir)
}

func decompress(content []byte) (io.ReadCloser, error) {
	switch {
	case bytes.HasPrefix(content, zstdMagic):
		r, err := zstd.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.InvalidArchive, "create zstd reader failed")
		}
		return r.IOReadCloser(), nil
	case bytes.HasPrefix(content, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.InvalidArchive, "create gzip reader failed")
		}
		return r, nil
	default:
		return nil, appErr.New(appErr.InvalidArchive).WithMessage("unrecognized archive format")
	}
}

func extractTar(r io.Reader, dstDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.InvalidArchive, "read tar entry failed")
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return appErr.New(appErr.InvalidArchive).WithMessage("invalid tar entry path")
		}
		target := filepath.Join(dstDir, cleanName)
		if !strings.HasPrefix(target, filepath.Clean(dstDir)+string(filepath.Separator)) {
			return appErr.New(appErr.InvalidArchive).WithMessage("tar entry escape detected")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return appErr.Wrapf(err, appErr.ExtractionFailed, "create dir failed")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return appErr.Wrapf(err, appErr.ExtractionFailed, "create parent dir failed")
			}
			file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode).Perm())
			if err != nil {
				return appErr.Wrapf(err, appErr.ExtractionFailed, "create file failed")
			}
			if _, err := io.Copy(file, tr); err != nil {
				_ = file.Close()
				return appErr.Wrapf(err, appErr.ExtractionFailed, "write file failed")
			}
			_ = file.Close()
		default:
			// Symlinks and special files are not part of problem archives.
		}
	}
	return nil
}
