// Package archive writes and reads the tar bundles used for history exports.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// SupportedExtensions lists the bundle formats Extract understands.
func SupportedExtensions() []string {
	return []string{".tar", ".tar.gz", ".tgz", ".tar.zst"}
}

// IsSupported reports whether filename has a supported bundle extension.
func IsSupported(filename string) bool {
	for _, ext := range SupportedExtensions() {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

// Extract unpacks the bundle at src into dest, picking the decompressor by
// file extension.
func Extract(src string, dest string) error {
	if !IsSupported(src) {
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	case strings.HasSuffix(src, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return ExtractTar(r, dest)
}

// ExtractTar unpacks an uncompressed tar stream into dest. Entries that would
// land outside dest are rejected.
func ExtractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}
		if err := extractEntry(header, tr, dest); err != nil {
			return err
		}
	}
}

func extractEntry(header *tar.Header, r io.Reader, dest string) error {
	target := filepath.Join(dest, header.Name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path in archive: %s", header.Name)
	}

	info := header.FileInfo()
	if info.IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return nil
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}
