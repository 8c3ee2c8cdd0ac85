package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Writer streams a .tar.zst bundle. Not safe for concurrent use.
// Mutable
type Writer struct {
	zw *zstd.Encoder
	tw *tar.Writer
}

func NewWriter(w io.Writer) (*Writer, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	return &Writer{zw: zw, tw: tar.NewWriter(zw)}, nil
}

// Add appends a regular file. name uses forward slashes.
func (w *Writer) Add(name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:     path.Clean(name),
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Close flushes the tar and zstd streams. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.zw.Close()
		return err
	}
	return w.zw.Close()
}
