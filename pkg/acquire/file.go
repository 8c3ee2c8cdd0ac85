package acquire

import (
	"defectlens/pkg/artifact"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// LocalFile is a user-chosen file with its declared type.
type LocalFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// ReadLocalFile loads path, declaring its type from the extension the way a
// browser file picker does. Contents are not sniffed.
func ReadLocalFile(path string, maxBytes int64) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, &UserError{Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	if info.IsDir() {
		return LocalFile{}, &UserError{Message: fmt.Sprintf("%s is a directory", path), Err: ErrValidation}
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return LocalFile{}, tooLarge(filepath.Base(path), info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return LocalFile{}, &UserError{Message: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	return LocalFile{
		Name:     filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	}, nil
}

// FromFile is the file adapter: it validates the declared type and wraps the
// bytes without any I/O.
func FromFile(f LocalFile, maxBytes int64) (*artifact.Image, error) {
	mt := artifact.NormalizeMimeType(f.MimeType)
	if !artifact.IsImageType(mt) {
		got := mt
		if got == "" {
			got = "unknown type"
		}
		return nil, &UserError{
			Message:     fmt.Sprintf("%s is not an image file (got %s)", f.Name, got),
			Remediation: "Please select a JPEG, PNG, WebP or other image file.",
			Err:         fmt.Errorf("%w: %w", ErrValidation, &artifact.NotAnImageError{ContentType: mt}),
		}
	}
	if maxBytes > 0 && int64(len(f.Data)) > maxBytes {
		return nil, tooLarge(f.Name, int64(len(f.Data)), maxBytes)
	}
	img, err := artifact.New(f.Data, mt, f.Name)
	if err != nil {
		return nil, &UserError{Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrValidation, err)}
	}
	return img, nil
}

func tooLarge(name string, size, limit int64) *UserError {
	return &UserError{
		Message: fmt.Sprintf("%s is %s, the limit is %s", name, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(limit))),
		Err:     fmt.Errorf("%w: %w", ErrValidation, artifact.ErrTooLarge),
	}
}
