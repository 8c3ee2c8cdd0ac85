// Package inspect runs an acquired image through detection and stores the
// outcome.
package inspect

import (
	"context"
	"defectlens/pkg/artifact"
	"defectlens/pkg/detect"
	"defectlens/pkg/store"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Detector interface {
	Analyze(ctx context.Context, img *artifact.Image) (*detect.Result, error)
}

type RecordStore interface {
	Save(ctx context.Context, e store.Entry) (*store.Record, error)
	ListRecent(ctx context.Context, limit int) ([]store.Record, error)
}

// ObjectStore is optional. Upload failures fall back to inline data URIs.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// Service is safe for concurrent use if its collaborators are.
type Service struct {
	detector Detector
	records  RecordStore
	objects  ObjectStore
	now      func() time.Time
}

// New wires a Service. objects may be nil.
func New(d Detector, records RecordStore, objects ObjectStore) *Service {
	return &Service{detector: d, records: records, objects: objects, now: time.Now}
}

// Inspect analyzes img and saves the result. Images the model rejects as
// "not a product" fail with detect.ErrNotAProduct and are not saved.
func (s *Service) Inspect(ctx context.Context, img *artifact.Image) (*store.Record, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "inspect").Str("image", img.Name).Logger()

	result, err := s.detector.Analyze(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", img.Name, err)
	}

	ref := s.upload(ctx, img, log)
	w, h := img.Dimensions()
	rec, err := s.records.Save(ctx, store.Entry{
		ImageURL:  ref,
		ImageName: img.Name,
		Result:    result,
		Width:     w,
		Height:    h,
	})
	if err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	log.Debug().Str("id", rec.ID).Bool("defective", rec.DefectDetected).Msg("Inspection saved")
	return rec, nil
}

func (s *Service) upload(ctx context.Context, img *artifact.Image, log zerolog.Logger) string {
	if s.objects == nil {
		return img.DataURI()
	}
	name := fmt.Sprintf("%d_%s", s.now().UnixMilli(), objectName(img))
	ref, err := s.objects.Upload(ctx, img.Data, name)
	if err != nil {
		log.Warn().Err(err).Msg("Upload failed, storing image inline")
		return img.DataURI()
	}
	return ref
}

// History lists the most recent records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.Record, error) {
	return s.records.ListRecent(ctx, limit)
}
