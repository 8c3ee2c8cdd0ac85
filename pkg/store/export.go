package store

import (
	"context"
	"defectlens/pkg/archive"
	"defectlens/pkg/artifact"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const exportConcurrency = 4

// ImageOpener resolves a record's image reference to bytes and a MIME type.
type ImageOpener interface {
	Open(ctx context.Context, ref string) ([]byte, string, error)
}

// Export writes records as a .tar.zst bundle: records.json plus
// images/<id><ext> for every image that can be opened. Images that cannot
// be opened are skipped and logged; the record keeps its image_url.
// It returns the number of images written.
func Export(ctx context.Context, w io.Writer, records []Record, images ImageOpener) (int, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "export").Logger()

	type blob struct {
		name string
		data []byte
	}
	blobs := make([]blob, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for i, rec := range records {
		g.Go(func() error {
			data, mt, err := images.Open(gctx, rec.ImageURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("id", rec.ID).Msg("Skipping image in export")
				return nil
			}
			img := artifact.Image{Data: data, MimeType: artifact.NormalizeMimeType(mt), Name: rec.ImageName}
			blobs[i] = blob{name: "images/" + rec.ID + img.Ext(), data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	manifest, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode records: %w", err)
	}

	aw, err := archive.NewWriter(w)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	if err := aw.Add("records.json", manifest, now); err != nil {
		aw.Close()
		return 0, err
	}
	written := 0
	for _, b := range blobs {
		if b.name == "" {
			continue
		}
		if err := aw.Add(b.name, b.data, now); err != nil {
			aw.Close()
			return written, err
		}
		written++
	}
	return written, aw.Close()
}
