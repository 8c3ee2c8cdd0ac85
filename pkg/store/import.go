package store

import (
	"context"
	"defectlens/pkg/archive"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ImageUploader stores image bytes and returns their reference.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// Restore inserts rec as is, keeping its id and creation time. It reports
// false when a record with that id already exists.
func (s *SQLiteStore) Restore(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" || rec.Result == nil || strings.TrimSpace(rec.ImageURL) == "" {
		return false, fmt.Errorf("%w: id, image url and result are required", ErrInvalidInput)
	}
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return false, fmt.Errorf("encode detection result: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO defect_detections (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ImageURL, rec.ImageName, string(payload), rec.Result.Defective(),
		rec.Result.ProductType, rec.Result.OverallConfidence, rec.Width, rec.Height, created.UTC().UnixNano())
	if err != nil {
		return false, fmt.Errorf("restore record %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Import restores a bundle written by Export. Bundled images are uploaded
// again and the restored record points at the new copy; records whose image
// was not bundled keep their image_url. Records already present are skipped.
// It returns the number of records in the bundle and the number restored.
func Import(ctx context.Context, bundle string, records *SQLiteStore, images ImageUploader) (int, int, error) {
	log := zerolog.Ctx(ctx).With().Str("component", "import").Logger()

	dir, err := os.MkdirTemp("", "defectlens-import-")
	if err != nil {
		return 0, 0, err
	}
	defer os.RemoveAll(dir)

	if err := archive.Extract(bundle, dir); err != nil {
		return 0, 0, err
	}
	manifest, err := os.ReadFile(filepath.Join(dir, "records.json"))
	if err != nil {
		return 0, 0, fmt.Errorf("read records.json: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(manifest, &recs); err != nil {
		return 0, 0, fmt.Errorf("decode records.json: %w", err)
	}

	bundled := map[string]string{}
	entries, err := os.ReadDir(filepath.Join(dir, "images"))
	if err != nil && !os.IsNotExist(err) {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			name := e.Name()
			bundled[strings.TrimSuffix(name, filepath.Ext(name))] = name
		}
	}

	restored := 0
	for _, rec := range recs {
		if name, ok := bundled[rec.ID]; ok && images != nil {
			data, err := os.ReadFile(filepath.Join(dir, "images", name))
			if err != nil {
				return len(recs), restored, err
			}
			ref, err := images.Upload(ctx, data, name)
			if err != nil {
				return len(recs), restored, err
			}
			rec.ImageURL = ref
		}

		ok, err := records.Restore(ctx, rec)
		if err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("Skipping record in import")
			continue
		}
		if ok {
			restored++
		}
	}
	return len(recs), restored, nil
}
