package plansync

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/production_backend/utils"
)

// Archiver keeps the raw feed body of a run for later inspection.
type Archiver interface {
	Archive(ctx context.Context, runId string, executedAt time.Time, body []byte) (string, error)
}

type gcsArchiver struct {
	bucket string
	upload func(ctx context.Context, bucket, object string, data []byte, contentType string) error
}

// NewGCSArchiver returns nil when bucket is empty, which disables archiving.
func NewGCSArchiver(bucket string) Archiver {
	if bucket == "" {
		return nil
	}
	return &gcsArchiver{bucket: bucket, upload: utils.UploadBytesToGCS}
}

func archiveObjectName(runId string, executedAt time.Time) string {
	return fmt.Sprintf("plansync/orders/%s/%s.json", executedAt.UTC().Format("2006/01/02"), runId)
}

func (a *gcsArchiver) Archive(ctx context.Context, runId string, executedAt time.Time, body []byte) (string, error) {
	object := archiveObjectName(runId, executedAt)
	if err := a.upload(ctx, a.bucket, object, body, "application/json"); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, object), nil
}
