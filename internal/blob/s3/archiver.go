package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloutcast/settler/internal/domain"
)

// Archiver implements domain.RunArchiver by writing each run report as a
// JSON object keyed by date and run ID, e.g.
// settlement-runs/2026/03/14/run-<id>.json.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiver creates an Archiver writing under the given key prefix in the
// client's bucket. An empty prefix defaults to "settlement-runs".
func NewArchiver(c *Client, prefix string) *Archiver {
	if prefix == "" {
		prefix = "settlement-runs"
	}
	return &Archiver{
		client: c.s3,
		bucket: c.bucket,
		prefix: prefix,
	}
}

// ArchiveRun uploads the report. Archival is best effort from the engine's
// point of view; a failure here never affects the settled markets.
func (a *Archiver) ArchiveRun(ctx context.Context, report domain.RunReport) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal run report %s: %w", report.Summary.RunID, err)
	}

	key := fmt.Sprintf("%s/%s/run-%s.json",
		a.prefix,
		report.Summary.StartedAt.UTC().Format("2006/01/02"),
		report.Summary.RunID,
	)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put run report %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RunArchiver = (*Archiver)(nil)
