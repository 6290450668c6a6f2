// Package archive implements the optional cold-storage export the
// janitor runs before its acked-message GC sweep deletes rows: a
// durable relay before a destructive step, the same shape as an
// outbox relay, just aimed at S3 instead of a queue.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver writes the batch of rows a GC sweep is about to delete to
// an S3 bucket as a single JSON object, keyed by subscription and time.
// Archival failures never block GC — the bucket is cold storage, not
// the system of record.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archiver(client *s3.Client, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// ArchiveAcked uploads batch (a JSON array of archived rows) to
// s3://bucket/prefix/subscriptionID/<unix-nano>.json.
func (a *S3Archiver) ArchiveAcked(ctx context.Context, subscriptionID string, batch []byte) error {
	key := fmt.Sprintf("%s/%s/%d.json", a.prefix, subscriptionID, time.Now().UTC().UnixNano())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(batch),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	return nil
}
