package activity

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ExportManager copies backup archives to customer-facing S3 buckets when a
// policy has auto-export enabled.
type ExportManager struct {
	logger    zerolog.Logger
	endpoint  string
	region    string
	accessKey string
	secretKey string
}

// NewExportManager creates a new ExportManager. endpoint may be empty when
// targeting AWS proper; set it for S3-compatible stores.
func NewExportManager(logger zerolog.Logger, endpoint, region, accessKey, secretKey string) *ExportManager {
	return &ExportManager{
		logger:    logger.With().Str("component", "export-manager").Logger(),
		endpoint:  endpoint,
		region:    region,
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

// s3Client returns an S3 client configured for the export endpoint.
func (m *ExportManager) s3Client() *s3.Client {
	opts := s3.Options{
		Region:       m.region,
		Credentials:  credentials.NewStaticCredentialsProvider(m.accessKey, m.secretKey, ""),
		UsePathStyle: true,
	}
	if m.endpoint != "" {
		opts.BaseEndpoint = aws.String(m.endpoint)
	}
	return s3.New(opts)
}

// ExportBackupParams holds the parameters for ExportBackup.
type ExportBackupParams struct {
	BackupID    string
	ClusterID   string
	ArchivePath string
	Destination string // e.g. "s3://bucket/prefix"
}

// ExportBackup uploads an archive to the destination bucket. The object key
// is prefix/cluster-id/backup-id.archive.gz.
func (m *ExportManager) ExportBackup(ctx context.Context, params ExportBackupParams) (string, error) {
	bucket, prefix, err := splitS3Destination(params.Destination)
	if err != nil {
		return "", err
	}
	key := path.Join(prefix, params.ClusterID, params.BackupID+".archive.gz")

	m.logger.Info().
		Str("backup_id", params.BackupID).
		Str("bucket", bucket).
		Str("key", key).
		Msg("exporting backup archive")

	f, err := os.Open(params.ArchivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	client := m.s3Client()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("upload archive to %s: %w", bucket, err)
	}

	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// DeleteExport removes a previously exported object. Missing objects are not
// an error; the sweep may run more than once.
func (m *ExportManager) DeleteExport(ctx context.Context, location string) error {
	bucket, key, err := splitS3Destination(location)
	if err != nil {
		return err
	}

	m.logger.Info().Str("bucket", bucket).Str("key", key).Msg("deleting exported archive")

	client := m.s3Client()
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !strings.Contains(err.Error(), "NoSuchKey") {
		return fmt.Errorf("delete exported object %s: %w", key, err)
	}
	return nil
}

// splitS3Destination parses "s3://bucket/prefix" into bucket and prefix.
func splitS3Destination(dest string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(dest, "s3://")
	if trimmed == dest || trimmed == "" {
		return "", "", fmt.Errorf("invalid S3 destination %q", dest)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 destination %q", dest)
	}
	return bucket, prefix, nil
}
