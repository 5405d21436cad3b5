package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/hackwithabx/CDAC-Dependency-check/internal/domain/scans"
)

// Store keeps report artifacts and source archives in one bucket under
// disjoint key prefixes, so removing a source object can never touch the
// report object for the same scan.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

const (
	sourcePrefix = "sources/"
	reportPrefix = "reports/"
)

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

func sourceKey(id domain.ScanID) string { return sourcePrefix + string(id) + ".zip" }
func reportKey(id domain.ScanID) string { return reportPrefix + string(id) }

func (s *Store) PutSource(ctx context.Context, id domain.ScanID, filename string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucketName, sourceKey(id), r, size, minio.PutObjectOptions{
		ContentType: "application/zip",
		UserMetadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		return fmt.Errorf("uploading source %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetSource(ctx context.Context, id domain.ScanID) (io.ReadCloser, error) {
	return s.get(ctx, sourceKey(id))
}

func (s *Store) DeleteSource(ctx context.Context, id domain.ScanID) error {
	err := s.client.RemoveObject(ctx, s.bucketName, sourceKey(id), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("removing source %s: %w", id, err)
	}
	return nil
}

func (s *Store) PutReport(ctx context.Context, id domain.ScanID, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, reportKey(id), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading report %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id domain.ScanID) (io.ReadCloser, error) {
	return s.get(ctx, reportKey(id))
}

// get validates the object exists before handing back the stream;
// minio-go defers the NoSuchKey error to the first Read otherwise.
func (s *Store) get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

var _ domain.ArtifactStore = (*Store)(nil)
