package artifactstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/epg-server/internal/domain/artifact"
)

var r2Prefixes = map[artifact.Location]string{
	artifact.LocationData:     "data",
	artifact.LocationLive:     "live",
	artifact.LocationLiveFile: "live/file",
}

// R2Store reads artifacts uploaded to Cloudflare R2 via the S3 API.
type R2Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewR2Store constructs the storage adapter.
func NewR2Store(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*R2Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Store{client: client, bucket: bucket, logger: logger.With("component", "artifactstore.r2")}, nil
}

// Ping checks that the bucket is reachable.
func (s *R2Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// Read implements artifact.Store.
func (s *R2Store) Read(ctx context.Context, loc artifact.Location, name string) ([]byte, error) {
	prefix, ok := r2Prefixes[loc]
	if !ok {
		return nil, artifact.ErrNotExist
	}
	key := path.Join(prefix, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translate(key, err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		return nil, s.translate(key, err)
	}
	return io.ReadAll(obj)
}

func (s *R2Store) translate(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return artifact.ErrNotExist
	}
	s.logger.Warn("r2 read failed", "key", key, "error", err)
	return err
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	host, _, _ := strings.Cut(raw, "/")
	return host
}

var _ artifact.Store = (*R2Store)(nil)
