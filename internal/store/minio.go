package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AssetStore keeps final dubbed tracks on object storage, durable
// enough for the serving layer to stream them by byte range.
type AssetStore struct {
	client *minio.Client
	bucket string
}

type AssetConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewAssetStore(ctx context.Context, cfg AssetConfig) (*AssetStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object storage: %w", err)
	}

	if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &AssetStore{client: client, bucket: cfg.Bucket}, nil
}

// Publish uploads a local file under the given object name.
func (s *AssetStore) Publish(ctx context.Context, localPath, object string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, object, localPath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return fmt.Errorf("publish %q: %w", object, err)
	}
	return nil
}

// Open returns a seekable reader over the object plus its last
// modification time; the pair is what http.ServeContent needs to
// answer byte-range requests.
func (s *AssetStore) Open(ctx context.Context, object string) (io.ReadSeekCloser, time.Time, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open %q: %w", object, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, time.Time{}, fmt.Errorf("stat %q: %w", object, err)
	}

	return obj, info.LastModified, nil
}
