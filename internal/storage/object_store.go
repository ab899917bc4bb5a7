package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/loki135/CodeSensei/internal/config"
)

// ObjectStore archives submitted code so reviews keep only metadata in the
// database. Objects live under users/<userID>/reviews/<reviewID>.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	bucket := s.cfg.BucketSubmissions
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func SubmissionKey(userID, reviewID string) string {
	return fmt.Sprintf("users/%s/reviews/%s", userID, reviewID)
}

func (s *ObjectStore) PutSubmission(ctx context.Context, userID, reviewID string, code []byte) (string, error) {
	key := SubmissionKey(userID, reviewID)
	_, err := s.client.PutObject(ctx, s.cfg.BucketSubmissions, key, bytes.NewReader(code), int64(len(code)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("put submission %s: %w", key, err)
	}
	return key, nil
}

// RemoveUserSubmissions deletes every archived object under the user's
// prefix. Called best-effort after the account purge transaction commits.
func (s *ObjectStore) RemoveUserSubmissions(ctx context.Context, userID string) error {
	prefix := fmt.Sprintf("users/%s/", userID)
	objects := s.client.ListObjects(ctx, s.cfg.BucketSubmissions, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return fmt.Errorf("list submissions %s: %w", prefix, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.cfg.BucketSubmissions, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove submission %s: %w", object.Key, err)
		}
	}
	return nil
}
