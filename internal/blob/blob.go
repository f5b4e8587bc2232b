// Package blob stores generated media in S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store uploads objects and returns a URL clients can fetch them from.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// MinIOStore implements Store on a single bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	scheme string
}

// NewMinIO connects to endpoint and makes sure bucket exists.
func NewMinIO(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinIOStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &MinIOStore{client: cli, bucket: bucket, scheme: scheme}, nil
}

func (s *MinIOStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	// Public URL; private buckets need a presigned URL instead.
	return fmt.Sprintf("%s://%s/%s/%s", s.scheme, s.client.EndpointURL().Host, s.bucket, key), nil
}

// MemoryStore keeps objects in process. Used when no object storage is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// Object is a stored payload.
type Object struct {
	ContentType string
	Data        []byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]Object{}}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	return m.baseURL + "/" + key, nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

var (
	_ Store = (*MinIOStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
