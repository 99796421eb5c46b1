package imagestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fixitnow/fixitnow-backend/internal/diagnosis/domain"
)

type MinioConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL, when set, prefixes object keys instead of the endpoint URL.
	PublicBaseURL string
}

type MinioStore struct {
	client     *minio.Client
	bucketName string
	region     string
	publicBase string
	initOnce   sync.Once
	initErr    error
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("image store endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("image store access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("image store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init image store client: %w", err)
	}

	return &MinioStore{
		client:     client,
		bucketName: bucket,
		region:     region,
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Save uploads the decoded image under owner/ and returns its object URL.
func (s *MinioStore) Save(ctx context.Context, owner string, img domain.MediaInput) (string, error) {
	if img.IsZero() {
		return "", fmt.Errorf("image is empty")
	}
	content, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := objectKey(owner, img.MediaType)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: img.MediaType,
	})
	if err != nil {
		return "", fmt.Errorf("put image: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *MinioStore) objectURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return strings.TrimRight(s.client.EndpointURL().String(), "/") + "/" + s.bucketName + "/" + key
}

func objectKey(owner, mediaType string) string {
	owner = strings.Trim(strings.TrimSpace(owner), "/")
	if owner == "" {
		owner = "anonymous"
	}
	return owner + "/" + uuid.NewString() + extension(mediaType)
}

func extension(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil {
		return m.Extension()
	}
	return ""
}
