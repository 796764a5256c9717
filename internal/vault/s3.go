package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3-compatible bucket holding a vault.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // optional key prefix, e.g. "vaults/personal"
	UseSSL    bool
}

// S3 is a vault stored as objects in a bucket. Object keys are the vault
// paths under an optional prefix.
type S3 struct {
	client   *minio.Client
	bucket   string
	prefix   string
	region string

	mu          sync.Mutex
	bucketReady bool
}

// NewS3 validates cfg and builds a client. No request is made until the
// first operation.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
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
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(cfg.Prefix),
		region: region,
	}, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (s *S3) objectKey(p string) string {
	return s.prefix + p
}

func (s *S3) pathFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, s.prefix) {
		return "", false
	}
	p := strings.TrimPrefix(key, s.prefix)
	if p == "" || strings.HasSuffix(p, "/") {
		return "", false
	}
	return p, true
}

// ensureBucket creates the bucket on first write. A failed attempt is
// retried by the next call.
func (s *S3) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	if !exists {
		err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
		}
	}
	s.bucketReady = true
	return nil
}

func isMissing(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket" || code == "NotFound"
}

// Get implements Store. A missing bucket reads as a missing document.
func (s *S3) Get(ctx context.Context, p string) (Document, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return Document{}, err
	}
	info, err := s.client.StatObject(ctx, s.bucket, s.objectKey(clean), minio.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return Document{}, fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return Document{}, fmt.Errorf("stat %s: %w", clean, err)
	}
	return Document{Path: clean, ModTime: info.LastModified, Size: info.Size}, nil
}

// List implements Store.
func (s *S3) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
				return nil, fmt.Errorf("listing vault: bucket %s does not exist", s.bucket)
			}
			return nil, fmt.Errorf("listing vault: %w", obj.Err)
		}
		p, ok := s.pathFromKey(obj.Key)
		if !ok {
			continue
		}
		docs = append(docs, Document{Path: p, ModTime: obj.LastModified, Size: obj.Size})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Read implements Store.
func (s *S3) Read(ctx context.Context, doc Document) (string, error) {
	clean, err := CleanPath(doc.Path)
	if err != nil {
		return "", err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(clean), minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", clean, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMissing(err) {
			return "", fmt.Errorf("%s: %w", clean, ErrNotFound)
		}
		return "", fmt.Errorf("reading %s: %w", clean, err)
	}
	return string(data), nil
}

// Write implements Store.
func (s *S3) Write(ctx context.Context, doc Document, text string) error {
	current, err := s.Get(ctx, doc.Path)
	if err != nil {
		return err
	}
	return s.put(ctx, current.Path, text)
}

// Create implements Store. The existence check and the upload are two
// requests; a concurrent writer between them wins.
func (s *S3) Create(ctx context.Context, p, text string) (Document, error) {
	if _, err := CleanPath(p); err != nil {
		return Document{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Document{}, err
	}
	_, err := s.Get(ctx, p)
	switch {
	case err == nil:
		return Document{}, fmt.Errorf("%s: %w", p, ErrAlreadyExists)
	case !isNotFound(err):
		return Document{}, err
	}
	clean, _ := CleanPath(p)
	if err := s.put(ctx, clean, text); err != nil {
		return Document{}, err
	}
	return s.Get(ctx, clean)
}

func (s *S3) put(ctx context.Context, p, text string) error {
	body := []byte(text)
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(p), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}
