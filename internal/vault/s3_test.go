package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Validation(t *testing.T) {
	_, err := NewS3(S3Config{})
	assert.Error(t, err)

	_, err = NewS3(S3Config{Endpoint: "localhost:9000", Bucket: "notes"})
	assert.Error(t, err, "credentials are required")

	_, err = NewS3(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err, "bucket is required")
}

func TestS3KeyMapping(t *testing.T) {
	s, err := NewS3(S3Config{
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "notes",
		Prefix:    "/vaults/personal/",
	})
	require.NoError(t, err)

	assert.Equal(t, "vaults/personal/a/Dog.md", s.objectKey("a/Dog.md"))

	p, ok := s.pathFromKey("vaults/personal/a/Dog.md")
	assert.True(t, ok)
	assert.Equal(t, "a/Dog.md", p)

	_, ok = s.pathFromKey("vaults/personal/folder/")
	assert.False(t, ok, "folder markers are not documents")

	_, ok = s.pathFromKey("other/Dog.md")
	assert.False(t, ok)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix(" / "))
	assert.Equal(t, "a/b/", normalizePrefix("a/b"))
}

// fakeS3 answers bucket and object HEAD requests. The first failBucket
// bucket checks are denied.
type fakeS3 struct {
	mu         sync.Mutex
	requests   []string
	failBucket int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := strings.TrimSuffix(r.URL.Path, "/")
	f.requests = append(f.requests, r.Method+" "+path)
	switch {
	case r.Method == http.MethodHead && path == "/notes":
		if f.failBucket > 0 {
			f.failBucket--
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeS3) count(req string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == req {
			n++
		}
	}
	return n
}

func newFakeS3(t *testing.T, fake *fakeS3) *S3 {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewS3(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "notes",
	})
	require.NoError(t, err)
	return s
}

func TestS3EnsureBucketRetriesAfterFailure(t *testing.T) {
	fake := &fakeS3{failBucket: 1}
	s := newFakeS3(t, fake)
	ctx := context.Background()

	assert.Error(t, s.ensureBucket(ctx))
	require.NoError(t, s.ensureBucket(ctx))
	require.NoError(t, s.ensureBucket(ctx))
	assert.Equal(t, 2, fake.count("HEAD /notes"))
}

func TestS3ReadsDoNotTouchBucket(t *testing.T) {
	fake := &fakeS3{}
	s := newFakeS3(t, fake)

	_, err := s.Get(context.Background(), "Dog.md")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, fake.count("HEAD /notes/Dog.md"))
	assert.Zero(t, fake.count("HEAD /notes"))
	assert.Zero(t, fake.count("PUT /notes"))
}
