package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/coursestore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	body []byte
	etag string
}

// fakeS3 honours If-Match / If-None-Match like a real bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	seq     int
	// beforePut runs before a conditional check; tests use it to inject
	// a concurrent writer.
	beforePut func()
	getErr    error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func preconditionFailed() error {
	return &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), ETag: aws.String(obj.etag)}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.beforePut != nil {
		hook := f.beforePut
		f.beforePut = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	cur, exists := f.objects[key]
	if in.IfNoneMatch != nil && exists {
		return nil, preconditionFailed()
	}
	if in.IfMatch != nil && (!exists || cur.etag != aws.ToString(in.IfMatch)) {
		return nil, preconditionFailed()
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.seq++
	etag := fmt.Sprintf(`"%d"`, f.seq)
	f.objects[key] = fakeObject{body: body, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	cur, exists := f.objects[key]
	if in.IfMatch != nil && (!exists || cur.etag != aws.ToString(in.IfMatch)) {
		return nil, preconditionFailed()
	}
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestS3Store_Basics(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3Store(fake, "shop", "demo/")

	v, err := s.Get(ctx, "users")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set(ctx, "users", []byte(`[]`)))
	assert.Contains(t, fake.objects, "demo/users")

	v, err = s.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"users": []byte(`[]`)}, all)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, fake.objects)
	require.NoError(t, s.Delete(ctx, "users"))
}

func TestS3Store_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewS3Store(newFakeS3(), "shop", "")

	require.NoError(t, s.CompareAndSwap(ctx, "cart", nil, []byte(`[1]`)))
	assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", nil, []byte(`[2]`)), common.ErrVersionConflict)
	assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", []byte(`[9]`), []byte(`[2]`)), common.ErrVersionConflict)
	require.NoError(t, s.CompareAndSwap(ctx, "cart", []byte(`[1]`), []byte(`[1,2]`)))
	assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", nil, nil), common.ErrVersionConflict)
	require.NoError(t, s.CompareAndSwap(ctx, "cart", []byte(`[1,2]`), nil))
	require.NoError(t, s.CompareAndSwap(ctx, "cart", nil, nil))
	assert.ErrorIs(t, s.CompareAndSwap(ctx, "cart", []byte(`[1,2]`), []byte(`[]`)), common.ErrVersionConflict)
}

func TestS3Store_CompareAndSwap_ConcurrentWriterDetectedByETag(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewS3Store(fake, "shop", "")
	require.NoError(t, s.Set(ctx, "sales", []byte(`[]`)))

	// Another client rewrites the object between our read and our write.
	fake.beforePut = func() {
		require.NoError(t, s.Set(ctx, "sales", []byte(`[]`)))
	}

	err := s.CompareAndSwap(ctx, "sales", []byte(`[]`), []byte(`["sale_1"]`))
	assert.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestS3Store_GetError(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("network down")
	s := NewS3Store(fake, "shop", "")

	_, err := s.Get(context.Background(), "users")
	assert.ErrorContains(t, err, "failed to get kv[users]")
}

func TestOpenS3_RequiresBucket(t *testing.T) {
	_, err := OpenS3(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}
