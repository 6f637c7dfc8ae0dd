package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/s3api"
)

// StoredObject is an object held by FakeS3.
type StoredObject struct {
	Body        []byte
	ETag        string
	ContentType string
}

// FakeS3 is an in-memory object store with S3 ETag and IfMatch semantics.
// It records every call so tests can assert on traffic.
type FakeS3 struct {
	mu      sync.Mutex
	objects map[string]StoredObject
	uploads map[string]map[int32][]byte
	nextID  int
	calls   map[string]int
	puts    []string

	// HeadErr, when set, is returned by HeadObject instead of the normal answer.
	HeadErr error

	// PutErr, when set, decides per key whether PutObject fails.
	PutErr func(key string) error
}

var _ s3api.S3API = (*FakeS3)(nil)

// NewFakeS3 creates an empty store.
func NewFakeS3() *FakeS3 {
	return &FakeS3{
		objects: make(map[string]StoredObject),
		uploads: make(map[string]map[int32][]byte),
		calls:   make(map[string]int),
	}
}

func objectKey(bucket, key *string) string {
	return aws.ToString(bucket) + "/" + aws.ToString(key)
}

// Object returns the stored object at bucket/key.
func (f *FakeS3) Object(bucket, key string) (StoredObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[bucket+"/"+key]
	return o, ok
}

// Keys returns the stored bucket/key names in sorted order.
func (f *FakeS3) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns how many times op was invoked.
func (f *FakeS3) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Uploaded returns the keys written by PutObject or CompleteMultipartUpload, in call order.
func (f *FakeS3) Uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts...)
}

// ResetCalls clears the call counters and upload log.
func (f *FakeS3) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
	f.puts = nil
}

// Seed stores body at bucket/key with a single-part ETag.
func (f *FakeS3) Seed(bucket, key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = StoredObject{Body: body, ETag: CalculateETag(body)}
}

// PutObject stores the body under a single-part ETag.
func (f *FakeS3) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutObject"]++

	if f.PutErr != nil {
		if err := f.PutErr(aws.ToString(params.Key)); err != nil {
			return nil, err
		}
	}

	etag := CalculateETag(body)
	f.objects[objectKey(params.Bucket, params.Key)] = StoredObject{
		Body:        body,
		ETag:        etag,
		ContentType: aws.ToString(params.ContentType),
	}
	f.puts = append(f.puts, aws.ToString(params.Key))
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

// HeadObject answers 404 for missing objects and 412 when IfMatch differs.
func (f *FakeS3) HeadObject(
	_ context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["HeadObject"]++

	if f.HeadErr != nil {
		return nil, f.HeadErr
	}

	o, ok := f.objects[objectKey(params.Bucket, params.Key)]
	if !ok {
		return nil, &awstypes.NotFound{Message: aws.String("Not Found")}
	}
	if params.IfMatch != nil && strings.Trim(*params.IfMatch, `"`) != strings.Trim(o.ETag, `"`) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	return &s3.HeadObjectOutput{
		ETag:          aws.String(o.ETag),
		ContentLength: aws.Int64(int64(len(o.Body))),
	}, nil
}

// DeleteObject removes the object; deleting a missing object succeeds.
func (f *FakeS3) DeleteObject(
	_ context.Context,
	params *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DeleteObject"]++
	delete(f.objects, objectKey(params.Bucket, params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// CreateMultipartUpload starts an upload.
func (f *FakeS3) CreateMultipartUpload(
	_ context.Context,
	_ *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateMultipartUpload"]++
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	f.uploads[id] = make(map[int32][]byte)
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String(id)}, nil
}

// UploadPart stores one part.
func (f *FakeS3) UploadPart(
	_ context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UploadPart"]++
	parts, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
	}
	parts[aws.ToInt32(params.PartNumber)] = body
	return &s3.UploadPartOutput{ETag: aws.String(CalculateETag(body))}, nil
}

// CompleteMultipartUpload assembles the parts and derives the multipart ETag.
func (f *FakeS3) CompleteMultipartUpload(
	_ context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CompleteMultipartUpload"]++

	id := aws.ToString(params.UploadId)
	parts, ok := f.uploads[id]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchUpload"}
	}

	var (
		body    []byte
		digests []byte
	)
	for _, p := range params.MultipartUpload.Parts {
		data := parts[aws.ToInt32(p.PartNumber)]
		sum := md5.Sum(data)
		digests = append(digests, sum[:]...)
		body = append(body, data...)
	}
	sum := md5.Sum(digests)
	etag := fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(sum[:]), len(params.MultipartUpload.Parts))

	delete(f.uploads, id)
	f.objects[objectKey(params.Bucket, params.Key)] = StoredObject{Body: body, ETag: etag}
	f.puts = append(f.puts, aws.ToString(params.Key))
	return &s3.CompleteMultipartUploadOutput{ETag: aws.String(etag)}, nil
}

// AbortMultipartUpload discards an upload.
func (f *FakeS3) AbortMultipartUpload(
	_ context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AbortMultipartUpload"]++
	delete(f.uploads, aws.ToString(params.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}
