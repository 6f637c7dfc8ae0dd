package multipart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/testutil"
)

const chunk = 1024

func TestUploader_SinglePart(t *testing.T) {
	data := testutil.GenerateRandomData(chunk)
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.json": data})
	store := testutil.NewFakeS3()

	res, err := NewUploader(store, chunk).Upload(context.Background(), fs, "templates/app.json", "demo", "rel/templates/app.json")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Parts)
	assert.Equal(t, int64(chunk), res.Size)
	assert.Equal(t, 1, store.Calls("PutObject"))
	assert.Equal(t, 0, store.Calls("CreateMultipartUpload"))

	obj, ok := store.Object("demo", "rel/templates/app.json")
	require.True(t, ok)
	assert.Equal(t, data, obj.Body)
	assert.Equal(t, "application/json", obj.ContentType)
}

func TestUploader_MultipartMatchesFingerprint(t *testing.T) {
	data := testutil.GenerateRandomData(3*chunk + 17)
	fs := testutil.NewTree(t, map[string][]byte{"lambda/fn.zip": data})
	store := testutil.NewFakeS3()

	res, err := NewUploader(store, chunk).WithPartConcurrency(2).
		Upload(context.Background(), fs, "lambda/fn.zip", "demo", "rel/lambda/fn.zip")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Parts)
	assert.Equal(t, 4, store.Calls("UploadPart"))

	obj, ok := store.Object("demo", "rel/lambda/fn.zip")
	require.True(t, ok)
	assert.Equal(t, data, obj.Body)

	fp, err := fingerprint.NewCalculator(chunk).File(fs, "lambda/fn.zip")
	require.NoError(t, err)
	assert.True(t, fp.Matches(obj.ETag), "local %s remote %s", fp, obj.ETag)
	assert.Equal(t, fp.String(), res.ETag)
}

func TestUploader_EmptyFile(t *testing.T) {
	fs := testutil.NewTree(t, map[string][]byte{"empty.txt": {}})
	store := testutil.NewFakeS3()

	res, err := NewUploader(store, chunk).Upload(context.Background(), fs, "empty.txt", "demo", "rel/empty.txt")
	require.NoError(t, err)
	assert.Equal(t, `"d41d8cd98f00b204e9800998ecf8427e"`, res.ETag)
}

func TestUploader_PartFailureAborts(t *testing.T) {
	fs := testutil.NewTree(t, map[string][]byte{"big.bin": testutil.GenerateRandomData(2*chunk + 1)})

	var aborted atomic.Bool
	mock := &testutil.MockS3Client{
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return &s3.CreateMultipartUploadOutput{UploadId: aws.String("u1")}, nil
		},
		UploadPartFunc: func(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
			if aws.ToInt32(in.PartNumber) == 2 {
				return nil, errors.New("connection reset")
			}
			return &s3.UploadPartOutput{ETag: aws.String(`"p"`)}, nil
		},
		AbortMultipartUploadFunc: func(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			assert.Equal(t, "u1", aws.ToString(in.UploadId))
			aborted.Store(true)
			return &s3.AbortMultipartUploadOutput{}, nil
		},
		CompleteMultipartUploadFunc: func(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
			t.Fatal("complete must not be called after a failed part")
			return nil, nil
		},
	}

	_, err := NewUploader(mock, chunk).Upload(context.Background(), fs, "big.bin", "demo", "rel/big.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, aborted.Load())
}

func TestUploader_PutFailure(t *testing.T) {
	fs := testutil.NewTree(t, map[string][]byte{"a.txt": []byte("a")})
	mock := &testutil.MockS3Client{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}

	_, err := NewUploader(mock, chunk).Upload(context.Background(), fs, "a.txt", "demo", "rel/a.txt")
	require.Error(t, err)

	var e *deperrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "putObject", e.Op)
	assert.Equal(t, "rel/a.txt", e.Key)
}

func TestUploader_MissingFile(t *testing.T) {
	_, err := NewUploader(testutil.NewFakeS3(), chunk).
		Upload(context.Background(), testutil.NewTree(t, nil), "nope.txt", "demo", "rel/nope.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/x-yaml", detectContentType("templates/app.yml", nil))
	assert.Equal(t, "application/json", detectContentType("templates/APP.JSON", nil))
	assert.Equal(t, DefaultContentType, detectContentType("noext", nil))
}
