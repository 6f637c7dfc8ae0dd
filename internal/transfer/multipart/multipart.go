package multipart

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/s3api"
)

// MinPartSize is the smallest part size the store accepts for non-final parts.
const MinPartSize = 5 * 1024 * 1024

// defaultPartConcurrency bounds concurrent part uploads of one file.
const defaultPartConcurrency = 4

// Result describes a completed upload.
type Result struct {
	// Key is the destination key
	Key string

	// Size is the number of bytes uploaded
	Size int64

	// ETag is the ETag reported by the store
	ETag string

	// Parts is the number of parts, 1 for single-request uploads
	Parts int
}

// Uploader sends local files to the object store.
type Uploader struct {
	s3Client    s3api.S3API
	chunkSize   int64
	buffers     *pool.ChunkPool
	concurrency int
}

// NewUploader creates an uploader splitting files into chunkSize parts.
func NewUploader(s3Client s3api.S3API, chunkSize int) *Uploader {
	return &Uploader{
		s3Client:    s3Client,
		chunkSize:   int64(chunkSize),
		buffers:     pool.ForSize(chunkSize),
		concurrency: defaultPartConcurrency,
	}
}

// WithPartConcurrency returns the uploader with a different part concurrency.
func (u *Uploader) WithPartConcurrency(n int) *Uploader {
	if n > 0 {
		u.concurrency = n
	}
	return u
}

// Upload sends path from fsys to bucket/key, overwriting any existing object.
func (u *Uploader) Upload(ctx context.Context, fsys billy.Filesystem, path, bucket, key string) (*Result, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, errors.NewError("stat", err).WithPath(path)
	}

	file, err := fsys.Open(path)
	if err != nil {
		return nil, errors.NewError("open", err).WithPath(path)
	}
	defer func() {
		_ = file.Close()
	}()

	contentType := detectContentType(path, io.NewSectionReader(file, 0, 512))

	if info.Size() <= u.chunkSize {
		return u.putObject(ctx, file, info.Size(), bucket, key, contentType)
	}
	return u.uploadMultipart(ctx, file, info.Size(), bucket, key, contentType)
}

func (u *Uploader) putObject(
	ctx context.Context,
	file billy.File,
	size int64,
	bucket, key, contentType string,
) (*Result, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          io.NewSectionReader(file, 0, size),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}

	output, err := u.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, errors.NewError("putObject", err).WithBucket(bucket).WithKey(key)
	}

	return &Result{
		Key:   key,
		Size:  size,
		ETag:  aws.ToString(output.ETag),
		Parts: 1,
	}, nil
}

func (u *Uploader) uploadMultipart(
	ctx context.Context,
	file billy.File,
	size int64,
	bucket, key, contentType string,
) (*Result, error) {
	numParts := u.calculateParts(size)

	created, err := u.s3Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, errors.NewError("createMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}
	uploadID := aws.ToString(created.UploadId)

	parts, err := u.uploadParts(ctx, file, size, bucket, key, uploadID, numParts)
	if err != nil {
		// Clean up on failure
		u.abortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, err
	}

	output, err := u.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		u.abortMultipartUpload(ctx, bucket, key, uploadID)
		return nil, errors.NewError("completeMultipartUpload", err).WithBucket(bucket).WithKey(key)
	}

	return &Result{
		Key:   key,
		Size:  size,
		ETag:  aws.ToString(output.ETag),
		Parts: numParts,
	}, nil
}

// calculateParts calculates the number of parts needed for the given size
func (u *Uploader) calculateParts(size int64) int {
	if size == 0 {
		return 1
	}
	return int((size + u.chunkSize - 1) / u.chunkSize) // Ceiling division
}

// uploadParts uploads all parts concurrently, each read into a pooled chunk buffer.
func (u *Uploader) uploadParts(
	ctx context.Context,
	file billy.File,
	size int64,
	bucket, key, uploadID string,
	numParts int,
) ([]awstypes.CompletedPart, error) {
	parts := make([]awstypes.CompletedPart, numParts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i := 0; i < numParts; i++ {
		partNumber := int32(i + 1) //nolint:gosec // part count is bounded by the store's 10000 part limit
		offset := int64(i) * u.chunkSize
		length := u.chunkSize
		if offset+length > size {
			length = size - offset
		}

		g.Go(func() error {
			etag, err := u.uploadPart(gctx, file, offset, length, bucket, key, uploadID, partNumber)
			if err != nil {
				return err
			}
			parts[partNumber-1] = awstypes.CompletedPart{
				ETag:       aws.String(etag),
				PartNumber: aws.Int32(partNumber),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// uploadPart uploads a single part
func (u *Uploader) uploadPart(
	ctx context.Context,
	file billy.File,
	offset, length int64,
	bucket, key, uploadID string,
	partNumber int32,
) (string, error) {
	buf := u.buffers.Get()
	defer u.buffers.Put(buf)

	n, err := file.ReadAt(buf[:length], offset)
	if err != nil && !(err == io.EOF && int64(n) == length) {
		return "", errors.NewError("readPart", fmt.Errorf("part %d: %w", partNumber, err)).WithKey(key)
	}

	output, err := u.s3Client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          bytes.NewReader(buf[:length]),
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return "", errors.NewError("uploadPart", err).WithBucket(bucket).WithKey(key)
	}

	return aws.ToString(output.ETag), nil
}

// abortMultipartUpload cleans up a failed multipart upload
func (u *Uploader) abortMultipartUpload(ctx context.Context, bucket, key, uploadID string) {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}
	// Ignore errors during cleanup
	_, _ = u.s3Client.AbortMultipartUpload(context.WithoutCancel(ctx), input)
}
