// Package fingerprint computes S3 ETag-compatible content fingerprints.
//
// The algorithm mirrors the object store: content is read in fixed-size
// chunks and each chunk is MD5-hashed. A single chunk (including an empty
// file) yields the plain digest. More than one chunk yields the MD5 of the
// concatenated binary chunk digests followed by "-<chunk count>".
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/pool"
)

// DefaultChunkSize is the multipart threshold and part size of the remote store.
const DefaultChunkSize = 8 * 1024 * 1024

// Calculator computes fingerprints with a fixed chunk size.
type Calculator struct {
	chunkSize int
	buffers   *pool.ChunkPool
}

// NewCalculator creates a Calculator. A non-positive chunk size selects DefaultChunkSize.
func NewCalculator(chunkSize int) *Calculator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Calculator{
		chunkSize: chunkSize,
		buffers:   pool.ForSize(chunkSize),
	}
}

// ChunkSize returns the chunk size used by the calculator.
func (c *Calculator) ChunkSize() int {
	return c.chunkSize
}

// File computes the fingerprint of path within fsys.
func (c *Calculator) File(fsys billy.Filesystem, path string) (deptypes.Fingerprint, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	fp, err := c.Reader(f)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", path, err)
	}
	return fp, nil
}

// Reader computes the fingerprint of everything readable from r.
func (c *Calculator) Reader(r io.Reader) (deptypes.Fingerprint, error) {
	buf := c.buffers.Get()
	defer c.buffers.Put(buf)

	var (
		digests []byte
		chunks  int
		first   [md5.Size]byte
	)

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 || chunks == 0 {
			sum := md5.Sum(buf[:n])
			if chunks == 0 {
				first = sum
			}
			digests = append(digests, sum[:]...)
			chunks++
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}

	if chunks == 1 {
		return quote(hex.EncodeToString(first[:])), nil
	}

	sum := md5.Sum(digests)
	return quote(hex.EncodeToString(sum[:]) + "-" + strconv.Itoa(chunks)), nil
}

func quote(s string) deptypes.Fingerprint {
	return deptypes.Fingerprint(`"` + s + `"`)
}
