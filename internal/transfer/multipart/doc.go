// Package multipart uploads local files so that the resulting object ETag
// equals the locally computed fingerprint.
//
// Files no larger than one chunk are sent with a single PutObject. Larger
// files are sent as a multipart upload whose part size is the fingerprint
// chunk size, which makes the store derive its ETag from the same chunk
// boundaries as the fingerprint calculator.
package multipart
