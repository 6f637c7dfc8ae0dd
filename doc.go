// Package deployer publishes the contents of local directories to S3 under a
// per-release key prefix.
//
// A sync run walks the configured directories, drops excluded paths,
// validates every CloudFormation template with the orchestration service and
// only then uploads. A file whose fingerprint matches the remote object is
// skipped, so repeated runs against the same release are cheap.
//
// Key features:
//   - S3 ETag compatible fingerprints, including multipart uploads
//   - Template validation inline or through a staged S3 copy
//   - Exponential backoff on throttled validation calls
//   - Per-file failure isolation during the upload phase
//   - Bounded upload concurrency
//
// Example usage:
//
//	cfg, err := config.Load("config.yml", "api")
//	if err != nil {
//	    return err
//	}
//
//	d, err := deployer.New(ctx, cfg, deployer.WithProfile("ops"))
//	if err != nil {
//	    return err
//	}
//
//	result, err := d.Sync(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Uploaded %d files, %d unchanged\n", result.FilesUploaded, result.FilesUnchanged)
package deployer
