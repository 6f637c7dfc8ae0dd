// Package scanner discovers the local files of a sync run.
//
// It walks each configured sync directory, drops paths matched by the
// exclude fragments and derives the destination key of every remaining
// file from the release tag and the file's directory relative to the sync
// base. Relative directories are computed on path components so that hosts
// using either separator produce the same keys.
package scanner
