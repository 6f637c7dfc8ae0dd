// Package executor runs the upload phase of a sync.
//
// Every candidate is fingerprinted and checked against its destination key
// with a conditional HeadObject. Matching objects are left alone; anything
// else is uploaded. Candidates are processed by a bounded worker pool and a
// failure on one file never stops the others.
package executor
