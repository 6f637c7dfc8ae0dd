// Package sync drives a sync run through its phases.
//
//	Start -> Validate -> Upload -> Done
//	            |
//	            +-> Aborted
//
// The validate phase is skipped when templates are assumed valid. A
// validation failure aborts the run before any file is uploaded. Upload
// failures are per-file and leave the run in Done with the failures counted.
package sync
