package sync

// Config holds the per-run settings of the dispatcher.
type Config struct {
	// SyncDirs are the directories to walk, in order
	SyncDirs []string

	// AssumeValid skips the validate phase
	AssumeValid bool

	// Release is the key prefix of this run
	Release string
}
