package download

import "time"

const (
	// copyChunkSize is the read granularity of the transfer loop. Small enough
	// that cancellation is observed quickly, large enough to keep syscall
	// overhead negligible for multi-megabyte map files.
	copyChunkSize = 32 * 1024

	// partSuffix marks an in-flight download next to its final destination.
	// The file is renamed into place only after the body is fully written.
	partSuffix = ".part"

	// DefaultMaxAttempts is the total number of tries per item, counting the first.
	DefaultMaxAttempts = 3

	// DefaultAttemptTimeout bounds a single attempt. A transfer that stalls
	// past this is aborted and retried on the next address family.
	DefaultAttemptTimeout = 10 * time.Minute

	// retryBackoff is the pause between attempts on the same item.
	retryBackoff = 2 * time.Second
)
