package model

// EnumProgress reports incremental enumeration liveness: how many roots and
// directories have been listed so far and how many entries were found.
type EnumProgress struct {
	RootsDone    int
	RootsTotal   int
	DirsListed   int
	EntriesFound int
}

// TransferProgress reports bytes moved for one in-flight item. BytesTotal is
// SizeUnknown when the remote did not declare a length.
type TransferProgress struct {
	Name       string
	BytesDone  int64
	BytesTotal int64
}

// ProgressFunc receives transfer progress events. Implementations must be
// safe for concurrent use; they are invoked from worker goroutines.
type ProgressFunc func(TransferProgress)

// EnumProgressFunc receives enumeration progress events.
type EnumProgressFunc func(EnumProgress)
