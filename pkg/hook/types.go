package hook

// Phase represents a point in the sync lifecycle where hooks run.
type Phase string

// Supported hook phases.
const (
	PreSync      Phase = "pre-sync"
	PostDownload Phase = "post-download"
	PostExtract  Phase = "post-extract"
	PostSync     Phase = "post-sync"
)

// Hook represents a hook script with its phase and content.
type Hook struct {
	Phase   Phase
	Content string
}

// Context contains information passed to hooks.
type Context struct {
	MapName     string
	Path        string
	DownloadDir string
	Outcome     string
	Vars        map[string]interface{}
}

// Manager defines the interface for managing hooks.
type Manager interface {
	// Execute runs the specified hook phase with the given context
	Execute(phase Phase, ctx Context) error

	// AddHook adds a new hook
	AddHook(hook Hook) error

	// RemoveHook removes a hook of the specified phase
	RemoveHook(phase Phase) error

	// HasHook checks if a hook of the specified phase exists
	HasHook(phase Phase) bool
}
