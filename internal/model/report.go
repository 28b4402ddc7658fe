package model

// MaterializedFile summarizes a materialized document for display.
type MaterializedFile struct {
	Document  string
	RealPath  Path
	TempRoot  Path
	Temporary bool
}

// Skipped is a document that was eligible but could not be materialized.
type Skipped struct {
	Document string
	Err      error
}

// DivergenceState describes how an open document relates to its backing file.
type DivergenceState int

const (
	// Unsaved indicates editor changes that have not been written to disk.
	Unsaved DivergenceState = iota
	// MemoryOnly indicates a document without a backing file.
	MemoryOnly
	// MissingOnDisk indicates a backing file location that does not exist.
	MissingOnDisk
)

func (s DivergenceState) String() string {
	switch s {
	case Unsaved:
		return "unsaved"
	case MemoryOnly:
		return "memory-only"
	case MissingOnDisk:
		return "missing"
	default:
		return "unknown"
	}
}

// Divergence is an open document whose content the external tool would see
// differently from what is on disk.
type Divergence struct {
	Document string
	State    DivergenceState
	// Diff is a unified diff from disk content to the materialized content.
	Diff string
}
