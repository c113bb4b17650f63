package recognition

import "time"

// Status is the outcome of one engine call.
type Status string

const (
	StatusRecognized  Status = "recognized"
	StatusEmpty       Status = "empty"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
)

// Stage identifies which image an attempt was run against.
type Stage string

const (
	// StageRegionFile is the enhanced region saved to disk.
	StageRegionFile Stage = "region_file"
	// StageRegionImage is the enhanced region in memory.
	StageRegionImage Stage = "region_image"
	// StageFullFrame is the whole deskewed frame saved to disk.
	StageFullFrame Stage = "full_frame"
)

// Attempt records one engine call.
type Attempt struct {
	Engine   string
	Stage    Stage
	Status   Status
	Lines    int
	Err      error
	Duration time.Duration
}

// Result is the outcome of a recognition run. Lines is empty when every
// attempt came back empty, failed or was skipped.
type Result struct {
	Lines    []string
	Engine   string
	Stage    Stage
	Attempts []Attempt
}

// Found reports whether any engine returned text.
func (r Result) Found() bool {
	return len(r.Lines) > 0
}
