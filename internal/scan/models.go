package scan

import (
	"image"

	"mrzgate/internal/bac"
	"mrzgate/internal/mrz"
	"mrzgate/internal/recognition"
)

// NotFoundMessage is reported when no zone text could be recognized.
const NotFoundMessage = "MRZ not found or OCR failed"

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeBadInput = "bad_input"
	OutcomeError    = "error"
)

// Result is everything one scan produced.
type Result struct {
	// RawLines are the lines as the winning engine returned them.
	RawLines []string
	// Reading holds normalization, parsing and correction results. Its
	// Record is nil when the lines are not a TD3 zone.
	Reading mrz.Reading

	// Keys is set when a record was parsed and key derivation succeeded;
	// KeyErr holds the derivation failure otherwise.
	Keys   *bac.KeyPair
	KeyErr error

	Engine   string
	Stage    recognition.Stage
	Attempts []recognition.Attempt

	// Region is the band's position in the deskewed frame. RegionLocated is
	// false when the fixed bottom crop was used instead.
	Region        image.Rectangle
	RegionLocated bool
	SkewDegrees   float64

	// DebugImages lists the persisted debug images, if enabled.
	DebugImages []string
}

// Record is a shorthand for r.Reading.Record.
func (r *Result) Record() *mrz.Record {
	return r.Reading.Record
}
