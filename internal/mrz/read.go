package mrz

// Reading is everything derived from one set of recognized lines.
type Reading struct {
	// Normalized holds the normalized lines, split when a single long line
	// was recognized.
	Normalized []string
	// Record is nil when the lines could not be parsed as TD3.
	Record      *Record
	Corrections []Correction
	// Cleaned holds the record lines after the position/context K pass.
	Cleaned []string
}

// Read normalizes raw recognized lines, parses them as TD3, repairs fields
// whose check digit failed and applies the post-parse cleanup pass.
func Read(raw []string) Reading {
	norm := SplitLines(NormalizeLines(raw))
	rec, ok := Parse(norm)
	if !ok {
		return Reading{Normalized: norm}
	}
	reading := Reading{
		Normalized:  norm,
		Record:      rec,
		Corrections: Correct(rec),
	}
	reading.Cleaned = PostProcess(rec)
	return reading
}

// PostProcess runs CleanLine over the record lines and, for passport lines,
// re-reads the names from the cleaned first line. It returns the cleaned lines.
func PostProcess(r *Record) []string {
	cleaned := CleanLines(r.Lines[:])
	if surname, given, ok := ExtractNames(cleaned[0]); ok {
		r.SurnameRaw = surname
		r.GivenNamesRaw = given
		r.Surname = FixName(surname)
		r.GivenNames = FixName(given)
	}
	return cleaned
}
