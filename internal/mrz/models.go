package mrz

import "strings"

// LineLength is the width of a TD3 line.
const LineLength = 44

// Field is a fixed-width MRZ field together with the check digit printed
// after it. Value keeps its filler characters.
type Field struct {
	Value string
	Check byte
	Valid bool
}

// Text returns the field value with filler removed.
func (f Field) Text() string {
	return strings.ReplaceAll(f.Value, string(Filler), "")
}

// Record is a parsed two-line TD3 machine-readable zone.
type Record struct {
	Lines [2]string

	DocumentType string
	IssuingState string
	Nationality  string
	Sex          string

	// SurnameRaw and GivenNamesRaw are the name parts as read, filler removed.
	SurnameRaw    string
	GivenNamesRaw string
	Surname       string
	GivenNames    string

	DocumentNumber Field
	BirthDate      Field
	ExpiryDate     Field
	PersonalNumber Field

	CompositeCheck byte
	CompositeValid bool
}

// CompositeSource is the concatenation the composite check digit covers.
func (r *Record) CompositeSource() string {
	var b strings.Builder
	for _, f := range []Field{r.DocumentNumber, r.PersonalNumber, r.BirthDate, r.ExpiryDate} {
		b.WriteString(f.Value)
		b.WriteByte(f.Check)
	}
	return b.String()
}

// RevalidateComposite recomputes the composite flag from the current fields.
func (r *Record) RevalidateComposite() {
	r.CompositeValid = Verify(r.CompositeSource(), r.CompositeCheck)
}

// Valid reports whether every check digit in the record matched.
func (r *Record) Valid() bool {
	return r.DocumentNumber.Valid && r.BirthDate.Valid && r.ExpiryDate.Valid &&
		r.PersonalNumber.Valid && r.CompositeValid
}

// Correction describes one solver run on a field whose check digit failed.
type Correction struct {
	Field    string
	Before   string
	After    string
	Attempts int
	Fixed    bool
}

// Field names used in corrections.
const (
	FieldDocumentNumber = "document_number"
	FieldBirthDate      = "date_of_birth"
	FieldExpiryDate     = "date_of_expiry"
	FieldPersonalNumber = "personal_number"
)
