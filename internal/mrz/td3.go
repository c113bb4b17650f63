package mrz

import "strings"

// Minimum single-line lengths that can be split into two TD3 or TD2-width halves.
const (
	splitTD3 = 2 * LineLength
	splitTD2 = 2 * 36
)

// minFirstLine is the shortest first line worth parsing.
const minFirstLine = 10

// SplitLines returns lines unchanged unless exactly one line was supplied, in
// which case a line of at least 88 characters is split into 44+44 and one of
// at least 72 into 36+36.
func SplitLines(lines []string) []string {
	if len(lines) != 1 {
		return lines
	}
	s := lines[0]
	switch {
	case len(s) >= splitTD3:
		return []string{s[:LineLength], s[LineLength:splitTD3]}
	case len(s) >= splitTD2:
		return []string{s[:36], s[36:splitTD2]}
	default:
		return lines
	}
}

// Parse reads the first two lines as a TD3 record and validates every check
// digit. It returns false when fewer than two usable lines are present.
func Parse(lines []string) (*Record, bool) {
	lines = SplitLines(lines)
	if len(lines) < 2 || len(lines[0]) < minFirstLine {
		return nil, false
	}
	l0 := fit(lines[0])
	l1 := fit(lines[1])

	r := &Record{
		Lines:        [2]string{l0, l1},
		DocumentType: l0[0:2],
		IssuingState: l0[2:5],
		Nationality:  l1[10:13],
		Sex:          l1[20:21],

		DocumentNumber: Field{Value: l1[0:9], Check: l1[9]},
		BirthDate:      Field{Value: l1[13:19], Check: l1[19]},
		ExpiryDate:     Field{Value: l1[21:27], Check: l1[27]},
		PersonalNumber: Field{Value: l1[28:42], Check: l1[42]},
		CompositeCheck: l1[43],
	}
	r.SurnameRaw, r.GivenNamesRaw = splitNames(l0[5:])

	r.DocumentNumber.Valid = Verify(r.DocumentNumber.Value, r.DocumentNumber.Check)
	r.BirthDate.Valid = Verify(r.BirthDate.Value, r.BirthDate.Check)
	r.ExpiryDate.Valid = Verify(r.ExpiryDate.Value, r.ExpiryDate.Check)
	r.PersonalNumber.Valid = verifyPersonalNumber(r.PersonalNumber)
	r.RevalidateComposite()

	r.Surname = FixName(r.SurnameRaw)
	r.GivenNames = FixName(r.GivenNamesRaw)
	return r, true
}

// fit right-pads line with filler or truncates it to LineLength.
func fit(line string) string {
	if len(line) >= LineLength {
		return line[:LineLength]
	}
	return line + strings.Repeat(string(Filler), LineLength-len(line))
}

// splitNames splits the name field on the first double filler, or on the
// first single filler when no double filler exists.
func splitNames(field string) (surname, given string) {
	if before, after, ok := strings.Cut(field, "<<"); ok {
		surname, given = before, after
	} else {
		surname, given, _ = strings.Cut(field, string(Filler))
	}
	surname = strings.TrimSpace(strings.ReplaceAll(surname, string(Filler), ""))
	given = strings.Join(strings.FieldsFunc(given, func(r rune) bool { return r == Filler }), " ")
	return surname, given
}

// verifyPersonalNumber accepts a filler check digit for an all-filler
// personal number.
func verifyPersonalNumber(f Field) bool {
	if f.Check == Filler {
		return strings.Trim(f.Value, string(Filler)) == ""
	}
	return Verify(f.Value, f.Check)
}

// ExtractNames re-reads surname and given names from a cleaned first line of
// a passport ("P<" prefix). It returns false for any other line.
func ExtractNames(line string) (surname, given string, ok bool) {
	if !strings.HasPrefix(line, "P<") || len(line) < 5 {
		return "", "", false
	}
	before, after, found := strings.Cut(line[5:], "<<")
	if !found {
		return "", "", false
	}
	return strings.ReplaceAll(before, string(Filler), ""), strings.ReplaceAll(after, string(Filler), " "), true
}
