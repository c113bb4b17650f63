package mrz

import "strings"

// Search bounds for the ambiguity solver.
const (
	// MaxAmbiguousPositions is the largest number of ambiguous positions
	// searched exhaustively; beyond it only single substitutions are tried.
	MaxAmbiguousPositions = 6
	// MaxProductTrials caps the exhaustive cross-product search.
	MaxProductTrials = 50000
	// MaxSingleTrials caps the single-position search.
	MaxSingleTrials = 2000
)

// confusions maps characters OCR engines commonly mix up to every character
// they may stand for, the most likely reading first.
var confusions = map[byte]string{
	'O': "0O",
	'Q': "0Q",
	'D': "0D",
	'0': "0OQD",
	'I': "1IL",
	'L': "1L",
	'1': "1IL",
	'S': "5S",
	'5': "5S",
	'Z': "2Z",
	'2': "2Z",
	'B': "8B",
	'8': "8B",
	'A': "4A",
	'4': "4A",
}

func candidatesFor(c byte, allowLetters bool) string {
	cands, ok := confusions[c]
	if !ok || allowLetters {
		return cands
	}
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cands)
}

// FixByChecksum searches substitutions of confusable characters in field
// until its check digit equals expected. Numeric fields (allowLetters false)
// only consider digit candidates, so a position is ambiguous there only when
// it has two digit readings. A field with no ambiguous position is returned
// unchanged when its checksum already matches and rejected otherwise.
//
// Up to MaxAmbiguousPositions ambiguous positions the full cross product is
// enumerated, last position varying fastest, for at most MaxProductTrials
// trials. With more positions each position is varied alone for at most
// MaxSingleTrials trials. The first match wins. It returns the repaired value,
// the number of trials and whether a match was found.
func FixByChecksum(field string, expected byte, allowLetters bool) (string, int, bool) {
	s := []byte(strings.ToUpper(field))
	var positions []int
	var sets []string
	for i, c := range s {
		// a single candidate is the character itself or its only digit
		// reading; either way it is not searched
		if cands := candidatesFor(c, allowLetters); len(cands) > 1 {
			positions = append(positions, i)
			sets = append(sets, cands)
		}
	}

	if len(positions) == 0 {
		if Verify(string(s), expected) {
			return string(s), 0, true
		}
		return "", 0, false
	}
	if len(positions) > MaxAmbiguousPositions {
		return searchSingle(s, positions, sets, expected)
	}
	return searchProduct(s, positions, sets, expected)
}

func searchProduct(s []byte, positions []int, sets []string, expected byte) (string, int, bool) {
	trial := append([]byte(nil), s...)
	idx := make([]int, len(positions))
	attempts := 0
	for {
		for k, p := range positions {
			trial[p] = sets[k][idx[k]]
		}
		attempts++
		if Verify(string(trial), expected) {
			return string(trial), attempts, true
		}
		if attempts >= MaxProductTrials {
			return "", attempts, false
		}
		if !advance(idx, sets) {
			return "", attempts, false
		}
	}
}

// advance steps idx to the next combination like an odometer. It returns
// false once every combination has been produced.
func advance(idx []int, sets []string) bool {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < len(sets[k]) {
			return true
		}
		idx[k] = 0
	}
	return false
}

func searchSingle(s []byte, positions []int, sets []string, expected byte) (string, int, bool) {
	attempts := 0
	trial := append([]byte(nil), s...)
	for k, p := range positions {
		for i := 0; i < len(sets[k]); i++ {
			attempts++
			trial[p] = sets[k][i]
			if Verify(string(trial), expected) {
				return string(trial), attempts, true
			}
			if attempts >= MaxSingleTrials {
				return "", attempts, false
			}
		}
		trial[p] = s[p]
	}
	return "", attempts, false
}

// Correct runs the solver on every field whose check digit failed, writes
// repaired values back into r and recomputes the composite flag. Fields that
// were already valid are left untouched. It returns one Correction per field
// the solver ran on; Fixed reports whether a match was found.
func Correct(r *Record) []Correction {
	targets := []struct {
		name         string
		field        *Field
		allowLetters bool
	}{
		{FieldDocumentNumber, &r.DocumentNumber, true},
		{FieldBirthDate, &r.BirthDate, false},
		{FieldExpiryDate, &r.ExpiryDate, false},
		{FieldPersonalNumber, &r.PersonalNumber, false},
	}

	var out []Correction
	for _, t := range targets {
		if t.field.Valid {
			continue
		}
		fixed, attempts, ok := FixByChecksum(t.field.Value, t.field.Check, t.allowLetters)
		c := Correction{Field: t.name, Before: t.field.Value, Attempts: attempts}
		if ok {
			c.After = fixed
			c.Fixed = true
			t.field.Value = fixed
			t.field.Valid = true
		}
		out = append(out, c)
	}
	r.RevalidateComposite()
	return out
}
