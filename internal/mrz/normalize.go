package mrz

import (
	"strings"
	"unicode"
)

// paddingColumn is the column after which a K in a parsed line is read as filler.
const paddingColumn = 25

var angleQuotes = strings.NewReplacer("«", "<", "›", "<", "»", "<", "‹", "<")

// NormalizeLine maps raw recognized text onto the MRZ alphabet. It uppercases,
// turns stylized angle quotes into filler, drops whitespace, rewrites runs of
// two or more K into filler of equal length and discards anything else outside
// the alphabet.
func NormalizeLine(raw string) string {
	s := strings.ToUpper(raw)
	s = angleQuotes.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = ReplaceKRuns(s)
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.IndexByte(Alphabet, byte(r)) >= 0 {
			return r
		}
		return -1
	}, s)
}

// NormalizeLines normalizes every non-blank raw line, preserving order.
func NormalizeLines(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, NormalizeLine(line))
	}
	return out
}

// ReplaceKRuns rewrites every run of two or more consecutive K (either case)
// into the same number of filler characters. A lone K is kept as a letter.
func ReplaceKRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if !isK(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isK(s[j]) {
			j++
		}
		if run := j - i; run >= 2 {
			b.WriteString(strings.Repeat(string(Filler), run))
		} else {
			b.WriteByte('K')
		}
		i = j
	}
	return b.String()
}

func isK(c byte) bool {
	return c == 'K' || c == 'k'
}

// CleanLine is the position/context pass applied to already parsed lines.
// A K next to an existing filler, or past column 25, becomes filler; any other
// K stays a letter. Its result can differ from ReplaceKRuns on the same input.
func CleanLine(line string) string {
	b := []byte(line)
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c
		if c != 'K' {
			continue
		}
		prevFiller := i > 0 && b[i-1] == Filler
		nextFiller := i < len(b)-1 && b[i+1] == Filler
		if prevFiller || nextFiller || i > paddingColumn {
			out[i] = Filler
		}
	}
	return string(out)
}

// CleanLines applies CleanLine to every line.
func CleanLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = CleanLine(l)
	}
	return out
}
