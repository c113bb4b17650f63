package mrz

import "strings"

var nameDigits = strings.NewReplacer(
	"1", "I",
	"0", "O",
	"5", "S",
	"2", "Z",
	"8", "B",
	"4", "A",
)

// FixName de-confuses a name field: digits commonly misread for letters are
// mapped back, filler becomes a space and whitespace is collapsed.
func FixName(s string) string {
	if s == "" {
		return s
	}
	s = nameDigits.Replace(s)
	s = strings.ReplaceAll(s, string(Filler), " ")
	return strings.Join(strings.Fields(s), " ")
}
