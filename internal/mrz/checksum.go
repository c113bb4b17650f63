package mrz

// Filler pads every MRZ field and line.
const Filler = '<'

// Alphabet is the 37-symbol character set allowed in an MRZ line.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

var weights = [3]int{7, 3, 1}

// CharValue returns the ICAO 9303 numeric value of an MRZ character:
// filler is 0, digits are their value, letters count from A=10 to Z=35.
// Characters outside the alphabet count as 0.
func CharValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// CheckDigit computes the check digit of s using the repeating 7-3-1 weights.
// The result is always one of '0'..'9'.
func CheckDigit(s string) byte {
	total := 0
	for i := 0; i < len(s); i++ {
		total += CharValue(s[i]) * weights[i%3]
	}
	return byte('0' + total%10)
}

// Verify reports whether digit is the check digit of s.
func Verify(s string, digit byte) bool {
	return CheckDigit(s) == digit
}
