package mrz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  byte
	}{
		{name: "document number with filler", input: "L898902C<", want: '3'},
		{name: "birth date", input: "690806", want: '1'},
		{name: "expiry date", input: "940623", want: '6'},
		{name: "personal number", input: "ZE184226B<<<<<", want: '1'},
		{name: "all filler", input: "<<<<<<<<<<<<<<", want: '0'},
		{name: "empty", input: "", want: '0'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckDigit(tt.input))
		})
	}
}

func TestCheckDigitAlwaysDecimal(t *testing.T) {
	inputs := []string{"A", "Z", "ZZZZZZZZZ", "0123456789", "<A<B<C", "ÉÀ?", "L898902C<3UTO"}
	for _, in := range inputs {
		d := CheckDigit(in)
		assert.True(t, d >= '0' && d <= '9', "check digit of %q is %q", in, d)
	}
}

func TestCharValue(t *testing.T) {
	assert.Equal(t, 0, CharValue('<'))
	assert.Equal(t, 7, CharValue('7'))
	assert.Equal(t, 10, CharValue('A'))
	assert.Equal(t, 35, CharValue('Z'))
	assert.Equal(t, 0, CharValue('a'))
}
