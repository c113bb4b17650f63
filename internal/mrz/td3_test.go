package mrz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	sampleLine1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	sampleLine2 = "L898902C<3UTO6908061F9406236ZE184226B<<<<<16"
)

type TD3ParserSuite struct {
	suite.Suite
}

func TestTD3ParserSuite(t *testing.T) {
	suite.Run(t, new(TD3ParserSuite))
}

func (s *TD3ParserSuite) TestWellFormedRecord() {
	rec, ok := Parse([]string{sampleLine1, sampleLine2})
	s.Require().True(ok)

	s.Equal("P<", rec.DocumentType)
	s.Equal("UTO", rec.IssuingState)
	s.Equal("UTO", rec.Nationality)
	s.Equal("F", rec.Sex)
	s.Equal("ERIKSSON", rec.Surname)
	s.Equal("ANNA MARIA", rec.GivenNames)

	s.Equal("L898902C<", rec.DocumentNumber.Value)
	s.Equal("L898902C", rec.DocumentNumber.Text())
	s.Equal("690806", rec.BirthDate.Value)
	s.Equal("940623", rec.ExpiryDate.Value)
	s.Equal("ZE184226B", rec.PersonalNumber.Text())

	s.True(rec.DocumentNumber.Valid)
	s.True(rec.BirthDate.Valid)
	s.True(rec.ExpiryDate.Valid)
	s.True(rec.PersonalNumber.Valid)
	s.True(rec.CompositeValid)
	s.True(rec.Valid())
}

func (s *TD3ParserSuite) TestCompositeOrder() {
	rec, ok := Parse([]string{sampleLine1, sampleLine2})
	s.Require().True(ok)
	s.Equal("L898902C<3ZE184226B<<<<<16908061940623"+"6", rec.CompositeSource())
}

func (s *TD3ParserSuite) TestShortLinesArePadded() {
	rec, ok := Parse([]string{"P<UTOERIKSSON<<ANNA", "L898902C<3UTO6908061F9406236"})
	s.Require().True(ok)
	s.Len(rec.Lines[0], LineLength)
	s.Len(rec.Lines[1], LineLength)
	s.True(strings.HasSuffix(rec.Lines[1], "<<<<"))
	s.True(rec.DocumentNumber.Valid)
	s.True(rec.BirthDate.Valid)
	s.True(rec.ExpiryDate.Valid)
}

func (s *TD3ParserSuite) TestLongLinesAreTruncated() {
	rec, ok := Parse([]string{sampleLine1 + "XYZ", sampleLine2 + "123"})
	s.Require().True(ok)
	s.Equal(sampleLine1, rec.Lines[0])
	s.Equal(sampleLine2, rec.Lines[1])
}

func (s *TD3ParserSuite) TestSingleLongLineIsSplit() {
	rec, ok := Parse([]string{sampleLine1 + sampleLine2})
	s.Require().True(ok)
	s.Equal(sampleLine1, rec.Lines[0])
	s.Equal(sampleLine2, rec.Lines[1])
	s.True(rec.Valid())
}

func (s *TD3ParserSuite) TestRejectsUnusableInput() {
	s.Run("single short line", func() {
		_, ok := Parse([]string{"P<UTOERIKSSON"})
		s.False(ok)
	})
	s.Run("no lines", func() {
		_, ok := Parse(nil)
		s.False(ok)
	})
	s.Run("first line too short", func() {
		_, ok := Parse([]string{"P<UTO", sampleLine2})
		s.False(ok)
	})
}

func (s *TD3ParserSuite) TestFlagsBadCheckDigits() {
	bad := "L898902C<9UTO6908062F9406237ZE184226B<<<<<16"
	rec, ok := Parse([]string{sampleLine1, bad})
	s.Require().True(ok)
	s.False(rec.DocumentNumber.Valid)
	s.False(rec.BirthDate.Valid)
	s.False(rec.ExpiryDate.Valid)
	s.True(rec.PersonalNumber.Valid)
	s.False(rec.CompositeValid)
}

func (s *TD3ParserSuite) TestEmptyPersonalNumberWithFillerCheck() {
	line2 := "L898902C<3UTO6908061F9406236<<<<<<<<<<<<<<<2"
	rec, ok := Parse([]string{sampleLine1, line2})
	s.Require().True(ok)
	s.True(rec.PersonalNumber.Valid)
	s.True(rec.CompositeValid)
}

func TestSplitLines(t *testing.T) {
	t.Run("88 characters split 44+44", func(t *testing.T) {
		got := SplitLines([]string{strings.Repeat("A", 44) + strings.Repeat("B", 44)})
		require.Len(t, got, 2)
		assert.Equal(t, strings.Repeat("A", 44), got[0])
		assert.Equal(t, strings.Repeat("B", 44), got[1])
	})

	t.Run("72 characters split 36+36", func(t *testing.T) {
		got := SplitLines([]string{strings.Repeat("A", 36) + strings.Repeat("B", 40)})
		require.Len(t, got, 2)
		assert.Equal(t, strings.Repeat("A", 36), got[0])
		assert.Equal(t, strings.Repeat("B", 36), got[1])
	})

	t.Run("shorter single line unchanged", func(t *testing.T) {
		in := []string{strings.Repeat("A", 71)}
		assert.Equal(t, in, SplitLines(in))
	})

	t.Run("two lines unchanged", func(t *testing.T) {
		in := []string{"A", "B"}
		assert.Equal(t, in, SplitLines(in))
	})
}

func TestSplitNames(t *testing.T) {
	surname, given := splitNames("ERIKSSON<<ANNA<MARIA<<<<<<")
	assert.Equal(t, "ERIKSSON", surname)
	assert.Equal(t, "ANNA MARIA", given)

	surname, given = splitNames("ERIKSSON<ANNA")
	assert.Equal(t, "ERIKSSON", surname)
	assert.Equal(t, "ANNA", given)

	// the double filler wins even when a single filler comes first
	surname, given = splitNames("ERIKSSON<ANNA<<<")
	assert.Equal(t, "ERIKSSONANNA", surname)
	assert.Empty(t, given)
}

func TestFixName(t *testing.T) {
	assert.Equal(t, "ERIKSSON", FixName("ER1K55ON"))
	assert.Equal(t, "ANNA MARIA", FixName("4NNA<<MAR1A<"))
	assert.Equal(t, "BOZO", FixName("8020"))
	assert.Equal(t, "", FixName(""))
}

func TestISODate(t *testing.T) {
	assert.Equal(t, "1969-08-06", ISODate("690806"))
	assert.Equal(t, "2024-06-23", ISODate("240623"))
	assert.Equal(t, "69O806", ISODate("69O806"))
	assert.Equal(t, "6908", ISODate("6908"))
}
