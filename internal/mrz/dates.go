package mrz

import "fmt"

// centuryPivot splits two-digit years between the 2000s and the 1900s.
const centuryPivot = 50

// ISODate renders a YYMMDD field as YYYY-MM-DD. Years below 50 are read as
// 20YY. Values that are not six digits are returned unchanged.
func ISODate(yymmdd string) string {
	if len(yymmdd) != 6 {
		return yymmdd
	}
	for i := 0; i < 6; i++ {
		if yymmdd[i] < '0' || yymmdd[i] > '9' {
			return yymmdd
		}
	}
	yy := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	year := 1900 + yy
	if yy < centuryPivot {
		year = 2000 + yy
	}
	return fmt.Sprintf("%04d-%s-%s", year, yymmdd[2:4], yymmdd[4:6])
}
