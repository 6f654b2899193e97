// Package jalali converts between the Jalali (Persian) and Gregorian
// calendars and parses the dual-calendar date strings the portal and
// the filter inputs use. The calendar a string belongs to is guessed
// from the year magnitude: years above 1900 are read as Gregorian,
// everything else as Jalali. The cutoff means Gregorian years before
// 1901 cannot be expressed; callers extending this package should
// replace the heuristic before touching anything else.
package jalali

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// gregorianYearCutoff decides which calendar a parsed year belongs to.
const gregorianYearCutoff = 1900

var gregorianDayOffsets = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// Date is a calendar-agnostic year/month/day triple.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ToJalali converts a Gregorian date to Jalali.
func ToJalali(gy, gm, gd int) Date {
	gy2 := gy - 1600
	gm2 := gm - 1
	gd2 := gd - 1

	gDayNo := 365*gy2 + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400
	gDayNo += gregorianDayOffsets[gm2] + gd2
	if gm2 > 1 && isGregorianLeap(gy) {
		gDayNo++
	}

	jDayNo := gDayNo - 79
	jNp := jDayNo / 12053
	jDayNo %= 12053
	jy := 979 + 33*jNp + 4*(jDayNo/1461)
	jDayNo %= 1461
	if jDayNo >= 366 {
		jy += (jDayNo - 1) / 365
		jDayNo = (jDayNo - 1) % 365
	}

	if jDayNo < 186 {
		return Date{Year: jy, Month: 1 + jDayNo/31, Day: 1 + jDayNo%31}
	}
	return Date{Year: jy, Month: 7 + (jDayNo-186)/30, Day: 1 + (jDayNo-186)%30}
}

// ToGregorian converts a Jalali date to Gregorian.
func ToGregorian(jy, jm, jd int) Date {
	jy2 := jy - 979
	jm2 := jm - 1
	jd2 := jd - 1

	jDayNo := 365*jy2 + jy2/33*8 + (jy2%33+3)/4
	if jm2 < 6 {
		jDayNo += jm2 * 31
	} else {
		jDayNo += jm2*30 + 6*31 - 6*30
	}
	jDayNo += jd2

	gDayNo := jDayNo + 79
	gy := 1600 + 400*(gDayNo/146097)
	gDayNo %= 146097

	leap := true
	if gDayNo >= 36525 {
		gDayNo--
		gy += 100 * (gDayNo / 36524)
		gDayNo %= 36524
		if gDayNo >= 365 {
			gDayNo++
		} else {
			leap = false
		}
	}

	gy += 4 * (gDayNo / 1461)
	gDayNo %= 1461
	if gDayNo >= 366 {
		leap = false
		gDayNo--
		gy += gDayNo / 365
		gDayNo %= 365
	}

	gd := gDayNo + 1
	monthDays := [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if leap {
		monthDays[2] = 29
	}

	gm := 0
	day := gd
	for i := 1; i <= 12; i++ {
		if day <= monthDays[i] {
			gm = i
			break
		}
		day -= monthDays[i]
	}
	return Date{Year: gy, Month: gm, Day: day}
}

// IsLeap reports whether a Jalali year is a leap year. It derives the
// answer from the same 33-year arithmetic the conversions use, so
// DaysInMonth always agrees with ToJalali about Esfand 30.
func IsLeap(jy int) bool {
	jy2 := jy - 979
	return leapDays(jy2+1)-leapDays(jy2) == 1
}

func leapDays(x int) int {
	return x/33*8 + (x%33+3)/4
}

// DaysInMonth returns the length of a Jalali month.
func DaysInMonth(jy, jm int) int {
	switch {
	case jm <= 6:
		return 31
	case jm <= 11:
		return 30
	default:
		if IsLeap(jy) {
			return 30
		}
		return 29
	}
}

// Today returns the current date in the Jalali calendar.
func Today() Date {
	now := time.Now()
	return ToJalali(now.Year(), int(now.Month()), now.Day())
}

func isGregorianLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// ParseDate parses "YYYY-MM-DD" or "YYYY/MM/DD" in either calendar and
// returns the Gregorian instant at midnight UTC. The boolean is false
// for blank or unparsable input.
func ParseDate(value string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}, false
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) < 3 {
		return time.Time{}, false
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}

	g := Date{Year: year, Month: month, Day: day}
	if year <= gregorianYearCutoff {
		g = ToGregorian(year, month, day)
	}

	parsed, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%02d-%02d", g.Year, g.Month, g.Day))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
