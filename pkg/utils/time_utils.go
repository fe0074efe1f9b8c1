package utils

import (
	"time"
)

// TimeToMillis converts time.Time to milliseconds since epoch
func TimeToMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// MillisToTime converts milliseconds since epoch to time.Time
func MillisToTime(millis int64) time.Time {
	return time.Unix(0, millis*int64(time.Millisecond))
}

// FormatTime formats time in ISO 8601 format
func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseTime parses ISO 8601 formatted time string
func ParseTime(timeStr string) (time.Time, error) {
	return time.Parse(time.RFC3339, timeStr)
}

// AgeAt returns the whole-year age at the given instant with calendar-correct
// birthday comparison: the year difference is decremented when the birthday
// in the current year has not yet occurred.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if now.Before(anniversary) {
		years--
	}
	return years
}

// EighteenthBirthday returns the instant the patient turns 18.
func EighteenthBirthday(dob time.Time) time.Time {
	return dob.AddDate(18, 0, 0)
}
