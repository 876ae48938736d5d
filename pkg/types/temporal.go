package types

import "time"

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.000Z0700",
	"20060102T150405.000Z0700",
	"20060102T150405Z0700",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
}

// ParseDate parses a yyyy-M-d value into days since 1970-01-01. Months and
// days may have one or two digits.
func ParseDate(s string) (int32, bool) {
	var (
		t   time.Time
		err error
	)
	for _, layout := range dateLayouts {
		if t, err = time.Parse(layout, s); err == nil {
			break
		}
	}
	if err != nil {
		return 0, false
	}
	days := floorDiv(t.Unix()*1000, millisPerDay)
	if days < -1<<31 || days > 1<<31-1 {
		return 0, false
	}
	return int32(days), true
}

// ParseTimestamp parses an ISO-8601 value into milliseconds since the epoch.
func ParseTimestamp(s string) (int64, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// DaysToTime converts a DATE value to midnight UTC of that day.
func DaysToTime(days int64) time.Time {
	return time.UnixMilli(days * millisPerDay).UTC()
}

// MillisToTime converts a TIMESTAMP value to a UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ParseBool reports whether s is one of the accepted truthy spellings.
// Anything else, including unrecognised text, is false.
func ParseBool(s string) bool {
	switch s {
	case "1", "T", "t", "Y", "y", "TRUE", "true", "YES", "yes":
		return true
	}
	return false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
