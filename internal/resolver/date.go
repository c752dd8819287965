package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04",
}

// DeriveDate interprets a front matter date: a time.Time, an ISO-8601 string
// or a Unix epoch in seconds.
func DeriveDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		if n, err := cast.ToInt64E(s); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d)
	case int, int32, int64, uint, uint32, uint64:
		return time.Unix(cast.ToInt64(d), 0).UTC(), nil
	case float64:
		return time.Unix(int64(d), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidDate, v)
	}
}

// formatTime renders dates without a clock component as plain dates.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
