package vm

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Date, DateTime and Duration
// ---------------------------------------------------------------------------

// Date is a calendar date without a time of day.
type Date struct {
	t time.Time
}

// NewDate creates a date. The time of day is discarded.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates t to its date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) Kind() Kind       { return KindDate }
func (d Date) TypeName() string { return "date" }
func (d Date) IsTruthy() bool   { return !d.t.IsZero() }
func (d Date) HostValue() any   { return d.t }
func (d Date) String() string   { return d.t.Format("@2006-01-02") }

// Time returns the date at midnight, local time.
func (d Date) Time() time.Time { return d.t }

func (d Date) equals(v Value) bool {
	o, ok := v.(Date)
	return ok && d.t.Equal(o.t)
}

// DateTime is a point in time with second precision, in local time.
type DateTime struct {
	t time.Time
}

// NewDateTime creates a DateTime from t, dropping sub-second precision.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t: t.Truncate(time.Second).Local()}
}

// DateTimeFromEpoch creates a DateTime from seconds since the Unix epoch.
func DateTimeFromEpoch(sec int64) DateTime {
	return NewDateTime(time.Unix(sec, 0))
}

func (d DateTime) Kind() Kind       { return KindDateTime }
func (d DateTime) TypeName() string { return "datetime" }
func (d DateTime) IsTruthy() bool   { return !d.t.IsZero() }
func (d DateTime) HostValue() any   { return d.t }
func (d DateTime) String() string   { return d.t.Format("@2006-01-02-15:04:05") }

// Time returns the underlying time.
func (d DateTime) Time() time.Time { return d.t }

// Epoch returns seconds since the Unix epoch.
func (d DateTime) Epoch() int64 { return d.t.Unix() }

func (d DateTime) equals(v Value) bool {
	o, ok := v.(DateTime)
	return ok && d.t.Equal(o.t)
}

// Duration is a span of time with second precision.
type Duration struct {
	d time.Duration
}

// NewDuration creates a Duration, dropping sub-second precision.
func NewDuration(d time.Duration) Duration {
	return Duration{d: d.Truncate(time.Second)}
}

// Duration units understood by ParseDurationLiteral.
var durationUnits = map[string]time.Duration{
	"s":  time.Second,
	"mi": time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
	"w":  7 * 24 * time.Hour,
}

// DurationOf creates a duration of n units, where unit is one of s, mi, h, d
// or w.
func DurationOf(n int64, unit string) (Duration, error) {
	u, ok := durationUnits[unit]
	if !ok {
		return Duration{}, fmt.Errorf("unknown duration unit %q", unit)
	}
	return NewDuration(time.Duration(n) * u), nil
}

func (d Duration) Kind() Kind       { return KindDuration }
func (d Duration) TypeName() string { return "duration" }
func (d Duration) IsTruthy() bool   { return d.d != 0 }
func (d Duration) HostValue() any   { return d.d }
func (d Duration) String() string   { return fmt.Sprintf("@%ds", d.Seconds()) }

// Seconds returns the whole number of seconds.
func (d Duration) Seconds() int64 { return int64(d.d / time.Second) }

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return d.d }

func (d Duration) equals(v Value) bool {
	o, ok := v.(Duration)
	return ok && d.d == o.d
}

// javaLayout translates the date patterns scripts use (yyyy-MM-dd HH:mm:ss)
// into Go reference layouts.
var javaLayout = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
	"'T'", "T",
)

// GoLayout converts a yyyy-MM-dd style pattern to a Go time layout.
func GoLayout(pattern string) string {
	return javaLayout.Replace(pattern)
}
