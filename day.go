package echo

import (
	"time"

	"github.com/pkg/errors"
)

// DayLayout is the textual form of a Day, e.g. 2025/01/31.
const DayLayout = "2006/01/02"

// Day is a calendar day in UTC with no time of day.
type Day struct {
	t time.Time
}

// ParseDay parses a YYYY/MM/DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, errors.Wrapf(err, "parsing day '%s'", s)
	}
	return Day{t: t}, nil
}

// MustParseDay is like ParseDay but panics on error.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Day) String() string { return d.t.Format(DayLayout) }

// Compact renders the day as YYYYMMDD.
func (d Day) Compact() string { return d.t.Format("20060102") }

// Time returns midnight UTC at the start of the day.
func (d Day) Time() time.Time { return d.t }

// AddDays returns the day n days after d.
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Next returns the following day.
func (d Day) Next() Day { return d.AddDays(1) }

func (d Day) Before(o Day) bool { return d.t.Before(o.t) }
func (d Day) After(o Day) bool  { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool  { return d.t.Equal(o.t) }
func (d Day) IsZero() bool      { return d.t.IsZero() }

// DayRange is an inclusive range of days.
type DayRange struct {
	Start Day
	End   Day
}

// NewDayRange returns the range [start, end]. It is an error for end to
// precede start.
func NewDayRange(start, end Day) (DayRange, error) {
	if end.Before(start) {
		return DayRange{}, errors.Errorf("end date %s is before start date %s", end, start)
	}
	return DayRange{Start: start, End: end}, nil
}

// ParseDayRange parses both ends of a range in YYYY/MM/DD form.
func ParseDayRange(start, end string) (DayRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DayRange{}, errors.Wrap(err, "start date")
	}
	e, err := ParseDay(end)
	if err != nil {
		return DayRange{}, errors.Wrap(err, "end date")
	}
	return NewDayRange(s, e)
}

func (r DayRange) String() string { return r.Start.String() + "-" + r.End.String() }

// Contains reports whether d falls within the range.
func (r DayRange) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every day of the range in order.
func (r DayRange) Days() []Day {
	var days []Day
	for d := r.Start; !d.After(r.End); d = d.Next() {
		days = append(days, d)
	}
	return days
}

// Len is the number of days in the range.
func (r DayRange) Len() int {
	return int(r.End.t.Sub(r.Start.t)/(24*time.Hour)) + 1
}

// Batches partitions the range into consecutive windows of size days. The
// last window is truncated to End.
func (r DayRange) Batches(size int) ([]DayRange, error) {
	if size < 1 {
		return nil, errors.Errorf("batch size must be at least one day, got %d", size)
	}
	var windows []DayRange
	for start := r.Start; !start.After(r.End); {
		end := start.AddDays(size - 1)
		if end.After(r.End) {
			end = r.End
		}
		windows = append(windows, DayRange{Start: start, End: end})
		start = end.Next()
	}
	return windows, nil
}
