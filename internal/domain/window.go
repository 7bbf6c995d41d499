package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// Bound is one end of a time window. Aware is false for bounds written
// without a zone; their wall clock is held in UTC.
type Bound struct {
	Time  time.Time
	Aware bool
}

// TimeWindow is an inclusive time range. Either end may be nil.
type TimeWindow struct {
	Start *Bound
	End   *Bound
}

// Empty reports whether no bound is set.
func (w TimeWindow) Empty() bool { return w.Start == nil && w.End == nil }

var zoneSuffix = regexp.MustCompile(`(?i)(z|[+-]\d{2}(:?\d{2})?)$`)

// ParseBound parses an ISO-8601 date or date-time. A blank string yields a
// nil bound. A space between date and time is accepted in place of "T".
func ParseBound(s string) (*Bound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + strings.TrimSpace(s[11:])
	}

	var timePart string
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		timePart = s[i+1:]
	}
	aware := timePart != "" && zoneSuffix.MatchString(timePart)

	t, err := iso8601.ParseString(s)
	if err != nil {
		d, derr := time.Parse("2006-01-02", s)
		if derr != nil {
			return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidRequest, s)
		}
		t = d
	}
	if !aware {
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
	return &Bound{Time: t, Aware: aware}, nil
}

// ParseWindow parses optional start and end strings.
func ParseWindow(start, end string) (TimeWindow, error) {
	s, err := ParseBound(start)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("start date: %w", err)
	}
	e, err := ParseBound(end)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("end date: %w", err)
	}
	return TimeWindow{Start: s, End: e}, nil
}

// normalize expresses b on the same scale as a time axis in loc. A nil loc
// is a naive axis: aware bounds are converted to UTC and their zone dropped.
// On an aware axis a naive bound's wall clock is read in loc.
func (b *Bound) normalize(loc *time.Location) time.Time {
	t := b.Time
	switch {
	case loc == nil && b.Aware:
		return t.UTC()
	case loc != nil && !b.Aware:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return t
}

// SliceTime restricts ds to the steps of its time axis that fall inside w,
// bounds included. It is a no-op without a time role, without a bound, or
// when the time coordinate is not a decoded 1-D axis. A window that selects
// no step yields ErrEmptyTimeWindow.
func SliceTime(ds *Dataset, roles Roles, w TimeWindow) (*Dataset, error) {
	if roles.Time == "" || w.Empty() {
		return ds, nil
	}
	c := ds.Coord(roles.Time)
	if c == nil || !c.IsTime() || len(c.Dims) > 1 {
		return ds, nil
	}

	var start, end time.Time
	if w.Start != nil {
		start = w.Start.normalize(c.Location)
	}
	if w.End != nil {
		end = w.End.normalize(c.Location)
	}
	inside := func(t time.Time) bool {
		if w.Start != nil && t.Before(start) {
			return false
		}
		if w.End != nil && t.After(end) {
			return false
		}
		return true
	}

	if c.IsScalar() {
		if len(c.Times) == 0 || !inside(c.Times[0]) {
			return nil, ErrEmptyTimeWindow
		}
		return ds, nil
	}

	var idx []int
	for i, t := range c.Times {
		if inside(t) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, ErrEmptyTimeWindow
	}
	return ds.Isel(c.Dims[0], idx), nil
}
