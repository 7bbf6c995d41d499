package cf

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeUnits is a parsed CF time encoding such as "hours since 1900-01-01".
//
// Reference is the instant the offsets count from, in UTC. A zone named by
// the reference timestamp is applied here and not kept: decoded axes are
// always naive UTC.
type TimeUnits struct {
	Step      time.Duration
	Reference time.Time
}

var stepNames = map[string]time.Duration{
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"ms": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"us": time.Microsecond, "microsecond": time.Microsecond, "microseconds": time.Microsecond,
}

var referencePattern = regexp.MustCompile(
	`^(-?\d{1,4})-(\d{1,2})-(\d{1,2})` +
		`(?:[T ](\d{1,2}):(\d{1,2})(?::(\d{1,2})(\.\d+)?)?)?` +
		`\s*(Z|UTC|GMT|[+-]\d{1,2}(?::?\d{2})?)?$`)

// calendars lists the calendar names decoded with the proleptic Gregorian
// calendar of package time.
var calendars = map[string]bool{
	"": true, "standard": true, "gregorian": true, "proleptic_gregorian": true,
}

// IsTimeUnits reports whether units looks like a CF time encoding.
func IsTimeUnits(units string) bool {
	return strings.Contains(strings.ToLower(units), " since ")
}

// ParseTimeUnits parses "<unit> since <reference>".
func ParseTimeUnits(units string) (TimeUnits, error) {
	u := strings.TrimSpace(units)
	i := strings.Index(strings.ToLower(u), " since ")
	if i < 0 {
		return TimeUnits{}, fmt.Errorf("time units %q: expected \"<unit> since <reference>\"", units)
	}
	unit, ref := strings.TrimSpace(u[:i]), strings.TrimSpace(u[i+len(" since "):])
	step, ok := stepNames[strings.ToLower(unit)]
	if !ok {
		return TimeUnits{}, fmt.Errorf("time units %q: unknown unit %q", units, unit)
	}

	m := referencePattern.FindStringSubmatch(ref)
	if m == nil {
		return TimeUnits{}, fmt.Errorf("time units %q: cannot parse reference %q", units, ref)
	}
	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	nsec := 0
	if m[7] != "" {
		f, _ := strconv.ParseFloat(m[7], 64)
		nsec = int(math.Round(f * 1e9))
	}

	loc, err := parseZone(m[8])
	if err != nil {
		return TimeUnits{}, fmt.Errorf("time units %q: %w", units, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	refTime := time.Date(num(m[1]), time.Month(num(m[2])), num(m[3]), num(m[4]), num(m[5]), num(m[6]), nsec, loc)
	return TimeUnits{Step: step, Reference: refTime.UTC()}, nil
}

func parseZone(z string) (*time.Location, error) {
	switch strings.ToUpper(z) {
	case "":
		return nil, nil
	case "Z", "UTC", "GMT":
		return time.UTC, nil
	}
	sign := 1
	if z[0] == '-' {
		sign = -1
	}
	z = strings.ReplaceAll(z[1:], ":", "")
	var h, m int
	switch len(z) {
	case 1, 2:
		h, _ = strconv.Atoi(z)
	case 3, 4:
		h, _ = strconv.Atoi(z[:len(z)-2])
		m, _ = strconv.Atoi(z[len(z)-2:])
	default:
		return nil, fmt.Errorf("invalid zone offset %q", z)
	}
	offset := sign * (h*3600 + m*60)
	if offset == 0 {
		return time.UTC, nil
	}
	return time.FixedZone("", offset), nil
}

// Decode converts offsets from the reference to UTC timestamps. NaN offsets
// decode to the zero time.
func (tu TimeUnits) Decode(values []float64) []time.Time {
	out := make([]time.Time, len(values))
	ref := tu.Reference.Unix()
	refNsec := int64(tu.Reference.Nanosecond())
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		secs := v * tu.Step.Seconds()
		whole := math.Floor(secs)
		nsec := int64(math.Round((secs-whole)*1e9)) + refNsec
		out[i] = time.Unix(ref+int64(whole), nsec).UTC()
	}
	return out
}

// DecodeTimes decodes CF time offsets with the given units and calendar.
// The result is naive: wall clocks in UTC. Calendars other than the standard
// Gregorian ones are rejected.
func DecodeTimes(values []float64, units, calendar string) ([]time.Time, error) {
	if !calendars[strings.ToLower(calendar)] {
		return nil, fmt.Errorf("unsupported calendar %q", calendar)
	}
	tu, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	return tu.Decode(values), nil
}
