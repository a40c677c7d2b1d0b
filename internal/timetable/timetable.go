// Package timetable converts raw time-slot descriptions into per-day period
// bitmasks and compares them for overlap.
//
// A timetable string is a whitespace-separated list of tokens of the form
// "Day:period[,period...]", e.g. "Mon:2,3 Wed:5". Periods are small integers
// packed into one bitmask per day of week, so overlap detection is a bitwise
// AND across seven ints.
package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTimetable is returned when a timetable string cannot be parsed.
var ErrMalformedTimetable = errors.New("malformed timetable")

// MaxPeriod is the highest period index representable in a day mask.
const MaxPeriod = 31

// days is the fixed enumeration of day tokens; the index is the slot in a Mask.
var days = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func dayIndex(name string) (int, bool) {
	for i, d := range days {
		if d == name {
			return i, true
		}
	}
	return 0, false
}

// Mask holds one period bitmask per day of week, Monday first.
type Mask [7]uint32

// Parse decodes a raw timetable string into a Mask. The empty string parses to
// the zero Mask. Unknown day names, missing or non-numeric periods, and periods
// outside [0, MaxPeriod] fail with ErrMalformedTimetable.
func Parse(raw string) (Mask, error) {
	var m Mask
	for _, token := range strings.Fields(raw) {
		day, periods, ok := strings.Cut(token, ":")
		if !ok {
			return Mask{}, fmt.Errorf("%w: token %q has no day separator", ErrMalformedTimetable, token)
		}
		i, ok := dayIndex(day)
		if !ok {
			return Mask{}, fmt.Errorf("%w: unknown day %q", ErrMalformedTimetable, day)
		}
		if periods == "" {
			return Mask{}, fmt.Errorf("%w: token %q has no periods", ErrMalformedTimetable, token)
		}
		for _, p := range strings.Split(periods, ",") {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || n > MaxPeriod {
				return Mask{}, fmt.Errorf("%w: bad period %q in token %q", ErrMalformedTimetable, p, token)
			}
			m[i] |= 1 << n
		}
	}
	return m, nil
}

// Overlaps reports whether the two masks share any day/period slot.
func (m Mask) Overlaps(other Mask) bool {
	for i := range m {
		if m[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// Union returns the combination of both masks.
func (m Mask) Union(other Mask) Mask {
	var out Mask
	for i := range m {
		out[i] = m[i] | other[i]
	}
	return out
}
