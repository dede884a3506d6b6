package delay

import (
	"fmt"
	"strings"
	"time"
)

// clockLayouts accept 12-hour times once whitespace and dots are removed,
// so "8:05 AM", "08:05AM" and "8:05 a.m." all parse
var clockLayouts = []string{"3:04PM", "3:04:05PM"}

// ParseClock parses a 12-hour wall-clock time with meridiem into a time of day
// on the zero date. Timetable and tracker disagree on the space before AM/PM.
func ParseClock(s string) (time.Time, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	norm = strings.ReplaceAll(norm, ".", "")

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized clock time %q", s)
}

// Minutes returns how many whole minutes actual is after scheduled. Arrivals at
// or before the scheduled time count as zero. Both times are taken as the same
// day, so a trip that crosses midnight produces a wrong value.
func Minutes(scheduled, actual string) (int, error) {
	sched, err := ParseClock(scheduled)
	if err != nil {
		return 0, fmt.Errorf("scheduled time: %w", err)
	}
	act, err := ParseClock(actual)
	if err != nil {
		return 0, fmt.Errorf("actual time: %w", err)
	}

	if !act.After(sched) {
		return 0, nil
	}
	return int(act.Sub(sched) / time.Minute), nil
}
