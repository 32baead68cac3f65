package report

import (
	"fmt"
	"strconv"
	"strings"
)

// SequencePrefix is the fixed leading part of every sequential number.
const SequencePrefix = "ENV"

// FirstSequence is the suffix used when no usable previous number exists.
const FirstSequence = 1

// FormatSequenceNumber renders ENV-<year>-<seq>, the suffix zero-padded to at
// least three digits. Values above 999 keep all their digits.
func FormatSequenceNumber(year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", SequencePrefix, year, seq)
}

// ParseSequenceNumber splits a sequential number into year and suffix. It
// requires exactly three hyphen-separated parts with integer year and suffix.
// The prefix part itself is not checked.
func ParseSequenceNumber(v string) (year int, seq int64, err error) {
	parts := strings.Split(v, "-")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("sequential number %q: expected 3 parts, got %d", v, len(parts))
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("sequential number %q: bad year: %w", v, err)
	}
	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("sequential number %q: bad suffix: %w", v, err)
	}
	return year, seq, nil
}

// NextSequenceNumber derives the number following previous for currentYear.
// An empty or malformed previous value yields the first number of the year;
// the returned error is non-nil in the malformed case so callers can log it,
// but the number is always usable. When resetYearly is set, a previous number
// from another year also restarts at the first number.
func NextSequenceNumber(previous string, currentYear int, resetYearly bool) (string, error) {
	if previous == "" {
		return FormatSequenceNumber(currentYear, FirstSequence), nil
	}
	prevYear, seq, err := ParseSequenceNumber(previous)
	if err != nil {
		return FormatSequenceNumber(currentYear, FirstSequence), err
	}
	if resetYearly && prevYear != currentYear {
		return FormatSequenceNumber(currentYear, FirstSequence), nil
	}
	return FormatSequenceNumber(currentYear, seq+1), nil
}
