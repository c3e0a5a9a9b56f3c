package calendar

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"
)

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// ParseRepeat accepts "", none, monthly, yearly.
func ParseRepeat(s string) (Repeat, error) {
	switch r := Repeat(strings.ToLower(strings.TrimSpace(s))); r {
	case "", RepeatNone:
		return RepeatNone, nil
	case RepeatMonthly, RepeatYearly:
		return r, nil
	default:
		return "", errors.Errorf("unknown repeat %q", s)
	}
}

// Expand returns the occurrence days of a series starting at start, start
// included: a year of monthly occurrences or five yearly ones. Months that
// lack the start day are skipped.
func Expand(start time.Time, r Repeat) ([]time.Time, error) {
	var opt rrule.ROption
	switch r {
	case RepeatNone, "":
		return []time.Time{start}, nil
	case RepeatMonthly:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Count: 12}
	case RepeatYearly:
		opt = rrule.ROption{Freq: rrule.YEARLY, Count: 5}
	default:
		return nil, errors.Errorf("unknown repeat %q", r)
	}
	opt.Dtstart = start

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, errors.Wrap(err, "build recurrence rule")
	}
	return rule.All(), nil
}
