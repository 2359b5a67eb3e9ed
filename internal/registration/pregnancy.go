package registration

import "time"

// PregnancyWeeks computes how far along a pregnancy is, in whole weeks, from
// the last-menstrual-period date (YYYYMMDD) and a reference day.
//
// Results of 1 or below are folded into week 2: the program has no notion of
// being "0 or 1 week pregnant". No upper clamp is applied here; rejecting
// weeks beyond the registration window is the validator's job, so callers
// must not assume a range-checked result.
func PregnancyWeeks(today time.Time, lmp string) (int, error) {
	lmpDate, err := ParseDate(lmp)
	if err != nil {
		return 0, err
	}
	days := int(today.Sub(lmpDate).Hours() / 24)
	weeks := days / 7
	if weeks <= 1 {
		weeks = 2
	}
	return weeks, nil
}
