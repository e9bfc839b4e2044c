package workflow

import (
	"time"

	"bitbucket.org/dojoworks/dojo_backend/models"
)

// Bank submission lead times in business days. First collections need the
// longer pre-notification window at the debtor bank.
const (
	LeadTimeDaysFirst     = 5
	LeadTimeDaysRecurring = 2
)

// easterSunday computes the Gregorian Easter date (Gauss algorithm).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// isTarget2ClosingDay reports the EUR settlement holidays: the days the
// TARGET2 system is closed and no SEPA collection settles.
func isTarget2ClosingDay(d time.Time) bool {
	switch {
	case d.Month() == time.January && d.Day() == 1:
		return true
	case d.Month() == time.May && d.Day() == 1:
		return true
	case d.Month() == time.December && (d.Day() == 25 || d.Day() == 26):
		return true
	}
	easter := easterSunday(d.Year())
	goodFriday := easter.AddDate(0, 0, -2)
	easterMonday := easter.AddDate(0, 0, 1)
	return sameDate(d, goodFriday) || sameDate(d, easterMonday)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func IsBusinessDay(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !isTarget2ClosingDay(d)
}

// BusinessDaysBetween counts business days after `from` up to and including
// `to`. Returns 0 when `to` is not after `from`.
func BusinessDaysBetween(from, to time.Time) int {
	from = truncateToDate(from)
	to = truncateToDate(to)
	if !to.After(from) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			days++
		}
	}
	return days
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateLeadTime enforces the minimum submission window: 5 business days
// when the batch contains any first collection, 2 when purely recurring.
// The execution date itself must be a settlement day.
func ValidateLeadTime(now, executionDate time.Time, hasFirstCollection bool) error {
	if !IsBusinessDay(executionDate) {
		return models.NewStateError(models.ErrCodeLeadTimeTooShort, "batch", 0,
			"execution date %s is not a TARGET2 business day",
			executionDate.Format("2006-01-02"))
	}
	required := LeadTimeDaysRecurring
	kind := "recurring"
	if hasFirstCollection {
		required = LeadTimeDaysFirst
		kind = "first"
	}
	actual := BusinessDaysBetween(now, executionDate)
	if actual < required {
		return models.NewStateError(models.ErrCodeLeadTimeTooShort, "batch", 0,
			"execution date %s is %d business days away; %s collections need %d",
			executionDate.Format("2006-01-02"), actual, kind, required)
	}
	return nil
}
