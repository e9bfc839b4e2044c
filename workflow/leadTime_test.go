package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEasterSunday_KnownYears(t *testing.T) {
	cases := map[int]time.Time{
		2024: date(2024, time.March, 31),
		2025: date(2025, time.April, 20),
		2026: date(2026, time.April, 5),
		2027: date(2027, time.March, 28),
	}
	for year, want := range cases {
		if got := easterSunday(year); !sameDate(got, want) {
			t.Errorf("easterSunday(%d) = %s, want %s", year, got.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestIsBusinessDay_WeekendsAndClosingDays(t *testing.T) {
	closed := []time.Time{
		date(2026, time.January, 1),   // New Year
		date(2026, time.May, 1),       // Labour Day
		date(2026, time.December, 25), // Christmas
		date(2026, time.December, 26),
		date(2026, time.April, 3),     // Good Friday
		date(2026, time.April, 6),     // Easter Monday
		date(2026, time.March, 7),     // Saturday
		date(2026, time.March, 8),     // Sunday
	}
	for _, d := range closed {
		if IsBusinessDay(d) {
			t.Errorf("%s should not be a business day", d.Format("2006-01-02 Mon"))
		}
	}
	open := []time.Time{
		date(2026, time.March, 2), // Monday
		date(2026, time.April, 7), // Tuesday after Easter Monday
		date(2026, time.April, 2), // Maundy Thursday settles normally
	}
	for _, d := range open {
		if !IsBusinessDay(d) {
			t.Errorf("%s should be a business day", d.Format("2006-01-02 Mon"))
		}
	}
}

func TestBusinessDaysBetween(t *testing.T) {
	// Monday to next Monday: 5 business days (weekend skipped).
	if got := BusinessDaysBetween(date(2026, time.March, 2), date(2026, time.March, 9)); got != 5 {
		t.Fatalf("Mon->Mon = %d, want 5", got)
	}
	// Across the Easter weekend 2026: Apr 3 (Good Friday) and Apr 6 (Easter
	// Monday) do not count.
	if got := BusinessDaysBetween(date(2026, time.April, 1), date(2026, time.April, 8)); got != 3 {
		t.Fatalf("across Easter = %d, want 3", got)
	}
	// Not after from.
	if got := BusinessDaysBetween(date(2026, time.March, 9), date(2026, time.March, 2)); got != 0 {
		t.Fatalf("inverted range = %d, want 0", got)
	}
	if got := BusinessDaysBetween(date(2026, time.March, 2), date(2026, time.March, 2)); got != 0 {
		t.Fatalf("same day = %d, want 0", got)
	}
	// Time-of-day must not matter.
	lateNow := time.Date(2026, time.March, 2, 23, 59, 0, 0, time.UTC)
	if got := BusinessDaysBetween(lateNow, date(2026, time.March, 9)); got != 5 {
		t.Fatalf("late submission = %d, want 5", got)
	}
}

func TestValidateLeadTime_FirstCollectionNeedsFiveDays(t *testing.T) {
	now := date(2026, time.March, 2) // Monday

	if err := ValidateLeadTime(now, date(2026, time.March, 9), true); err != nil {
		t.Fatalf("5 business days ahead should pass for first collections: %v", err)
	}

	err := ValidateLeadTime(now, date(2026, time.March, 6), true) // Friday, 4 days
	if err == nil {
		t.Fatal("4 business days must fail for first collections")
	}
	var sErr *models.StateError
	if !errors.As(err, &sErr) || sErr.Code != models.ErrCodeLeadTimeTooShort {
		t.Fatalf("expected LeadTimeTooShort state error, got %v", err)
	}
}

func TestValidateLeadTime_RecurringNeedsTwoDays(t *testing.T) {
	now := date(2026, time.March, 2) // Monday

	if err := ValidateLeadTime(now, date(2026, time.March, 4), false); err != nil {
		t.Fatalf("2 business days ahead should pass for recurring: %v", err)
	}
	if err := ValidateLeadTime(now, date(2026, time.March, 3), false); err == nil {
		t.Fatal("1 business day must fail for recurring")
	}
}

func TestValidateLeadTime_ExecutionDateMustSettle(t *testing.T) {
	now := date(2026, time.March, 2) // Monday, weeks of lead time below

	cases := []time.Time{
		date(2026, time.March, 21), // Saturday
		date(2026, time.March, 22), // Sunday
		date(2026, time.April, 3),  // Good Friday
		date(2026, time.May, 1),    // Labour Day
	}
	for _, execution := range cases {
		err := ValidateLeadTime(now, execution, false)
		if err == nil {
			t.Errorf("%s is not a settlement day, must be rejected", execution.Format("2006-01-02 Mon"))
			continue
		}
		var sErr *models.StateError
		if !errors.As(err, &sErr) || sErr.Code != models.ErrCodeLeadTimeTooShort {
			t.Errorf("expected LeadTimeTooShort state error for %s, got %v", execution.Format("2006-01-02"), err)
		}
	}

	// The Tuesday after Easter Monday settles and has ample lead time.
	if err := ValidateLeadTime(now, date(2026, time.April, 7), true); err != nil {
		t.Fatalf("business-day execution date should pass: %v", err)
	}
}

func TestValidateLeadTime_MixedBatchUsesFirstWindow(t *testing.T) {
	now := date(2026, time.March, 2)
	execution := date(2026, time.March, 4) // fine for RCUR, too close for FRST
	if err := ValidateLeadTime(now, execution, false); err != nil {
		t.Fatalf("recurring-only should pass: %v", err)
	}
	if err := ValidateLeadTime(now, execution, true); err == nil {
		t.Fatal("one first collection must subject the whole batch to the 5-day window")
	}
}
