package period

import (
	"strings"
	"time"

	"github.com/klokku/cycleledger/internal/errs"
)

type Kind string

const (
	Weekly  Kind = "WEEKLY"
	Monthly Kind = "MONTHLY"
)

const (
	DefaultStartDay = 1
	MaxStartDay     = 28
)

const dayLength = 24 * time.Hour

var ErrInvalidKind = errs.New(errs.InvalidInput, "period must be WEEKLY or MONTHLY")
var ErrInvalidMonth = errs.New(errs.InvalidInput, "Invalid month format. Use YYYY-MM (e.g., 2026-01)")
var ErrInvalidDate = errs.New(errs.InvalidInput, "Invalid date format")
var ErrInvalidStartDay = errs.New(errs.InvalidInput, "monthStartDate must be between 1 and 28")

func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(value))) {
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	}
	return "", ErrInvalidKind
}

// Range is an inclusive instant range. End is the last millisecond of the range.
type Range struct {
	Start time.Time
	End   time.Time
}

// EndExclusive is the first instant after the range, used for half-open queries.
func (r Range) EndExclusive() time.Time {
	return r.End.Add(time.Millisecond)
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days is the number of UTC calendar days the range covers.
func (r Range) Days() int {
	return int(r.EndExclusive().Sub(r.Start) / dayLength)
}

// Format renders the range the way users see it, e.g. "18 January 2026 - 17 February 2026".
func (r Range) Format() string {
	const layout = "2 January 2006"
	return r.Start.UTC().Format(layout) + " - " + r.End.UTC().Format(layout)
}

type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func ParseYearMonth(value string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return YearMonth{}, ErrInvalidMonth
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the instant in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}

// NormalizeStartDay applies the default for unset values and clamps to the allowed range.
func NormalizeStartDay(day int) int {
	if day < DefaultStartDay {
		return DefaultStartDay
	}
	if day > MaxStartDay {
		return MaxStartDay
	}
	return day
}

func ValidateStartDay(day int) error {
	if day < 1 || day > MaxStartDay {
		return ErrInvalidStartDay
	}
	return nil
}

// DayRange is the UTC calendar day containing t.
func DayRange(t time.Time) Range {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: endOfDay(start)}
}

// MonthRange returns the monthly cycle anchored on monthStartDate. With an explicit
// year/month the cycle starts on monthStartDate of that month; otherwise it is the cycle
// containing now.
func MonthRange(now time.Time, monthStartDate int, explicit *YearMonth) Range {
	startDay := NormalizeStartDay(monthStartDate)
	if explicit != nil {
		return cycle(explicit.Year, explicit.Month, startDay)
	}

	now = now.UTC()
	month := now.Month()
	if now.Day() < startDay {
		month--
	}
	return cycle(now.Year(), month, startDay)
}

// PreviousMonthRange is the monthly cycle immediately before the one containing now.
func PreviousMonthRange(now time.Time, monthStartDate int) Range {
	current := MonthRange(now, monthStartDate, nil)
	return MonthRange(current.Start.Add(-dayLength), monthStartDate, nil)
}

// WeekRange returns the 7 day block of the current monthly cycle that contains now.
// Blocks are counted from the cycle start; the last one is clamped to the cycle end.
func WeekRange(now time.Time, monthStartDate int) Range {
	month := MonthRange(now, monthStartDate, nil)
	index := int(now.UTC().Sub(month.Start) / dayLength / 7)

	start := month.Start.AddDate(0, 0, 7*index)
	end := endOfDay(start.AddDate(0, 0, 6))
	if end.After(month.End) {
		end = month.End
	}
	return Range{Start: start, End: end}
}

// Weeks splits the monthly cycle into its consecutive weekly blocks.
func Weeks(month Range) []Range {
	var weeks []Range
	for start := month.Start; !start.After(month.End); start = start.AddDate(0, 0, 7) {
		end := endOfDay(start.AddDate(0, 0, 6))
		if end.After(month.End) {
			end = month.End
		}
		weeks = append(weeks, Range{Start: start, End: end})
	}
	return weeks
}

func Current(kind Kind, now time.Time, monthStartDate int) Range {
	if kind == Weekly {
		return WeekRange(now, monthStartDate)
	}
	return MonthRange(now, monthStartDate, nil)
}

// cycle relies on time.Date normalisation, so month 0 is December of the previous year
// and day 0 is the last day of the previous month.
func cycle(year int, month time.Month, startDay int) Range {
	start := time.Date(year, month, startDay, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, startDay-1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: endOfDay(last)}
}

func endOfDay(day time.Time) time.Time {
	return day.Add(dayLength - time.Millisecond)
}
