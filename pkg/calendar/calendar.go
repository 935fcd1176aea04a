// Package calendar implements the calendars dates can be entered and displayed in.
// Every calendar converts through the Julian Day Number, so any two calendars
// can be converted into each other by way of ISO 8601.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDate = errors.New("invalid date")

// DateTimeUnit is a calendar date. DayOfWeek follows ISO numbering, 1 is Monday.
type DateTimeUnit struct {
	Year      int  `json:"year"`
	Month     int  `json:"month"`
	Day       int  `json:"day"`
	DayOfWeek int  `json:"dayOfWeek,omitempty"`
	ISO8601   bool `json:"iso8601"`
}

func (d DateTimeUnit) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type Calendar interface {
	Name() string
	DisplayName() string
	// DateFormat is the name of the date format used by FormattedDate.
	DateFormat() string
	// WithDateFormat returns a copy of the calendar using format.
	WithDateFormat(format string) Calendar
	IsISO8601() bool

	ToISO(d DateTimeUnit) (DateTimeUnit, error)
	FromISO(d DateTimeUnit) (DateTimeUnit, error)
	FromTime(t time.Time) DateTimeUnit
	Today() DateTimeUnit

	MonthsInYear(year int) int
	DaysInMonth(year, month int) int
	DaysInYear(year int) int
	DaysInWeek() int
	IsValid(d DateTimeUnit) bool
	Weekday(d DateTimeUnit) (int, error)

	PlusDays(d DateTimeUnit, days int) (DateTimeUnit, error)
	MinusDays(d DateTimeUnit, days int) (DateTimeUnit, error)
	PlusWeeks(d DateTimeUnit, weeks int) (DateTimeUnit, error)
	PlusMonths(d DateTimeUnit, months int) (DateTimeUnit, error)
	PlusYears(d DateTimeUnit, years int) (DateTimeUnit, error)

	FormattedDate(d DateTimeUnit) string
	FormattedISODate(d DateTimeUnit) (string, error)
}

// chronology is the arithmetic a calendar system is defined by.
type chronology interface {
	toJDN(year, month, day int) int
	fromJDN(jdn int) (year, month, day int)
	monthsInYear(year int) int
	daysInMonth(year, month int) int
}

type calendar struct {
	name        string
	displayName string
	dateFormat  string
	iso         bool
	chrono      chronology
}

func newCalendar(name, displayName string, iso bool, chrono chronology) *calendar {
	return &calendar{
		name:        name,
		displayName: displayName,
		dateFormat:  DefaultDateFormat.Name,
		iso:         iso,
		chrono:      chrono,
	}
}

func (c *calendar) Name() string        { return c.name }
func (c *calendar) DisplayName() string { return c.displayName }
func (c *calendar) DateFormat() string  { return c.dateFormat }
func (c *calendar) IsISO8601() bool     { return c.iso }
func (c *calendar) DaysInWeek() int     { return 7 }

func (c *calendar) WithDateFormat(format string) Calendar {
	cp := *c
	cp.dateFormat = format
	return &cp
}

func (c *calendar) MonthsInYear(year int) int {
	return c.chrono.monthsInYear(year)
}

func (c *calendar) DaysInMonth(year, month int) int {
	if month < 1 || month > c.chrono.monthsInYear(year) {
		return 0
	}
	return c.chrono.daysInMonth(year, month)
}

func (c *calendar) DaysInYear(year int) int {
	total := 0
	for m := 1; m <= c.chrono.monthsInYear(year); m++ {
		total += c.chrono.daysInMonth(year, m)
	}
	return total
}

func (c *calendar) IsValid(d DateTimeUnit) bool {
	return d.Year >= 1 && d.Day >= 1 && d.Day <= c.DaysInMonth(d.Year, d.Month)
}

func (c *calendar) validate(d DateTimeUnit) error {
	if !c.IsValid(d) {
		return fmt.Errorf("%w: %s in %s calendar", ErrInvalidDate, d, c.name)
	}
	return nil
}

func (c *calendar) unit(jdn int) DateTimeUnit {
	y, m, d := c.chrono.fromJDN(jdn)
	return DateTimeUnit{Year: y, Month: m, Day: d, DayOfWeek: weekday(jdn), ISO8601: c.iso}
}

func (c *calendar) ToISO(d DateTimeUnit) (DateTimeUnit, error) {
	if err := c.validate(d); err != nil {
		return DateTimeUnit{}, err
	}
	jdn := c.chrono.toJDN(d.Year, d.Month, d.Day)
	y, m, day := gregorian{}.fromJDN(jdn)
	return DateTimeUnit{Year: y, Month: m, Day: day, DayOfWeek: weekday(jdn), ISO8601: true}, nil
}

func (c *calendar) FromISO(d DateTimeUnit) (DateTimeUnit, error) {
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > (gregorian{}).daysInMonth(d.Year, d.Month) {
		return DateTimeUnit{}, fmt.Errorf("%w: %s in ISO 8601", ErrInvalidDate, d)
	}
	return c.unit(gregorian{}.toJDN(d.Year, d.Month, d.Day)), nil
}

func (c *calendar) FromTime(t time.Time) DateTimeUnit {
	y, m, d := t.Date()
	return c.unit(gregorian{}.toJDN(y, int(m), d))
}

func (c *calendar) Today() DateTimeUnit {
	return c.FromTime(time.Now())
}

func (c *calendar) Weekday(d DateTimeUnit) (int, error) {
	if err := c.validate(d); err != nil {
		return 0, err
	}
	return weekday(c.chrono.toJDN(d.Year, d.Month, d.Day)), nil
}

func (c *calendar) PlusDays(d DateTimeUnit, days int) (DateTimeUnit, error) {
	if err := c.validate(d); err != nil {
		return DateTimeUnit{}, err
	}
	return c.unit(c.chrono.toJDN(d.Year, d.Month, d.Day) + days), nil
}

func (c *calendar) MinusDays(d DateTimeUnit, days int) (DateTimeUnit, error) {
	return c.PlusDays(d, -days)
}

func (c *calendar) PlusWeeks(d DateTimeUnit, weeks int) (DateTimeUnit, error) {
	return c.PlusDays(d, weeks*c.DaysInWeek())
}

// PlusMonths moves d by months, clamping the day to the length of the target month.
func (c *calendar) PlusMonths(d DateTimeUnit, months int) (DateTimeUnit, error) {
	if err := c.validate(d); err != nil {
		return DateTimeUnit{}, err
	}
	y, m := d.Year, d.Month+months
	for m > c.chrono.monthsInYear(y) {
		m -= c.chrono.monthsInYear(y)
		y++
	}
	for m < 1 {
		y--
		m += c.chrono.monthsInYear(y)
	}
	return c.clamped(y, m, d.Day)
}

// PlusYears moves d by years, clamping the month and day.
func (c *calendar) PlusYears(d DateTimeUnit, years int) (DateTimeUnit, error) {
	if err := c.validate(d); err != nil {
		return DateTimeUnit{}, err
	}
	y := d.Year + years
	return c.clamped(y, min(d.Month, c.chrono.monthsInYear(y)), d.Day)
}

func (c *calendar) clamped(y, m, day int) (DateTimeUnit, error) {
	if y < 1 {
		return DateTimeUnit{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, y)
	}
	day = min(day, c.chrono.daysInMonth(y, m))
	return c.unit(c.chrono.toJDN(y, m, day)), nil
}

func (c *calendar) FormattedDate(d DateTimeUnit) string {
	return Format(LookupDateFormat(c.dateFormat).Java, d)
}

func (c *calendar) FormattedISODate(d DateTimeUnit) (string, error) {
	iso, err := c.ToISO(d)
	if err != nil {
		return "", err
	}
	return Format(DefaultDateFormat.Java, iso), nil
}

// weekday returns the ISO day of week for a Julian Day Number; JDN 0 was a Monday.
func weekday(jdn int) int {
	return floorMod(jdn, 7) + 1
}
