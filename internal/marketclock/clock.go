// Package marketclock answers time-of-day gating questions against an
// exchange calendar. It holds no mutable scheduling state; callers
// re-evaluate the session on every loop iteration so holiday sets roll
// over cleanly at year boundaries.
package marketclock

import (
	"fmt"
	"sync"
	"time"
)

// Session is the gating answer for one instant.
type Session struct {
	// CanGenerate is true on any non-holiday instant outside trading
	// hours: screening, optimization and signal generation run while the
	// market is not trading.
	CanGenerate bool
	// CanExecute is true on a business day, non-holiday, strictly within
	// trading hours.
	CanExecute bool
}

// Calendar evaluates exchange sessions for one timezone and trading-hours
// window. Holiday sets are computed per calendar year on demand.
type Calendar struct {
	loc        *time.Location
	openHour   int
	openMin    int
	closeHour  int
	closeMin   int
	closeGrace time.Duration // "closing soon" horizon before the close

	mu       sync.Mutex
	holidays map[int]map[time.Time]string // keyed by year
}

// New creates a Calendar. Open and close are "HH:MM" local exchange time.
func New(timezone, open, close string, closingSoon time.Duration) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	oh, om, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("open time: %w", err)
	}
	ch, cm, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("close time: %w", err)
	}
	if oh*60+om >= ch*60+cm {
		return nil, fmt.Errorf("open %s must be before close %s", open, close)
	}

	return &Calendar{
		loc:        loc,
		openHour:   oh,
		openMin:    om,
		closeHour:  ch,
		closeMin:   cm,
		closeGrace: closingSoon,
		holidays:   make(map[int]map[time.Time]string),
	}, nil
}

func parseClock(s string) (hour, min int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", s)
	}
	return hour, min, nil
}

// Session evaluates the gating flags for now.
func (c *Calendar) Session(now time.Time) Session {
	local := now.In(c.loc)
	holiday := c.isHoliday(local)
	inHours := c.withinHours(local)
	business := local.Weekday() != time.Saturday && local.Weekday() != time.Sunday

	return Session{
		CanGenerate: !holiday && !(business && inHours),
		CanExecute:  business && !holiday && inHours,
	}
}

// ClosingSoon reports whether the market closes within the configured
// grace window. Used to time out in-flight order placement.
func (c *Calendar) ClosingSoon(now time.Time) bool {
	local := now.In(c.loc)
	if !c.Session(now).CanExecute {
		return false
	}
	close := time.Date(local.Year(), local.Month(), local.Day(), c.closeHour, c.closeMin, 0, 0, c.loc)
	return close.Sub(local) <= c.closeGrace
}

// IsTradingDay reports whether the given date is a business day and not
// an exchange holiday.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	local := d.In(c.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	return !c.isHoliday(local)
}

// TradingDaysUntil counts trading days strictly after from and up to and
// including to. Returns 0 when to is not after from.
func (c *Calendar) TradingDaysUntil(from, to time.Time) int {
	fromD := midnight(from.In(c.loc))
	toD := midnight(to.In(c.loc))
	count := 0
	for d := fromD.AddDate(0, 0, 1); !d.After(toD); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			count++
		}
	}
	return count
}

func (c *Calendar) withinHours(local time.Time) bool {
	mins := local.Hour()*60 + local.Minute()
	return mins >= c.openHour*60+c.openMin && mins < c.closeHour*60+c.closeMin
}

func (c *Calendar) isHoliday(local time.Time) bool {
	year := local.Year()

	c.mu.Lock()
	set, ok := c.holidays[year]
	if !ok {
		set = usHolidays(year, c.loc)
		c.holidays[year] = set
	}
	c.mu.Unlock()

	_, holiday := set[midnight(local)]
	return holiday
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
