package marketclock

import "time"

// usHolidays returns the full-day US equity exchange holidays for one
// calendar year, keyed by midnight in the given location. Fixed-date
// holidays falling on a weekend shift to the observed weekday
// (Saturday → Friday, Sunday → Monday).
func usHolidays(year int, loc *time.Location) map[time.Time]string {
	h := make(map[time.Time]string)

	add := func(d time.Time, name string) {
		h[d] = name
	}
	addObserved := func(month time.Month, day int, name string) {
		d := time.Date(year, month, day, 0, 0, 0, 0, loc)
		switch d.Weekday() {
		case time.Saturday:
			d = d.AddDate(0, 0, -1)
		case time.Sunday:
			d = d.AddDate(0, 0, 1)
		}
		add(d, name)
	}

	addObserved(time.January, 1, "New Year's Day")
	add(nthWeekday(year, time.January, time.Monday, 3, loc), "Martin Luther King Jr. Day")
	add(nthWeekday(year, time.February, time.Monday, 3, loc), "Washington's Birthday")
	add(easterSunday(year, loc).AddDate(0, 0, -2), "Good Friday")
	add(lastWeekday(year, time.May, time.Monday, loc), "Memorial Day")
	addObserved(time.June, 19, "Juneteenth")
	addObserved(time.July, 4, "Independence Day")
	add(nthWeekday(year, time.September, time.Monday, 1, loc), "Labor Day")
	add(nthWeekday(year, time.November, time.Thursday, 4, loc), "Thanksgiving Day")
	addObserved(time.December, 25, "Christmas Day")

	return h
}

// nthWeekday returns the nth given weekday of a month at midnight.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of a month at midnight.
func lastWeekday(year int, month time.Month, wd time.Weekday, loc *time.Location) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easterSunday computes Easter Sunday using the anonymous Gregorian
// algorithm.
func easterSunday(year int, loc *time.Location) time.Time {
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
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
