package rrule

import "time"

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func yearLen(y int) int {
	if isLeap(y) {
		return 366
	}
	return 365
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// week1Start returns the zero-based yearday on which week 1 of year y
// begins. Week 1 is the first week, starting on wkst, with at least four
// days in y; the result is negative when it begins in December.
func week1Start(y int, wkst Weekday) int {
	jan1 := WeekdayOf(time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC).Weekday())
	off := (7 - int(jan1) + int(wkst)) % 7
	if off >= 4 {
		return off - 7
	}
	return off
}

// weekNumber returns the week of the zero-based yearday yd of y, and the
// number of weeks of the year that week belongs to. Days before week 1
// belong to the last week of y-1; days from the next year's week 1 on
// belong to week 1 of y+1.
func weekNumber(y, yd int, wkst Weekday) (week, total int) {
	start := week1Start(y, wkst)
	if yd < start {
		return weekNumber(y-1, yd+yearLen(y-1), wkst)
	}
	next := yearLen(y) + week1Start(y+1, wkst)
	if yd >= next {
		return weekNumber(y+1, yd-yearLen(y), wkst)
	}
	return (yd-start)/7 + 1, (next - start) / 7
}
