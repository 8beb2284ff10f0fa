// Package schedule expands class templates into dated occurrences and
// resolves the scope of edits and deletes on them.
package schedule

import (
	"sort"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
)

// DaysInWeek is the width of the calendar grid.
const DaysInWeek = 7

// MaxRecurrenceSpan bounds how far a recurring class may run.
const MaxRecurrenceSpan = 2 * 366 * 24 * time.Hour

// DateOnly strips the clock and zone, keeping the calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Sunday that opens the week containing t.
func WeekStart(t time.Time) time.Time {
	d := DateOnly(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// OccursOn reports whether the class has an occurrence on day. Recurring
// classes are bounded by [StartDate, EndDate], both inclusive.
func OccursOn(c *model.Class, day time.Time) bool {
	day = DateOnly(day)
	if !c.IsRecurring {
		return day.Equal(DateOnly(c.StartDate))
	}
	if c.DayOfWeek == nil || day.Weekday() != *c.DayOfWeek {
		return false
	}
	return !day.Before(DateOnly(c.StartDate)) && !day.After(DateOnly(c.EndDate))
}

// ExpandDates lists every occurrence date of the class within [from, to].
func ExpandDates(c *model.Class, from, to time.Time) []time.Time {
	from, to = DateOnly(from), DateOnly(to)
	start, end := DateOnly(c.StartDate), DateOnly(c.EndDate)
	if !c.IsRecurring {
		end = start
	}
	if from.Before(start) {
		from = start
	}
	if to.After(end) {
		to = end
	}
	if to.Before(from) {
		return nil
	}

	if !c.IsRecurring {
		return []time.Time{start}
	}
	if c.DayOfWeek == nil {
		return nil
	}

	shift := (int(*c.DayOfWeek) - int(from.Weekday()) + DaysInWeek) % DaysInWeek
	var dates []time.Time
	for d := from.AddDate(0, 0, shift); !d.After(to); d = d.AddDate(0, 0, DaysInWeek) {
		dates = append(dates, d)
	}
	return dates
}

// AllDates lists every occurrence date of the class.
func AllDates(c *model.Class) []time.Time {
	return ExpandDates(c, c.StartDate, c.EndDate)
}

// CalendarDay is one column of the weekly grid.
type CalendarDay struct {
	Date        time.Time                `json:"date"`
	Occurrences []model.ResolvedInstance `json:"occurrences"`
}

// Week is the materialized weekly grid, Sunday first.
type Week struct {
	Start time.Time     `json:"start"`
	Days  []CalendarDay `json:"days"`
}

// EmptyWeek builds the seven empty columns starting at the Sunday of t.
func EmptyWeek(t time.Time) Week {
	start := WeekStart(t)
	w := Week{Start: start, Days: make([]CalendarDay, DaysInWeek)}
	for i := range w.Days {
		w.Days[i] = CalendarDay{Date: start.AddDate(0, 0, i), Occurrences: []model.ResolvedInstance{}}
	}
	return w
}

// End is the last day of the week.
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, DaysInWeek-1)
}

// MaterializeWeek places the templates' occurrences on the week's days.
func MaterializeWeek(classes []model.Class, weekStart time.Time) Week {
	w := EmptyWeek(weekStart)
	for i := range w.Days {
		for ci := range classes {
			c := &classes[ci]
			if !OccursOn(c, w.Days[i].Date) {
				continue
			}
			w.Days[i].Occurrences = append(w.Days[i].Occurrences, model.ResolvedInstance{
				ClassID:     c.ID,
				Date:        w.Days[i].Date,
				Name:        c.Name,
				TeacherID:   c.TeacherID,
				LocationID:  c.LocationID,
				StartTime:   c.StartTime,
				EndTime:     c.EndTime,
				IsRecurring: c.IsRecurring,
			})
		}
	}
	w.sort()
	return w
}

// GroupWeek places precomputed instances on the week's days. Instances
// outside the week are dropped.
func GroupWeek(instances []model.ResolvedInstance, weekStart time.Time) Week {
	w := EmptyWeek(weekStart)
	for _, inst := range instances {
		offset := int(DateOnly(inst.Date).Sub(w.Start).Hours() / 24)
		if offset < 0 || offset >= DaysInWeek {
			continue
		}
		w.Days[offset].Occurrences = append(w.Days[offset].Occurrences, inst)
	}
	w.sort()
	return w
}

func (w Week) sort() {
	for i := range w.Days {
		occ := w.Days[i].Occurrences
		sort.SliceStable(occ, func(a, b int) bool {
			if occ[a].StartTime != occ[b].StartTime {
				return occ[a].StartTime < occ[b].StartTime
			}
			return occ[a].Name < occ[b].Name
		})
	}
}

// Count is the number of occurrences in the week.
func (w Week) Count() int {
	n := 0
	for _, d := range w.Days {
		n += len(d.Occurrences)
	}
	return n
}
