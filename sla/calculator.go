// Package sla computes task deadlines from priority-keyed policies and
// business-hour calendars. Deadline arithmetic only ever lands inside open
// hours; holidays and unconfigured weekdays are skipped.
package sla

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mankostas/asbuild-sub000/models"
)

// Window is one weekday's open interval [Open, Close) in minutes since
// midnight.
type Window struct {
	Open  int
	Close int
}

// Calendar holds per-weekday windows plus fully-closed holiday dates.
// Weekdays without a window are closed.
type Calendar struct {
	Hours    map[time.Weekday]Window
	Holidays map[string]bool
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

type rawCalendar struct {
	Hours map[string]struct {
		Open  string `json:"open"`
		Close string `json:"close"`
	} `json:"hours"`
	Holidays []string `json:"holidays"`
}

// ParseCalendar decodes a calendar document leniently: an unparseable weekday
// entry is dropped (treated as closed) rather than raised, so bad tenant
// configuration can never wedge deadline computation. An empty document
// yields the default Monday–Friday 09:00–17:00 calendar.
func ParseCalendar(raw []byte) *Calendar {
	if len(raw) == 0 {
		return DefaultCalendar()
	}
	var doc rawCalendar
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DefaultCalendar()
	}
	if len(doc.Hours) == 0 && len(doc.Holidays) == 0 {
		return DefaultCalendar()
	}
	cal := &Calendar{
		Hours:    map[time.Weekday]Window{},
		Holidays: map[string]bool{},
	}
	for name, w := range doc.Hours {
		day, ok := weekdayNames[name]
		if !ok {
			continue
		}
		openMin, okOpen := clockMinutes(w.Open)
		closeMin, okClose := clockMinutes(w.Close)
		if !okOpen || !okClose || closeMin <= openMin {
			continue
		}
		cal.Hours[day] = Window{Open: openMin, Close: closeMin}
	}
	for _, h := range doc.Holidays {
		if _, err := time.Parse("2006-01-02", h); err == nil {
			cal.Holidays[h] = true
		}
	}
	return cal
}

// DefaultCalendar is Monday–Friday 09:00–17:00 with no holidays.
func DefaultCalendar() *Calendar {
	w := Window{Open: 9 * 60, Close: 17 * 60}
	return &Calendar{
		Hours: map[time.Weekday]Window{
			time.Monday: w, time.Tuesday: w, time.Wednesday: w,
			time.Thursday: w, time.Friday: w,
		},
		Holidays: map[string]bool{},
	}
}

func clockMinutes(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func (c *Calendar) window(day time.Time) (Window, bool) {
	if c.Holidays[day.Format("2006-01-02")] {
		return Window{}, false
	}
	w, ok := c.Hours[day.Weekday()]
	return w, ok
}

// maxScanDays bounds the day walk so a calendar with no open day at all
// cannot loop forever.
const maxScanDays = 2 * 366

// AddBusinessMinutes advances start by the given number of business minutes.
// The result never falls inside a closed interval or on a holiday; a start
// outside business hours is first clamped forward to the next open minute,
// so adding zero minutes returns the clamped start.
func AddBusinessMinutes(start time.Time, minutes int, cal *Calendar) time.Time {
	clock := start
	remaining := minutes
	for scanned := 0; scanned < maxScanDays; scanned++ {
		w, open := cal.window(clock)
		if !open {
			clock = nextDayStart(clock)
			continue
		}
		minuteOfDay := clock.Hour()*60 + clock.Minute()
		if minuteOfDay < w.Open {
			clock = atMinute(clock, w.Open)
			minuteOfDay = w.Open
		}
		if minuteOfDay >= w.Close {
			clock = nextDayStart(clock)
			continue
		}
		if remaining == 0 {
			return clock
		}
		avail := w.Close - minuteOfDay
		consume := remaining
		if consume > avail {
			consume = avail
		}
		clock = clock.Add(time.Duration(consume) * time.Minute)
		remaining -= consume
		if remaining == 0 && clock.Hour()*60+clock.Minute() < w.Close {
			return clock
		}
		// Reached close; a deadline landing exactly at close rolls to the
		// next open minute.
		clock = nextDayStart(clock)
	}
	return clock
}

func nextDayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func atMinute(t time.Time, minuteOfDay int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, minuteOfDay/60, minuteOfDay%60, 0, 0, t.Location())
}

// Calculator resolves the policy for a task and stamps its deadline.
type Calculator struct {
	Now func() time.Time
	Log zerolog.Logger
}

func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{Now: time.Now, Log: log}
}

// policyFor loads the policy keyed by the task's type and priority. A nil
// policy with nil error means none is configured.
func policyFor(tx *gorm.DB, task *models.Task) (*models.TaskSlaPolicy, error) {
	var policy models.TaskSlaPolicy
	err := tx.Where("task_type_id = ? AND priority = ?", task.TaskTypeID, task.Priority).
		First(&policy).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// RestartsOn reports whether the task's policy rearms the clock when the task
// enters the given base status. A malformed restart list never blocks a move.
func (c *Calculator) RestartsOn(tx *gorm.DB, task *models.Task, base string) (bool, error) {
	policy, err := policyFor(tx, task)
	if err != nil {
		return false, err
	}
	if policy == nil || len(policy.RestartStatuses) == 0 {
		return false, nil
	}
	var slugs []string
	if err := json.Unmarshal(policy.RestartStatuses, &slugs); err != nil {
		c.Log.Warn().Uint("policy", policy.ID).
			Msg("malformed SLA restart list, ignoring")
		return false, nil
	}
	for _, s := range slugs {
		if s == base {
			return true, nil
		}
	}
	return false, nil
}

// Apply looks up the policy keyed by the task's type and priority and sets
// slaEndAt. It is a no-op when no policy exists or resolveWithinMins is
// unset. The anchor is slaStartAt, defaulting to now (and recorded).
func (c *Calculator) Apply(tx *gorm.DB, task *models.Task) error {
	policy, err := policyFor(tx, task)
	if err != nil {
		return err
	}
	if policy == nil || policy.ResolveWithinMins == nil {
		return nil
	}
	start := c.Now()
	if task.SlaStartAt != nil {
		start = *task.SlaStartAt
	} else {
		task.SlaStartAt = &start
	}
	if len(policy.Calendar) > 0 && !json.Valid(policy.Calendar) {
		c.Log.Warn().Uint("policy", policy.ID).Uint("task_type", policy.TaskTypeID).
			Msg("malformed SLA calendar, using default business hours")
	}
	cal := ParseCalendar(policy.Calendar)
	end := AddBusinessMinutes(start, *policy.ResolveWithinMins, cal)
	task.SlaEndAt = &end
	return nil
}
