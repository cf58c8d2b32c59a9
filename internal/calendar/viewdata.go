package calendar

import (
	"fmt"
	"time"

	"calcore/internal/model"
)

// ViewData is the render-ready structure for the current view. Hosts
// type-switch on the concrete MonthData / WeekData / DayData / ListData.
type ViewData interface {
	viewData()
}

// MonthDay is one cell of the month grid.
type MonthDay struct {
	Date           time.Time      `json:"date"`
	DayOfMonth     int            `json:"dayOfMonth"`
	IsToday        bool           `json:"isToday"`
	IsCurrentMonth bool           `json:"isCurrentMonth"`
	Events         []*model.Event `json:"events"`
}

// MonthWeek is one full row of the month grid.
type MonthWeek struct {
	Days []MonthDay `json:"days"`
}

// MonthData is the month view: full weeks including leading/trailing
// days from the adjacent months.
type MonthData struct {
	Year  int         `json:"year"`
	Month time.Month  `json:"month"`
	Weeks []MonthWeek `json:"weeks"`
}

func (MonthData) viewData() {}

// WeekDay is one day column of the week view.
type WeekDay struct {
	Date    time.Time      `json:"date"`
	DayName string         `json:"dayName"`
	IsToday bool           `json:"isToday"`
	Events  []*model.Event `json:"events"`
}

// WeekData is the week view.
type WeekData struct {
	WeekNumber int       `json:"weekNumber"`
	Days       []WeekDay `json:"days"`
}

func (WeekData) viewData() {}

// HourSlot carries the events starting within one hour of the day view.
type HourSlot struct {
	Hour   int            `json:"hour"`
	Label  string         `json:"label"`
	Events []*model.Event `json:"events"`
}

// DayData is the day view: all-day events separated from timed ones,
// plus an hourly breakdown over the configured business hours.
type DayData struct {
	Date         time.Time      `json:"date"`
	DayName      string         `json:"dayName"`
	AllDayEvents []*model.Event `json:"allDayEvents"`
	TimedEvents  []*model.Event `json:"timedEvents"`
	Hours        []HourSlot     `json:"hours"`
}

func (DayData) viewData() {}

// ListDay is one agenda section of the list view.
type ListDay struct {
	Date    time.Time      `json:"date"`
	DayName string         `json:"dayName"`
	Events  []*model.Event `json:"events"`
}

// ListData is the agenda view over the configured horizon.
type ListData struct {
	Start time.Time `json:"start"`
	Days  []ListDay `json:"days"`
}

func (ListData) viewData() {}

// ViewData synthesizes the current view's data from the event store.
// Everything is derived; nothing here mutates state.
func (c *Calendar) ViewData() (ViewData, error) {
	switch c.view {
	case ViewMonth:
		return c.monthData()
	case ViewWeek:
		return c.weekData()
	case ViewDay:
		return c.dayData()
	case ViewList:
		return c.listData()
	default:
		return nil, fmt.Errorf("calendar: unknown view %q", c.view)
	}
}

func (c *Calendar) monthData() (MonthData, error) {
	anchor := c.date
	firstOfMonth := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)

	// Snap outwards to full weeks so leading/trailing days from the
	// adjacent months complete the grid.
	gridStart := c.startOfWeek(firstOfMonth)
	gridEnd := c.startOfWeek(lastOfMonth).AddDate(0, 0, 6)

	data := MonthData{Year: anchor.Year(), Month: anchor.Month()}

	for cursor := gridStart; !cursor.After(gridEnd); cursor = cursor.AddDate(0, 0, 7) {
		week := MonthWeek{Days: make([]MonthDay, 0, 7)}
		for i := 0; i < 7; i++ {
			day := cursor.AddDate(0, 0, i)
			events, err := c.eventsOn(day)
			if err != nil {
				return MonthData{}, err
			}
			week.Days = append(week.Days, MonthDay{
				Date:           day,
				DayOfMonth:     day.Day(),
				IsToday:        c.isToday(day),
				IsCurrentMonth: day.Month() == anchor.Month(),
				Events:         events,
			})
		}
		data.Weeks = append(data.Weeks, week)
	}

	return data, nil
}

func (c *Calendar) weekData() (WeekData, error) {
	weekStart := c.startOfWeek(c.date)
	_, weekNumber := weekStart.ISOWeek()

	data := WeekData{WeekNumber: weekNumber, Days: make([]WeekDay, 0, 7)}
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		events, err := c.eventsOn(day)
		if err != nil {
			return WeekData{}, err
		}
		data.Days = append(data.Days, WeekDay{
			Date:    day,
			DayName: day.Weekday().String(),
			IsToday: c.isToday(day),
			Events:  events,
		})
	}
	return data, nil
}

func (c *Calendar) dayData() (DayData, error) {
	day := startOfDay(c.date)
	events, err := c.eventsOn(day)
	if err != nil {
		return DayData{}, err
	}

	data := DayData{
		Date:         day,
		DayName:      day.Weekday().String(),
		AllDayEvents: []*model.Event{},
		TimedEvents:  []*model.Event{},
	}
	for _, ev := range events {
		if ev.AllDay {
			data.AllDayEvents = append(data.AllDayEvents, ev)
		} else {
			data.TimedEvents = append(data.TimedEvents, ev)
		}
	}

	for hour := c.bhStart; hour < c.bhEnd; hour++ {
		slot := HourSlot{
			Hour:   hour,
			Label:  fmt.Sprintf("%02d:00", hour),
			Events: []*model.Event{},
		}
		for _, ev := range data.TimedEvents {
			if ev.Start.Year() == day.Year() && ev.Start.YearDay() == day.YearDay() && ev.Start.Hour() == hour {
				slot.Events = append(slot.Events, ev)
			}
		}
		data.Hours = append(data.Hours, slot)
	}

	return data, nil
}

func (c *Calendar) listData() (ListData, error) {
	start := startOfDay(c.date)

	data := ListData{Start: start, Days: make([]ListDay, 0, c.horizonDays)}
	for i := 0; i < c.horizonDays; i++ {
		day := start.AddDate(0, 0, i)
		events, err := c.eventsOn(day)
		if err != nil {
			return ListData{}, err
		}
		data.Days = append(data.Days, ListDay{
			Date:    day,
			DayName: day.Weekday().String(),
			Events:  events,
		})
	}
	return data, nil
}

// eventsOn queries the store for one day's span. Day spans end just
// before the next midnight so a midnight start counts on its own day
// only.
func (c *Calendar) eventsOn(day time.Time) ([]*model.Event, error) {
	dayStart := startOfDay(day)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return c.store.GetEventsInRange(dayStart, dayEnd)
}

// startOfWeek snaps a time back to midnight of the configured first
// weekday.
func (c *Calendar) startOfWeek(t time.Time) time.Time {
	t = startOfDay(t)
	offset := (int(t.Weekday()) - int(c.weekStart) + 7) % 7
	return t.AddDate(0, 0, -offset)
}

func (c *Calendar) isToday(day time.Time) bool {
	now := c.now()
	return day.Year() == now.Year() && day.YearDay() == now.YearDay()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
