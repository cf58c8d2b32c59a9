package model

import "time"

// Status is the confirmation state of an event.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusTentative Status = "tentative"
	StatusCancelled Status = "cancelled"
)

// ResponseStatus is an attendee's reply to an invitation.
type ResponseStatus string

const (
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseTentative ResponseStatus = "tentative"
	ResponseDeclined  ResponseStatus = "declined"
	ResponsePending   ResponseStatus = "pending"
)

// Organizer identifies who owns an event.
type Organizer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Attendee is a participant. Resource marks a bookable asset
// (room, projector) rather than a person; resources are subject to
// double-booking conflict analysis.
type Attendee struct {
	Name     string         `json:"name"`
	Contact  string         `json:"contact"`
	Response ResponseStatus `json:"responseStatus"`
	Resource bool           `json:"resource,omitempty"`
}

// Reminder schedules a notification relative to the event start.
type Reminder struct {
	Method        string `json:"method"`
	MinutesBefore int    `json:"minutesBefore"`
}

// ConferenceData carries dial-in details for virtual meetings.
type ConferenceData struct {
	Provider   string `json:"provider"`
	URL        string `json:"url"`
	AccessCode string `json:"accessCode,omitempty"`
	Password   string `json:"password,omitempty"`
}

// RecurrenceRule describes how an event repeats. Either the structured
// fields or Raw (a full RRULE string) may be set; Raw wins when non-empty.
type RecurrenceRule struct {
	// Freq is one of DAILY, WEEKLY, MONTHLY, YEARLY.
	Freq string `json:"freq"`
	// ByDay restricts occurrences to the given weekdays
	// (two-letter iCalendar codes: MO TU WE TH FR SA SU).
	ByDay    []string   `json:"byDay,omitempty"`
	Interval int        `json:"interval,omitempty"`
	Count    int        `json:"count,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	// Raw is an RRULE string such as "FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR".
	Raw string `json:"raw,omitempty"`
}

// Event is the canonical unit of scheduling. Stored events are mutated
// only through store operations; expanded occurrences of recurring
// events are derived copies and are never stored.
type Event struct {
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	// Start/End are instants as provided by the caller; no timezone
	// conversion is performed. When AllDay is set End is advisory.
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay,omitempty"`

	Recurring      bool            `json:"recurring,omitempty"`
	RecurrenceRule *RecurrenceRule `json:"recurrenceRule,omitempty"`

	Organizer *Organizer `json:"organizer,omitempty"`
	Attendees []Attendee `json:"attendees,omitempty"`

	// Categories is always materialized after normalization, never nil.
	Categories []string   `json:"categories"`
	Status     Status     `json:"status"`
	Reminders  []Reminder `json:"reminders,omitempty"`

	Conference *ConferenceData `json:"conferenceData,omitempty"`

	// OccurrenceOf is the template event's id when this Event is a
	// derived occurrence of a recurring event; empty for stored events.
	OccurrenceOf string `json:"occurrenceOf,omitempty"`
}

// Duration returns the event's length. All-day events report 24h.
func (e *Event) Duration() time.Duration {
	if e.AllDay {
		return 24 * time.Hour
	}
	return e.End.Sub(e.Start)
}

// EffectiveEnd returns the instant the event stops occupying time.
// All-day events occupy the whole of their start date regardless of
// the advisory End or the Start's clock time; the span stops just
// short of the next midnight so it never bleeds into the following
// day.
func (e *Event) EffectiveEnd() time.Time {
	if e.AllDay {
		day := time.Date(e.Start.Year(), e.Start.Month(), e.Start.Day(),
			0, 0, 0, 0, e.Start.Location()).
			AddDate(0, 0, 1).Add(-time.Nanosecond)
		if day.After(e.End) {
			return day
		}
	}
	return e.End
}

// Overlaps reports whether the event's span intersects [start, end].
func (e *Event) Overlaps(start, end time.Time) bool {
	return !e.EffectiveEnd().Before(start) && !e.Start.After(end)
}

// Resources returns the names of all attendees flagged as resources.
func (e *Event) Resources() []string {
	var out []string
	for _, a := range e.Attendees {
		if a.Resource {
			out = append(out, a.Name)
		}
	}
	return out
}

// Clone returns a deep copy so callers can hand out events without
// exposing store-owned state to external mutation.
func (e *Event) Clone() *Event {
	c := *e
	if e.RecurrenceRule != nil {
		r := *e.RecurrenceRule
		r.ByDay = append([]string(nil), e.RecurrenceRule.ByDay...)
		if e.RecurrenceRule.Until != nil {
			u := *e.RecurrenceRule.Until
			r.Until = &u
		}
		c.RecurrenceRule = &r
	}
	if e.Organizer != nil {
		o := *e.Organizer
		c.Organizer = &o
	}
	if e.Conference != nil {
		cd := *e.Conference
		c.Conference = &cd
	}
	c.Attendees = append([]Attendee(nil), e.Attendees...)
	c.Categories = append([]string{}, e.Categories...)
	c.Reminders = append([]Reminder(nil), e.Reminders...)
	return &c
}
