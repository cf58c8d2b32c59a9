package model

import (
	"strings"
	"time"
)

// EventInput is the caller-facing event shape. It mirrors Event but
// additionally accepts a singular Category which normalization folds
// into Categories; the singular key is never retained.
type EventInput struct {
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay,omitempty"`

	Recurring      bool            `json:"recurring,omitempty"`
	RecurrenceRule *RecurrenceRule `json:"recurrenceRule,omitempty"`

	Organizer *Organizer `json:"organizer,omitempty"`
	Attendees []Attendee `json:"attendees,omitempty"`

	Categories []string `json:"categories,omitempty"`
	// Category is the legacy singular form.
	Category string `json:"category,omitempty"`

	Status    Status     `json:"status,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`

	Conference *ConferenceData `json:"conferenceData,omitempty"`
}

// Normalize converts caller input into the canonical Event shape.
// It is total (never fails) and idempotent:
//
//   - a singular Category is folded into Categories and dropped
//   - Categories is deduplicated and always non-nil afterwards
//   - attendees without a response default to pending
//   - a missing status defaults to confirmed
//   - an all-day event's End is aligned to its Start when unset
//   - Recurring mirrors whether a RecurrenceRule is present
func Normalize(in EventInput) *Event {
	ev := &Event{
		ID:             in.ID,
		Title:          in.Title,
		Description:    in.Description,
		Location:       in.Location,
		Start:          in.Start,
		End:            in.End,
		AllDay:         in.AllDay,
		Recurring:      in.Recurring,
		RecurrenceRule: in.RecurrenceRule,
		Organizer:      in.Organizer,
		Attendees:      append([]Attendee(nil), in.Attendees...),
		Status:         in.Status,
		Reminders:      append([]Reminder(nil), in.Reminders...),
		Conference:     in.Conference,
	}

	ev.Categories = foldCategories(in.Categories, in.Category)

	for i := range ev.Attendees {
		if ev.Attendees[i].Response == "" {
			ev.Attendees[i].Response = ResponsePending
		}
	}

	if ev.Status == "" {
		ev.Status = StatusConfirmed
	}

	if ev.AllDay && ev.End.Before(ev.Start) {
		ev.End = ev.Start
	}
	if ev.AllDay && ev.End.IsZero() {
		ev.End = ev.Start
	}

	// A stray flag with no rule would show as recurring in listings
	// while never expanding and never counting as recurring in stats.
	ev.Recurring = ev.RecurrenceRule != nil

	return ev.Clone()
}

// foldCategories merges the plural and singular forms into a single
// deduplicated slice, preserving first-seen order.
func foldCategories(categories []string, category string) []string {
	out := make([]string, 0, len(categories)+1)
	seen := make(map[string]struct{}, len(categories)+1)

	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, c := range categories {
		add(c)
	}
	add(category)

	return out
}

// OccurrenceID derives the synthesized identity of a single occurrence
// of a recurring event from its template id and concrete start time.
func OccurrenceID(parentID string, start time.Time) string {
	return parentID + "@" + start.Format(time.RFC3339)
}
