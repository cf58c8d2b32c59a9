package ics

import (
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	"calcore/internal/model"
)

// Export serializes events into an iCalendar document. Recurring events
// export their rule, not their occurrences, so the document round-trips
// through Import without multiplying events.
func Export(events []*model.Event) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//calcore//calendar core//EN")

	for _, ev := range events {
		// Occurrences are derived; only templates are exported.
		if ev.OccurrenceOf != "" {
			continue
		}
		writeVEvent(cal.AddEvent(ev.ID), ev)
	}

	return cal.Serialize()
}

func writeVEvent(ve *ical.VEvent, ev *model.Event) {
	ve.SetSummary(ev.Title)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}

	if ev.AllDay {
		ve.SetAllDayStartAt(ev.Start)
		ve.SetAllDayEndAt(ev.Start.AddDate(0, 0, 1))
	} else {
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
	}

	if ev.Recurring && ev.RecurrenceRule != nil {
		if raw := ruleString(ev.RecurrenceRule); raw != "" {
			ve.AddRrule(raw)
		}
	}

	if len(ev.Categories) > 0 {
		ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(ev.Categories, ","))
	}

	if ev.Status != "" {
		ve.SetProperty(ical.ComponentPropertyStatus, strings.ToUpper(string(ev.Status)))
	}

	if ev.Organizer != nil {
		ve.SetOrganizer(ev.Organizer.Contact,
			&ical.KeyValues{Key: "CN", Value: []string{ev.Organizer.Name}})
	}

	for _, att := range ev.Attendees {
		params := []ical.PropertyParameter{
			&ical.KeyValues{Key: "CN", Value: []string{att.Name}},
			&ical.KeyValues{Key: "PARTSTAT", Value: []string{strings.ToUpper(string(att.Response))}},
		}
		if att.Resource {
			params = append(params, &ical.KeyValues{Key: "CUTYPE", Value: []string{"RESOURCE"}})
		}
		ve.AddAttendee(att.Contact, params...)
	}
}

// ruleString renders a recurrence rule as an RRULE value. A raw rule is
// passed through untouched.
func ruleString(rule *model.RecurrenceRule) string {
	if rule.Raw != "" {
		return rule.Raw
	}
	if rule.Freq == "" {
		return ""
	}

	parts := []string{"FREQ=" + strings.ToUpper(rule.Freq)}
	if rule.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(rule.Interval))
	}
	if rule.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(rule.Count))
	}
	if rule.Until != nil {
		parts = append(parts, "UNTIL="+rule.Until.UTC().Format("20060102T150405Z"))
	}
	if len(rule.ByDay) > 0 {
		days := make([]string, 0, len(rule.ByDay))
		for _, d := range rule.ByDay {
			days = append(days, strings.ToUpper(strings.TrimSpace(d)))
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}

	return strings.Join(parts, ";")
}
