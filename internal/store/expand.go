package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calcore/internal/log"
	"calcore/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// expandOccurrences expands a recurring template event into concrete
// occurrences whose spans intersect [start, end]. It is a pure function
// of (template, window): no state survives between calls.
//
// Each occurrence is a deep copy of the template carrying a synthesized
// id and an OccurrenceOf back-reference; occurrences inherit the
// template's duration and metadata. maxPerEvent caps the expansion as a
// safety net against unbounded rules; zero means the default cap.
func expandOccurrences(ev *model.Event, start, end time.Time, maxPerEvent int) []*model.Event {
	if ev.RecurrenceRule == nil {
		return nil
	}
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}

	r, err := buildRule(ev)
	if err != nil {
		appLog.Error("expand: failed to build recurrence rule", err, "id", ev.ID)
		return nil
	}

	dur := ev.Duration()

	// Widen the window backwards by the duration so that an occurrence
	// starting before the window but still running inside it is kept.
	occTimes := r.Between(start.Add(-dur), end, true)

	if len(occTimes) > maxPerEvent {
		occTimes = occTimes[:maxPerEvent]
		appLog.Error("expand: truncated occurrences due to cap",
			fmt.Errorf("max occurrences reached"),
			"id", ev.ID,
			"cap", maxPerEvent,
		)
	}

	out := make([]*model.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		occEnd := occStart
		if !ev.AllDay {
			occEnd = occStart.Add(dur)
		}

		occ := ev.Clone()
		occ.ID = model.OccurrenceID(ev.ID, occStart)
		occ.OccurrenceOf = ev.ID
		occ.Start = occStart
		occ.End = occEnd

		// The widened window can admit starts whose span still misses
		// the requested range. All-day occurrences span their whole day,
		// so the check goes through the effective span.
		if !occ.Overlaps(start, end) {
			continue
		}
		out = append(out, occ)
	}

	return out
}

// buildRule constructs an rrule from the event's recurrence rule. A raw
// RRULE string takes precedence over the structured fields.
func buildRule(ev *model.Event) (*rrule.RRule, error) {
	rule := ev.RecurrenceRule

	if rule.Raw != "" {
		r, err := rrule.StrToRRule(rule.Raw)
		if err != nil {
			return nil, err
		}
		r.DTStart(ev.Start)
		return r, nil
	}

	freq, err := parseFreq(rule.Freq)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  ev.Start,
		Interval: rule.Interval,
		Count:    rule.Count,
	}
	if rule.Until != nil {
		opt.Until = *rule.Until
	}
	for _, day := range rule.ByDay {
		wd, err := parseWeekday(day)
		if err != nil {
			return nil, err
		}
		opt.Byweekday = append(opt.Byweekday, wd)
	}

	return rrule.NewRRule(opt)
}

func parseFreq(s string) (rrule.Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAILY":
		return rrule.DAILY, nil
	case "WEEKLY":
		return rrule.WEEKLY, nil
	case "MONTHLY":
		return rrule.MONTHLY, nil
	case "YEARLY":
		return rrule.YEARLY, nil
	default:
		return 0, fmt.Errorf("unknown recurrence frequency %q", s)
	}
}

func parseWeekday(s string) (rrule.Weekday, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MO":
		return rrule.MO, nil
	case "TU":
		return rrule.TU, nil
	case "WE":
		return rrule.WE, nil
	case "TH":
		return rrule.TH, nil
	case "FR":
		return rrule.FR, nil
	case "SA":
		return rrule.SA, nil
	case "SU":
		return rrule.SU, nil
	default:
		return rrule.Weekday{}, fmt.Errorf("unknown weekday %q", s)
	}
}

// sortEvents orders a result set by start time, then id, so that
// identical queries always yield identical orderings.
func sortEvents(events []*model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
}
