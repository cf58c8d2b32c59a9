// Package ics converts between the canonical event model and iCalendar
// documents, so stores can interoperate with external calendar tools.
// No network I/O happens here; callers hand in raw document bytes.
package ics

import (
	"bytes"
	"errors"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "calcore/internal/log"
	"calcore/internal/model"
)

// Import parses an iCalendar payload into event inputs ready for a
// store's AddEvents. Malformed VEVENTs are logged and skipped; the rest
// of the document still imports.
func Import(body []byte) ([]model.EventInput, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty document")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics: calendar parse failed", err)
		return nil, err
	}

	inputs := make([]model.EventInput, 0)
	for _, ve := range cal.Events() {
		in, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Error("ics: vevent parse failed", perr)
			continue
		}
		inputs = append(inputs, in)
	}

	appLog.Info("ics: import completed", "event_count", len(inputs))
	return inputs, nil
}

func parseVEvent(ve *ical.VEvent) (model.EventInput, error) {
	var in model.EventInput

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return in, errors.New("missing UID")
	}
	in.ID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		in.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		in.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		in.Location = p.Value
	}

	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	in.Start = start
	in.End = end

	// All-day detection: VALUE=DATE or a date-only DTSTART value.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				in.AllDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			in.AllDay = true
		}
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		in.Recurring = true
		in.RecurrenceRule = &model.RecurrenceRule{Raw: rruleProp.Value}
	}

	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil && p.Value != "" {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				in.Categories = append(in.Categories, c)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		switch strings.ToUpper(strings.TrimSpace(p.Value)) {
		case "CONFIRMED":
			in.Status = model.StatusConfirmed
		case "TENTATIVE":
			in.Status = model.StatusTentative
		case "CANCELLED":
			in.Status = model.StatusCancelled
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		org := &model.Organizer{Contact: stripMailto(p.Value)}
		if cns, ok := p.ICalParameters["CN"]; ok && len(cns) > 0 {
			org.Name = cns[0]
		}
		in.Organizer = org
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		att := model.Attendee{Contact: stripMailto(p.Value)}
		if cns, ok := p.ICalParameters["CN"]; ok && len(cns) > 0 {
			att.Name = cns[0]
		}
		if cts, ok := p.ICalParameters["CUTYPE"]; ok && len(cts) > 0 {
			att.Resource = strings.EqualFold(cts[0], "RESOURCE")
		}
		if pss, ok := p.ICalParameters["PARTSTAT"]; ok && len(pss) > 0 {
			att.Response = parsePartStat(pss[0])
		}
		in.Attendees = append(in.Attendees, att)
	}

	return in, nil
}

func parsePartStat(s string) model.ResponseStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACCEPTED":
		return model.ResponseAccepted
	case "TENTATIVE":
		return model.ResponseTentative
	case "DECLINED":
		return model.ResponseDeclined
	default:
		return model.ResponsePending
	}
}

func stripMailto(v string) string {
	return strings.TrimPrefix(strings.TrimPrefix(v, "mailto:"), "MAILTO:")
}
