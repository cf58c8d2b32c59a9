package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calcore/internal/model"
)

func sampleDocument() []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VEVENT",
		"UID:meeting-1",
		"SUMMARY:Quarterly Review",
		"DESCRIPTION:Numbers and outlook",
		"LOCATION:Conference Room A",
		"DTSTART:20250310T140000Z",
		"DTEND:20250310T160000Z",
		"STATUS:CONFIRMED",
		"CATEGORIES:work,finance",
		"ORGANIZER;CN=Alice:mailto:alice@example.com",
		"ATTENDEE;CN=Bob;PARTSTAT=ACCEPTED:mailto:bob@example.com",
		"ATTENDEE;CN=Conference Room A;CUTYPE=RESOURCE;PARTSTAT=ACCEPTED:mailto:room-a@example.com",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:standup",
		"SUMMARY:Daily Standup",
		"DTSTART:20250310T090000Z",
		"DTEND:20250310T091500Z",
		"RRULE:FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:holiday",
		"SUMMARY:Company Holiday",
		"DTSTART;VALUE=DATE:20250317",
		"DTEND;VALUE=DATE:20250318",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestImport(t *testing.T) {
	inputs, err := Import(sampleDocument())
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	meeting := inputs[0]
	assert.Equal(t, "meeting-1", meeting.ID)
	assert.Equal(t, "Quarterly Review", meeting.Title)
	assert.Equal(t, "Numbers and outlook", meeting.Description)
	assert.Equal(t, "Conference Room A", meeting.Location)
	assert.True(t, meeting.Start.Equal(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)))
	assert.True(t, meeting.End.Equal(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, model.StatusConfirmed, meeting.Status)
	assert.Equal(t, []string{"work", "finance"}, meeting.Categories)

	require.NotNil(t, meeting.Organizer)
	assert.Equal(t, "Alice", meeting.Organizer.Name)
	assert.Equal(t, "alice@example.com", meeting.Organizer.Contact)

	require.Len(t, meeting.Attendees, 2)
	assert.Equal(t, "Bob", meeting.Attendees[0].Name)
	assert.Equal(t, "bob@example.com", meeting.Attendees[0].Contact)
	assert.Equal(t, model.ResponseAccepted, meeting.Attendees[0].Response)
	assert.False(t, meeting.Attendees[0].Resource)
	assert.True(t, meeting.Attendees[1].Resource, "CUTYPE=RESOURCE marks a bookable asset")

	standup := inputs[1]
	assert.True(t, standup.Recurring)
	require.NotNil(t, standup.RecurrenceRule)
	assert.Equal(t, "FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR", standup.RecurrenceRule.Raw)

	holiday := inputs[2]
	assert.True(t, holiday.AllDay, "VALUE=DATE start means all-day")
}

func TestImportSkipsBrokenVEvent(t *testing.T) {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VEVENT",
		"SUMMARY:No UID here",
		"DTSTART:20250310T140000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:kept",
		"SUMMARY:Kept",
		"DTSTART:20250310T150000Z",
		"DTEND:20250310T160000Z",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	doc := []byte(strings.Join(lines, "\r\n") + "\r\n")

	inputs, err := Import(doc)
	require.NoError(t, err, "one bad VEVENT does not fail the document")
	require.Len(t, inputs, 1)
	assert.Equal(t, "kept", inputs[0].ID)
}

func TestImportEmptyDocument(t *testing.T) {
	_, err := Import(nil)
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	until := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	events := []*model.Event{
		model.Normalize(model.EventInput{
			ID:         "meeting-1",
			Title:      "Quarterly Review",
			Location:   "Conference Room A",
			Start:      time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
			End:        time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC),
			Categories: []string{"work", "finance"},
			Organizer:  &model.Organizer{Name: "Alice", Contact: "alice@example.com"},
			Attendees: []model.Attendee{
				{Name: "Bob", Contact: "bob@example.com", Response: model.ResponseAccepted},
				{Name: "Conference Room A", Contact: "room-a@example.com", Response: model.ResponseAccepted, Resource: true},
			},
		}),
		model.Normalize(model.EventInput{
			ID:    "standup",
			Title: "Daily Standup",
			Start: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC),
			RecurrenceRule: &model.RecurrenceRule{
				Freq:  "DAILY",
				ByDay: []string{"MO", "TU", "WE", "TH", "FR"},
				Until: &until,
			},
		}),
	}

	doc := Export(events)
	assert.Contains(t, doc, "BEGIN:VCALENDAR")

	inputs, err := Import([]byte(doc))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	byID := make(map[string]model.EventInput, len(inputs))
	for _, in := range inputs {
		byID[in.ID] = in
	}

	meeting, ok := byID["meeting-1"]
	require.True(t, ok)
	assert.Equal(t, "Quarterly Review", meeting.Title)
	assert.Equal(t, "Conference Room A", meeting.Location)
	assert.True(t, meeting.Start.Equal(events[0].Start))
	assert.True(t, meeting.End.Equal(events[0].End))
	assert.Equal(t, []string{"work", "finance"}, meeting.Categories)
	require.NotNil(t, meeting.Organizer)
	assert.Equal(t, "alice@example.com", meeting.Organizer.Contact)
	require.Len(t, meeting.Attendees, 2)
	assert.True(t, meeting.Attendees[1].Resource)
	assert.Equal(t, model.ResponseAccepted, meeting.Attendees[1].Response)

	standup, ok := byID["standup"]
	require.True(t, ok)
	require.NotNil(t, standup.RecurrenceRule)
	assert.Equal(t, "FREQ=DAILY;UNTIL=20250630T000000Z;BYDAY=MO,TU,WE,TH,FR",
		standup.RecurrenceRule.Raw)
	assert.True(t, standup.Recurring)
}

func TestExportSkipsOccurrences(t *testing.T) {
	template := model.Normalize(model.EventInput{
		ID:    "standup",
		Title: "Daily Standup",
		Start:          time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		End:            time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC),
		RecurrenceRule: &model.RecurrenceRule{Freq: "DAILY"},
	})
	occurrence := template.Clone()
	occurrence.ID = model.OccurrenceID("standup", template.Start.AddDate(0, 0, 1))
	occurrence.OccurrenceOf = "standup"

	doc := Export([]*model.Event{template, occurrence})

	assert.Equal(t, 1, strings.Count(doc, "BEGIN:VEVENT"),
		"expanded occurrences never serialize; the rule carries them")
	assert.Contains(t, doc, "RRULE:FREQ=DAILY")
}

func TestRuleString(t *testing.T) {
	until := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rule model.RecurrenceRule
		want string
	}{
		{"raw passthrough", model.RecurrenceRule{Raw: "FREQ=DAILY;INTERVAL=2"}, "FREQ=DAILY;INTERVAL=2"},
		{"freq only", model.RecurrenceRule{Freq: "weekly"}, "FREQ=WEEKLY"},
		{"count", model.RecurrenceRule{Freq: "DAILY", Count: 10}, "FREQ=DAILY;COUNT=10"},
		{"interval and days", model.RecurrenceRule{Freq: "WEEKLY", Interval: 2, ByDay: []string{"mo", "fr"}}, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,FR"},
		{"until", model.RecurrenceRule{Freq: "DAILY", Until: &until}, "FREQ=DAILY;UNTIL=20250630T120000Z"},
		{"empty", model.RecurrenceRule{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ruleString(&tc.rule))
		})
	}
}
