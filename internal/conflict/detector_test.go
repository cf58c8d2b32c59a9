package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calcore/internal/model"
	"calcore/internal/store"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func roomMeeting(id, title, room string, start, end time.Time) model.EventInput {
	return model.EventInput{
		ID:    id,
		Title: title,
		Start: start,
		End:   end,
		Attendees: []model.Attendee{
			{Name: room, Resource: true, Response: model.ResponseAccepted},
		},
	}
}

func newStoreWith(t *testing.T, inputs ...model.EventInput) *store.Store {
	t.Helper()
	s := store.New(store.Options{})
	_, err := s.AddEvents(inputs)
	require.NoError(t, err)
	return s
}

func TestNoConflictsOnEmptyStore(t *testing.T) {
	d := New(store.New(store.Options{}))

	report := d.CheckConflicts(model.Normalize(model.EventInput{
		ID: "a", Title: "Solo", Start: at(9, 0), End: at(10, 0),
	}))

	assert.False(t, report.HasConflicts)
	assert.Equal(t, 0, report.TotalConflicts)
	assert.NotNil(t, report.Conflicts, "an empty report still carries an empty slice")
}

func TestResourceDoubleBooking(t *testing.T) {
	s := newStoreWith(t,
		roomMeeting("planning", "Planning", "Conference Room A", at(14, 0), at(16, 0)),
	)
	d := New(s)

	report := d.CheckConflicts(model.Normalize(
		roomMeeting("review", "Design Review", "Conference Room A", at(15, 0), at(17, 0)),
	))

	require.True(t, report.HasConflicts)
	require.Equal(t, 1, report.TotalConflicts, "a shared room is reported once, not as room plus time")

	c := report.Conflicts[0]
	assert.Equal(t, TypeResource, c.Type)
	assert.Equal(t, SeverityHigh, c.Severity, "two confirmed bookings of one room")
	assert.Equal(t, "planning", c.EventID)
	assert.Contains(t, c.Description, "Conference Room A")
}

func TestResourceConflictTentativeIsMedium(t *testing.T) {
	s := newStoreWith(t,
		roomMeeting("planning", "Planning", "Conference Room A", at(14, 0), at(16, 0)),
	)
	d := New(s)

	tentative := roomMeeting("maybe", "Maybe", "Conference Room A", at(15, 0), at(17, 0))
	tentative.Status = model.StatusTentative
	report := d.CheckConflicts(model.Normalize(tentative))

	require.Equal(t, 1, report.TotalConflicts)
	assert.Equal(t, SeverityMedium, report.Conflicts[0].Severity)
}

func TestDifferentRoomsFallBackToTimeConflict(t *testing.T) {
	s := newStoreWith(t,
		roomMeeting("planning", "Planning", "Conference Room A", at(14, 0), at(16, 0)),
	)
	d := New(s)

	report := d.CheckConflicts(model.Normalize(
		roomMeeting("review", "Design Review", "Conference Room B", at(15, 0), at(17, 0)),
	))

	require.Equal(t, 1, report.TotalConflicts)
	assert.Equal(t, TypeTime, report.Conflicts[0].Type)
}

func TestTimeConflictSeverity(t *testing.T) {
	s := newStoreWith(t, model.EventInput{
		ID: "base", Title: "Base", Start: at(10, 0), End: at(12, 0),
	})
	d := New(s)

	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		severity Severity
	}{
		{"contained within existing", at(10, 30), at(11, 30), SeverityHigh},
		{"contains existing", at(9, 0), at(13, 0), SeverityHigh},
		{"majority overlap", at(11, 0), at(12, 30), SeverityMedium},
		{"minor overlap", at(11, 45), at(13, 0), SeverityLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := d.CheckConflicts(model.Normalize(model.EventInput{
				ID: "candidate", Title: "Candidate", Start: tc.start, End: tc.end,
			}))
			require.Equal(t, 1, report.TotalConflicts)
			assert.Equal(t, TypeTime, report.Conflicts[0].Type)
			assert.Equal(t, tc.severity, report.Conflicts[0].Severity)
		})
	}
}

func TestStoredCandidateExcludesItself(t *testing.T) {
	s := newStoreWith(t, model.EventInput{
		ID: "solo", Title: "Solo", Start: at(9, 0), End: at(10, 0),
	})
	d := New(s)

	stored, err := s.GetEvent("solo")
	require.NoError(t, err)

	report := d.CheckConflicts(stored)
	assert.False(t, report.HasConflicts, "an event never conflicts with itself")
}

func TestStoredRecurringCandidateExcludesOwnOccurrences(t *testing.T) {
	s := store.New(store.Options{})
	// 2025-03-10 is a Monday.
	_, err := s.AddEvent(model.EventInput{
		ID:             "standup",
		Title:          "Standup",
		Start:          at(9, 0),
		End:            at(9, 15),
		RecurrenceRule: &model.RecurrenceRule{Freq: "DAILY"},
	})
	require.NoError(t, err)
	d := New(s)

	stored, err := s.GetEvent("standup")
	require.NoError(t, err)

	report := d.CheckConflicts(stored)
	assert.False(t, report.HasConflicts, "occurrences of the candidate itself are not rivals")
}

func TestCancelledEventsNeverConflict(t *testing.T) {
	cancelled := model.EventInput{
		ID: "dead", Title: "Cancelled", Start: at(10, 0), End: at(11, 0),
		Status: model.StatusCancelled,
	}
	s := newStoreWith(t, cancelled)
	d := New(s)

	report := d.CheckConflicts(model.Normalize(model.EventInput{
		ID: "live", Title: "Live", Start: at(10, 0), End: at(11, 0),
	}))
	assert.False(t, report.HasConflicts, "a cancelled stored event blocks nothing")

	report = d.CheckConflicts(model.Normalize(cancelled))
	assert.False(t, report.HasConflicts, "a cancelled candidate raises nothing")
}

func TestAllDayEventsExemptFromTimeConflicts(t *testing.T) {
	s := newStoreWith(t, model.EventInput{
		ID: "holiday", Title: "Holiday",
		Start: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), AllDay: true,
	})
	d := New(s)

	report := d.CheckConflicts(model.Normalize(model.EventInput{
		ID: "meeting", Title: "Meeting", Start: at(10, 0), End: at(11, 0),
	}))
	assert.False(t, report.HasConflicts, "an all-day marker blocks no specific interval")
}

func TestAllDayResourceBookingStillConflicts(t *testing.T) {
	offsite := roomMeeting("offsite", "Offsite",
		"Conference Room A",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Time{})
	offsite.AllDay = true
	s := newStoreWith(t, offsite)
	d := New(s)

	report := d.CheckConflicts(model.Normalize(
		roomMeeting("meeting", "Meeting", "Conference Room A", at(10, 0), at(11, 0)),
	))
	require.Equal(t, 1, report.TotalConflicts)
	assert.Equal(t, TypeResource, report.Conflicts[0].Type)
}

func TestAllDayCandidateSeesTimedBookings(t *testing.T) {
	s := newStoreWith(t,
		roomMeeting("meeting", "Meeting", "Conference Room A", at(10, 0), at(11, 0)),
	)
	d := New(s)

	offsite := roomMeeting("offsite", "Offsite",
		"Conference Room A",
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Time{})
	offsite.AllDay = true
	report := d.CheckConflicts(model.Normalize(offsite))

	require.Equal(t, 1, report.TotalConflicts,
		"detection is symmetric: the all-day booking sees the timed one too")
	assert.Equal(t, TypeResource, report.Conflicts[0].Type)
	assert.Equal(t, "meeting", report.Conflicts[0].EventID)
}

func TestConflictWithRecurringOccurrenceReferencesOccurrence(t *testing.T) {
	s := store.New(store.Options{})
	_, err := s.AddEvent(model.EventInput{
		ID:             "standup",
		Title:          "Standup",
		Start:          at(9, 0),
		End:            at(9, 30),
		RecurrenceRule: &model.RecurrenceRule{Freq: "DAILY"},
	})
	require.NoError(t, err)
	d := New(s)

	// Collides with the occurrence two days after the template start.
	report := d.CheckConflicts(model.Normalize(model.EventInput{
		ID: "interview", Title: "Interview",
		Start: time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
	}))

	require.Equal(t, 1, report.TotalConflicts)
	c := report.Conflicts[0]
	assert.Equal(t, model.OccurrenceID("standup", time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)), c.EventID)
}

func TestReportSymmetry(t *testing.T) {
	a := model.EventInput{ID: "a", Title: "A", Start: at(10, 0), End: at(12, 0)}
	b := model.EventInput{ID: "b", Title: "B", Start: at(11, 0), End: at(13, 0)}

	da := New(newStoreWith(t, b))
	db := New(newStoreWith(t, a))

	ra := da.CheckConflicts(model.Normalize(a))
	rb := db.CheckConflicts(model.Normalize(b))

	assert.Equal(t, ra.HasConflicts, rb.HasConflicts, "overlap detection is symmetric")
	assert.Equal(t, ra.TotalConflicts, rb.TotalConflicts)
}

func TestNilCandidate(t *testing.T) {
	d := New(store.New(store.Options{}))
	report := d.CheckConflicts(nil)
	assert.False(t, report.HasConflicts)
	assert.NotNil(t, report.Conflicts)
}
