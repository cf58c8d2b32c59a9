// Package conflict analyzes a candidate event against the events a
// store already holds. Detection is stateless: every call produces a
// fresh report and nothing is persisted.
package conflict

import (
	"fmt"
	"time"

	appLog "calcore/internal/log"
	"calcore/internal/model"
)

// Type classifies a detected conflict.
type Type string

const (
	// TypeTime is a plain temporal overlap between two timed events.
	TypeTime Type = "Time"
	// TypeResource is a double-booking of a bookable resource attendee.
	TypeResource Type = "Resource"
)

// Severity grades how disruptive a conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict is one detected overlap. EventID references the stored event
// (or occurrence) the candidate collides with.
type Conflict struct {
	Type        Type     `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	EventID     string   `json:"eventId"`
}

// Report is the result of a CheckConflicts call.
type Report struct {
	HasConflicts   bool       `json:"hasConflicts"`
	TotalConflicts int        `json:"totalConflicts"`
	Conflicts      []Conflict `json:"conflicts"`
}

// RangeQuerier is the slice of the event store the detector needs.
type RangeQuerier interface {
	GetEventsInRange(start, end time.Time) ([]*model.Event, error)
}

// Detector finds scheduling conflicts against a single store.
type Detector struct {
	store RangeQuerier
}

// New binds a detector to a store's range query.
func New(store RangeQuerier) *Detector {
	return &Detector{store: store}
}

// CheckConflicts reports every conflict between the candidate and the
// stored events overlapping its span. It is safe both as a pre-insert
// check and for an event already stored: the candidate is excluded from
// its own analysis by id, including its own expanded occurrences.
func (d *Detector) CheckConflicts(candidate *model.Event) Report {
	report := Report{Conflicts: []Conflict{}}
	if candidate == nil || candidate.Status == model.StatusCancelled {
		return report
	}

	// An all-day candidate's stored End collapses to its Start; the
	// effective end covers the whole day so timed rivals stay visible.
	overlapping, err := d.store.GetEventsInRange(candidate.Start, candidate.EffectiveEnd())
	if err != nil {
		appLog.Error("conflict: range query failed", err, "id", candidate.ID)
		return report
	}

	for _, other := range overlapping {
		if other.ID == candidate.ID || other.OccurrenceOf == candidate.ID {
			continue
		}
		if other.Status == model.StatusCancelled {
			continue
		}
		if c, ok := classify(candidate, other); ok {
			report.Conflicts = append(report.Conflicts, c)
		}
	}

	report.TotalConflicts = len(report.Conflicts)
	report.HasConflicts = report.TotalConflicts > 0
	return report
}

// classify decides which single conflict, if any, an overlapping pair
// produces. A shared resource takes precedence over a plain time
// overlap so a double-booked room is reported once, as a resource
// conflict.
func classify(candidate, other *model.Event) (Conflict, bool) {
	shared := sharedResources(candidate, other)
	if len(shared) > 0 {
		return resourceConflict(candidate, other, shared), true
	}

	// All-day events block no specific interval; they never produce
	// time conflicts.
	if candidate.AllDay || other.AllDay {
		return Conflict{}, false
	}

	return timeConflict(candidate, other), true
}

func resourceConflict(candidate, other *model.Event, shared []string) Conflict {
	severity := SeverityMedium
	// Every resource is treated as a singleton; two confirmed bookings
	// of one are a hard double-booking.
	if candidate.Status == model.StatusConfirmed && other.Status == model.StatusConfirmed {
		severity = SeverityHigh
	}

	return Conflict{
		Type:     TypeResource,
		Severity: severity,
		EventID:  other.ID,
		Description: fmt.Sprintf("%q overlaps with an existing booking of %q by %q",
			candidate.Title, shared[0], other.Title),
	}
}

func timeConflict(candidate, other *model.Event) Conflict {
	overlap := overlapDuration(candidate, other)
	severity := SeverityLow

	switch {
	case contains(candidate, other) || contains(other, candidate):
		severity = SeverityHigh
	case candidate.Duration() > 0 && overlap*2 >= candidate.Duration():
		severity = SeverityMedium
	}

	return Conflict{
		Type:     TypeTime,
		Severity: severity,
		EventID:  other.ID,
		Description: fmt.Sprintf("%q overlaps %q from %s to %s",
			candidate.Title, other.Title,
			laterOf(candidate.Start, other.Start).Format("15:04"),
			earlierOf(candidate.End, other.End).Format("15:04")),
	}
}

// sharedResources returns the resource attendees both events book.
func sharedResources(a, b *model.Event) []string {
	bres := make(map[string]struct{})
	for _, name := range b.Resources() {
		bres[name] = struct{}{}
	}

	var shared []string
	for _, name := range a.Resources() {
		if _, ok := bres[name]; ok {
			shared = append(shared, name)
		}
	}
	return shared
}

// contains reports whether outer fully covers inner.
func contains(outer, inner *model.Event) bool {
	return !outer.Start.After(inner.Start) && !outer.End.Before(inner.End)
}

func overlapDuration(a, b *model.Event) time.Duration {
	start := laterOf(a.Start, b.Start)
	end := earlierOf(a.End, b.End)
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
