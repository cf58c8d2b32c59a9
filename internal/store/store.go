// Package store owns the canonical event collection: normalized storage,
// a start-time index for range queries, and a bounded LRU cache of
// computed range results with hit/miss/eviction accounting.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"

	appLog "calcore/internal/log"
	"calcore/internal/model"
)

// DuplicatePolicy selects what AddEvent does when the id already exists.
type DuplicatePolicy string

const (
	// DuplicateReject fails the add with a DuplicateIDError. Default.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateOverwrite replaces the stored event.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// RemovePolicy selects what RemoveEvent does for an unknown id.
type RemovePolicy string

const (
	// RemoveIgnore treats the removal as a silent no-op. Default.
	RemoveIgnore RemovePolicy = "ignore"
	// RemoveError reports a NotFoundError.
	RemoveError RemovePolicy = "error"
)

// Options configures a Store. The zero value yields the defaults.
type Options struct {
	// CacheCapacity bounds the range-query cache; <=0 means 128.
	CacheCapacity int

	OnDuplicate     DuplicatePolicy
	OnMissingRemove RemovePolicy

	// MaxOccurrencesPerEvent caps recurrence expansion per event;
	// <=0 means the package default.
	MaxOccurrencesPerEvent int
}

func (o *Options) normalize() {
	if o.OnDuplicate == "" {
		o.OnDuplicate = DuplicateReject
	}
	if o.OnMissingRemove == "" {
		o.OnMissingRemove = RemoveIgnore
	}
}

// RecurringBreakdown splits the event count by recurrence.
type RecurringBreakdown struct {
	Recurring    int `json:"recurring"`
	NonRecurring int `json:"nonRecurring"`
}

// Stats is the store's usage snapshot.
type Stats struct {
	TotalEvents int                `json:"totalEvents"`
	ByRecurring RecurringBreakdown `json:"byRecurring"`
	Cache       CacheStats         `json:"cache"`
}

// Store is the exclusive owner of a calendar's canonical events. One
// store per calendar; stores are never shared across calendars.
//
// Mutations are serialized; read-only queries may run concurrently with
// each other but never with a mutation. Concurrent uncached reads of
// the same range collapse into a single computation.
type Store struct {
	mu     sync.RWMutex
	events map[string]*model.Event
	// order preserves insertion order for GetAllEvents.
	order []string
	// index holds non-recurring events sorted by start time.
	index []*model.Event
	// recurring holds template events expanded per range query.
	recurring []*model.Event

	opts  Options
	cache *queryCache
	group singleflight.Group
}

// New constructs an empty Store with the given options.
func New(opts Options) *Store {
	opts.normalize()
	return &Store{
		events: make(map[string]*model.Event),
		opts:   opts,
		cache:  newQueryCache(opts.CacheCapacity),
	}
}

// validate enforces the admission invariants: id, title and start are
// required, and a timed event must not end before it starts.
func validate(ev *model.Event) *ValidationError {
	if ev.ID == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if ev.Title == "" {
		return &ValidationError{ID: ev.ID, Field: "title", Reason: "is required"}
	}
	if ev.Start.IsZero() {
		return &ValidationError{ID: ev.ID, Field: "start", Reason: "is required"}
	}
	if !ev.AllDay && ev.End.Before(ev.Start) {
		return &ValidationError{ID: ev.ID, Field: "end", Reason: "is before start"}
	}
	return nil
}

// AddEvent normalizes and inserts a single event. The duplicate-id
// policy decides whether an existing id is overwritten or rejected.
// Affected cache entries are invalidated before the call returns.
func (s *Store) AddEvent(in model.EventInput) (*model.Event, error) {
	ev := model.Normalize(in)
	if verr := validate(ev); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.events[ev.ID]
	if exists && s.opts.OnDuplicate == DuplicateReject {
		return nil, &DuplicateIDError{ID: ev.ID}
	}

	s.insertLocked(ev, exists)
	s.invalidateLocked(touchedSpans(ev, old))

	appLog.Debug("store: event added", "id", ev.ID, "recurring", ev.Recurring, "overwrote", exists)
	return ev.Clone(), nil
}

// AddEvents is the batch form of AddEvent. The whole batch is validated
// first (including duplicate ids within the batch and against the
// store) and applied all-or-nothing; per-item failures come back as one
// aggregated error. Insertion costs a single index rebuild and a single
// cache invalidation pass.
func (s *Store) AddEvents(ins []model.EventInput) ([]*model.Event, error) {
	batch := make([]*model.Event, 0, len(ins))
	var merr *multierror.Error

	seen := make(map[string]struct{}, len(ins))
	for _, in := range ins {
		ev := model.Normalize(in)
		if verr := validate(ev); verr != nil {
			merr = multierror.Append(merr, verr)
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			merr = multierror.Append(merr, &DuplicateIDError{ID: ev.ID})
			continue
		}
		seen[ev.ID] = struct{}{}
		batch = append(batch, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.OnDuplicate == DuplicateReject {
		for _, ev := range batch {
			if _, exists := s.events[ev.ID]; exists {
				merr = multierror.Append(merr, &DuplicateIDError{ID: ev.ID})
			}
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("store: batch add rejected: %w", err)
	}

	var spans []span
	unbounded := false
	out := make([]*model.Event, 0, len(batch))
	for _, ev := range batch {
		old, exists := s.events[ev.ID]
		s.placeLocked(ev, exists)
		sp, unb := touchedSpans(ev, old)
		spans = append(spans, sp...)
		unbounded = unbounded || unb
		out = append(out, ev.Clone())
	}
	s.rebuildIndexLocked()
	s.invalidateLocked(spans, unbounded)

	appLog.Debug("store: batch added", "count", len(out))
	return out, nil
}

// UpdateEvent replaces the stored event with the given id. The input's
// id field is ignored; identity never changes across an update.
func (s *Store) UpdateEvent(id string, in model.EventInput) (*model.Event, error) {
	in.ID = id
	ev := model.Normalize(in)
	if verr := validate(ev); verr != nil {
		return nil, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.events[id]
	if !exists {
		return nil, &NotFoundError{ID: id}
	}

	s.insertLocked(ev, true)
	s.invalidateLocked(touchedSpans(ev, old))

	appLog.Debug("store: event updated", "id", id)
	return ev.Clone(), nil
}

// RemoveEvent removes an event by id. For an unknown id the configured
// remove policy decides between a silent no-op and a NotFoundError.
func (s *Store) RemoveEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.events[id]
	if !exists {
		if s.opts.OnMissingRemove == RemoveError {
			return &NotFoundError{ID: id}
		}
		return nil
	}

	delete(s.events, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rebuildIndexLocked()
	s.invalidateLocked(touchedSpans(old, nil))

	appLog.Debug("store: event removed", "id", id)
	return nil
}

// GetEvent returns a copy of the stored event or a NotFoundError.
func (s *Store) GetEvent(id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return ev.Clone(), nil
}

// GetAllEvents returns copies of all stored events in insertion order.
// Recurrence is not expanded.
func (s *Store) GetAllEvents() []*model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id].Clone())
	}
	return out
}

// GetEventsInRange returns all events whose span intersects [start, end],
// including expanded occurrences of recurring events, ordered by start
// time. Results are served from the query cache when possible; a miss
// computes via the index and recurrence expansion, then populates the
// cache. Concurrent misses on the same range share one computation.
func (s *Store) GetEventsInRange(start, end time.Time) ([]*model.Event, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("store: range end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	key := rangeKey(start, end)
	if events, ok := s.cache.get(key); ok {
		return append([]*model.Event(nil), events...), nil
	}

	gen := s.cache.generation()
	v, _, _ := s.group.Do(key, func() (any, error) {
		events := s.computeRange(start, end)
		s.cache.put(key, rangeResult{start: start, end: end, events: events}, gen)
		return events, nil
	})

	events := v.([]*model.Event)
	return append([]*model.Event(nil), events...), nil
}

// computeRange materializes a range result from the index plus
// recurrence expansion.
func (s *Store) computeRange(start, end time.Time) []*model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Event

	// The index is sorted by start; everything past the first event
	// starting after the range end cannot intersect.
	cut := sort.Search(len(s.index), func(i int) bool {
		return s.index[i].Start.After(end)
	})
	for _, ev := range s.index[:cut] {
		if ev.Overlaps(start, end) {
			out = append(out, ev.Clone())
		}
	}

	for _, ev := range s.recurring {
		out = append(out, expandOccurrences(ev, start, end, s.opts.MaxOccurrencesPerEvent)...)
	}

	sortEvents(out)
	return out
}

// Stats returns the aggregate event counts and cache statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	recurring := len(s.recurring)
	total := len(s.events)
	s.mu.RUnlock()

	return Stats{
		TotalEvents: total,
		ByRecurring: RecurringBreakdown{
			Recurring:    recurring,
			NonRecurring: total - recurring,
		},
		Cache: s.cache.stats(),
	}
}

// Clear removes all events and cache entries and resets all counters.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make(map[string]*model.Event)
	s.order = nil
	s.index = nil
	s.recurring = nil
	s.cache.reset()

	appLog.Debug("store: cleared")
}

// insertLocked places an event and rebuilds the index. Caller holds mu.
func (s *Store) insertLocked(ev *model.Event, exists bool) {
	s.placeLocked(ev, exists)
	s.rebuildIndexLocked()
}

// placeLocked stores the event without touching the index.
func (s *Store) placeLocked(ev *model.Event, exists bool) {
	s.events[ev.ID] = ev
	if !exists {
		s.order = append(s.order, ev.ID)
	}
}

// rebuildIndexLocked recomputes the sorted index and the recurring set.
func (s *Store) rebuildIndexLocked() {
	s.index = s.index[:0]
	s.recurring = s.recurring[:0]
	for _, id := range s.order {
		ev := s.events[id]
		if ev.Recurring && ev.RecurrenceRule != nil {
			s.recurring = append(s.recurring, ev)
			continue
		}
		s.index = append(s.index, ev)
	}
	sortEvents(s.index)
}

// invalidateLocked drops affected cache entries. Recurring events reach
// arbitrarily far into the future, so any mutation touching one purges
// the whole cache; otherwise only entries intersecting the touched
// spans are dropped. Runs under the write lock so no reader can observe
// a pre-mutation cache entry after the mutation returns.
func (s *Store) invalidateLocked(spans []span, unbounded bool) {
	if unbounded {
		s.cache.purge()
		return
	}
	s.cache.invalidateSpans(spans)
}

// touchedSpans computes the time coverage a mutation can affect: the
// new event's span plus, for an overwrite, the replaced event's span.
// The bool result reports unbounded reach (a recurring event involved).
func touchedSpans(ev, old *model.Event) ([]span, bool) {
	if ev != nil && ev.Recurring {
		return nil, true
	}
	if old != nil && old.Recurring {
		return nil, true
	}
	var spans []span
	if ev != nil {
		spans = append(spans, span{start: ev.Start, end: ev.EffectiveEnd()})
	}
	if old != nil {
		spans = append(spans, span{start: old.Start, end: old.EffectiveEnd()})
	}
	return spans, false
}
