// Package calendar owns view and navigation state for one event store
// and synthesizes render-ready data for the month, week, day and list
// views. It performs no rendering itself; hosts pull ViewData and draw.
package calendar

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	appLog "calcore/internal/log"
	"calcore/internal/model"
	"calcore/internal/store"
)

// ViewType enumerates the calendar's view state machine.
type ViewType string

const (
	ViewMonth ViewType = "month"
	ViewWeek  ViewType = "week"
	ViewDay   ViewType = "day"
	ViewList  ViewType = "list"
)

// Topic names a notification channel.
type Topic string

const (
	TopicEventAdd    Topic = "eventAdd"
	TopicEventUpdate Topic = "eventUpdate"
	TopicEventRemove Topic = "eventRemove"
	TopicViewChange  Topic = "viewChange"
)

// Notification is delivered synchronously to subscribers after the
// triggering mutation and its cache invalidation have fully applied.
type Notification struct {
	Topic Topic
	// Event is set for the event* topics, nil for view changes.
	Event *model.Event
	View  ViewType
	Date  time.Time
}

// Handler receives notifications. Handlers run inline on the mutating
// goroutine, in subscription order; a panicking handler is isolated and
// does not block delivery to the rest.
type Handler func(Notification)

// Options configures a Calendar. Zero values yield a month view
// anchored at the current time with Monday weeks and 09:00-17:00
// business hours.
type Options struct {
	View ViewType
	Date time.Time

	// WeekStart is the first day of the week for week-shaped views;
	// nil means Monday.
	WeekStart *time.Weekday

	// BusinessStartHour/BusinessEndHour bound the day view's hourly
	// slots, end exclusive. Both zero means 9..17.
	BusinessStartHour int
	BusinessEndHour   int

	// HorizonDays is the list view's coverage; <=0 means 7.
	HorizonDays int

	// Store configures the owned event store.
	Store store.Options

	// Now is the clock used for "today" decisions; nil means time.Now.
	Now func() time.Time
}

// Calendar holds the view state and owns exactly one event store.
// It is designed for a single logical owner; the store underneath
// serializes mutations on its own.
type Calendar struct {
	view ViewType
	date time.Time

	weekStart   time.Weekday
	bhStart     int
	bhEnd       int
	horizonDays int

	store *store.Store
	now   func() time.Time

	subs map[Topic][]Handler
}

// New constructs a Calendar and its owned store.
func New(opts Options) *Calendar {
	if opts.View == "" {
		opts.View = ViewMonth
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Date.IsZero() {
		opts.Date = opts.Now()
	}
	if opts.BusinessStartHour == 0 && opts.BusinessEndHour == 0 {
		opts.BusinessStartHour = 9
		opts.BusinessEndHour = 17
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	weekStart := time.Monday
	if opts.WeekStart != nil {
		weekStart = *opts.WeekStart
	}

	return &Calendar{
		view:        opts.View,
		date:        opts.Date,
		weekStart:   weekStart,
		bhStart:     opts.BusinessStartHour,
		bhEnd:       opts.BusinessEndHour,
		horizonDays: opts.HorizonDays,
		store:       store.New(opts.Store),
		now:         opts.Now,
		subs:        make(map[Topic][]Handler),
	}
}

// Store exposes the owned event store for direct queries and for the
// conflict detector. The store is still exclusively owned: it is never
// shared with another Calendar.
func (c *Calendar) Store() *store.Store {
	return c.store
}

// View returns the current view type.
func (c *Calendar) View() ViewType { return c.view }

// Date returns the current anchor date.
func (c *Calendar) Date() time.Time { return c.date }

// SetView switches the view state machine. It is a pure state change;
// nothing is recomputed until ViewData is next called.
func (c *Calendar) SetView(view ViewType) error {
	switch view {
	case ViewMonth, ViewWeek, ViewDay, ViewList:
	default:
		return fmt.Errorf("calendar: unknown view %q", view)
	}
	c.view = view
	c.publish(Notification{Topic: TopicViewChange, View: c.view, Date: c.date})
	return nil
}

// Previous moves the anchor back by one unit of the current view's
// granularity.
func (c *Calendar) Previous() { c.step(-1) }

// Next moves the anchor forward by one unit of the current view's
// granularity.
func (c *Calendar) Next() { c.step(1) }

// Today re-anchors on the current time.
func (c *Calendar) Today() {
	c.date = c.now()
	c.publish(Notification{Topic: TopicViewChange, View: c.view, Date: c.date})
}

func (c *Calendar) step(dir int) {
	switch c.view {
	case ViewMonth:
		c.date = c.date.AddDate(0, dir, 0)
	case ViewWeek:
		c.date = c.date.AddDate(0, 0, dir*7)
	case ViewDay:
		c.date = c.date.AddDate(0, 0, dir)
	case ViewList:
		c.date = c.date.AddDate(0, 0, dir*c.horizonDays)
	}
	c.publish(Notification{Topic: TopicViewChange, View: c.view, Date: c.date})
}

// On registers a handler for a topic. Dispatch order is subscription
// order.
func (c *Calendar) On(topic Topic, handler Handler) error {
	switch topic {
	case TopicEventAdd, TopicEventUpdate, TopicEventRemove, TopicViewChange:
	default:
		return fmt.Errorf("calendar: unknown topic %q", topic)
	}
	if handler == nil {
		return fmt.Errorf("calendar: nil handler for topic %q", topic)
	}
	c.subs[topic] = append(c.subs[topic], handler)
	return nil
}

// publish dispatches synchronously, isolating each handler so one
// panicking subscriber cannot corrupt store state or starve the rest.
func (c *Calendar) publish(n Notification) {
	for _, h := range c.subs[n.Topic] {
		func() {
			defer func() {
				if r := recover(); r != nil {
					appLog.Error("calendar: subscriber panicked",
						fmt.Errorf("%v", r), "topic", string(n.Topic))
				}
			}()
			h(n)
		}()
	}
}

// AddEvent delegates to the store and notifies subscribers on success.
func (c *Calendar) AddEvent(in model.EventInput) (*model.Event, error) {
	ev, err := c.store.AddEvent(in)
	if err != nil {
		return nil, err
	}
	c.publish(Notification{Topic: TopicEventAdd, Event: ev, View: c.view, Date: c.date})
	return ev, nil
}

// AddEvents delegates the batch to the store; one notification is
// emitted per admitted event, in batch order.
func (c *Calendar) AddEvents(ins []model.EventInput) ([]*model.Event, error) {
	events, err := c.store.AddEvents(ins)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		c.publish(Notification{Topic: TopicEventAdd, Event: ev, View: c.view, Date: c.date})
	}
	return events, nil
}

// UpdateEvent delegates to the store and notifies subscribers.
func (c *Calendar) UpdateEvent(id string, in model.EventInput) (*model.Event, error) {
	ev, err := c.store.UpdateEvent(id, in)
	if err != nil {
		return nil, err
	}
	c.publish(Notification{Topic: TopicEventUpdate, Event: ev, View: c.view, Date: c.date})
	return ev, nil
}

// RemoveEvent delegates to the store. The notification carries the
// removed event when it existed; a policy-ignored miss notifies nobody.
func (c *Calendar) RemoveEvent(id string) error {
	removed, getErr := c.store.GetEvent(id)
	if err := c.store.RemoveEvent(id); err != nil {
		return err
	}
	if getErr == nil {
		c.publish(Notification{Topic: TopicEventRemove, Event: removed, View: c.view, Date: c.date})
	}
	return nil
}

// CreateEvent is the convenience entry point: it assigns a fresh uuid
// when the caller supplied no id, then adds the event.
func (c *Calendar) CreateEvent(in model.EventInput) (*model.Event, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	return c.AddEvent(in)
}
