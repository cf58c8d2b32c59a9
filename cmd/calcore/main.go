package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"calcore/internal/calendar"
	"calcore/internal/config"
	"calcore/internal/conflict"
	appLog "calcore/internal/log"
	"calcore/internal/model"
	"calcore/internal/store"
	"calcore/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	view       string
	seed       bool
	serve      bool
	watch      string
}

func main() {
	appLog.Info("calcore starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(conf.LogLevel)

	// CLI overrides.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.view != "" {
		conf.View = flags.view
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"view", conf.View,
		"week_start", conf.WeekStart,
		"horizon_days", conf.HorizonDays,
		"cache_capacity", conf.CacheCapacity,
		"on_duplicate", conf.OnDuplicate,
	)

	cal := newCalendar(conf)

	// Log every mutation as it happens.
	for _, topic := range []calendar.Topic{
		calendar.TopicEventAdd, calendar.TopicEventUpdate, calendar.TopicEventRemove,
	} {
		_ = cal.On(topic, func(n calendar.Notification) {
			appLog.Debug("calendar notification", "topic", string(n.Topic), "event", n.Event.ID)
		})
	}

	if flags.seed {
		if err := seedSampleEvents(cal); err != nil {
			appLog.Error("failed to seed sample events", err)
			os.Exit(1)
		}
		reportConflicts(cal)
	}

	if err := printView(cal); err != nil {
		appLog.Error("failed to render view", err)
		os.Exit(1)
	}
	printStats(cal)

	if !flags.serve && flags.watch == "" {
		return
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.watch != "" {
		c := cron.New()
		_, err := c.AddFunc(flags.watch, func() {
			cal.Today()
			if err := printView(cal); err != nil {
				appLog.Error("watch: failed to render view", err)
			}
		})
		if err != nil {
			appLog.Error("invalid watch schedule", err, "schedule", flags.watch)
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		appLog.Info("watch loop started", "schedule", flags.watch)
	}

	if flags.serve {
		srv := web.NewServer(conf, cal)
		go func() {
			appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
			if err := http.ListenAndServe(conf.Listen, srv.Handler()); err != nil {
				appLog.Error("HTTP server failed", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	appLog.Info("calcore exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calcore/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.view, "view", "", "Initial view: month, week, day or list (overrides config)")
	flag.BoolVar(&cfg.seed, "seed", false, "Load sample events before rendering")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the read-only HTTP facade")
	flag.StringVar(&cfg.watch, "watch", "", "Cron schedule for periodic re-rendering (e.g. \"*/15 * * * *\")")

	flag.Parse()

	return cfg
}

// newCalendar translates the file config into calendar options.
func newCalendar(conf *config.Config) *calendar.Calendar {
	weekStart := time.Monday
	if conf.WeekStart == "sunday" {
		weekStart = time.Sunday
	}

	opts := calendar.Options{
		View:              calendar.ViewType(conf.View),
		WeekStart:         &weekStart,
		BusinessStartHour: parseHour(conf.BusinessHours.Start, 9),
		BusinessEndHour:   parseHour(conf.BusinessHours.End, 17),
		HorizonDays:       conf.HorizonDays,
	}
	opts.Store.CacheCapacity = conf.CacheCapacity
	opts.Store.OnDuplicate = store.DuplicatePolicy(conf.OnDuplicate)
	opts.Store.OnMissingRemove = store.RemovePolicy(conf.OnMissingRemove)

	return calendar.New(opts)
}

// parseHour extracts the hour from an "HH:MM" value.
func parseHour(s string, def int) int {
	h, _, ok := strings.Cut(s, ":")
	if !ok {
		return def
	}
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n > 23 {
		return def
	}
	return n
}

// seedSampleEvents loads a batch that exercises attendees, resources,
// recurrence, reminders, all-day events and conference data.
func seedSampleEvents(cal *calendar.Calendar) error {
	today := time.Now()
	day := func(offset, hour, min int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day()+offset, hour, min, 0, 0, today.Location())
	}

	room := model.Attendee{Name: "Conference Room A", Contact: "room-a@company.com", Resource: true}

	batch := []model.EventInput{
		{
			ID:          "event-1001",
			Title:       "Quarterly Business Review",
			Start:       day(1, 10, 0),
			End:         day(1, 12, 0),
			Description: "Review quarterly performance and plan the next one",
			Location:    "Conference Room A",
			Organizer:   &model.Organizer{Name: "Sarah Johnson", Contact: "sarah.johnson@company.com"},
			Attendees: []model.Attendee{
				{Name: "John Smith", Contact: "john.smith@company.com", Response: model.ResponseAccepted},
				{Name: "Emily Davis", Contact: "emily.davis@company.com", Response: model.ResponseTentative},
				room,
			},
			Reminders: []model.Reminder{
				{Method: "email", MinutesBefore: 15},
				{Method: "popup", MinutesBefore: 5},
			},
			Categories: []string{"meeting", "important"},
			Status:     model.StatusConfirmed,
		},
		{
			ID:    "event-1002",
			Title: "Daily Standup",
			Start: day(0, 9, 0),
			End:   day(0, 9, 15),
			RecurrenceRule: &model.RecurrenceRule{
				Freq:  "DAILY",
				ByDay: []string{"MO", "TU", "WE", "TH", "FR"},
			},
			Attendees: []model.Attendee{
				{Name: "Dev Team", Contact: "dev-team@company.com", Response: model.ResponseAccepted},
			},
			Categories: []string{"recurring", "team"},
		},
		{
			ID:       "event-1003",
			Title:    "Product Workshop",
			Start:    day(2, 14, 0),
			End:      day(2, 16, 0),
			Location: "Conference Room A",
			Attendees: []model.Attendee{
				{Name: "Product Team", Contact: "product@company.com"},
				room,
			},
			Category: "workshop",
		},
		{
			ID:       "event-1004",
			Title:    "Client Presentation",
			Start:    day(2, 15, 0),
			End:      day(2, 17, 0),
			Location: "Conference Room A",
			Attendees: []model.Attendee{
				{Name: "Sales Team", Contact: "sales@company.com"},
				room,
			},
			Categories: []string{"client", "important"},
			Status:     model.StatusTentative,
		},
		{
			ID:       "event-1005",
			Title:    "Company Holiday",
			Start:    day(10, 0, 0),
			AllDay:   true,
			Category: "holiday",
		},
		{
			ID:    "event-1006",
			Title: "Remote Team Sync",
			Start: day(4, 15, 0),
			End:   day(4, 16, 0),
			Conference: &model.ConferenceData{
				Provider:   "zoom",
				URL:        "https://zoom.us/j/123456789",
				AccessCode: "123456",
			},
			Attendees: []model.Attendee{
				{Name: "Remote Team", Contact: "remote@company.com"},
			},
			Categories: []string{"meeting", "virtual"},
		},
	}

	events, err := cal.AddEvents(batch)
	if err != nil {
		return err
	}
	appLog.Info("sample events loaded", "count", len(events))
	return nil
}

// reportConflicts sweeps every stored event through the detector and
// prints what it finds.
func reportConflicts(cal *calendar.Calendar) {
	detector := conflict.New(cal.Store())

	total := 0
	for _, ev := range cal.Store().GetAllEvents() {
		report := detector.CheckConflicts(ev)
		for _, c := range report.Conflicts {
			total++
			fmt.Printf("conflict [%s/%s] %s\n", c.Type, c.Severity, c.Description)
		}
	}
	if total == 0 {
		fmt.Println("no conflicts detected")
	}
}

func printStats(cal *calendar.Calendar) {
	stats := cal.Store().Stats()
	fmt.Printf("events: %d (%d recurring, %d one-off) | cache: %d hits / %d misses / %d evictions\n",
		stats.TotalEvents, stats.ByRecurring.Recurring, stats.ByRecurring.NonRecurring,
		stats.Cache.Hits, stats.Cache.Misses, stats.Cache.Evictions)
}

// printView writes a plain-text rendering of the current view.
func printView(cal *calendar.Calendar) error {
	data, err := cal.ViewData()
	if err != nil {
		return err
	}

	switch v := data.(type) {
	case calendar.MonthData:
		fmt.Printf("== %s %d ==\n", v.Month, v.Year)
		for _, week := range v.Weeks {
			for _, d := range week.Days {
				marker := " "
				if d.IsToday {
					marker = "*"
				}
				fmt.Printf("%s%2d(%d) ", marker, d.DayOfMonth, len(d.Events))
			}
			fmt.Println()
		}
	case calendar.WeekData:
		fmt.Printf("== Week %d ==\n", v.WeekNumber)
		for _, d := range v.Days {
			fmt.Printf("%-9s %s: %d event(s)\n", d.DayName, d.Date.Format("2006-01-02"), len(d.Events))
		}
	case calendar.DayData:
		fmt.Printf("== %s %s ==\n", v.DayName, v.Date.Format("2006-01-02"))
		for _, ev := range v.AllDayEvents {
			fmt.Printf("  all day: %s\n", ev.Title)
		}
		for _, slot := range v.Hours {
			for _, ev := range slot.Events {
				fmt.Printf("  %s %s\n", slot.Label, ev.Title)
			}
		}
	case calendar.ListData:
		fmt.Printf("== Agenda from %s ==\n", v.Start.Format("2006-01-02"))
		for _, d := range v.Days {
			for _, ev := range d.Events {
				fmt.Printf("  %s %s-%s %s\n", d.Date.Format("Mon 02"),
					ev.Start.Format("15:04"), ev.End.Format("15:04"), ev.Title)
			}
		}
	}
	return nil
}
