// Package reminder runs the roll-marking reminder for staff machines.
package reminder

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/x1thexxx-lgtm/assetlabel/pkg/config"
	"github.com/x1thexxx-lgtm/assetlabel/pkg/logging"
)

// Scheduler wakes on every whole minute and notifies at the configured times.
type Scheduler struct {
	title    string
	message  string
	debug    bool
	subnets  []netip.Prefix
	times    map[string]bool
	notifier Notifier
	addrs    AddressSource
	now      func() time.Time
	log      *logging.Logger
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithNotifier sets how notifications are delivered.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithAddressSource replaces the interface address lookup.
func WithAddressSource(a AddressSource) Option {
	return func(s *Scheduler) {
		s.addrs = a
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler. Without WithNotifier it uses the configured command, or the log.
func New(cfg config.ReminderConfig, log *logging.Logger, opts ...Option) (*Scheduler, error) {
	subnets, err := parseSubnets(cfg.StaffSubnets)
	if err != nil {
		return nil, err
	}
	times := make(map[string]bool, len(cfg.Times))
	for _, t := range cfg.Times {
		parsed, err := time.Parse("15:04", t)
		if err != nil {
			return nil, fmt.Errorf("reminder time %q: %w", t, err)
		}
		times[parsed.Format("15:04")] = true
	}
	s := &Scheduler{
		title:   cfg.Title,
		message: cfg.Message,
		debug:   cfg.Debug,
		subnets: subnets,
		times:   times,
		addrs:   InterfaceAddress(cfg.Interface),
		now:     time.Now,
		log:     log.With("reminder"),
	}
	if len(cfg.NotifyCommand) > 0 {
		s.notifier = CommandNotifier{Args: cfg.NotifyCommand}
	} else {
		s.notifier = LogNotifier{Log: s.log}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run checks once per minute until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infof("reminder started (debug=%t)", s.debug)
	for {
		timer := time.NewTimer(untilNextMinute(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Infof("reminder stopped")
			return ctx.Err()
		case <-timer.C:
		}
		if _, err := s.Tick(ctx); err != nil {
			s.log.Errorf("reminder notification failed: %v", err)
		}
	}
}

// Tick performs one check and reports whether a notification was sent.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	now := s.now()
	if !isWeekday(now) {
		if s.debug {
			s.log.Infof("debug mode enabled, but today is %s; skipping notification", now.Weekday())
		}
		return false, nil
	}
	if !s.debug && !s.due(now) {
		return false, nil
	}
	if err := s.notifier.Notify(ctx, s.title, s.message); err != nil {
		return false, err
	}
	s.log.Debugf("notification sent at %s", now.Format("15:04"))
	return true, nil
}

func (s *Scheduler) due(now time.Time) bool {
	if !s.times[now.Format("15:04")] {
		return false
	}
	addr, err := s.addrs.Addr()
	if err != nil {
		s.log.Debugf("host address unavailable: %v", err)
		return false
	}
	return s.onStaffSubnet(addr)
}

func (s *Scheduler) onStaffSubnet(addr netip.Addr) bool {
	for _, p := range s.subnets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isWeekday(t time.Time) bool {
	d := t.Weekday()
	return d >= time.Monday && d <= time.Friday
}

func untilNextMinute(t time.Time) time.Duration {
	return t.Truncate(time.Minute).Add(time.Minute).Sub(t)
}
