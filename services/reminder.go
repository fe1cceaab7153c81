package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timesheet/directory"
	"timesheet/models"

	"go.uber.org/zap"
)

// Notifier delivers a timesheet reminder to one user.
type Notifier interface {
	Notify(ctx context.Context, user models.User) error
}

type NotifierKind string

const (
	NotifierLog  NotifierKind = "log"
	NotifierNone NotifierKind = "none"
)

// NewNotifier is the single place a configured provider name is resolved.
func NewNotifier(kind string, log *zap.Logger) (Notifier, error) {
	switch NotifierKind(kind) {
	case NotifierLog, "":
		return logNotifier{log: log}, nil
	case NotifierNone:
		return noopNotifier{}, nil
	}
	return nil, fmt.Errorf("unknown notifier %q", kind)
}

type logNotifier struct {
	log *zap.Logger
}

func (n logNotifier) Notify(_ context.Context, user models.User) error {
	n.log.Info("timesheet reminder",
		zap.String("employee_code", user.EmployeeCode),
		zap.String("email", user.Email))
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.User) error { return nil }

// Reminder periodically asks every user with an email to fill in their
// timesheet.
type Reminder struct {
	directory  directory.Directory
	notifier   Notifier
	log        *zap.Logger
	interval   time.Duration
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc
}

func NewReminder(dir directory.Directory, notifier Notifier, interval time.Duration, log *zap.Logger) *Reminder {
	return &Reminder{directory: dir, notifier: notifier, interval: interval, log: log}
}

func (r *Reminder) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

func (r *Reminder) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()
}

// Run ticks until ctx is done.
func (r *Reminder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Warn("timesheet reminder run failed", zap.Error(err))
				continue
			}
			r.log.Info("timesheet reminders sent", zap.Int("sent", sent))
		}
	}
}

// RunOnce notifies every user once and reports how many were notified.
// A failed delivery is logged and does not stop the run.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	users, err := r.directory.AllUsers(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, u := range users {
		if u.Email == "" {
			continue
		}
		if err := r.notifier.Notify(ctx, u); err != nil {
			r.log.Warn("timesheet reminder not delivered", zap.String("employee_code", u.EmployeeCode), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
