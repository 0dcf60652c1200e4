// Package reminder periodically tells students how many vocabulary
// items are waiting for review.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/store"
)

// Config controls the reminder job.
type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`

	// Limit caps the count reported to one student.
	Limit int `mapstructure:"limit"`
}

func DefaultConfig() Config {
	return Config{Enabled: false, Interval: time.Hour, Limit: 50}
}

// Notifier delivers a due-review reminder.
type Notifier interface {
	NotifyDue(ctx context.Context, studentID string, count int) error
}

// LogNotifier writes reminders to the log. It is the only delivery
// channel wired in by default.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n LogNotifier) NotifyDue(_ context.Context, studentID string, count int) error {
	n.Log.WithFields(logrus.Fields{
		"student_id": studentID,
		"due":        count,
	}).Info("vocabulary due for review")
	return nil
}

// Job scans the ledger for due items on a fixed interval.
type Job struct {
	gems     store.GemRepo
	notifier Notifier
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time

	sched *gocron.Scheduler
}

func New(gems store.GemRepo, notifier Notifier, cfg Config, log logrus.FieldLogger) *Job {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Job{gems: gems, notifier: notifier, cfg: cfg, log: log, now: time.Now}
}

// Start schedules the scan and returns immediately. Runs never overlap.
func (j *Job) Start() error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(j.cfg.Interval).Do(j.tick); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	s.StartAsync()
	j.sched = s
	j.log.WithField("interval", j.cfg.Interval).Info("reminder job started")
	return nil
}

// Stop halts the scheduler. It is safe to call when Start was not.
func (j *Job) Stop() {
	if j.sched != nil {
		j.sched.Stop()
		j.sched = nil
	}
}

func (j *Job) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Interval)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.log.WithError(err).Warn("reminder scan failed")
	}
}

// RunOnce performs one scan and returns how many students were notified.
// A failed notification is logged and does not stop the scan.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	counts, err := j.gems.DueCounts(ctx, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("count due reviews: %w", err)
	}

	sent := 0
	for _, c := range counts {
		n := c.Count
		if j.cfg.Limit > 0 && n > j.cfg.Limit {
			n = j.cfg.Limit
		}
		if err := j.notifier.NotifyDue(ctx, c.StudentID, n); err != nil {
			j.log.WithError(err).WithField("student_id", c.StudentID).Warn("reminder not delivered")
			continue
		}
		sent++
	}
	return sent, nil
}
