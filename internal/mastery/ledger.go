// Package mastery owns the per-student vocabulary mastery ledger. Every
// write is a compare-and-swap against the record version, so concurrent
// sessions for the same student never lose an encounter.
package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/backoff"
	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/store"
)

// ErrContention is returned when the retry budget runs out while other
// writers keep winning the swap.
var ErrContention = errors.New("mastery: too much contention on gem record")

// DefaultDueLimit is used by DueForReview when limit <= 0.
const DefaultDueLimit = 20

// Config tunes the compare-and-swap loop.
type Config struct {
	MaxRetries int            `mapstructure:"max_retries"`
	Backoff    backoff.Config `mapstructure:"backoff"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 10,
		Backoff: backoff.Config{
			InitialWait: 2 * time.Millisecond,
			MaxWait:     100 * time.Millisecond,
			Multiplier:  2,
		},
	}
}

// Ledger records correct encounters and serves the collection views.
type Ledger struct {
	gems    store.GemRepo
	catalog catalog.Lookup
	cfg     Config
	log     logrus.FieldLogger

	now func() time.Time
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCatalog seeds new records' difficulty from the catalog entry.
func WithCatalog(c catalog.Lookup) Option {
	return func(l *Ledger) { l.catalog = c }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

func NewLedger(repo store.GemRepo, cfg Config, opts ...Option) *Ledger {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	l := &Ledger{
		gems: repo,
		cfg:  cfg,
		log:  logrus.StandardLogger(),
		now:  time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// RecordCorrectEncounter credits one correct answer for the item and
// returns the record as written.
func (l *Ledger) RecordCorrectEncounter(ctx context.Context, studentID, vocabularyItemID string) (*gems.Record, error) {
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		rec, won, err := l.tryOnce(ctx, studentID, vocabularyItemID)
		if err != nil {
			return nil, err
		}
		if won {
			return rec, nil
		}

		if attempt == l.cfg.MaxRetries {
			break
		}
		l.log.WithFields(logrus.Fields{
			"student_id":         studentID,
			"vocabulary_item_id": vocabularyItemID,
			"attempt":            attempt + 1,
		}).Debug("gem record swap lost, retrying")
		if err := backoff.Sleep(ctx, l.cfg.Backoff.Wait(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: student %s item %s", ErrContention, studentID, vocabularyItemID)
}

// tryOnce performs one read-modify-write. won is false when a concurrent
// writer got there first.
func (l *Ledger) tryOnce(ctx context.Context, studentID, vocabularyItemID string) (*gems.Record, bool, error) {
	now := l.now().UTC()

	current, err := l.gems.Get(ctx, studentID, vocabularyItemID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec := gems.NewRecord(studentID, vocabularyItemID, l.difficulty(ctx, vocabularyItemID), now)
		created, err := l.gems.Create(ctx, rec)
		if err != nil {
			return nil, false, fmt.Errorf("create gem record: %w", err)
		}
		return rec, created, nil
	case err != nil:
		return nil, false, fmt.Errorf("load gem record: %w", err)
	}

	next := current.CorrectEncounter(now)
	swapped, err := l.gems.Swap(ctx, next, current.Version)
	if err != nil {
		return nil, false, fmt.Errorf("update gem record: %w", err)
	}
	return next, swapped, nil
}

func (l *Ledger) difficulty(ctx context.Context, vocabularyItemID string) int {
	if l.catalog == nil {
		return 1
	}
	item, err := l.catalog.Item(ctx, vocabularyItemID)
	if err != nil {
		if !catalog.IsNotFound(err) {
			l.log.WithError(err).WithField("vocabulary_item_id", vocabularyItemID).
				Warn("catalog lookup failed, using default difficulty")
		}
		return 1
	}
	return item.Difficulty
}

// Collection returns the student's gems, most recently encountered first.
func (l *Ledger) Collection(ctx context.Context, studentID string, limit int) ([]gems.Record, error) {
	recs, err := l.gems.Collection(ctx, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return recs, nil
}

// DueForReview returns items whose next review is at or before now,
// soonest first.
func (l *Ledger) DueForReview(ctx context.Context, studentID string, now time.Time, limit int) ([]gems.Record, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}
	recs, err := l.gems.Due(ctx, studentID, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("load due reviews: %w", err)
	}
	return recs, nil
}
