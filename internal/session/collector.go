package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/matcher"
	"github.com/abhisek/wordmine/internal/store"
)

// ErrSessionConflict is returned when the client session id is already
// owned by a different student.
var ErrSessionConflict = errors.New("session id already used by another student")

// Best-effort step names reported in Result.Skipped.
const (
	StepAttempts   = "attempts"
	StepCatalog    = "catalog"
	StepMatch      = "match"
	StepMastery    = "mastery"
	StepAssignment = "assignment_progress"
)

// Ledger credits correct encounters.
type Ledger interface {
	RecordCorrectEncounter(ctx context.Context, studentID, vocabularyItemID string) (*gems.Record, error)
}

// ProgressUpdater rolls a session into its assignment.
type ProgressUpdater interface {
	Upsert(ctx context.Context, assignmentID, studentID string, sess *store.Session) (*store.AssignmentProgress, error)
}

// Config bounds the time spent on each write.
type Config struct {
	PrimaryTimeout    time.Duration `mapstructure:"primary_timeout"`
	SideEffectTimeout time.Duration `mapstructure:"side_effect_timeout"`
}

func DefaultConfig() Config {
	return Config{
		PrimaryTimeout:    5 * time.Second,
		SideEffectTimeout: 3 * time.Second,
	}
}

// SideEffectFailure is a best-effort step that did not complete.
type SideEffectFailure struct {
	Step   string `json:"step"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error"`
}

// Result is the outcome of a successful ingest. The session is durable
// whenever a Result is returned.
type Result struct {
	Session   *store.Session
	Metrics   Metrics
	Duplicate bool
	Skipped   []SideEffectFailure

	// Credited lists the vocabulary items whose ledger entry advanced.
	Credited []string
}

// Collector drives the ingest pipeline.
type Collector struct {
	sessions store.SessionRepo
	catalog  catalog.Lookup
	matcher  matcher.Matcher
	ledger   Ledger
	progress ProgressUpdater
	cfg      Config
	log      logrus.FieldLogger

	now func() time.Time
}

// Deps are the collaborators of a Collector. Progress may be nil.
type Deps struct {
	Sessions store.SessionRepo
	Catalog  catalog.Lookup
	Matcher  matcher.Matcher
	Ledger   Ledger
	Progress ProgressUpdater
	Logger   logrus.FieldLogger
	Clock    func() time.Time
}

func NewCollector(deps Deps, cfg Config) *Collector {
	def := DefaultConfig()
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = def.PrimaryTimeout
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = def.SideEffectTimeout
	}
	c := &Collector{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		matcher:  deps.Matcher,
		ledger:   deps.Ledger,
		progress: deps.Progress,
		cfg:      cfg,
		log:      deps.Logger,
		now:      deps.Clock,
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Ingest validates and persists sub for studentID, then credits mastery
// and assignment progress. Only validation, conflict and primary write
// failures are returned as errors.
func (c *Collector) Ingest(ctx context.Context, studentID string, sub *Submission) (*Result, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, invalid("studentId", "is required")
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	rec := c.record(studentID, sub)
	log := c.log.WithFields(logrus.Fields{
		"session_id": sub.SessionID,
		"student_id": studentID,
	})

	stored, inserted, err := c.persist(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if stored.StudentID != studentID {
			return nil, fmt.Errorf("%w: %s", ErrSessionConflict, sub.SessionID)
		}
		log.Info("duplicate session submission, skipping side effects")
		return &Result{Session: stored, Metrics: metricsOf(stored), Duplicate: true}, nil
	}

	res := &Result{Session: stored, Metrics: metricsOf(stored)}
	fail := func(step, target string, err error) {
		log.WithError(err).WithFields(logrus.Fields{"step": step, "target": target}).Warn("session side effect failed")
		res.Skipped = append(res.Skipped, SideEffectFailure{Step: step, Target: target, Error: err.Error()})
	}

	attempts := attemptRows(stored.ID, sub.SegmentAttempts)
	if err := c.step(ctx, func(ctx context.Context) error {
		return c.sessions.InsertAttempts(ctx, stored.ID, attempts)
	}); err != nil {
		fail(StepAttempts, stored.ID, err)
	}

	for _, a := range attempts {
		if !a.IsCorrect {
			continue
		}
		if ctx.Err() != nil {
			fail(StepMastery, a.SegmentID, ctx.Err())
			break
		}
		c.credit(ctx, studentID, sub.LanguagePair, a, res, fail, log)
	}

	if stored.AssignmentID != nil && c.progress != nil {
		if err := c.step(ctx, func(ctx context.Context) error {
			_, err := c.progress.Upsert(ctx, *stored.AssignmentID, studentID, stored)
			return err
		}); err != nil {
			fail(StepAssignment, *stored.AssignmentID, err)
		}
	}

	log.WithFields(logrus.Fields{
		"accuracy": res.Metrics.Accuracy,
		"credited": len(res.Credited),
		"skipped":  len(res.Skipped),
	}).Info("session ingested")
	return res, nil
}

// credit resolves one correct attempt to vocabulary items and advances
// each in the ledger.
func (c *Collector) credit(ctx context.Context, studentID, languagePair string, a store.SegmentAttempt, res *Result,
	fail func(step, target string, err error), log logrus.FieldLogger) {

	var text string
	err := c.step(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.catalog.OptionText(ctx, a.SegmentID, a.SelectedOptionID)
		return err
	})
	switch {
	case catalog.IsNotFound(err):
		log.WithFields(logrus.Fields{
			"segment_id": a.SegmentID,
			"option_id":  a.SelectedOptionID,
		}).Debug("no catalog text for selected option")
		return
	case err != nil:
		fail(StepCatalog, a.SegmentID, err)
		return
	}

	var ids []string
	if err := c.step(ctx, func(ctx context.Context) error {
		var err error
		ids, err = c.matcher.Match(ctx, text, languagePair)
		return err
	}); err != nil {
		fail(StepMatch, a.SegmentID, err)
		return
	}

	for _, id := range ids {
		if err := c.step(ctx, func(ctx context.Context) error {
			_, err := c.ledger.RecordCorrectEncounter(ctx, studentID, id)
			return err
		}); err != nil {
			fail(StepMastery, id, err)
			continue
		}
		res.Credited = append(res.Credited, id)
	}
}

// persist writes the session detached from the caller so that a client
// disconnect cannot leave the outcome unknown.
func (c *Collector) persist(ctx context.Context, rec *store.Session) (*store.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PrimaryTimeout)
	defer cancel()

	stored, inserted, err := c.sessions.Insert(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("persist session %s: %w", rec.ClientSessionID, err)
	}
	return stored, inserted, nil
}

// step runs fn under the side-effect timeout. It gives up immediately
// when the request is already gone.
func (c *Collector) step(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SideEffectTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Collector) record(studentID string, sub *Submission) *store.Session {
	now := c.now().UTC()
	endedAt := now
	if sub.EndedAt != nil {
		endedAt = sub.EndedAt.UTC()
	}

	rec := &store.Session{
		ID:                    uuid.NewString(),
		ClientSessionID:       sub.SessionID,
		StudentID:             studentID,
		SessionType:           sub.SessionType,
		LanguagePair:          sub.LanguagePair,
		DifficultyLevel:       sub.DifficultyLevel,
		TotalSentences:        sub.TotalSentences,
		CompletedSentences:    sub.CompletedSentences,
		TotalSegments:         sub.TotalSegments,
		CorrectSegments:       sub.CorrectSegments,
		IncorrectSegments:     sub.IncorrectSegments,
		FinalScore:            sub.FinalScore,
		GemsCollected:         sub.GemsCollected,
		SpeedBoostsUsed:       sub.SpeedBoostsUsed,
		Accuracy:              Accuracy(sub.CorrectSegments, sub.TotalSegments),
		AverageResponseTimeMs: AverageResponseTime(sub.SegmentAttempts),
		AttemptCount:          len(sub.SegmentAttempts),
		EndedAt:               endedAt,
		CreatedAt:             now,
	}
	if id := strings.TrimSpace(sub.AssignmentID); id != "" {
		rec.AssignmentID = &id
	}
	return rec
}

func attemptRows(sessionID string, in []Attempt) []store.SegmentAttempt {
	out := make([]store.SegmentAttempt, len(in))
	for i, a := range in {
		out[i] = store.SegmentAttempt{
			SessionID:        sessionID,
			SegmentID:        a.SegmentID,
			SelectedOptionID: a.SelectedOptionID,
			IsCorrect:        a.IsCorrect,
			ResponseTimeMs:   a.ResponseTime,
			GemsEarned:       a.GemsEarned,
			AttemptOrder:     i + 1,
		}
	}
	return out
}

func metricsOf(s *store.Session) Metrics {
	return Metrics{
		Accuracy:            s.Accuracy,
		AverageResponseTime: s.AverageResponseTimeMs,
		TotalAttempts:       s.AttemptCount,
	}
}
