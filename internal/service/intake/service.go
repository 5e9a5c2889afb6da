package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/metrics"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmehdipour/formdesk/internal/repository"
	"github.com/jmehdipour/formdesk/internal/submitter"
	"github.com/jmehdipour/formdesk/internal/util"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const DefaultTopic = "formdesk.submissions"

var ErrFormNotFound = errors.New("form not found")

// Processor runs one feed against one submission.
type Processor interface {
	Run(ctx context.Context, feed model.Feed, sub model.Submission, form model.Form) (helpdesk.Created, error)
}

// Guard lets each (submission, feed) pair through once.
type Guard interface {
	Claim(ctx context.Context, submissionID string, feedID int64) (bool, error)
}

// RunLog receives one row per feed run.
type RunLog interface {
	Insert(ctx context.Context, run model.Run) error
}

// Input is a submission as pushed by the host form engine.
type Input struct {
	Fields    map[string]string
	SourceURL string
	CreatedAt time.Time
}

// FeedResult is the outcome of one feed for one submission.
type FeedResult struct {
	FeedID       int64            `json:"feed_id"`
	FeedName     string           `json:"feed_name"`
	Outcome      model.RunOutcome `json:"outcome"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	Message      string           `json:"message,omitempty"`
	Conversation string           `json:"conversation,omitempty"`
}

// Service stores incoming submissions and runs the form's feeds on them,
// either inline or through the outbox.
type Service struct {
	db     *sqlx.DB
	forms  repository.FormsRepository
	subs   repository.SubmissionsRepository
	outbox repository.OutboxRepository
	proc   Processor
	fields submitter.FieldResolver

	// optional
	Guard  Guard
	Runs   RunLog
	Vendor string
	Topic  string
}

// New constructs the intake service.
func New(
	db *sqlx.DB,
	formsRepo repository.FormsRepository,
	subsRepo repository.SubmissionsRepository,
	outboxRepo repository.OutboxRepository,
	proc Processor,
) *Service {
	return &Service{
		db:     db,
		forms:  formsRepo,
		subs:   subsRepo,
		outbox: outboxRepo,
		proc:   proc,
		fields: submitter.SubmissionFields{},
		Topic:  DefaultTopic,
	}
}

// Accept stores the submission and processes every matching feed inline.
func (s *Service) Accept(ctx context.Context, formID int64, in Input) (model.Submission, []FeedResult, error) {
	form, err := s.form(ctx, formID)
	if err != nil {
		return model.Submission{}, nil, err
	}

	sub := newSubmission(form, in)
	if err := s.subs.Insert(ctx, nil, sub); err != nil {
		return model.Submission{}, nil, fmt.Errorf("insert submission: %w", err)
	}

	results, err := s.runFeeds(ctx, form, sub)
	return sub, results, err
}

// Enqueue stores the submission and its outbox event in one transaction.
// The worker picks it up from Kafka.
func (s *Service) Enqueue(ctx context.Context, formID int64, in Input) (string, error) {
	form, err := s.form(ctx, formID)
	if err != nil {
		return "", err
	}

	sub := newSubmission(form, in)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.subs.Insert(ctx, tx, sub); err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}

	env := model.Envelope{SubmissionID: sub.ID, FormID: form.ID}
	if err := s.outbox.InsertSubmission(ctx, tx, s.Topic, env); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	metrics.ConversationsTotal.WithLabelValues(s.Vendor, "queued", "").Inc()
	return sub.ID, nil
}

// ProcessStored runs the feeds of a submission that is already persisted.
func (s *Service) ProcessStored(ctx context.Context, submissionID string) ([]FeedResult, error) {
	sub, err := s.subs.Get(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission %s: %w", submissionID, err)
	}

	form, err := s.form(ctx, sub.FormID)
	if err != nil {
		return nil, err
	}

	return s.runFeeds(ctx, form, sub)
}

func (s *Service) form(ctx context.Context, id int64) (model.Form, error) {
	form, err := s.forms.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Form{}, ErrFormNotFound
	}
	if err != nil {
		return model.Form{}, fmt.Errorf("load form %d: %w", id, err)
	}
	return form, nil
}

func (s *Service) runFeeds(ctx context.Context, form model.Form, sub model.Submission) ([]FeedResult, error) {
	feeds, err := s.forms.ActiveFeeds(ctx, form.ID)
	if err != nil {
		return nil, fmt.Errorf("load feeds of form %d: %w", form.ID, err)
	}

	// the guard claim, the send and the run log belong together
	ctx = context.WithoutCancel(ctx)

	results := make([]FeedResult, 0, len(feeds))
	for _, feed := range feeds {
		results = append(results, s.runFeed(ctx, form, sub, feed))
	}
	return results, nil
}

func (s *Service) runFeed(ctx context.Context, form model.Form, sub model.Submission, feed model.Feed) FeedResult {
	res := FeedResult{FeedID: feed.ID, FeedName: feed.Name()}
	log := logger.Log.With(zap.String("submission_id", sub.ID), zap.Int64("feed_id", feed.ID))

	if !submitter.Matches(feed.Meta.Condition, sub, s.fields) {
		res.Outcome = model.OutcomeSkipped
		res.Message = "condition not met"
		log.Debug("feed skipped", zap.String("reason", res.Message))
		return res
	}

	if s.Guard != nil {
		first, err := s.Guard.Claim(ctx, sub.ID, feed.ID)
		switch {
		case err != nil:
			log.Warn("run guard unavailable, processing anyway", zap.Error(err))
		case !first:
			res.Outcome = model.OutcomeSkipped
			res.Message = "already processed"
			log.Info("feed skipped", zap.String("reason", res.Message))
			return res
		}
	}

	start := time.Now()
	created, err := s.proc.Run(ctx, feed, sub, form)
	if err != nil {
		res.Outcome = model.OutcomeFailed
		res.ErrorKind = submitter.KindOf(err).String()
		res.Message = err.Error()
	} else {
		res.Outcome = model.OutcomeCreated
		res.Conversation = created.Primary
	}

	s.logRun(ctx, sub, feed, res, time.Since(start))
	return res
}

func (s *Service) logRun(ctx context.Context, sub model.Submission, feed model.Feed, res FeedResult, took time.Duration) {
	if s.Runs == nil {
		return
	}

	err := s.Runs.Insert(ctx, model.Run{
		SubmissionID:   sub.ID,
		FormID:         sub.FormID,
		FeedID:         feed.ID,
		Vendor:         s.Vendor,
		Outcome:        res.Outcome,
		ErrorKind:      res.ErrorKind,
		ConversationID: res.Conversation,
		DurationMs:     took.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		logger.Log.Warn("run log insert failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}

func newSubmission(form model.Form, in Input) model.Submission {
	created := in.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	fields := make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		fields[strings.TrimSpace(k)] = v
	}

	return model.Submission{
		ID:        util.NewID(),
		FormID:    form.ID,
		FormTitle: form.Title,
		CreatedAt: created.UTC().Truncate(time.Second),
		SourceURL: strings.TrimSpace(in.SourceURL),
		Fields:    fields,
	}
}
