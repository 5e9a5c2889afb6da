package submitter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/metrics"
	"github.com/jmehdipour/formdesk/internal/model"
	"go.uber.org/zap"
)

// Service turns submissions into helpdesk conversations. It holds no
// per-run state and is safe for concurrent use.
type Service struct {
	settings SettingsSource
	fields   FieldResolver
	rec      recorder
	validate *validator.Validate
	now      func() time.Time
}

func New(settings SettingsSource, fields FieldResolver, store ResultStore, notes Notifier) *Service {
	if fields == nil {
		fields = SubmissionFields{}
	}

	return &Service{
		settings: settings,
		fields:   fields,
		rec:      recorder{store: store, notes: notes},
		validate: validator.New(),
		now:      time.Now,
	}
}

// Process runs the feed against the submission and returns the submission
// on success. Failures are *Error values and have already been noted.
func (s *Service) Process(ctx context.Context, feed model.Feed, sub model.Submission, form model.Form) (model.Submission, error) {
	if _, err := s.Run(ctx, feed, sub, form); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// Run is Process returning what the vendor created. A run is not cancelled
// by its caller once started: the helpdesk call is bounded by the client
// timeout only, and the outcome is always recorded.
func (s *Service) Run(ctx context.Context, feed model.Feed, sub model.Submission, form model.Form) (helpdesk.Created, error) {
	ctx = context.WithoutCancel(ctx)

	settings, err := s.settings.EffectiveSettings(ctx)
	log := logger.Log.With(
		zap.String("submission_id", sub.ID),
		zap.Int64("feed_id", feed.ID),
		zap.String("vendor", settings.Vendor))

	if err != nil {
		return helpdesk.Created{}, s.fail(ctx, log, settings.Vendor, sub.ID,
			&Error{Kind: KindNotConfigured, Message: "Helpdesk settings unavailable: " + err.Error(), Err: err})
	}

	eff, err := Resolve(settings, feed)
	if err != nil {
		return helpdesk.Created{}, s.fail(ctx, log, settings.Vendor, sub.ID, err)
	}

	conv, err := s.Build(feed, sub, form, eff, settings.SiteURL)
	if err != nil {
		return helpdesk.Created{}, s.fail(ctx, log, eff.Vendor.Name(), sub.ID, err)
	}

	client := helpdesk.NewClient(eff.Vendor, eff.BaseURL, eff.Credentials, settings.Timeout)
	created, err := client.CreateConversation(ctx, conv)
	if err != nil {
		return helpdesk.Created{}, s.fail(ctx, log, eff.Vendor.Name(), sub.ID, sendError(err))
	}

	if created.Primary == "" {
		log.Warn("conversation created but response carried no identifier")
	}
	s.rec.success(ctx, sub.ID, eff.Vendor, created)
	metrics.ConversationsTotal.WithLabelValues(eff.Vendor.Name(), model.OutcomeCreated.String(), "").Inc()
	log.Info("conversation created", zap.String("conversation", created.Primary))

	return created, nil
}

// Build extracts and validates the submission's values and derives the
// vendor-independent conversation. It has no side effects.
func (s *Service) Build(feed model.Feed, sub model.Submission, form model.Form, eff Effective, siteURL string) (helpdesk.Conversation, error) {
	meta := feed.Meta

	email := Field(s.fields, sub, meta.CustomerEmail)
	if email == "" || s.validate.Var(email, "email") != nil {
		return helpdesk.Conversation{}, &Error{Kind: KindInvalidEmail, Message: "Invalid or missing customer email."}
	}

	first, last := SplitName(Field(s.fields, sub, meta.CustomerName))
	subject := Subject(meta.Subject, form, sub, s.fields)

	message := Field(s.fields, sub, meta.MessageField)
	if message == "" {
		return helpdesk.Conversation{}, &Error{Kind: KindEmptyMessage, Message: "Message field is empty."}
	}

	extras := ExtractExtraFields(s.fields, sub, meta.ExtraFields)
	body := MessageBody(message, extras, Provenance{
		SiteHost:  SiteHost(siteURL),
		FormTitle: formTitle(form, sub),
		SourceURL: sub.SourceURL,
		EntryID:   sub.ID,
	})

	created := sub.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	return helpdesk.Conversation{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Subject:   subject,
		Body:      body,
		MailboxID: eff.MailboxID,
		CreatedAt: created,
	}, nil
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, vendor, submissionID string, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}

	log.Warn("feed run failed",
		zap.String("kind", e.Kind.String()),
		zap.String("class", e.Class().String()),
		zap.String("message", e.Message))

	s.rec.failure(ctx, submissionID, e)
	metrics.ConversationsTotal.WithLabelValues(vendor, model.OutcomeFailed.String(), e.Kind.String()).Inc()

	return e
}

func sendError(err error) *Error {
	var se *helpdesk.StatusError
	if errors.As(err, &se) {
		return &Error{
			Kind:    KindAPI,
			Message: "API returned error: " + strconv.Itoa(se.Status),
			Status:  se.Status,
			Body:    se.Body,
			Err:     err,
		}
	}

	return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
}
