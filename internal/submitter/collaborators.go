package submitter

import (
	"context"
	"time"

	"github.com/jmehdipour/formdesk/internal/model"
)

// Settings is the global helpdesk configuration.
type Settings struct {
	Vendor         string
	BaseURL        string
	APIKey         string
	APISecret      string
	DefaultMailbox string
	// SiteURL is the public URL of the site hosting the forms; its host
	// is written into the message provenance block.
	SiteURL string
	Timeout time.Duration
}

// SettingsSource yields the settings in effect for a run.
type SettingsSource interface {
	EffectiveSettings(ctx context.Context) (Settings, error)
}

// StaticSettings serves a fixed Settings value.
type StaticSettings Settings

func (s StaticSettings) EffectiveSettings(context.Context) (Settings, error) { return Settings(s), nil }

// FieldResolver looks up a submitted value by field reference.
type FieldResolver interface {
	ResolveField(sub model.Submission, ref string) string
}

// SubmissionFields resolves refs against the submission's own values.
type SubmissionFields struct{}

func (SubmissionFields) ResolveField(sub model.Submission, ref string) string {
	return sub.Value(ref)
}

// ResultStore persists key/value pairs against a submission.
type ResultStore interface {
	PersistResultKey(ctx context.Context, submissionID, key, value string) error
}

// Notifier appends status notes to a submission.
type Notifier interface {
	AppendNote(ctx context.Context, submissionID, text string, kind model.NoteKind) error
}
