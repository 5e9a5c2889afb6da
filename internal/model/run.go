package model

import "time"

type RunOutcome string

const (
	OutcomeCreated RunOutcome = "created"
	OutcomeFailed  RunOutcome = "failed"
	OutcomeSkipped RunOutcome = "skipped"
)

func (o RunOutcome) String() string { return string(o) }

func (o RunOutcome) Valid() bool {
	return o == OutcomeCreated || o == OutcomeFailed || o == OutcomeSkipped
}

// Run is one feed processed against one submission, kept for reporting.
type Run struct {
	SubmissionID   string     `db:"submission_id"   json:"submission_id"`
	FormID         int64      `db:"form_id"         json:"form_id"`
	FeedID         int64      `db:"feed_id"         json:"feed_id"`
	Vendor         string     `db:"vendor"          json:"vendor"`
	Outcome        RunOutcome `db:"outcome"         json:"outcome"`
	ErrorKind      string     `db:"error_kind"      json:"error_kind,omitempty"`
	ConversationID string     `db:"conversation_id" json:"conversation_id,omitempty"`
	DurationMs     int64      `db:"duration_ms"     json:"duration_ms"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
}
