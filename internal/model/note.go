package model

import "time"

type NoteKind string

const (
	NoteSuccess NoteKind = "success"
	NoteError   NoteKind = "error"
)

func (k NoteKind) String() string { return string(k) }

// Note is a human-readable status line appended to a submission.
type Note struct {
	ID           int64     `db:"id"            json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Kind         NoteKind  `db:"kind"          json:"kind"`
	Text         string    `db:"note"          json:"note"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// MetaEntry is one key/value persisted against a submission.
type MetaEntry struct {
	SubmissionID string `db:"submission_id" json:"-"`
	Key          string `db:"meta_key"      json:"key"`
	Value        string `db:"meta_value"    json:"value"`
}
