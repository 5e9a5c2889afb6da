package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmoiron/sqlx"
)

// SubmissionsRepository persists submissions and everything recorded
// against them (result keys and notes).
type SubmissionsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, s model.Submission) error
	Get(ctx context.Context, id string) (model.Submission, error)
	PersistResultKey(ctx context.Context, submissionID, key, value string) error
	AppendNote(ctx context.Context, submissionID, text string, kind model.NoteKind) error
	Meta(ctx context.Context, submissionID string) ([]model.MetaEntry, error)
	Notes(ctx context.Context, submissionID string) ([]model.Note, error)
}

type SubmissionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubmissionsRepository(db *sqlx.DB) *SubmissionsRepositoryImpl {
	return &SubmissionsRepositoryImpl{db: db}
}

var _ SubmissionsRepository = (*SubmissionsRepositoryImpl)(nil)

func (r *SubmissionsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// Insert writes a new submission row. If tx is nil, it will open/commit
// an internal transaction; otherwise it uses the given tx.
func (r *SubmissionsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, s model.Submission) error {
	fields, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO submissions (id, form_id, source_url, fields, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, s.ID, s.FormID, s.SourceURL, fields, createdAt)
		return err
	})
}

func (r *SubmissionsRepositoryImpl) Get(ctx context.Context, id string) (model.Submission, error) {
	var row struct {
		model.SubmissionRow
		FormTitle string `db:"form_title"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT s.id, s.form_id, s.source_url, s.fields, s.created_at, f.title AS form_title
		  FROM submissions s
		  JOIN forms f ON f.id = s.form_id
		 WHERE s.id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, ErrNotFound
	}
	if err != nil {
		return model.Submission{}, err
	}

	sub := model.Submission{
		ID:        row.ID,
		FormID:    row.FormID,
		FormTitle: row.FormTitle,
		CreatedAt: row.CreatedAt,
		SourceURL: row.SourceURL,
	}
	if err := json.Unmarshal(row.Fields, &sub.Fields); err != nil {
		return model.Submission{}, fmt.Errorf("decode fields of %s: %w", id, err)
	}
	return sub, nil
}

// PersistResultKey upserts one key/value against the submission.
func (r *SubmissionsRepositoryImpl) PersistResultKey(ctx context.Context, submissionID, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_meta (submission_id, meta_key, meta_value, updated_at)
		VALUES (?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value), updated_at = VALUES(updated_at)
	`, submissionID, key, value)
	return err
}

func (r *SubmissionsRepositoryImpl) AppendNote(ctx context.Context, submissionID, text string, kind model.NoteKind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_notes (submission_id, kind, note, created_at)
		VALUES (?, ?, ?, NOW())
	`, submissionID, kind.String(), text)
	return err
}

func (r *SubmissionsRepositoryImpl) Meta(ctx context.Context, submissionID string) ([]model.MetaEntry, error) {
	var out []model.MetaEntry
	err := r.db.SelectContext(ctx, &out, `
		SELECT submission_id, meta_key, meta_value
		  FROM submission_meta
		 WHERE submission_id = ?
		 ORDER BY meta_key
	`, submissionID)
	return out, err
}

func (r *SubmissionsRepositoryImpl) Notes(ctx context.Context, submissionID string) ([]model.Note, error) {
	var out []model.Note
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, submission_id, kind, note, created_at
		  FROM submission_notes
		 WHERE submission_id = ?
		 ORDER BY id
	`, submissionID)
	return out, err
}
