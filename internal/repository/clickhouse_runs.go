package repository

import (
	"context"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHRunsRepository keeps the feed run log in ClickHouse for reporting.
type CHRunsRepository interface {
	Insert(ctx context.Context, run model.Run) error
	List(ctx context.Context, formID int64, outcome model.RunOutcome, limit, offset int) ([]model.Run, error)
}

type chRunsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHRunsRepository(ch *sqlx.DB) CHRunsRepository {
	return &chRunsRepository{ch: ch}
}

func (r *chRunsRepository) Insert(ctx context.Context, run model.Run) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO formdesk.runs
		    (submission_id, form_id, feed_id, vendor, outcome, error_kind, conversation_id, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.SubmissionID, run.FormID, run.FeedID, run.Vendor, run.Outcome.String(),
		run.ErrorKind, run.ConversationID, run.DurationMs, run.CreatedAt)
	return err
}

func (r *chRunsRepository) List(ctx context.Context, formID int64, outcome model.RunOutcome, limit, offset int) ([]model.Run, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT submission_id, form_id, feed_id, vendor, outcome, error_kind, conversation_id, duration_ms, created_at
		FROM formdesk.runs
		WHERE 1 = 1
	`
	var args []any

	if formID > 0 {
		q += " AND form_id = ?"
		args = append(args, formID)
	}
	if outcome != "" {
		q += " AND outcome = ?"
		args = append(args, outcome.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Run
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
