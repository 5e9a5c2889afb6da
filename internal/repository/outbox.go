package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmoiron/sqlx"
)

// OutboxRepository writes submission events for asynchronous processing.
// Debezium's outbox SMT publishes each row to the Kafka topic it names.
type OutboxRepository interface {
	InsertSubmission(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error
}

type OutboxRepositoryImpl struct{}

func NewOutboxRepository() *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// InsertSubmission must run in the transaction that inserted the
// submission so the event exists iff the submission does.
func (r *OutboxRepositoryImpl) InsertSubmission(ctx context.Context, tx *sqlx.Tx, topic string, env model.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (aggregate, aggregate_id, topic, payload, created_at)
		VALUES ('submission', ?, ?, ?, NOW())
	`, env.SubmissionID, topic, payload)
	return err
}
