package submitter

import (
	"context"

	"github.com/jmehdipour/formdesk/internal/helpdesk"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/model"
	"go.uber.org/zap"
)

// recorder writes run outcomes back to the submission. Storage errors are
// logged, never returned: the helpdesk side has already happened.
type recorder struct {
	store ResultStore
	notes Notifier
}

func (r recorder) success(ctx context.Context, submissionID string, vendor helpdesk.Vendor, c helpdesk.Created) {
	for _, m := range c.Meta {
		if err := r.store.PersistResultKey(ctx, submissionID, m.Key, m.Value); err != nil {
			logger.Log.Error("persist result key failed",
				zap.String("submission_id", submissionID),
				zap.String("key", m.Key),
				zap.Error(err))
		}
	}

	r.note(ctx, submissionID, vendor.SuccessNote(c), model.NoteSuccess)
}

func (r recorder) failure(ctx context.Context, submissionID string, e *Error) {
	r.note(ctx, submissionID, e.Note(), model.NoteError)
}

func (r recorder) note(ctx context.Context, submissionID, text string, kind model.NoteKind) {
	if err := r.notes.AppendNote(ctx, submissionID, text, kind); err != nil {
		logger.Log.Error("append note failed",
			zap.String("submission_id", submissionID),
			zap.String("kind", kind.String()),
			zap.Error(err))
	}
}
