package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmehdipour/formdesk/internal/kafka"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/model"
	"github.com/jmehdipour/formdesk/internal/service/intake"
	"go.uber.org/zap"
)

// Source is the part of the Kafka consumer the worker needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Processor runs the feeds of a stored submission.
type Processor interface {
	ProcessStored(ctx context.Context, submissionID string) ([]intake.FeedResult, error)
}

// Submissions:
// - fetches submission envelopes from Kafka,
// - runs every active feed of the submission once,
// - commits the offset whatever the outcome.
type Submissions struct {
	Consumer  Source
	Processor Processor

	Workers int // number of goroutines processing messages
}

func NewSubmissions(consumer Source, proc Processor) *Submissions {
	return &Submissions{
		Consumer:  consumer,
		Processor: proc,
		Workers:   8,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *Submissions) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 8
	}

	msgCh := make(chan kafka.Message, w.Workers*2)

	go func() {
		defer close(msgCh)
		for {
			m, err := w.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Log.Warn("kafka fetch failed", zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				w.processOne(ctx, m)
			}
		}()
	}

	wg.Wait()
	return nil
}

func (w *Submissions) processOne(ctx context.Context, m kafka.Message) {
	defer func() {
		// a failed feed is noted on the submission and never redelivered
		if err := w.Consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
			logger.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}()

	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.SubmissionID == "" {
		logger.Log.Warn("dropping bad envelope", zap.Int64("offset", m.Offset), zap.ByteString("value", m.Value), zap.Error(err))
		return
	}

	log := logger.Log.With(zap.String("submission_id", env.SubmissionID), zap.Int64("form_id", env.FormID))

	results, err := w.Processor.ProcessStored(ctx, env.SubmissionID)
	if err != nil {
		log.Error("process submission failed", zap.Error(err))
		return
	}

	for _, r := range results {
		log.Info("feed processed",
			zap.Int64("feed_id", r.FeedID),
			zap.String("outcome", r.Outcome.String()),
			zap.String("error_kind", r.ErrorKind),
			zap.String("conversation", r.Conversation))
	}
}
