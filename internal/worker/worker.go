package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/pkg/queue"
)

// Jobs is the part of the job queue the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EmailProcessor delivers queued email jobs through a transport.
type EmailProcessor struct {
	jobs      Jobs
	transport notify.Transport
	logger    *zap.Logger
	backoff   time.Duration
	onSent    func(category string, ok bool)
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(jobs Jobs, transport notify.Transport, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{jobs: jobs, transport: transport, logger: logger, backoff: queue.RetryBackoff}
}

// SetBackoff changes the pause after a failed job or dequeue error.
func (p *EmailProcessor) SetBackoff(d time.Duration) { p.backoff = d }

// OnSent registers a callback invoked after every delivery attempt.
func (p *EmailProcessor) OnSent(fn func(category string, ok bool)) { p.onSent = fn }

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.EmailPayload()
	if err != nil {
		return err
	}
	msg := notify.MessageFromPayload(payload)
	err = p.transport.Send(ctx, msg)
	if p.onSent != nil {
		p.onSent(msg.Category, err == nil)
	}
	if err != nil {
		return fmt.Errorf("send %s email: %w", msg.Category, err)
	}
	p.logger.Info("email delivered",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("to", payload.RecipientEmail),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
