package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sitesafe/backend/pkg/mailer"
	"github.com/sitesafe/backend/pkg/queue"
)

// InviteProcessor consumes invite email jobs from the Redis queue and delivers
// them via SMTP. Failed jobs are retried; after exhausting retries they land
// on the dead-letter queue.
type InviteProcessor struct {
	queue  *queue.Queue
	mailer *mailer.Mailer
	logger *zap.Logger
}

// NewInviteProcessor creates an invite email processor.
func NewInviteProcessor(q *queue.Queue, m *mailer.Mailer, logger *zap.Logger) *InviteProcessor {
	return &InviteProcessor{queue: q, mailer: m, logger: logger}
}

// Run consumes jobs until ctx is cancelled.
func (p *InviteProcessor) Run(ctx context.Context) error {
	p.logger.Info("invite processor started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("invite processor stopping")
			return ctx.Err()
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := p.process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt), zap.Error(err))
			if retryErr := p.queue.Retry(ctx, job); retryErr != nil {
				p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(retryErr))
			}
			continue
		}
		p.logger.Info("job processed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	}
}

func (p *InviteProcessor) process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeInviteEmail:
		var payload queue.InviteEmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sendInvite(ctx, payload)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (p *InviteProcessor) sendInvite(_ context.Context, payload queue.InviteEmailPayload) error {
	subject := fmt.Sprintf("You have been invited to join %s", payload.CompanyName)
	body := fmt.Sprintf(
		"%s invited you to join as %s.\n\n"+
			"Use this invite token to accept after signing in:\n\n    %s\n\n"+
			"The invite expires on %s.\n",
		payload.CompanyName, payload.Role, payload.Token,
		payload.ExpiresAt.Format("Mon, 02 Jan 2006 15:04 MST"))
	if err := p.mailer.Send(payload.RecipientEmail, subject, body); err != nil {
		return fmt.Errorf("send invite mail: %w", err)
	}
	return nil
}
