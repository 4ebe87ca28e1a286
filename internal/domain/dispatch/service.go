package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nqn-field/notifica/pkg/metrics"
	"github.com/nqn-field/notifica/pkg/sms"
)

// batchSize caps how many messages one drain pass pulls from the outbox
const batchSize = 100

// Service drains the SMS outbox through the configured sender
type Service struct {
	repo   OutboxRepository
	sender sms.Sender
	logger *slog.Logger
}

// NewService creates a new dispatch service
func NewService(repo OutboxRepository, sender sms.Sender, logger *slog.Logger) *Service {
	return &Service{repo: repo, sender: sender, logger: logger}
}

// EnqueueCompletionNotice queues the "your notification was delivered" SMS
// for a completed capture. Enqueue failures are logged, not returned: SMS is
// best-effort and must never unwind a committed capture.
func (s *Service) EnqueueCompletionNotice(ctx context.Context, notificationID uuid.UUID, phone, citizenName, token, baseURL string) {
	if phone == "" {
		return
	}

	body := fmt.Sprintf(
		"EPEN: Sr/a %s, su notificacion fue entregada. Verifique en %s/verificar/%s",
		citizenName, baseURL, token,
	)

	msg := &OutboxMessage{
		NotificationID: notificationID,
		Phone:          phone,
		Body:           body,
	}
	if err := s.repo.Enqueue(ctx, msg); err != nil {
		s.logger.Error("failed to enqueue completion sms",
			slog.String("notification_id", notificationID.String()),
			slog.Any("error", err),
		)
	}
}

// DispatchQueued sends every retryable message in the outbox. Called by the
// cron scheduler and after each capture.
func (s *Service) DispatchQueued(ctx context.Context) (sent, failed int, err error) {
	messages, err := s.repo.ListQueued(ctx, batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, msg := range messages {
		sendErr := s.sender.Send(ctx, &sms.Message{To: msg.Phone, Body: msg.Body})
		if sendErr != nil {
			failed++
			metrics.SMSDispatchTotal.WithLabelValues("failed").Inc()
			if markErr := s.repo.MarkFailed(ctx, msg.ID, sendErr.Error()); markErr != nil {
				s.logger.Error("failed to record sms failure",
					slog.String("outbox_id", msg.ID.String()),
					slog.Any("error", markErr),
				)
			}
			continue
		}

		sent++
		metrics.SMSDispatchTotal.WithLabelValues("sent").Inc()
		if markErr := s.repo.MarkSent(ctx, msg.ID); markErr != nil {
			s.logger.Error("failed to record sms success",
				slog.String("outbox_id", msg.ID.String()),
				slog.Any("error", markErr),
			)
		}
	}

	return sent, failed, nil
}
