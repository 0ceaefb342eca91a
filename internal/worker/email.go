package worker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"

	"estore/internal/mailer"
	"estore/internal/queue"
)

// EmailWorker renders and sends transactional order email.
type EmailWorker struct {
	Mailer *mailer.Mailer
}

// decodeEmailJob validates job shape; malformed payloads are dropped rather
// than retried, since redelivery cannot repair them.
func decodeEmailJob(body []byte) (queue.EmailJob, error) {
	var job queue.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		zlog.Warn().Err(err).Msg("dropping undecodable email job")
		return job, queue.ErrDiscard
	}
	if job.To == "" || job.Order == nil {
		zlog.Warn().Str("to", job.To).Msg("dropping email job with missing fields")
		return job, queue.ErrDiscard
	}
	return job, nil
}

// HandleConfirmation sends the order-confirmation email for one job.
func (w *EmailWorker) HandleConfirmation(_ context.Context, body []byte, _ amqp.Table) error {
	job, err := decodeEmailJob(body)
	if err != nil {
		return err
	}

	subject := mailer.OrderConfirmationSubject(job.Order.OrderNumber)
	if err := w.Mailer.Send(job.To, subject, mailer.OrderConfirmationBody(job.Order)); err != nil {
		return err
	}

	zlog.Info().Int64("orderNumber", job.Order.OrderNumber).Msg("confirmation email sent")
	return nil
}

// HandleStatusUpdate sends the status-change email for one job.
func (w *EmailWorker) HandleStatusUpdate(_ context.Context, body []byte, _ amqp.Table) error {
	job, err := decodeEmailJob(body)
	if err != nil {
		return err
	}

	status := string(job.Order.Status)
	subject := mailer.OrderStatusSubject(job.Order.OrderNumber, status)
	if err := w.Mailer.Send(job.To, subject, mailer.OrderStatusBody(job.Order, status)); err != nil {
		return err
	}

	zlog.Info().Int64("orderNumber", job.Order.OrderNumber).Str("status", status).Msg("status email sent")
	return nil
}
