package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"estore/internal/config"
	"estore/internal/mailer"
	"estore/internal/queue"
	"estore/internal/worker"
)

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.Load()

	q, err := queue.Dial(config.AppEnv.AMQPURL, config.AppEnv.QueueConnectRetries, config.AppEnv.QueueConnectDelay)
	if err != nil {
		zlog.Fatal().Err(err).Msg("queue connect failed")
	}
	defer q.Close()

	w := &worker.EmailWorker{
		Mailer: mailer.New(
			config.AppEnv.SMTPHost,
			config.AppEnv.SMTPPort,
			config.AppEnv.SMTPUser,
			config.AppEnv.SMTPPass,
			config.AppEnv.MailFrom,
		),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() {
		errs <- q.Consume(ctx, queue.OrderEmailQueue, w.HandleConfirmation)
	}()
	go func() {
		errs <- q.Consume(ctx, queue.OrderStatusEmailQueue, w.HandleStatusUpdate)
	}()

	zlog.Info().
		Str("confirmations", queue.OrderEmailQueue).
		Str("statusUpdates", queue.OrderStatusEmailQueue).
		Msg("email worker started")

	if err := <-errs; err != nil && ctx.Err() == nil {
		zlog.Fatal().Err(err).Msg("email consumer stopped")
	}
	zlog.Info().Msg("email worker shut down")
}
