package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"estore/internal/config"
	"estore/internal/database"
	"estore/internal/notify"
	"estore/internal/queue"
	"estore/internal/storage"
	"estore/internal/worker"
)

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		zlog.Fatal().Err(err).Msg("mongodb connect failed")
	}
	db := client.Database(config.AppEnv.DBName)

	q, err := queue.Dial(config.AppEnv.AMQPURL, config.AppEnv.QueueConnectRetries, config.AppEnv.QueueConnectDelay)
	if err != nil {
		zlog.Fatal().Err(err).Msg("queue connect failed")
	}
	defer q.Close()

	store, err := storage.New(storage.Options{
		Endpoint:  config.AppEnv.StorageEndpoint,
		AccessKey: config.AppEnv.StorageAccessKey,
		SecretKey: config.AppEnv.StorageSecretKey,
		Bucket:    config.AppEnv.StorageBucket,
		PublicURL: config.AppEnv.StoragePublicURL,
		UseSSL:    config.AppEnv.StorageUseSSL,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("object storage connect failed")
	}

	w := &worker.ImageWorker{
		DB:       db,
		Store:    store,
		Notifier: notify.New(config.AppEnv.InternalAPIURL, config.AppEnv.WorkerSecret),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info().Str("queue", queue.ImageProcessingQueue).Msg("image worker started")
	if err := q.Consume(ctx, queue.ImageProcessingQueue, w.Handle); err != nil && ctx.Err() == nil {
		zlog.Fatal().Err(err).Msg("image consumer stopped")
	}
	zlog.Info().Msg("image worker shut down")
}
