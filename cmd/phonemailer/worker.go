package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/phone-mailer/internal/kafka/consumer"
	"github.com/example/phone-mailer/internal/kafka/producer"
	kafkapublisher "github.com/example/phone-mailer/internal/kafka/publisher"
	"github.com/example/phone-mailer/internal/logger"
	"github.com/example/phone-mailer/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume business events from Kafka and run the hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, "worker")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.ValidateWorker(); err != nil {
				return err
			}
			log := a.log

			prod, err := producer.New(a.cfg.Kafka.Brokers, logger.Component(log, "kafka-producer"))
			if err != nil {
				return err
			}
			defer func() {
				if err := prod.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close kafka producer")
				}
			}()

			cons, err := consumer.New(a.cfg.Kafka.Brokers, a.cfg.Kafka.ConsumerGroup, logger.Component(log, "kafka-consumer"))
			if err != nil {
				return err
			}
			defer func() {
				if err := cons.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close kafka consumer")
				}
			}()

			statusPublisher := kafkapublisher.NewStatusPublisher(prod, a.cfg.Kafka.StatusTopic, logger.Component(log, "status-publisher"))
			if statusPublisher == nil {
				return errors.New("failed to create status publisher")
			}

			engine, err := worker.NewEngine(worker.Config{
				MsgMaxBytes:       a.cfg.Kafka.MsgMaxBytes,
				WorkerConcurrency: a.cfg.Kafka.WorkerConcurrency,
			}, worker.Dependencies{
				Hooks:           a.hooks,
				StatusPublisher: statusPublisher,
				Logger:          log,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				if err := cons.Consume(ctx, []string{a.cfg.Kafka.EventsTopic}, worker.KafkaHandler(engine, cons)); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- err
				}
				close(errCh)
			}()

			log.Info().Str("events_topic", a.cfg.Kafka.EventsTopic).Msg("event worker started")

			var runErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case runErr = <-errCh:
				if runErr != nil {
					log.Error().Err(runErr).Msg("consumer terminated with error")
				}
			}

			waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := engine.Wait(waitCtx); err != nil {
				log.Warn().Err(err).Msg("in-flight events did not finish before shutdown")
			}
			return runErr
		},
	}
}
