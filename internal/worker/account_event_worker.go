package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"gopher-auth/internal/model"
	"gopher-auth/internal/platform/rabbitmq"
)

type AccountEventStore interface {
	Create(ctx context.Context, event *model.AccountEvent) error
}

// AccountEventWorker consumes account events and persists them as audit rows.
type AccountEventWorker struct {
	conn      *amqp.Connection
	store     AccountEventStore
	queueName string
	logger    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAccountEventWorker(conn *amqp.Connection, store AccountEventStore, queueName string, logger zerolog.Logger) *AccountEventWorker {
	return &AccountEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger.With().Str("component", "account_event_worker").Logger(),
	}
}

func (w *AccountEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.consume(workerCtx, deliveries)
	}()

	return nil
}

func (w *AccountEventWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := w.handle(ctx, d.Body); err != nil {
				w.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("drop account event")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (w *AccountEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.AccountEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode account event failed: %w", err)
	}
	if event.ID == "" || event.Type == "" || event.UserID == "" {
		return errors.New("account event missing id, type or user_id")
	}
	return w.store.Create(ctx, &event)
}

func (w *AccountEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
