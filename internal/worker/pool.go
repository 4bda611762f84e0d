package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// Config names the broker and queues a Pool works with.
type Config struct {
	URL          string
	RequestQueue string
	ResultQueue  string
	Workers      int
}

// Pool runs a fixed number of consumers, each on its own channel of a shared
// connection.
type Pool struct {
	cfg       Config
	processor *Processor
	logger    *slog.Logger
}

// NewPool creates a consumer pool. Workers defaults to 1.
func NewPool(cfg Config, processor *Processor, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pool{cfg: cfg, processor: processor, logger: logger}
}

// Run dials the broker and consumes until ctx is cancelled or a consumer
// fails. It returns nil on cancellation.
func (p *Pool) Run(ctx context.Context) error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("dialling rabbitmq: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, p.cfg.Workers)
	for i := range p.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.consume(ctx, conn, i+1); err != nil {
				errs <- err
				cancel()
			}
		}()
	}
	p.logger.Info("worker pool started",
		"workers", p.cfg.Workers,
		"request_queue", p.cfg.RequestQueue,
		"result_queue", p.cfg.ResultQueue,
	)

	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}
	p.logger.Info("worker pool stopped")
	return nil
}

func (p *Pool) consume(ctx context.Context, conn *amqp.Connection, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("worker %d: opening channel: %w", id, err)
	}
	defer ch.Close()

	for _, q := range []string{p.cfg.RequestQueue, p.cfg.ResultQueue} {
		if _, err := ch.QueueDeclare(
			q,     // name
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("worker %d: declaring queue %q: %w", id, q, err)
		}
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("worker %d: setting qos: %w", id, err)
	}

	tag := fmt.Sprintf("keymatch-worker-%d", id)
	msgs, err := ch.Consume(
		p.cfg.RequestQueue,
		tag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d: consuming: %w", id, err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("worker %d: delivery channel closed", id)
			}
			p.handle(ctx, ch, d, id)
		}
	}
}

// handle processes one delivery. The request is acked once its result is
// published; a failed publish requeues it.
func (p *Pool) handle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery, id int) {
	res := p.processor.Process(ctx, d.Body)
	if res.RequestID == "" {
		res.RequestID = d.CorrelationId
	}

	body, err := json.Marshal(res)
	if err != nil {
		p.logger.Error("encoding result", "worker", id, "error", err)
		_ = d.Nack(false, false)
		return
	}

	err = ch.Publish("", p.cfg.ResultQueue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: res.RequestID,
		Timestamp:     res.Timestamp,
		Body:          body,
	})
	if err != nil {
		p.logger.Error("publishing result", "worker", id, "request_id", res.RequestID, "error", err)
		_ = d.Nack(false, true)
		return
	}
	if err := d.Ack(false); err != nil {
		p.logger.Warn("acking request", "worker", id, "request_id", res.RequestID, "error", err)
	}
}
