package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/nudge/internal/domain"
	"github.com/felixgeelhaar/nudge/internal/session"
)

// JobHandler evaluates one submission job
type JobHandler func(ctx context.Context, job *SubmissionJob) (*domain.SubmissionResult, error)

// SessionHandler evaluates jobs through the session service
func SessionHandler(svc session.SessionService) JobHandler {
	return func(ctx context.Context, job *SubmissionJob) (*domain.SubmissionResult, error) {
		return svc.Submit(ctx, job.SessionID, job.Code)
	}
}

// Worker consumes submission jobs and publishes their feedback
type Worker struct {
	conn       *Connection
	handler    JobHandler
	producer   *Producer
	logger     *slog.Logger
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Workers  int           // concurrent workers
	Prefetch int           // prefetch count per channel
	Timeout  time.Duration // per-job evaluation timeout
}

// DefaultWorkerConfig returns sensible defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Workers:  3,
		Prefetch: 1,
		Timeout:  60 * time.Second,
	}
}

func (cfg WorkerConfig) withDefaults() WorkerConfig {
	def := DefaultWorkerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return cfg
}

// NewWorker creates a new submission worker
func NewWorker(conn *Connection, handler JobHandler, cfg WorkerConfig) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		conn:     conn,
		handler:  handler,
		producer: NewProducer(conn),
		logger:   conn.logger,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.Timeout,
	}
}

// Start begins consuming messages
func (w *Worker) Start(ctx context.Context) error {
	ctx, w.cancelFunc = context.WithCancel(ctx)

	ch := w.conn.Channel()
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		SubmissionQueueName,
		"",    // consumer tag (auto-generated)
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("starting submission worker", "workers", w.workers, "prefetch", w.prefetch)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i, msgs)
	}
	return nil
}

func (w *Worker) run(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Info("message channel closed", "worker_id", id)
				return
			}
			w.processMessage(ctx, id, msg)
		}
	}
}

// processMessage handles a single delivery. Every well-formed job is
// acknowledged and answered on the feedback queue, whatever its outcome.
func (w *Worker) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var job SubmissionJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.SessionID == "" {
		w.logger.Error("rejecting malformed job", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result, err := w.handler(jobCtx, &job)
	out := &FeedbackMessage{
		Kind:      KindJobResult,
		JobID:     job.ID,
		SessionID: job.SessionID,
		Status:    StatusCompleted,
		Result:    result,
		Duration:  time.Since(start),
	}
	switch {
	case errors.Is(err, session.ErrStaleSubmission):
		out.Status = StatusStale
	case err != nil:
		out.Status = StatusFailed
		out.Error = err.Error()
		w.logger.Error("job processing failed", "worker_id", workerID, "job_id", job.ID, "error", err)
	default:
		w.logger.Debug("job completed", "worker_id", workerID, "job_id", job.ID, "duration", out.Duration)
	}

	if err := w.producer.PublishFeedback(ctx, out); err != nil {
		w.logger.Error("failed to publish feedback", "worker_id", workerID, "job_id", job.ID, "error", err)
	}
	if err := msg.Ack(false); err != nil {
		w.logger.Error("failed to ack message", "worker_id", workerID, "job_id", job.ID, "error", err)
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
}

// FeedbackHandler handles a feedback message for a specific job
type FeedbackHandler func(msg *FeedbackMessage)

// FeedbackConsumer routes job results from the feedback queue to subscribers
type FeedbackConsumer struct {
	conn       *Connection
	handlers   map[string]FeedbackHandler
	handlersMu sync.RWMutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewFeedbackConsumer creates a feedback consumer
func NewFeedbackConsumer(conn *Connection) *FeedbackConsumer {
	return &FeedbackConsumer{
		conn:     conn,
		handlers: make(map[string]FeedbackHandler),
	}
}

// Subscribe registers a handler for the result of a job
func (fc *FeedbackConsumer) Subscribe(jobID string, handler FeedbackHandler) {
	fc.handlersMu.Lock()
	defer fc.handlersMu.Unlock()
	fc.handlers[jobID] = handler
}

// Unsubscribe removes a handler
func (fc *FeedbackConsumer) Unsubscribe(jobID string) {
	fc.handlersMu.Lock()
	defer fc.handlersMu.Unlock()
	delete(fc.handlers, jobID)
}

// Start begins consuming feedback
func (fc *FeedbackConsumer) Start(ctx context.Context) error {
	ctx, fc.cancelFunc = context.WithCancel(ctx)

	msgs, err := fc.conn.Channel().Consume(
		FeedbackQueueName,
		"",
		true, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start feedback consumer: %w", err)
	}

	fc.wg.Add(1)
	go fc.consume(ctx, msgs)
	return nil
}

func (fc *FeedbackConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer fc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			fc.dispatch(msg.Body)
		}
	}
}

func (fc *FeedbackConsumer) dispatch(body []byte) {
	var msg FeedbackMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		fc.conn.logger.Error("failed to unmarshal feedback", "error", err)
		return
	}
	if msg.Kind != KindJobResult {
		return
	}

	fc.handlersMu.RLock()
	handler, ok := fc.handlers[msg.JobID.String()]
	fc.handlersMu.RUnlock()
	if ok {
		handler(&msg)
	}
}

// Stop stops the feedback consumer
func (fc *FeedbackConsumer) Stop() {
	if fc.cancelFunc != nil {
		fc.cancelFunc()
	}
	fc.wg.Wait()
}

// Client submits jobs and waits for their feedback
type Client struct {
	producer *Producer
	consumer *FeedbackConsumer
}

// NewClient creates a client over a started feedback consumer
func NewClient(conn *Connection, consumer *FeedbackConsumer) *Client {
	return &Client{producer: NewProducer(conn), consumer: consumer}
}

// Submit publishes a job and blocks until its result arrives or ctx ends
func (c *Client) Submit(ctx context.Context, sessionID, code string) (*FeedbackMessage, error) {
	job := NewSubmissionJob(sessionID, code)
	done := make(chan *FeedbackMessage, 1)

	c.consumer.Subscribe(job.ID.String(), func(msg *FeedbackMessage) {
		select {
		case done <- msg:
		default:
		}
	})
	defer c.consumer.Unsubscribe(job.ID.String())

	if err := c.producer.PublishSubmission(ctx, job); err != nil {
		return nil, err
	}

	select {
	case msg := <-done:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
