package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"
	JobEmail   = "email"

	// MaxAttempts is how many times a job runs before it is dead-lettered.
	MaxAttempts = 3
)

// ErrPermanent marks a failure that retrying cannot fix (bad payload).
var ErrPermanent = errors.New("permanent job failure")

// Queue is the subset of the Redis client used by the dispatcher, the pool,
// the retry scheduler and the DLQ. *redis.Client satisfies it.
type Queue interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes the payload of one job type.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	q Queue
}

func NewDispatcher(q Queue) *Dispatcher {
	return &Dispatcher{q: q}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{ID: uuid.NewString(), Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.q.LPush(ctx, queue, encoded).Err()
}

// Pool consumes job queues with a fixed number of goroutines.
type Pool struct {
	q        Queue
	handlers map[string]Handler
	now      func() time.Time
}

// NewPool maps job types to their handlers.
func NewPool(q Queue, handlers map[string]Handler) *Pool {
	return &Pool{q: q, handlers: handlers, now: time.Now}
}

// Start launches numWorkers goroutines consuming the email queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	queues := []string{QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := p.q.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		deadLetter(ctx, p.q, queue, Job{Type: "unknown", Payload: json.RawMessage(raw)}, "invalid job envelope: "+err.Error())
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		deadLetter(ctx, p.q, queue, job, "no handler for job type")
		return
	}

	err := h.Process(ctx, job.Payload)
	job.Attempts++
	if err == nil {
		log.Debug().Str("type", job.Type).Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("job done")
		return
	}

	if errors.Is(err, ErrPermanent) || job.Attempts >= MaxAttempts {
		deadLetter(ctx, p.q, queue, job, err.Error())
		return
	}

	at := p.now().Add(retryBackoff(job.Attempts))
	if serr := scheduleRetry(ctx, p.q, queue, job, at); serr != nil {
		log.Error().Err(serr).Str("job_id", job.ID).Msg("failed to schedule retry, moving to DLQ")
		deadLetter(ctx, p.q, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).
		Str("type", job.Type).
		Str("job_id", job.ID).
		Int("attempt", job.Attempts).
		Time("retry_at", at).
		Msg("job failed, retry scheduled")
}
