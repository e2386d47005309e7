package worker

// retry.go
// Failed jobs wait in a sorted set per queue (retry:{queue}) scored by the
// Unix time of their next attempt. A background goroutine moves due jobs back
// onto the work queue, unless the circuit breaker guarding the mail relay is open.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"entrepeques/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetryPrefix       = "retry:"
	retryTickInterval = 5 * time.Second
	retryBatchSize    = 50
	retryBaseDelay    = 30 * time.Second
)

// retryBackoff doubles the wait after every failed attempt: 30s, 60s, 120s...
func retryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return retryBaseDelay << (attempts - 1)
}

func scheduleRetry(ctx context.Context, q Queue, queue string, job Job, at time.Time) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.ZAdd(ctx, RetryPrefix+queue, redis.Z{Score: float64(at.Unix()), Member: string(data)}).Err()
}

// StartRetryCron launches the goroutine that re-queues due retries. It stops
// when ctx is cancelled.
func StartRetryCron(ctx context.Context, q Queue, cb *infra.CircuitBreaker, queues ...string) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case now := <-ticker.C:
				for _, queue := range queues {
					promoteDue(ctx, q, cb, queue, now)
				}
			}
		}
	}()
}

// promoteDue moves up to retryBatchSize due jobs back onto queue and returns
// how many were moved.
func promoteDue(ctx context.Context, q Queue, cb *infra.CircuitBreaker, queue string, now time.Time) int {
	// Don't hammer a relay that is known to be down
	if cb != nil && cb.State() == infra.CBOpen {
		log.Debug().Str("queue", queue).Msg("retry_cron: circuit breaker is open, skipping tick")
		return 0
	}

	key := RetryPrefix + queue
	due, err := q.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to read due retries")
		return 0
	}

	moved := 0
	for _, member := range due {
		// Whoever removes the member owns it, so concurrent crons never double-queue.
		n, err := q.ZRem(ctx, key, member).Result()
		if err != nil || n == 0 {
			continue
		}
		if err := q.LPush(ctx, queue, member).Err(); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to re-queue job")
			continue
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("count", moved).Msg("retry_cron: jobs re-queued")
	}
	return moved
}
