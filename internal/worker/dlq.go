package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces the dead-letter list of each work queue: dlq:jobs:email.
const DLQPrefix = "dlq:"

// DLQEntry is what an operator finds in the dead-letter list. Payload is the
// job body as received, or a JSON string when the body was not valid JSON.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	JobID    string          `json:"job_id,omitempty"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

// deadLetter parks job in the dead-letter list of queue. Push failures are
// logged; the job is lost in that case, which the log line records.
func deadLetter(ctx context.Context, q Queue, queue string, job Job, reason string) {
	if !json.Valid(job.Payload) {
		job.Payload, _ = json.Marshal(string(job.Payload))
	}
	data, err := json.Marshal(DLQEntry{
		Queue:    queue,
		JobID:    job.ID,
		Type:     job.Type,
		Payload:  job.Payload,
		Reason:   reason,
		Attempts: job.Attempts,
		FailedAt: time.Now().UTC(),
	})
	if err == nil {
		err = q.LPush(ctx, DLQPrefix+queue, data).Err()
	}
	l := log.With().Str("queue", queue).Str("job_id", job.ID).Str("type", job.Type).Logger()
	if err != nil {
		l.Error().Err(err).Str("reason", reason).Msg("dlq: job dropped")
		return
	}
	l.Warn().Int("attempts", job.Attempts).Str("reason", reason).Msg("dlq: job dead-lettered")
}

// DLQLength reports the backlog of the dead-letter list for queue.
func DLQLength(ctx context.Context, q Queue, queue string) (int64, error) {
	return q.LLen(ctx, DLQPrefix+queue).Result()
}
