package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list generation jobs are pushed to.
const DefaultQueueKey = "bannerstudio:jobs"

// Job asks a worker to process a design or an iteration.
type Job struct {
	DesignID    string `json:"designId"`
	IsIteration bool   `json:"isIteration"`
}

// JobQueue is a FIFO of generation jobs on a Redis list.
type JobQueue struct {
	client *redis.Client
	key    string
}

func NewJobQueue(client *redis.Client, key string) *JobQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &JobQueue{client: client, key: key}
}

func (q *JobQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait for the next job. It returns (nil, nil) on timeout.
func (q *JobQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	res, err := q.client.BLPop(ctx, wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job %q: %w", res[1], err)
	}
	return &job, nil
}

func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Worker pops jobs and runs them through the Designer one at a time.
type Worker struct {
	Queue    *JobQueue
	Designer *Designer
	// Poll bounds each BLPOP so shutdown is noticed promptly.
	Poll time.Duration
}

func NewWorker(queue *JobQueue, designer *Designer) *Worker {
	return &Worker{Queue: queue, Designer: designer, Poll: 5 * time.Second}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log := w.Designer.log().With().Str("worker", w.Queue.key).Logger()
	log.Info().Msg("Generation worker started")
	defer log.Info().Msg("Generation worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		job, err := w.Queue.Dequeue(ctx, w.Poll)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("Failed to dequeue job")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.Handle(ctx, *job)
	}
}

// Handle runs one job. Results are recorded on the records themselves.
func (w *Worker) Handle(ctx context.Context, job Job) *ProcessResult {
	if job.IsIteration {
		return w.Designer.ProcessIteration(ctx, job.DesignID)
	}
	return w.Designer.ProcessDesign(ctx, job.DesignID)
}
