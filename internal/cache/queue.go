package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IndexJob asks the worker to embed the channels of a saved playlist.
type IndexJob struct {
	PlaylistID   string    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// IndexQueue is the Redis list holding pending IndexJobs.
var IndexQueue = Key("jobs", "embeddings")

// Enqueue pushes a job onto the left of the list.
func Enqueue(ctx context.Context, r *Redis, queue string, job IndexJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks for up to timeout waiting for a job on the right of the
// list. A timeout or a cancelled ctx returns (nil, nil) so the caller can
// loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*IndexJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// [key, value]
	if len(result) < 2 {
		return nil, nil
	}
	return decodeJob(result[1])
}

// Pending returns the queue length.
func Pending(ctx context.Context, r *Redis, queue string) (int64, error) {
	return r.client.LLen(ctx, queue).Result()
}

func decodeJob(raw string) (*IndexJob, error) {
	var job IndexJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	if job.PlaylistID == "" {
		return nil, fmt.Errorf("queue unmarshal: job without playlist id")
	}
	return &job, nil
}
