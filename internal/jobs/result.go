package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultStatus is the three-state polling contract mirrored from the
// original source's dramatiq Results backend (done/pending/timeout).
type ResultStatus string

const (
	ResultDone    ResultStatus = "done"
	ResultPending ResultStatus = "pending"
	ResultTimeout ResultStatus = "timeout"
)

const resultTTL = 24 * time.Hour

// ResultBackend stores and retrieves terminal job results.
type ResultBackend struct {
	rdb *redis.Client
}

// NewResultBackend wraps rdb.
func NewResultBackend(rdb *redis.Client) *ResultBackend {
	return &ResultBackend{rdb: rdb}
}

func resultKey(jobID string) string { return "result:" + jobID }

// Store records job's terminal result.
func (b *ResultBackend) Store(ctx context.Context, jobID string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("jobs: encode result: %w", err)
	}
	return b.rdb.Set(ctx, resultKey(jobID), data, resultTTL).Err()
}

// Get polls once for jobID's result without blocking.
func (b *ResultBackend) Get(ctx context.Context, jobID string, out any) (ResultStatus, error) {
	data, err := b.rdb.Get(ctx, resultKey(jobID)).Result()
	if err == redis.Nil {
		return ResultPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("jobs: get result: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(data), out); err != nil {
			return "", fmt.Errorf("jobs: decode result: %w", err)
		}
	}
	return ResultDone, nil
}

// Wait polls for jobID's result until it appears or timeout elapses,
// returning ResultTimeout if neither done nor cancelled.
func (b *ResultBackend) Wait(ctx context.Context, jobID string, timeout time.Duration, out any) (ResultStatus, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 200 * time.Millisecond
	for {
		status, err := b.Get(ctx, jobID, out)
		if err != nil {
			return "", err
		}
		if status == ResultDone {
			return ResultDone, nil
		}
		if time.Now().After(deadline) {
			return ResultTimeout, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
