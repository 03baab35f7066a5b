package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamTTL is refreshed on every append, mirroring the original source's
// STREAM_TTL_SECONDS=3600 on its Redis Streams event log.
const StreamTTL = time.Hour

// StreamEvent is one entry in a job's event log.
type StreamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StreamLog publishes and replays a per-job append-only event log backed by
// a Redis Stream, used to carry generation tokens out to SSE subscribers
// without blocking the worker on the HTTP connection.
type StreamLog struct {
	rdb *redis.Client
}

// NewStreamLog wraps rdb.
func NewStreamLog(rdb *redis.Client) *StreamLog {
	return &StreamLog{rdb: rdb}
}

func streamKey(jobID string) string { return "stream:" + jobID }

// Publish appends an event of eventType carrying data, refreshing the
// stream's TTL so it outlives the job by up to an hour for late
// subscribers.
func (s *StreamLog) Publish(ctx context.Context, jobID, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("jobs: encode stream event: %w", err)
	}
	key := streamKey(jobID)
	if err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{"type": eventType, "data": string(payload)},
	}).Err(); err != nil {
		return fmt.Errorf("jobs: xadd: %w", err)
	}
	return s.rdb.Expire(ctx, key, StreamTTL).Err()
}

// Read does one blocking long-poll read of up to maxEvents new entries
// after lastID (use "0" to read from the start, "$" to read only new
// entries), waiting up to blockFor for at least one entry. Returns the new
// last-seen id alongside the events so the caller can resume.
func (s *StreamLog) Read(ctx context.Context, jobID, lastID string, maxEvents int64, blockFor time.Duration) ([]StreamEvent, string, error) {
	res, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{streamKey(jobID), lastID},
		Count:   maxEvents,
		Block:   blockFor,
	}).Result()
	if err == redis.Nil {
		return nil, lastID, nil
	}
	if err != nil {
		return nil, lastID, fmt.Errorf("jobs: xread: %w", err)
	}

	var events []StreamEvent
	newLastID := lastID
	for _, stream := range res {
		for _, msg := range stream.Messages {
			eventType, _ := msg.Values["type"].(string)
			dataStr, _ := msg.Values["data"].(string)
			events = append(events, StreamEvent{Type: eventType, Data: json.RawMessage(dataStr)})
			newLastID = msg.ID
		}
	}
	return events, newLastID, nil
}
