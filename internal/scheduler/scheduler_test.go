package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type testConfig struct {
	redisURL string
}

func (c testConfig) GetRedisURL() string       { return c.redisURL }
func (c testConfig) GetRedisTLSInsecure() bool { return false }
func (c testConfig) GetAsynqQueueName() string { return "test" }
func (c testConfig) GetAsynqConcurrency() int  { return 1 }

func TestFollowUpSweepPayloadRoundTrip(t *testing.T) {
	task, err := NewFollowUpSweepTask(FollowUpSweepPayload{BatchSize: 25})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskFollowUpSweep {
		t.Errorf("unexpected task type %q", task.Type())
	}

	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.BatchSize != 25 {
		t.Errorf("batch size mangled: %d", payload.BatchSize)
	}
}

func TestStalePoolSweepPayloadRoundTrip(t *testing.T) {
	task, err := NewStalePoolSweepTask(StalePoolSweepPayload{BatchSize: 10})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	payload, err := ParseStalePoolSweepPayload(task)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.BatchSize != 10 {
		t.Errorf("batch size mangled: %d", payload.BatchSize)
	}
}

func TestClientEnqueuesAgainstRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueOutboxDispatch(ctx); err != nil {
		t.Fatalf("enqueue outbox dispatch: %v", err)
	}
	if err := client.EnqueueFollowUpSweep(ctx, FollowUpSweepPayload{BatchSize: 5}, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("enqueue follow-up sweep: %v", err)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}
