// Package scheduler runs the background jobs of the sales desk: follow-up
// reminders, outbox dispatch, and stale-pool escalation, on asynq over redis.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"salesdesk_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueFollowUpSweep schedules a due-follow-up scan at runAt.
func (c *Client) EnqueueFollowUpSweep(ctx context.Context, payload FollowUpSweepPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewFollowUpSweepTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// EnqueueOutboxDispatch asks a worker to drain the notification outbox now.
func (c *Client) EnqueueOutboxDispatch(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewOutboxDispatchTask(), asynq.Queue(c.queue))
	return err
}

// EnqueueStalePoolSweep schedules a stale-pool escalation scan at runAt.
func (c *Client) EnqueueStalePoolSweep(ctx context.Context, payload StalePoolSweepPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewStalePoolSweepTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
