package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"medcrm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue = "default"

	expireMaxRetry = 3
	expireTimeout  = 5 * time.Minute
)

var errRedisNotConfigured = errors.New("redis url not configured")

// settings is what both the client and the worker derive from config.
type settings struct {
	redis asynq.RedisClientOpt
	queue string
}

func loadSettings(cfg config.SchedulerConfig) (settings, error) {
	if cfg.GetRedisURL() == "" {
		return settings{}, errRedisNotConfigured
	}
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return settings{}, err
	}
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = defaultQueue
	}
	return settings{redis: opt, queue: queue}, nil
}

// ExpiryEnqueuer schedules an expiry sweep.
type ExpiryEnqueuer interface {
	EnqueueExpireQuotes(ctx context.Context, source string) error
}

// Client enqueues background tasks on Redis.
type Client struct {
	client    *asynq.Client
	queue     string
	uniqueTTL time.Duration
	now       func() time.Time
}

var _ ExpiryEnqueuer = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	s, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}

	uniqueTTL := cfg.GetQuoteExpiryInterval()
	if uniqueTTL <= 0 {
		uniqueTTL = defaultExpiryInterval
	}

	return &Client{
		client:    asynq.NewClient(s.redis),
		queue:     s.queue,
		uniqueTTL: uniqueTTL,
		now:       time.Now,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueExpireQuotes enqueues one sweep. While a sweep is still queued
// within the expiry interval, further calls are no-ops.
func (c *Client) EnqueueExpireQuotes(ctx context.Context, source string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewExpireQuotesTask(ExpireQuotesPayload{RequestedAt: c.now().UTC(), Source: source})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(c.uniqueTTL),
		asynq.MaxRetry(expireMaxRetry),
		asynq.Timeout(expireTimeout),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskExpireQuotes, err)
	}
	return nil
}

// redisClientOpt accepts redis:// and rediss:// URLs. tlsInsecure skips
// certificate checks for managed Redis behind self-signed certificates.
func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	tlsConfig := opt.TLSConfig
	if tlsInsecure {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		} else {
			tlsConfig = tlsConfig.Clone()
		}
		tlsConfig.InsecureSkipVerify = true
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
