package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"nemt_portal_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// signatureExportUniqueFor blocks a second export of the same signature while
// the first one is still queued.
const signatureExportUniqueFor = 10 * time.Minute

const signatureExportMaxRetry = 8

type Client struct {
	client *asynq.Client
	queue  string
}

type SignatureExportScheduler interface {
	EnqueueSignatureExport(ctx context.Context, payload SignatureExportPayload) error
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

// EnqueueSignatureExport queues an export. ErrDuplicateExport is returned
// while an export of the same signature is already pending.
func (c *Client) EnqueueSignatureExport(ctx context.Context, payload SignatureExportPayload) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("signature export queue not configured")
	}

	task, err := NewSignatureExportTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(signatureExportMaxRetry),
		asynq.Unique(signatureExportUniqueFor),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrDuplicateExport
	}
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
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
