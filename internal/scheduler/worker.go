package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nemt_portal_backend/platform/config"
	"nemt_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ErrPermanent marks an export failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent export failure")

// SignatureExporter delivers one signature to the export webhook.
type SignatureExporter interface {
	Export(ctx context.Context, signatureID string) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	exporter SignatureExporter
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, exporter SignatureExporter, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		exporter: exporter,
		log:      log,
	}

	mux.HandleFunc(TaskSignatureExport, w.handleSignatureExport)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSignatureExport(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSignatureExportPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	signatureID := strings.TrimSpace(payload.SignatureID)
	if signatureID == "" {
		return fmt.Errorf("signature export without signature id: %w", asynq.SkipRetry)
	}

	log := w.log.With("signature_id", signatureID, "requested_by", payload.RequestedBy)
	if err := w.exporter.Export(ctx, signatureID); err != nil {
		if errors.Is(err, ErrPermanent) {
			log.Warn("signature export dropped", "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Warn("signature export failed, will retry", "error", err)
		return err
	}

	log.Info("signature exported")
	return nil
}
