/**
 * Queue Consumer for the calibration worker
 *
 * Consumes calibration jobs from the shared Redis queue and drives the
 * calibration pipeline. Stages never retry internally; queue-level retry is
 * reserved for infrastructure faults, so terminal calibration failures ack
 * the task instead of re-queuing it.
 */

package queue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/hibiken/asynq"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/logging"
)

// TaskCalibrationRun is the asynq task type this worker consumes.
const TaskCalibrationRun = "calibration:run"

// JobData represents a calibration job from the queue
type JobData struct {
	JobID         string                 `json:"jobId"`
	ApplicationID string                 `json:"applicationId"`
	Image         string                 `json:"image"` // Base64 encoded PNG or JPEG
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// Consumer handles job consumption from the Redis queue
type Consumer struct {
	client     *asynq.Client
	server     *asynq.Server
	mux        *asynq.ServeMux
	calibrator *calibration.Calibrator
	notifier   *Notifier
	config     *ConsumerConfig
	logger     *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL     string
	Concurrency  int
	Calibrator   *calibration.Calibrator
	Notifier     *Notifier
	RunTimeout   time.Duration
	MaxImageSize int64
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.Calibrator == nil {
		return nil, fmt.Errorf("Calibrator is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("QueueConsumer")

	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				"calibration": 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error",
					"type", task.Type(),
					"error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:     client,
		server:     server,
		mux:        mux,
		calibrator: cfg.Calibrator,
		notifier:   cfg.Notifier,
		config:     cfg,
		logger:     logger,
	}

	mux.HandleFunc(TaskCalibrationRun, consumer.handleCalibrationRun)

	return consumer, nil
}

// Start starts the queue consumer
func (c *Consumer) Start() error {
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("Queue consumer error", "error", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully
func (c *Consumer) Stop() error {
	c.logger.Info("Stopping queue consumer")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	c.logger.Info("Queue consumer stopped")
	return nil
}

// handleCalibrationRun processes one calibration job
func (c *Consumer) handleCalibrationRun(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		// Malformed payloads never become valid on retry; ack and drop.
		c.logger.Error("Calibration job rejected",
			"error", fmt.Sprintf("failed to unmarshal job data: %v", err))
		return nil
	}

	c.logger.Info("Calibration job received",
		"jobId", job.JobID,
		"application", job.ApplicationID,
		"imageSize", len(job.Image))

	sample, err := c.decodeImage(job.Image)
	if err != nil {
		// Malformed payloads never become valid on retry.
		c.logger.Error("Calibration job rejected",
			"jobId", job.JobID,
			"error", err)
		c.publish(ctx, &job, &calibration.CalibrationResult{
			ApplicationID: job.ApplicationID,
			Status:        calibration.StatusFailedOtherError,
		})
		return nil
	}

	timeout := c.config.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := c.calibrator.Calibrate(runCtx, job.ApplicationID, sample)

	c.logger.Info("Calibration job finished",
		"jobId", job.JobID,
		"application", job.ApplicationID,
		"status", result.Status,
		"duration", time.Since(start))

	if result.Status != calibration.StatusSuccess {
		// Terminal calibration failures carry diagnosable reasons; log the
		// full report so operators can see them without the client.
		c.logger.Warn("Calibration report:\n" + calibration.FormatReport(result))
	}

	c.publish(ctx, &job, result)
	return nil
}

func (c *Consumer) decodeImage(encoded string) (image.Image, error) {
	if encoded == "" {
		return nil, fmt.Errorf("job carries no image")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	if c.config.MaxImageSize > 0 && int64(len(data)) > c.config.MaxImageSize {
		return nil, fmt.Errorf("image exceeds maximum size: %d > %d bytes", len(data), c.config.MaxImageSize)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (c *Consumer) publish(ctx context.Context, job *JobData, result *calibration.CalibrationResult) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.PublishResult(ctx, job.JobID, result); err != nil {
		c.logger.Warn("Failed to publish completion event",
			"jobId", job.JobID,
			"error", err)
	}
}
