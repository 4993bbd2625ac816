/**
 * Completion Notifier
 *
 * Publishes terminal run status on a Redis channel so the capturing client
 * learns about finished calibrations without polling.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/overlens/calibration-worker/internal/calibration"
	"github.com/overlens/calibration-worker/internal/logging"
)

// CompletionEvent is the published payload
type CompletionEvent struct {
	JobID             string             `json:"jobId"`
	ApplicationID     string             `json:"applicationId"`
	Status            calibration.Status `json:"status"`
	RegionCount       int                `json:"regionCount"`
	AverageConfidence float64            `json:"averageConfidence"`
}

// Notifier publishes completion events over Redis pub/sub
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *logging.Logger
}

// NewNotifier creates a notifier publishing on the given channel
func NewNotifier(redisURL, channel string) (*Notifier, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &Notifier{
		client:  redis.NewClient(opt),
		channel: channel,
		logger:  logging.NewLogger("Notifier"),
	}, nil
}

// PublishResult publishes the terminal status of one run
func (n *Notifier) PublishResult(ctx context.Context, jobID string, result *calibration.CalibrationResult) error {
	event := CompletionEvent{
		JobID:         jobID,
		ApplicationID: result.ApplicationID,
		Status:        result.Status,
	}
	if result.CandidateMetrics != nil {
		event.RegionCount = result.CandidateMetrics.RegionCount
		event.AverageConfidence = result.CandidateMetrics.AverageConfidence
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish completion event: %w", err)
	}

	n.logger.Debug("Completion event published",
		"jobId", jobID,
		"status", result.Status)
	return nil
}

// Close closes the Redis connection
func (n *Notifier) Close() error {
	return n.client.Close()
}
