/**
 * AI Vision Client - Ground-Truth Text Extraction Backend
 *
 * Talks to the vision service that provides the independent, higher-trust
 * text detection used to steer calibration. The response payload is
 * unstructured natural-language text that may embed a JSON array of
 * regions; parsing it is the extractor's job, not the client's.
 */

package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	calerrors "github.com/overlens/calibration-worker/internal/errors"
	"github.com/overlens/calibration-worker/internal/logging"
)

// Client handles communication with the AI vision backend
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// ExtractRequest represents a request to extract text regions from an image
type ExtractRequest struct {
	Image    string                 `json:"image"`  // Base64 encoded image
	Format   string                 `json:"format"` // "base64"
	Language string                 `json:"language"`
	Prompt   string                 `json:"prompt"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ExtractResponse represents the backend's response envelope
type ExtractResponse struct {
	Success bool        `json:"success"`
	Data    ExtractData `json:"data"`
	Message string      `json:"message"`
}

// ExtractData contains the model output and metadata
type ExtractData struct {
	Content        string  `json:"content"` // Unstructured model output
	ModelUsed      string  `json:"modelUsed"`
	ProcessingTime int64   `json:"processingTime"` // milliseconds
	Confidence     float64 `json:"confidence"`
}

// NewClient creates a new vision backend client
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.NewLogger("VisionClient"),
	}
}

// ExtractText asks the backend to describe every visible text region in the
// image. The returned string is the raw model output. Transport faults
// (timeout, auth, connection) are returned as typed calibration errors.
func (c *Client) ExtractText(ctx context.Context, imageData []byte, language, prompt string) (string, error) {
	c.logger.Info("Requesting text extraction from vision backend",
		"language", language,
		"imageSize", len(imageData))

	req := &ExtractRequest{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Format:   "base64",
		Language: language,
		Prompt:   prompt,
		Metadata: map[string]interface{}{
			"source":    "calibration-worker",
			"timestamp": time.Now().Unix(),
		},
	}

	endpoint := fmt.Sprintf("%s/v1/vision/extract-regions", c.baseURL)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "calibration-worker")
	httpReq.Header.Set("X-Request-ID", fmt.Sprintf("gt-%d", time.Now().UnixNano()))
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return "", calerrors.NewNetworkTimeoutError("", c.timeout, err)
		}
		return "", calerrors.NewAIExtractionError("", fmt.Errorf("request to vision backend failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", calerrors.NewAIExtractionError("", fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", calerrors.NewAuthFailedError("", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", calerrors.NewAIExtractionError("",
			fmt.Errorf("vision backend returned status %d: %s", resp.StatusCode, string(body)))
	}

	var extractResp ExtractResponse
	if err := json.Unmarshal(body, &extractResp); err != nil {
		return "", calerrors.NewAIExtractionError("", fmt.Errorf("failed to parse response envelope: %w", err))
	}

	if !extractResp.Success {
		return "", calerrors.NewAIExtractionError("",
			fmt.Errorf("vision backend operation failed: %s", extractResp.Message))
	}

	c.logger.Info("Text extraction complete",
		"modelUsed", extractResp.Data.ModelUsed,
		"processingTime", extractResp.Data.ProcessingTime,
		"contentLength", len(extractResp.Data.Content))

	return extractResp.Data.Content, nil
}

// HealthCheck verifies the vision backend is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("X-Source", "calibration-worker")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
