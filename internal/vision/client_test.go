package vision

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerrors "github.com/overlens/calibration-worker/internal/errors"
)

func envelope(content string) ExtractResponse {
	return ExtractResponse{
		Success: true,
		Data: ExtractData{
			Content:        content,
			ModelUsed:      "test-model",
			ProcessingTime: 12,
		},
	}
}

func TestExtractTextSendsRequest(t *testing.T) {
	var got ExtractRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/vision/extract-regions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "calibration-worker", r.Header.Get("X-Source"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(envelope("[]"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", 5*time.Second)
	content, err := client.ExtractText(context.Background(), []byte("png-bytes"), "en", "list the text")

	require.NoError(t, err)
	assert.Equal(t, "[]", content)
	assert.Equal(t, "base64", got.Format)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "list the text", got.Prompt)
	assert.NotEmpty(t, got.Image)
}

func TestExtractTextAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", 5*time.Second)
	_, err := client.ExtractText(context.Background(), []byte("x"), "en", "p")

	require.Error(t, err)
	assert.Equal(t, calerrors.ErrorAuthFailed, calerrors.CodeOf(err))
}

func TestExtractTextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.ExtractText(context.Background(), []byte("x"), "en", "p")

	require.Error(t, err)
	assert.Equal(t, calerrors.ErrorAIExtraction, calerrors.CodeOf(err))
}

func TestExtractTextEnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ExtractResponse{Success: false, Message: "quota exceeded"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.ExtractText(context.Background(), []byte("x"), "en", "p")

	require.Error(t, err)
	assert.Equal(t, calerrors.ErrorAIExtraction, calerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractTextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(envelope("[]"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 20*time.Millisecond)
	_, err := client.ExtractText(context.Background(), []byte("x"), "en", "p")

	require.Error(t, err)
	assert.Equal(t, calerrors.ErrorNetworkTimeout, calerrors.CodeOf(err))
	assert.True(t, calerrors.IsTransport(err))
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestExtractorParsesBackendContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ExtractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ja", req.Language)

		json.NewEncoder(w).Encode(envelope(`[{"text": "設定", "x": 10, "y": 10, "width": 40, "height": 16}]`))
	}))
	defer server.Close()

	extractor := NewExtractor(NewClient(server.URL, "", 5*time.Second))
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))

	regions, err := extractor.Extract(context.Background(), img, "設定 メニュー")

	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "設定", regions[0].Text)
}

func TestExtractorUnparseableContentIsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope("I see no text in this screenshot."))
	}))
	defer server.Close()

	extractor := NewExtractor(NewClient(server.URL, "", 5*time.Second))
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))

	regions, err := extractor.Extract(context.Background(), img, "")

	require.NoError(t, err)
	assert.Empty(t, regions)
}
