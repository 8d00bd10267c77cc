package similarity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaylabs/leadmatch/internal/common"
)

func TestEstimateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/similarity", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req similarityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "intent text", req.TextA)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"score":       0.82,
			"explanation": "strong topical overlap",
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	result, err := client.Estimate(context.Background(), "intent text", "profile text")
	require.NoError(t, err)
	assert.InDelta(t, 0.82, result.Score, 1e-9)
	assert.Equal(t, "strong topical overlap", result.Explanation)
}

func TestEstimateClampsScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"score": 1.7})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := client.Estimate(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)
}

func TestEstimateProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Estimate(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, common.ErrProviderFailure))
}

func TestEstimateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"score": 0.5})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Estimate(context.Background(), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrProviderTimeout), "got: %v", err)
}

func TestEstimateMissingScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"explanation": "no score here"})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Estimate(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, common.ErrResponseParse))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.True(t, errors.Is(err, common.ErrConfigMissing))
}
