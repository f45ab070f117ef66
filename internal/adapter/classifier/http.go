package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// HTTPClient calls a remote inference endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient creates a remote classifier posting to endpoint.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// PredictRequest is the inference request body. Values follow Features order.
type PredictRequest struct {
	Features []string  `json:"features"`
	Values   []float64 `json:"values"`
}

// PredictResponse is the inference response body.
type PredictResponse struct {
	Probability float64 `json:"probability"`
}

// Predict posts the ordered feature vector and returns the reported probability.
func (c *HTTPClient) Predict(ctx context.Context, fv domain.FeatureVector) (float64, error) {
	if err := fv.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrClassifier, err)
	}

	values := fv.Values()
	body, err := json.Marshal(PredictRequest{
		Features: domain.FeatureNames[:],
		Values:   values[:],
	})
	if err != nil {
		return 0, fmt.Errorf("%w: marshal request: %w", domain.ErrClassifier, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", domain.ErrClassifier, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request failed: %w", domain.ErrClassifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrClassifier, resp.StatusCode, msg)
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", domain.ErrClassifier, err)
	}
	if err := domain.ValidateProbability(out.Probability); err != nil {
		return 0, err
	}
	return out.Probability, nil
}
