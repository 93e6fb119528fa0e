package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/killallgit/cognilink/pkg/logger"
)

// HealthStatus represents the health status of the Ollama service
type HealthStatus struct {
	Available bool
	Error     error
	Models    []string
}

// HasModel reports whether name is among the pulled models
func (h HealthStatus) HasModel(name string) bool {
	for _, m := range h.Models {
		if m == name {
			return true
		}
	}
	return false
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

var healthClient = &http.Client{Timeout: 5 * time.Second}

// CheckHealth lists the models the server has pulled. An unreachable server is
// reported through the status, not the error.
func (p *Provider) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	url := p.options.BaseURL + "/api/tags"
	logger.Debug("Checking Ollama health at %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &HealthStatus{Available: false, Error: err}, err
	}

	resp, err := healthClient.Do(req)
	if err != nil {
		return &HealthStatus{
			Available: false,
			Error:     fmt.Errorf("cannot connect to Ollama at %s: %w", p.options.BaseURL, err),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HealthStatus{
			Available: false,
			Error:     fmt.Errorf("Ollama returned status %d", resp.StatusCode),
		}, nil
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return &HealthStatus{
			Available: true,
			Error:     fmt.Errorf("failed to decode model list: %w", err),
		}, nil
	}

	status := &HealthStatus{Available: true}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
	}
	logger.Debug("Ollama health check successful, %d models", len(status.Models))
	return status, nil
}
