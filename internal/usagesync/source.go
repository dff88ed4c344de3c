package usagesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gymgate/engine/internal/domain"
)

// HTTPSource pulls usage reports from the host's usage-counter
// endpoint. Any transport failure or non-200 status surfaces as an
// error so the coordinator never mistakes "unreachable" for "zero
// usage".
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates a source with a sensible request timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch retrieves the current usage batch.
func (s *HTTPSource) Fetch(ctx context.Context) (domain.UsageReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return domain.UsageReport{}, fmt.Errorf("build usage request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return domain.UsageReport{}, fmt.Errorf("fetch usage report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.UsageReport{}, fmt.Errorf("usage source returned status %d", resp.StatusCode)
	}

	var report domain.UsageReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return domain.UsageReport{}, fmt.Errorf("decode usage report: %w", err)
	}
	return report, nil
}
