// Package domains registers tenant subdomains with the hosting
// platform so the wildcard DNS entry actually serves them.
package domains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jordanlanch/showcasely/pkg/logger"
)

// VercelRegistrar registers domains through the Vercel projects API. It
// satisfies catalog.DomainRegistrar, the interface lives with its consumer.
type VercelRegistrar struct {
	token     string
	projectID string
	baseURL   string
	client    *http.Client
	logger    logger.Logger
}

// NewVercelRegistrar creates a registrar for the given Vercel project
func NewVercelRegistrar(token, projectID string, log logger.Logger) *VercelRegistrar {
	return &VercelRegistrar{
		token:     token,
		projectID: projectID,
		baseURL:   "https://api.vercel.com",
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    log,
	}
}

type addDomainRequest struct {
	Name string `json:"name"`
}

type addDomainResponse struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// RegisterDomain attaches the domain to the project. An unverified
// result is logged, not failed: verification completes asynchronously
// on the platform side.
func (v *VercelRegistrar) RegisterDomain(ctx context.Context, domain string) error {
	body, err := json.Marshal(addDomainRequest{Name: domain})
	if err != nil {
		return fmt.Errorf("failed to marshal domain request: %w", err)
	}

	url := fmt.Sprintf("%s/v10/projects/%s/domains", v.baseURL, v.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build domain request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to register domain %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to register domain %s: status %d", domain, resp.StatusCode)
	}

	var out addDomainResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode domain response: %w", err)
	}

	if !out.Verified {
		v.logger.Warn("domain registered but pending verification", "domain", out.Name)
	}

	return nil
}
