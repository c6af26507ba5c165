package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/reconcile"
)

const defaultSecondaryBaseURL = "https://api.taostats.io/v2"

// SecondaryClient talks to the secondary statistics API. Auth is a Bearer
// token; list payloads arrive in a {"data": [...]} envelope.
type SecondaryClient struct {
	baseURL    string
	httpClient *resty.Client
}

// NewSecondaryClient creates a client for the secondary provider. An empty
// baseURL selects the production endpoint.
func NewSecondaryClient(baseURL, apiKey string) *SecondaryClient {
	if baseURL == "" {
		baseURL = defaultSecondaryBaseURL
	}
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &SecondaryClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *SecondaryClient) Name() domain.Provider {
	return domain.ProviderSecondary
}

func (c *SecondaryClient) Screener(ctx context.Context) ([]reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/subnets", c.baseURL)

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: c.Name(), Endpoint: "subnets", Code: resp.StatusCode()}
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode subnets response: %w", err)
	}
	return records, nil
}

func (c *SecondaryClient) Metagraph(ctx context.Context, netuid int) (reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/subnets/%d/metagraph", c.baseURL, netuid)

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: c.Name(), Endpoint: "metagraph", Code: resp.StatusCode()}
	}

	record, err := decodeRecord(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode metagraph response: %w", err)
	}
	return record, nil
}

func (c *SecondaryClient) NetworkStats(ctx context.Context) (reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/network", c.baseURL)

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: c.Name(), Endpoint: "network", Code: resp.StatusCode()}
	}

	record, err := decodeRecord(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode network response: %w", err)
	}
	return record, nil
}
