package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/reconcile"
)

const defaultPrimaryBaseURL = "https://api.tao.app/api/beta"

// PrimaryClient talks to the primary analytics API. Auth is an X-API-Key
// header; payloads are bare JSON arrays and objects.
type PrimaryClient struct {
	baseURL    string
	httpClient *resty.Client
}

// NewPrimaryClient creates a client for the primary provider. An empty
// baseURL selects the production endpoint.
func NewPrimaryClient(baseURL, apiKey string) *PrimaryClient {
	if baseURL == "" {
		baseURL = defaultPrimaryBaseURL
	}
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &PrimaryClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *PrimaryClient) Name() domain.Provider {
	return domain.ProviderPrimary
}

func (c *PrimaryClient) Screener(ctx context.Context) ([]reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/subnet_screener", c.baseURL)

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: c.Name(), Endpoint: "subnet_screener", Code: resp.StatusCode()}
	}

	records, err := decodeRecords(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode screener response: %w", err)
	}
	return records, nil
}

func (c *PrimaryClient) Metagraph(ctx context.Context, netuid int) (reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/metagraph/%d", c.baseURL, netuid)

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

func (c *PrimaryClient) NetworkStats(ctx context.Context) (reconcile.RawRecord, error) {
	url := fmt.Sprintf("%s/current", c.baseURL)

	resp, err := c.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: c.Name(), Endpoint: "current", Code: resp.StatusCode()}
	}

	record, err := decodeRecord(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode network stats response: %w", err)
	}
	return record, nil
}

// decodeRecords parses a screener payload. Providers ship either a bare
// array or a {"data": [...]} envelope.
func decodeRecords(body []byte) ([]reconcile.RawRecord, error) {
	var records []reconcile.RawRecord
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Data []reconcile.RawRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// decodeRecord parses a single-object payload, unwrapping the {"data": ...}
// envelope when present. Some endpoints wrap a single object in a one-element
// data array.
func decodeRecord(body []byte) (reconcile.RawRecord, error) {
	var record reconcile.RawRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, err
	}

	raw, ok := record["data"]
	if !ok {
		return record, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return reconcile.RawRecord(v), nil
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return reconcile.RawRecord(m), nil
			}
		}
		return reconcile.RawRecord{}, nil
	default:
		return record, nil
	}
}
