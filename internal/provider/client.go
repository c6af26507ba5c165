// Package provider fetches raw subnet data from the upstream market-data
// APIs. Two providers expose the same universe behind different endpoints,
// auth schemes and payload shapes; the Fetcher hides the failover between
// them and tags every payload with the provider that produced it so the
// reconciler can pick the right field dictionary.
package provider

import (
	"context"
	"fmt"

	"subnet-nexus/internal/domain"
	"subnet-nexus/internal/reconcile"
)

// RawClient fetches untyped payloads from one upstream provider.
type RawClient interface {
	// Name identifies the provider for reconciliation and metrics labels.
	Name() domain.Provider

	// Screener returns one raw record per subnet in the network.
	Screener(ctx context.Context) ([]reconcile.RawRecord, error)

	// Metagraph returns the network-participation record for one subnet.
	Metagraph(ctx context.Context, netuid int) (reconcile.RawRecord, error)

	// NetworkStats returns network-wide aggregates, including the native
	// token price used as the USD exchange rate.
	NetworkStats(ctx context.Context) (reconcile.RawRecord, error)
}

// StatusError is returned when an upstream responds with a non-2xx status.
type StatusError struct {
	Provider domain.Provider
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d", e.Provider, e.Endpoint, e.Code)
}
