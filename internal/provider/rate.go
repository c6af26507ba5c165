package provider

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"subnet-nexus/internal/reconcile"
)

// RateFromStats extracts the native token USD price from a network stats
// payload, trying each provider's field name. Returns 0 when no usable
// price is present.
func RateFromStats(stats reconcile.RawRecord) float64 {
	return stats.Number("price_usd", "tao_price", "price")
}

// RatePoller keeps the native-token to USD exchange rate fresh by polling
// the network stats endpoint on an interval. Readers see either the seeded
// default or the latest successfully fetched rate; a failed poll keeps the
// previous value.
type RatePoller struct {
	fetcher  *Fetcher
	interval time.Duration
	logger   zerolog.Logger

	rate atomic.Uint64
}

// NewRatePoller creates a poller seeded with defaultRate. The stored rate
// never goes to zero, so scoring can run before the first poll completes.
func NewRatePoller(fetcher *Fetcher, defaultRate float64, interval time.Duration, logger zerolog.Logger) *RatePoller {
	p := &RatePoller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger.With().Str("component", "rate_poller").Logger(),
	}
	p.rate.Store(math.Float64bits(defaultRate))
	return p
}

// Rate returns the current exchange rate. Safe for concurrent use.
func (p *RatePoller) Rate() float64 {
	return math.Float64frombits(p.rate.Load())
}

// Run polls until ctx is canceled. An immediate poll runs before the first
// tick so the default rate is replaced as soon as a provider answers.
func (p *RatePoller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Refresh performs a single poll. One-shot callers use it to pick up a
// fresh rate without starting the polling loop.
func (p *RatePoller) Refresh(ctx context.Context) {
	p.poll(ctx)
}

func (p *RatePoller) poll(ctx context.Context) {
	stats, source, err := p.fetcher.NetworkStats(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("exchange rate poll failed, keeping previous rate")
		return
	}

	rate := RateFromStats(stats)
	if rate <= 0 {
		p.logger.Warn().Str("provider", string(source)).Msg("network stats carried no usable price, keeping previous rate")
		return
	}

	p.rate.Store(math.Float64bits(rate))
	p.logger.Debug().Float64("rate", rate).Str("provider", string(source)).Msg("exchange rate updated")
}
