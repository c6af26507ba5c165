package domain

// SubnetMetrics is the canonical reconciled record for one subnet.
// All monetary fields are USD, converted at reconciliation time; market cap,
// volume, liquidity, net flow and stake are stored in millions of USD.
// Every numeric field defaults to 0 after reconciliation; downstream scoring
// never distinguishes missing from zero.
type SubnetMetrics struct {
	Netuid   int    // unique subnet id
	Name     string // display name, "SN<netuid>" when absent upstream
	Category string // static table -> first tag -> "Unknown"

	// Price and market metrics
	PriceUSD     float64 // native price x exchange rate
	MarketCapUSD float64 // millions of USD
	Volume24hUSD float64 // millions of USD
	LiquidityUSD float64 // alpha_in + tao_in pools, millions of USD
	NetFlowUSD   float64 // buy volume - sell volume (24h), millions of USD
	NetFlow7dUSD float64 // 7d net volume, millions of USD

	// Holder distribution
	HolderCount  int
	TopHolderPct float64

	// Emission
	EmissionPct float64 // percent of the network daily emission budget

	// Network participation
	ValidatorCount    int
	MinerCount        int
	UIDUtilizationPct float64 // active uids / max uids x 100
	TotalStakeUSD     float64 // millions of USD

	// Price change windows, percent
	Change1hPct  float64
	Change24hPct float64
	Change7dPct  float64
	Change30dPct float64

	// Qualitative presence, derived from non-empty URL fields
	HasWebsite bool
	HasGitHub  bool
	HasDiscord bool

	// Allow-listed passthrough fields from the raw record
	WebsiteURL string
	GitHubURL  string
	DiscordURL string
	Tags       []string
}
