package domain

// Provider identifies which upstream data provider served a raw record.
type Provider string

const (
	ProviderPrimary   Provider = "PROVIDER_PRIMARY"   // tao.app shaped payloads
	ProviderSecondary Provider = "PROVIDER_SECONDARY" // taostats shaped payloads
)

// String returns the string representation of Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the provider is a valid value.
func (p Provider) IsValid() bool {
	return p == ProviderPrimary || p == ProviderSecondary
}
