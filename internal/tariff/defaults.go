package tariff

import "github.com/shopspring/decimal"

// DefaultPrices are the 2025 reference prices (EUR/kWh) used until the
// operator enters the supplier's own.
func DefaultPrices() PriceTable {
	return PriceTable{
		EnergyPeak:    decimal.RequireFromString("0.1199"),
		EnergyOffPeak: decimal.RequireFromString("0.0979"),
		NetworkBlock: map[Block]decimal.Decimal{
			1: decimal.RequireFromString("0.01998"),
			2: decimal.RequireFromString("0.01833"),
			3: decimal.RequireFromString("0.01809"),
			4: decimal.RequireFromString("0.01855"),
			5: decimal.RequireFromString("0.01873"),
		},
		Contributions: decimal.RequireFromString("0.00093"),
		ExciseTax:     decimal.RequireFromString("0.00153"),
	}
}
