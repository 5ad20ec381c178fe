// Package tariff resolves the Slovenian residential electricity tariff for
// a point in time: season, holiday, network block, energy tariff and the
// total per-kWh price. Everything here is a pure function of its arguments
// and the compiled schedule tables, and is safe for concurrent use.
//
// Timestamps are interpreted in their own location; callers convert to
// local Slovenian time (Europe/Ljubljana) before calling in.
package tariff

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compute resolves the tariff at t and prices it with prices. A block with
// no configured price contributes zero and sets MissingBlockPrice.
func Compute(t time.Time, prices PriceTable) PricingResult {
	season := SeasonOf(t)
	holiday := IsHoliday(t)
	dayType := DayTypeOf(t)
	block := ResolveBlock(ScheduleFor(season, dayType), t)
	energyTariff := EnergyTariffOf(t)

	energyPrice := prices.EnergyOffPeak
	if energyTariff == Peak {
		energyPrice = prices.EnergyPeak
	}

	networkPrice, ok := prices.BlockPrice(block)
	if !ok {
		networkPrice = decimal.Zero
	}

	total := energyPrice.Add(networkPrice).Add(prices.Contributions).Add(prices.ExciseTax)

	return PricingResult{
		Timestamp:         t,
		Season:            season,
		IsHoliday:         holiday,
		DayType:           dayType,
		EnergyTariff:      energyTariff,
		EnergyPrice:       energyPrice,
		CurrentBlock:      block,
		NetworkPrice:      networkPrice,
		Contributions:     prices.Contributions,
		ExciseTax:         prices.ExciseTax,
		TotalPrice:        total,
		MissingBlockPrice: !ok,
	}
}

// Engine is Compute with a logger for the configuration warnings that the
// computation tolerates.
type Engine struct {
	log *zap.Logger
}

// NewEngine returns an Engine logging to log; nil disables logging.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log.Named("tariff")}
}

// Compute is the package-level Compute plus a warning when a block price
// had to be defaulted.
func (e *Engine) Compute(t time.Time, prices PriceTable) PricingResult {
	res := Compute(t, prices)
	if res.MissingBlockPrice {
		e.log.Warn("network block price not configured, using 0",
			zap.Int("block", int(res.CurrentBlock)),
			zap.Time("at", t),
		)
	}
	return res
}
