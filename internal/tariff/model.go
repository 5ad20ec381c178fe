package tariff

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Season selects which pair of network schedules applies.
// "higher" is the winter season with the more expensive blocks.
type Season string

const (
	SeasonHigher Season = "higher"
	SeasonLower  Season = "lower"
)

// DayType splits days into working days and weekends/holidays.
type DayType string

const (
	Weekday          DayType = "weekday"
	WeekendOrHoliday DayType = "weekend_or_holiday"
)

// EnergyTariff is the two-rate structure of the energy supply part of the price.
type EnergyTariff string

const (
	Peak    EnergyTariff = "peak"
	OffPeak EnergyTariff = "offpeak"
)

// Code returns the label printed on Slovenian bills: VT for peak, MT for off-peak.
func (t EnergyTariff) Code() string {
	if t == Peak {
		return "VT"
	}
	return "MT"
}

// Block is a network-usage price tier, 1 (most expensive) to 5 (cheapest).
type Block int

const (
	MinBlock Block = 1
	MaxBlock Block = 5

	// DefaultBlock is returned when no schedule slot matches.
	DefaultBlock Block = 3
)

// Valid reports whether b is one of the five tiers.
func (b Block) Valid() bool { return b >= MinBlock && b <= MaxBlock }

// Blocks lists all tiers in ascending order.
func Blocks() []Block { return []Block{1, 2, 3, 4, 5} }

var blockDescriptions = map[Block]string{
	1: "Highest rate (peak hours) - Omrežnina",
	2: "High rate - Omrežnina",
	3: "Medium rate - Omrežnina",
	4: "Low rate - Omrežnina",
	5: "Lowest rate (night/off-peak) - Omrežnina",
}

// Description is the human-readable label for b.
func (b Block) Description() string {
	if d, ok := blockDescriptions[b]; ok {
		return d
	}
	return "Unknown"
}

var (
	ErrInvalidPrice = errors.New("price out of range")
	ErrMissingBlock = errors.New("missing network block price")
)

var (
	minPrice = decimal.Zero
	maxPrice = decimal.NewFromInt(1)
)

// PriceTable holds the operator-supplied prices in EUR/kWh.
type PriceTable struct {
	EnergyPeak    decimal.Decimal           `json:"energy_peak_price"`
	EnergyOffPeak decimal.Decimal           `json:"energy_offpeak_price"`
	NetworkBlock  map[Block]decimal.Decimal `json:"network_block_price"`
	Contributions decimal.Decimal           `json:"contributions_price"`
	ExciseTax     decimal.Decimal           `json:"excise_tax_price"`
}

// BlockPrice returns the network price for b and whether it was configured.
func (p PriceTable) BlockPrice(b Block) (decimal.Decimal, bool) {
	v, ok := p.NetworkBlock[b]
	return v, ok
}

// Clone returns a deep copy so callers can mutate the block map freely.
func (p PriceTable) Clone() PriceTable {
	out := p
	out.NetworkBlock = make(map[Block]decimal.Decimal, len(p.NetworkBlock))
	for k, v := range p.NetworkBlock {
		out.NetworkBlock[k] = v
	}
	return out
}

// Validate checks every price lies in [0, 1] and that all five blocks are
// priced. All violations are reported together.
func (p PriceTable) Validate() error {
	var err error
	check := func(name string, v decimal.Decimal) {
		if v.LessThan(minPrice) || v.GreaterThan(maxPrice) {
			err = multierr.Append(err, fmt.Errorf("%s=%s: %w", name, v.String(), ErrInvalidPrice))
		}
	}
	check("energy_peak_price", p.EnergyPeak)
	check("energy_offpeak_price", p.EnergyOffPeak)
	for _, b := range Blocks() {
		v, ok := p.NetworkBlock[b]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("block %d: %w", b, ErrMissingBlock))
			continue
		}
		check(fmt.Sprintf("block_%d_price", b), v)
	}
	for b := range p.NetworkBlock {
		if !b.Valid() {
			err = multierr.Append(err, fmt.Errorf("unknown network block %d", b))
		}
	}
	check("contributions_price", p.Contributions)
	check("excise_tax_price", p.ExciseTax)
	return err
}

// PricingResult is the outcome of one tariff computation.
type PricingResult struct {
	Timestamp     time.Time       `json:"timestamp"`
	Season        Season          `json:"season"`
	IsHoliday     bool            `json:"is_holiday"`
	DayType       DayType         `json:"day_type"`
	EnergyTariff  EnergyTariff    `json:"energy_tariff"`
	EnergyPrice   decimal.Decimal `json:"energy_price"`
	CurrentBlock  Block           `json:"current_block"`
	NetworkPrice  decimal.Decimal `json:"network_price"`
	Contributions decimal.Decimal `json:"contributions"`
	ExciseTax     decimal.Decimal `json:"excise_tax"`
	TotalPrice    decimal.Decimal `json:"total_price"`

	// MissingBlockPrice is set when CurrentBlock had no configured price
	// and NetworkPrice fell back to zero.
	MissingBlockPrice bool `json:"missing_block_price,omitempty"`
}
