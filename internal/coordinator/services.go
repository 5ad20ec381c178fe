package coordinator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/events"
	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/tariff"
)

// UpdatePrices stores the changed prices and refreshes the snapshot so the
// new prices are visible immediately.
func (c *Coordinator) UpdatePrices(ctx context.Context, u prices.PriceUpdate) (tariff.PriceTable, error) {
	table, err := c.prices.Update(ctx, u)
	if err != nil {
		return tariff.PriceTable{}, err
	}

	data := map[string]any{
		"energy_peak_price":    table.EnergyPeak.String(),
		"energy_offpeak_price": table.EnergyOffPeak.String(),
		"contributions_price":  table.Contributions.String(),
		"excise_tax_price":     table.ExciseTax.String(),
	}
	for _, b := range tariff.Blocks() {
		if v, ok := table.BlockPrice(b); ok {
			data[fmt.Sprintf("block_%d_price", b)] = v.String()
		}
	}
	c.publish(ctx, events.New(events.TypePricesUpdated, data))

	if _, err := c.Refresh(ctx); err != nil {
		c.log.Warn("refresh after price update failed", zap.Error(err))
	}
	return table, nil
}

// CurrentBlock reports the block in force at the last refresh and publishes
// it as a current_block event.
func (c *Coordinator) CurrentBlock(ctx context.Context) (BlockInfo, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return BlockInfo{}, err
	}
	r := snap.Result
	info := BlockInfo{
		CurrentBlock:     r.CurrentBlock,
		BlockDescription: r.CurrentBlock.Description(),
		TotalPrice:       r.TotalPrice,
		EnergyTariff:     r.EnergyTariff.Code(),
		EnergyPrice:      r.EnergyPrice,
		NetworkPrice:     r.NetworkPrice,
		Contributions:    r.Contributions,
		ExciseTax:        r.ExciseTax,
		Season:           r.Season,
		IsHoliday:        r.IsHoliday,
	}

	c.publish(ctx, events.New(events.TypeCurrentBlock, map[string]any{
		"current_block":     int(info.CurrentBlock),
		"total_price":       info.TotalPrice.String(),
		"energy_tariff":     info.EnergyTariff,
		"energy_price":      info.EnergyPrice.String(),
		"network_price":     info.NetworkPrice.String(),
		"contributions":     info.Contributions.String(),
		"excise_tax":        info.ExciseTax.String(),
		"block_description": info.BlockDescription,
		"season":            string(info.Season),
		"is_holiday":        info.IsHoliday,
	}))
	return info, nil
}

// CalculateCost prices consumptionKWh at the current total price and
// publishes a cost_calculated event.
func (c *Coordinator) CalculateCost(ctx context.Context, consumptionKWh decimal.Decimal) (CostQuote, error) {
	q, err := c.quote(consumptionKWh)
	if err != nil {
		return CostQuote{}, err
	}
	c.publish(ctx, events.New(events.TypeCostCalculated, map[string]any{
		"consumption_kwh":     q.ConsumptionKWh.String(),
		"total_price_per_kwh": q.TotalPricePerKWh.String(),
		"calculated_cost":     q.CalculatedCost.String(),
		"season":              string(q.Season),
		"energy_tariff":       q.EnergyTariff,
	}))
	return q, nil
}

// CurrentCost prices the reading of the configured consumption source.
func (c *Coordinator) CurrentCost(ctx context.Context) (CostQuote, error) {
	if c.consumption == nil {
		return CostQuote{}, ErrConsumptionUnavailable
	}
	kwh, err := c.consumption.ConsumptionKWh(ctx)
	if err != nil {
		return CostQuote{}, fmt.Errorf("%w: %v", ErrConsumptionUnavailable, err)
	}
	return c.quote(kwh)
}

func (c *Coordinator) quote(kwh decimal.Decimal) (CostQuote, error) {
	if kwh.IsNegative() {
		return CostQuote{}, ErrNegativeConsumption
	}
	snap, err := c.Snapshot()
	if err != nil {
		return CostQuote{}, err
	}
	r := snap.Result
	return CostQuote{
		ConsumptionKWh:   kwh,
		TotalPricePerKWh: r.TotalPrice,
		CalculatedCost:   kwh.Mul(r.TotalPrice),
		Season:           r.Season,
		EnergyTariff:     r.EnergyTariff.Code(),
	}, nil
}
