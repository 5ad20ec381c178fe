package coordinator

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bher20/slotariff/internal/storage"
)

// SettingConsumption is the settings key holding the latest meter reading.
const SettingConsumption = "consumption_kwh"

// StoredConsumption reads the consumption last pushed to the settings
// table, typically by a meter integration calling the API.
type StoredConsumption struct {
	Store storage.Storage
}

func (s StoredConsumption) ConsumptionKWh(ctx context.Context) (decimal.Decimal, error) {
	v, err := s.Store.GetSetting(ctx, SettingConsumption)
	if err != nil {
		return decimal.Zero, err
	}
	if v == "" {
		return decimal.Zero, fmt.Errorf("no reading recorded")
	}
	return decimal.NewFromString(v)
}

// Record stores a new reading. Negative readings are rejected.
func (s StoredConsumption) Record(ctx context.Context, kwh decimal.Decimal) error {
	if kwh.IsNegative() {
		return ErrNegativeConsumption
	}
	return s.Store.SetSetting(ctx, SettingConsumption, kwh.String())
}
