// Package prices keeps the operator-entered price table for the configured
// supplier. Storage holds the live table; configuration only seeds it.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/storage"
	"github.com/bher20/slotariff/internal/tariff"
)

// PriceUpdate changes any subset of the price table. Nil fields are kept.
type PriceUpdate struct {
	EnergyPeak    *decimal.Decimal `json:"energy_peak_price,omitempty"`
	EnergyOffPeak *decimal.Decimal `json:"energy_offpeak_price,omitempty"`
	Block1        *decimal.Decimal `json:"block_1_price,omitempty"`
	Block2        *decimal.Decimal `json:"block_2_price,omitempty"`
	Block3        *decimal.Decimal `json:"block_3_price,omitempty"`
	Block4        *decimal.Decimal `json:"block_4_price,omitempty"`
	Block5        *decimal.Decimal `json:"block_5_price,omitempty"`
	Contributions *decimal.Decimal `json:"contributions_price,omitempty"`
	ExciseTax     *decimal.Decimal `json:"excise_tax_price,omitempty"`
}

// Apply returns a copy of base with the non-nil fields of u applied.
func (u PriceUpdate) Apply(base tariff.PriceTable) tariff.PriceTable {
	out := base.Clone()
	set := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	set(&out.EnergyPeak, u.EnergyPeak)
	set(&out.EnergyOffPeak, u.EnergyOffPeak)
	set(&out.Contributions, u.Contributions)
	set(&out.ExciseTax, u.ExciseTax)
	for b, v := range map[tariff.Block]*decimal.Decimal{1: u.Block1, 2: u.Block2, 3: u.Block3, 4: u.Block4, 5: u.Block5} {
		if v != nil {
			out.NetworkBlock[b] = *v
		}
	}
	return out
}

// Empty reports whether u changes nothing.
func (u PriceUpdate) Empty() bool {
	return u == PriceUpdate{}
}

// Service coordinates reading and persisting the price table.
type Service struct {
	supplier string
	defaults tariff.PriceTable
	store    storage.Storage // may be nil for config-only mode
	log      *zap.Logger

	mu sync.Mutex
}

// NewService returns a Service for supplier. defaults are used until an
// operator stores prices, and are written back when nothing is stored.
// A stored table that fails to decode or validate is left in place.
func NewService(supplier string, defaults tariff.PriceTable, st storage.Storage, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		supplier: supplier,
		defaults: defaults.Clone(),
		store:    st,
		log:      log.Named("prices"),
	}
}

// Supplier returns the key prices are stored under.
func (s *Service) Supplier() string { return s.supplier }

// Current returns the stored price table, falling back to the defaults.
// A read failure is logged and served from defaults so pricing keeps
// working while the database is unavailable.
func (s *Service) Current(ctx context.Context) (tariff.PriceTable, error) {
	if s.store == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.current(ctx)
}

// current is Current without locking. With no store, callers hold s.mu.
func (s *Service) current(ctx context.Context) (tariff.PriceTable, error) {
	if s.store == nil {
		return s.defaults.Clone(), nil
	}

	snap, err := s.store.GetPriceSnapshot(ctx, s.supplier)
	if err != nil {
		s.log.Warn("read price snapshot failed, using configured prices", zap.Error(err))
		return s.defaults.Clone(), nil
	}
	if snap == nil {
		// Nothing stored yet: seed the configured prices.
		if err := s.save(ctx, s.defaults); err != nil {
			s.log.Warn("seed price snapshot failed", zap.Error(err))
		}
		return s.defaults.Clone(), nil
	}

	var table tariff.PriceTable
	if err := json.Unmarshal(snap.Payload, &table); err != nil {
		s.log.Warn("stored price snapshot unreadable, using configured prices",
			zap.String("supplier", s.supplier), zap.Error(err))
		return s.defaults.Clone(), nil
	}
	if err := table.Validate(); err != nil {
		s.log.Warn("stored price snapshot invalid, using configured prices",
			zap.String("supplier", s.supplier), zap.Error(err))
		return s.defaults.Clone(), nil
	}
	return table, nil
}

// Update applies u to the current table, validates the result and persists
// it. Invalid updates leave the stored table unchanged.
func (s *Service) Update(ctx context.Context, u PriceUpdate) (tariff.PriceTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current(ctx)
	if err != nil {
		return tariff.PriceTable{}, err
	}
	next := u.Apply(cur)
	if err := next.Validate(); err != nil {
		return tariff.PriceTable{}, err
	}

	if s.store == nil {
		s.defaults = next.Clone()
	} else if err := s.save(ctx, next); err != nil {
		return tariff.PriceTable{}, fmt.Errorf("save prices: %w", err)
	}
	s.log.Info("prices updated", zap.String("supplier", s.supplier))
	return next, nil
}

func (s *Service) save(ctx context.Context, table tariff.PriceTable) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return s.store.SavePriceSnapshot(ctx, storage.PriceSnapshot{
		Supplier:  s.supplier,
		Payload:   payload,
		UpdatedAt: time.Now(),
	})
}
