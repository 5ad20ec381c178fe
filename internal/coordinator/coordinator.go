// Package coordinator keeps the current tariff snapshot fresh and runs the
// operator services on top of it: updating prices, reporting the current
// block and quoting the cost of a consumption.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/cron"
	"github.com/bher20/slotariff/internal/events"
	"github.com/bher20/slotariff/internal/metrics"
	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/storage"
	"github.com/bher20/slotariff/internal/tariff"
)

// JobName identifies the refresh loop in metrics and the job table.
const JobName = "tariff_refresh"

var (
	ErrNoData                 = errors.New("no tariff data yet")
	ErrNegativeConsumption    = errors.New("consumption must not be negative")
	ErrConsumptionUnavailable = errors.New("consumption reading unavailable")
)

// PriceSource supplies and updates the price table.
type PriceSource interface {
	Current(ctx context.Context) (tariff.PriceTable, error)
	Update(ctx context.Context, u prices.PriceUpdate) (tariff.PriceTable, error)
}

// Status holds the on/off indicators derived from a result.
type Status struct {
	// BlockActive[i] is true when block i+1 is in force.
	BlockActive  [5]bool `json:"block_active"`
	HigherSeason bool    `json:"higher_season"`
	Holiday      bool    `json:"holiday"`
	// Cheap covers blocks 4 and 5, Expensive blocks 1 and 2.
	Cheap     bool `json:"cheap"`
	Expensive bool `json:"expensive"`
	Peak      bool `json:"peak"`
}

// StatusOf derives the indicators for r.
func StatusOf(r tariff.PricingResult) Status {
	var s Status
	if r.CurrentBlock.Valid() {
		s.BlockActive[r.CurrentBlock-1] = true
	}
	s.HigherSeason = r.Season == tariff.SeasonHigher
	s.Holiday = r.IsHoliday
	s.Cheap = r.CurrentBlock >= 4
	s.Expensive = r.CurrentBlock <= 2
	s.Peak = r.EnergyTariff == tariff.Peak
	return s
}

// Snapshot is the cached outcome of the last successful refresh.
type Snapshot struct {
	Result           tariff.PricingResult `json:"result"`
	Status           Status               `json:"status"`
	HolidaysThisYear []string             `json:"holidays_this_year"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// BlockInfo answers "which block is in force now".
type BlockInfo struct {
	CurrentBlock     tariff.Block    `json:"current_block"`
	BlockDescription string          `json:"block_description"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	EnergyTariff     string          `json:"energy_tariff"`
	EnergyPrice      decimal.Decimal `json:"energy_price"`
	NetworkPrice     decimal.Decimal `json:"network_price"`
	Contributions    decimal.Decimal `json:"contributions"`
	ExciseTax        decimal.Decimal `json:"excise_tax"`
	Season           tariff.Season   `json:"season"`
	IsHoliday        bool            `json:"is_holiday"`
}

// CostQuote prices a consumption at the current total price.
type CostQuote struct {
	ConsumptionKWh   decimal.Decimal `json:"consumption_kwh"`
	TotalPricePerKWh decimal.Decimal `json:"total_price_per_kwh"`
	CalculatedCost   decimal.Decimal `json:"calculated_cost"`
	Season           tariff.Season   `json:"season"`
	EnergyTariff     string          `json:"energy_tariff"`
}

// Rounded is the cost to the cent, for display.
func (q CostQuote) Rounded() decimal.Decimal {
	return q.CalculatedCost.Round(2)
}

// ConsumptionSource reads the consumption to price for CurrentCost.
type ConsumptionSource interface {
	ConsumptionKWh(ctx context.Context) (decimal.Decimal, error)
}

type Option func(*Coordinator)

// WithLocation sets the zone timestamps are resolved in.
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) { c.loc = loc }
}

// WithSchedule sets the default refresh schedule.
func WithSchedule(s cron.Schedule) Option {
	return func(c *Coordinator) { c.sched = s }
}

// WithStore enables the interval override setting and job bookkeeping.
func WithStore(st storage.Storage) Option {
	return func(c *Coordinator) { c.store = st }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithConsumption(src ConsumptionSource) Option {
	return func(c *Coordinator) { c.consumption = src }
}

// Coordinator owns the cached snapshot. It is safe for concurrent use.
type Coordinator struct {
	engine      *tariff.Engine
	prices      PriceSource
	pub         events.Publisher
	loc         *time.Location
	sched       cron.Schedule
	store       storage.Storage
	log         *zap.Logger
	now         func() time.Time
	consumption ConsumptionSource

	refreshReq chan struct{}

	// refreshMu runs refreshes one at a time so a snapshot computed from
	// older prices never replaces a newer one.
	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap *Snapshot
}

func New(engine *tariff.Engine, ps PriceSource, pub events.Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:     engine,
		prices:     ps,
		pub:        pub,
		loc:        time.Local,
		sched:      cron.Every(cron.DefaultInterval),
		log:        zap.NewNop(),
		now:        time.Now,
		refreshReq: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	if c.engine == nil {
		c.engine = tariff.NewEngine(c.log)
	}
	if c.pub == nil {
		c.pub = events.Nop{}
	}
	c.log = c.log.Named("coordinator")
	return c
}

// Location returns the zone timestamps are resolved in.
func (c *Coordinator) Location() *time.Location { return c.loc }

// Prices returns the price table currently in force.
func (c *Coordinator) Prices(ctx context.Context) (tariff.PriceTable, error) {
	return c.prices.Current(ctx)
}

// Compute prices an arbitrary instant without touching the cache.
func (c *Coordinator) Compute(ctx context.Context, at time.Time) (tariff.PricingResult, error) {
	table, err := c.prices.Current(ctx)
	if err != nil {
		return tariff.PricingResult{}, fmt.Errorf("load prices: %w", err)
	}
	return c.engine.Compute(at.In(c.loc), table), nil
}

// Refresh recomputes the snapshot for the current time. On failure the
// previous snapshot stays cached.
func (c *Coordinator) Refresh(ctx context.Context) (Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	started := time.Now()
	now := c.now().In(c.loc)

	table, err := c.prices.Current(ctx)
	if err != nil {
		err = fmt.Errorf("load prices: %w", err)
		c.recordJob(ctx, started, err)
		return Snapshot{}, err
	}

	res := c.engine.Compute(now, table)
	snap := Snapshot{
		Result:           res,
		Status:           StatusOf(res),
		HolidaysThisYear: tariff.HolidaysForYear(now.Year()),
		UpdatedAt:        now,
	}

	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()

	metrics.ObserveResult(res)
	c.recordJob(ctx, started, nil)
	c.publish(ctx, events.New(events.TypeRefresh, map[string]any{
		"current_block": int(res.CurrentBlock),
		"total_price":   res.TotalPrice.String(),
		"energy_tariff": res.EnergyTariff.Code(),
		"season":        string(res.Season),
		"is_holiday":    res.IsHoliday,
	}))
	c.log.Debug("refreshed",
		zap.Int("block", int(res.CurrentBlock)),
		zap.String("total_price", res.TotalPrice.String()),
	)
	return snap, nil
}

// Snapshot returns the last cached snapshot.
func (c *Coordinator) Snapshot() (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return Snapshot{}, ErrNoData
	}
	out := *c.snap
	out.HolidaysThisYear = append([]string(nil), c.snap.HolidaysThisYear...)
	return out, nil
}

// RequestRefresh asks Run to refresh as soon as possible. Requests made
// while one is pending are coalesced.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refreshReq <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on schedule until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("starting refresh loop")
	if _, err := c.Refresh(ctx); err != nil {
		c.log.Error("refresh failed", zap.Error(err))
	}

	for {
		next := c.schedule(ctx).Next(time.Now())
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Info("refresh loop stopped")
			return nil
		case <-timer.C:
		case <-c.refreshReq:
			timer.Stop()
		}

		if _, err := c.Refresh(ctx); err != nil {
			c.log.Error("refresh failed", zap.Error(err))
		}
	}
}

// schedule returns the interval override from storage when set and valid,
// otherwise the configured schedule.
func (c *Coordinator) schedule(ctx context.Context) cron.Schedule {
	if c.store == nil {
		return c.sched
	}
	v, err := c.store.GetSetting(ctx, storage.SettingRefreshInterval)
	if err != nil || v == "" {
		return c.sched
	}
	s, err := cron.Parse(v)
	if err != nil {
		c.log.Warn("ignoring invalid refresh interval setting", zap.String("value", v), zap.Error(err))
		return c.sched
	}
	return s
}

func (c *Coordinator) recordJob(ctx context.Context, started time.Time, jobErr error) {
	metrics.UpdateJobMetrics(JobName, started, jobErr)
	if c.store == nil {
		return
	}
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	if err := c.store.UpdateScheduledJob(ctx, JobName, started, time.Since(started), jobErr == nil, msg); err != nil {
		c.log.Warn("record job status failed", zap.Error(err))
	}
}

func (c *Coordinator) publish(ctx context.Context, ev events.Event) {
	if err := c.pub.Publish(ctx, ev); err != nil {
		c.log.Warn("publish event failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
