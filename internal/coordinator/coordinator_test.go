package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/slotariff/internal/cron"
	"github.com/bher20/slotariff/internal/events"
	"github.com/bher20/slotariff/internal/prices"
	"github.com/bher20/slotariff/internal/storage"
	"github.com/bher20/slotariff/internal/tariff"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type flakyPrices struct {
	*prices.Service
	fail bool
}

func (f *flakyPrices) Current(ctx context.Context) (tariff.PriceTable, error) {
	if f.fail {
		return tariff.PriceTable{}, errors.New("prices unavailable")
	}
	return f.Service.Current(ctx)
}

// winterMorning is a higher-season Wednesday in block 1, peak tariff.
var winterMorning = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T, at time.Time, opts ...Option) (*Coordinator, *recorder, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemory()
	rec := &recorder{}
	svc := prices.NewService("gen_i", tariff.DefaultPrices(), st, nil)
	opts = append([]Option{
		WithLocation(time.UTC),
		WithClock(func() time.Time { return at }),
		WithStore(st),
	}, opts...)
	return New(tariff.NewEngine(nil), svc, rec, opts...), rec, st
}

func TestRefresh_CachesSnapshot(t *testing.T) {
	c, rec, st := newTestCoordinator(t, winterMorning)

	_, err := c.Snapshot()
	require.ErrorIs(t, err, ErrNoData)

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tariff.Block(1), snap.Result.CurrentBlock)
	assert.Equal(t, "0.14234", snap.Result.TotalPrice.String())
	assert.Equal(t, [5]bool{true, false, false, false, false}, snap.Status.BlockActive)
	assert.True(t, snap.Status.Expensive)
	assert.False(t, snap.Status.Cheap)
	assert.True(t, snap.Status.HigherSeason)
	assert.True(t, snap.Status.Peak)
	assert.Len(t, snap.HolidaysThisYear, 14)
	assert.Equal(t, winterMorning, snap.UpdatedAt)

	cached, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Result, cached.Result)
	assert.Equal(t, []events.Type{events.TypeRefresh}, rec.types())

	job, err := st.GetScheduledJob(context.Background(), JobName)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.LastSuccess)
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	st := storage.NewMemory()
	fp := &flakyPrices{Service: prices.NewService("gen_i", tariff.DefaultPrices(), st, nil)}
	c := New(nil, fp, nil,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return winterMorning }),
		WithStore(st),
	)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	fp.fail = true
	_, err = c.Refresh(context.Background())
	require.ErrorContains(t, err, "prices unavailable")

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, tariff.Block(1), snap.Result.CurrentBlock)

	job, err := st.GetScheduledJob(context.Background(), JobName)
	require.NoError(t, err)
	assert.Equal(t, 0, job.LastSuccess)
	assert.Contains(t, job.LastError, "prices unavailable")
}

func TestRefresh_ResolvesInConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Ljubljana")
	require.NoError(t, err)
	// 23:30 UTC on 24 Dec is already Christmas Day in Ljubljana.
	c, _, _ := newTestCoordinator(t, time.Date(2025, 12, 24, 23, 30, 0, 0, time.UTC), WithLocation(loc))

	snap, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Result.IsHoliday)
	assert.Equal(t, tariff.WeekendOrHoliday, snap.Result.DayType)
	assert.Equal(t, tariff.OffPeak, snap.Result.EnergyTariff)
}

func TestStatusOf_CheapBlocks(t *testing.T) {
	s := StatusOf(tariff.PricingResult{CurrentBlock: 5, Season: tariff.SeasonLower})
	assert.True(t, s.Cheap)
	assert.False(t, s.Expensive)
	assert.True(t, s.BlockActive[4])
	assert.False(t, s.HigherSeason)

	s = StatusOf(tariff.PricingResult{CurrentBlock: 3})
	assert.False(t, s.Cheap)
	assert.False(t, s.Expensive)
}

func TestCurrentBlock(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, winterMorning)

	_, err := c.CurrentBlock(context.Background())
	require.ErrorIs(t, err, ErrNoData)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	info, err := c.CurrentBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tariff.Block(1), info.CurrentBlock)
	assert.Equal(t, "VT", info.EnergyTariff)
	assert.Equal(t, "Highest rate (peak hours) - Omrežnina", info.BlockDescription)

	ev := rec.last()
	assert.Equal(t, events.TypeCurrentBlock, ev.Type)
	assert.Equal(t, 1, ev.Data["current_block"])
	assert.Equal(t, "0.14234", ev.Data["total_price"])
	assert.Equal(t, "higher", ev.Data["season"])
}

func TestCalculateCost(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, winterMorning)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	q, err := c.CalculateCost(context.Background(), decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "1.4234", q.CalculatedCost.String())
	assert.Equal(t, "1.42", q.Rounded().String())
	assert.Equal(t, "VT", q.EnergyTariff)

	ev := rec.last()
	assert.Equal(t, events.TypeCostCalculated, ev.Type)
	assert.Equal(t, "1.4234", ev.Data["calculated_cost"])

	q, err = c.CalculateCost(context.Background(), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, q.CalculatedCost.IsZero())

	_, err = c.CalculateCost(context.Background(), decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeConsumption)
}

func TestUpdatePrices_RefreshesSnapshot(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, winterMorning)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	v := decimal.RequireFromString("0.03")
	table, err := c.UpdatePrices(context.Background(), prices.PriceUpdate{Block1: &v})
	require.NoError(t, err)
	assert.Equal(t, "0.03", table.NetworkBlock[1].String())

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "0.15236", snap.Result.TotalPrice.String())
	assert.Equal(t, []events.Type{events.TypeRefresh, events.TypePricesUpdated, events.TypeRefresh}, rec.types())
}

func TestUpdatePrices_InvalidLeavesSnapshot(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, winterMorning)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	v := decimal.RequireFromString("7")
	_, err = c.UpdatePrices(context.Background(), prices.PriceUpdate{EnergyPeak: &v})
	require.ErrorIs(t, err, tariff.ErrInvalidPrice)
	assert.Equal(t, []events.Type{events.TypeRefresh}, rec.types())
}

func TestCurrentCost(t *testing.T) {
	c, _, _ := newTestCoordinator(t, winterMorning)
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	_, err = c.CurrentCost(context.Background())
	assert.ErrorIs(t, err, ErrConsumptionUnavailable)

	st := storage.NewMemory()
	src := StoredConsumption{Store: st}
	c, _, _ = newTestCoordinator(t, winterMorning, WithConsumption(src))
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)

	_, err = c.CurrentCost(context.Background())
	assert.ErrorIs(t, err, ErrConsumptionUnavailable)

	require.ErrorIs(t, src.Record(context.Background(), decimal.NewFromInt(-2)), ErrNegativeConsumption)
	require.NoError(t, src.Record(context.Background(), decimal.RequireFromString("2.5")))
	q, err := c.CurrentCost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.35585", q.CalculatedCost.String())
	assert.Equal(t, "0.36", q.Rounded().String())
}

func TestCompute_AdHocInstant(t *testing.T) {
	c, _, _ := newTestCoordinator(t, winterMorning)
	res, err := c.Compute(context.Background(), time.Date(2018, 7, 1, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, tariff.Block(5), res.CurrentBlock)

	_, err = c.Snapshot()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSchedule_StoredOverride(t *testing.T) {
	c, _, st := newTestCoordinator(t, winterMorning, WithSchedule(cron.Every(time.Hour)))
	ctx := context.Background()

	assert.Equal(t, cron.Every(time.Hour), c.schedule(ctx))

	require.NoError(t, st.SetSetting(ctx, storage.SettingRefreshInterval, "5"))
	assert.Equal(t, cron.Every(5*time.Second), c.schedule(ctx))

	require.NoError(t, st.SetSetting(ctx, storage.SettingRefreshInterval, "whenever"))
	assert.Equal(t, cron.Every(time.Hour), c.schedule(ctx))
}

func TestRun_RefreshesOnStartAndOnRequest(t *testing.T) {
	bus := events.NewBus(8)
	ch, cancelSub := bus.Subscribe()
	defer cancelSub()

	st := storage.NewMemory()
	c := New(nil, prices.NewService("gen_i", tariff.DefaultPrices(), st, nil), bus,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return winterMorning }),
		WithSchedule(cron.Every(time.Hour)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitRefresh := func() {
		select {
		case ev := <-ch:
			assert.Equal(t, events.TypeRefresh, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for refresh")
		}
	}
	waitRefresh()
	c.RequestRefresh()
	waitRefresh()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

// heldPrices stalls its first Current after reading the table, until
// release is closed.
type heldPrices struct {
	*prices.Service
	held    atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (h *heldPrices) Current(ctx context.Context) (tariff.PriceTable, error) {
	table, err := h.Service.Current(ctx)
	if h.held.CompareAndSwap(false, true) {
		close(h.reached)
		<-h.release
	}
	return table, err
}

func TestRefresh_StaleRefreshCannotOverwriteNewerPrices(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	src := &heldPrices{
		Service: prices.NewService("gen_i", tariff.DefaultPrices(), st, nil),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(tariff.NewEngine(nil), src, nil,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return winterMorning }),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := c.Refresh(ctx)
		assert.NoError(t, err)
	}()
	<-src.reached

	v := decimal.RequireFromString("0.5")
	go func() {
		defer wg.Done()
		_, err := c.UpdatePrices(ctx, prices.PriceUpdate{Block1: &v})
		assert.NoError(t, err)
	}()

	// Give the update time to reach its own refresh before the stale one
	// finishes.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "0.5", snap.Result.NetworkPrice.String())
	assert.Equal(t, "0.62236", snap.Result.TotalPrice.String())
}

// stalledPublisher never returns until its context ends.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestUpdatePrices_NotHeldUpByOutboundDelivery(t *testing.T) {
	out := events.NewAsync(stalledPublisher{}, 8, 0, nil)
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go out.Run(runCtx)

	rec := &recorder{}
	st := storage.NewMemory()
	c := New(tariff.NewEngine(nil), prices.NewService("gen_i", tariff.DefaultPrices(), st, nil),
		events.Multi{rec, out},
		WithLocation(time.UTC),
		WithClock(func() time.Time { return winterMorning }),
		WithStore(st),
	)

	done := make(chan error, 1)
	go func() {
		v := decimal.RequireFromString("0.03")
		_, err := c.UpdatePrices(context.Background(), prices.PriceUpdate{Block1: &v})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("UpdatePrices waited on a stalled publisher")
	}
	assert.Equal(t, []events.Type{events.TypePricesUpdated, events.TypeRefresh}, rec.types())
}
