package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bher20/slotariff/internal/tariff"
)

func TestObserveResult(t *testing.T) {
	before := testutil.ToFloat64(MissingBlockPriceTotal.WithLabelValues("2"))
	ObserveResult(tariff.PricingResult{
		Season:            tariff.SeasonHigher,
		CurrentBlock:      2,
		TotalPrice:        decimal.RequireFromString("0.14234"),
		MissingBlockPrice: true,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(CurrentBlock))
	assert.Equal(t, 1.0, testutil.ToFloat64(HigherSeason))
	assert.Equal(t, 0.0, testutil.ToFloat64(Holiday))
	assert.InDelta(t, 0.14234, testutil.ToFloat64(PriceEURPerKWh.WithLabelValues("total")), 1e-9)
	assert.Equal(t, before+1, testutil.ToFloat64(MissingBlockPriceTotal.WithLabelValues("2")))
}

func TestUpdateJobMetrics_CountsFailures(t *testing.T) {
	before := testutil.ToFloat64(ScheduledJobFailuresTotal.WithLabelValues("test"))
	UpdateJobMetrics("test", time.Now(), nil)
	UpdateJobMetrics("test", time.Now(), errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(ScheduledJobFailuresTotal.WithLabelValues("test")))
	assert.Greater(t, testutil.ToFloat64(ScheduledJobLastRun.WithLabelValues("test")), 0.0)
}
