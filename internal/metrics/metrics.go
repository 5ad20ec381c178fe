package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bher20/slotariff/internal/tariff"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotariff_requests_total",
			Help: "Total number of API requests per route",
		},
		[]string{"route"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotariff_request_duration_seconds",
			Help:    "Request duration in seconds per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotariff_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)
)

var (
	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)
)

func UpdateDBPoolMetrics(driver string, total, idle, acquired float64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotariff_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}

var (
	CurrentBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slotariff_current_block",
		Help: "Network tariff block (1-5) in force at the last refresh",
	})

	PriceEURPerKWh = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slotariff_price_eur_per_kwh",
			Help: "Price components at the last refresh in EUR/kWh",
		},
		[]string{"component"},
	)

	HigherSeason = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slotariff_higher_season",
		Help: "1 during the higher season (November to February)",
	})

	Holiday = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slotariff_holiday",
		Help: "1 when the last refresh fell on a Slovenian public holiday",
	})

	MissingBlockPriceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotariff_missing_block_price_total",
			Help: "Refreshes that found no configured price for the active block",
		},
		[]string{"block"},
	)
)

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ObserveResult publishes the gauges for a computed pricing result.
func ObserveResult(r tariff.PricingResult) {
	CurrentBlock.Set(float64(r.CurrentBlock))
	HigherSeason.Set(boolGauge(r.Season == tariff.SeasonHigher))
	Holiday.Set(boolGauge(r.IsHoliday))

	components := map[string]float64{
		"energy":        r.EnergyPrice.InexactFloat64(),
		"network":       r.NetworkPrice.InexactFloat64(),
		"contributions": r.Contributions.InexactFloat64(),
		"excise":        r.ExciseTax.InexactFloat64(),
		"total":         r.TotalPrice.InexactFloat64(),
	}
	for name, v := range components {
		PriceEURPerKWh.WithLabelValues(name).Set(v)
	}
	if r.MissingBlockPrice {
		MissingBlockPriceTotal.WithLabelValues(strconv.Itoa(int(r.CurrentBlock))).Inc()
	}
}
