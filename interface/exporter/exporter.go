package exporter

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	METRIC_ERROR_COUNT    = "error_count"
	METRIC_DEPOSIT_COUNT  = "deposit_count"
	METRIC_WITHDRAW_COUNT = "withdraw_count"
	METRIC_REWARD_COUNT   = "reward_count"

	METRIC_TOTAL_PRINCIPAL = "total_principal_wei"
	METRIC_CUSTODY         = "custody_wei"
	METRIC_DUST            = "dust_wei"
	METRIC_ACCOUNTS        = "active_accounts"
)

var (
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {

		// --- Static Metrics: the metrics which are not depended on running configuration

		// Create metric spaces
		counters = make(map[string]prometheus.Counter)
		gauges = make(map[string]prometheus.Gauge)

		// Register metrics
		registerCounter(METRIC_ERROR_COUNT, "Counts the number of failed pool operations")
		registerCounter(METRIC_DEPOSIT_COUNT, "Counts the number of deposits")
		registerCounter(METRIC_WITHDRAW_COUNT, "Counts the number of withdrawals")
		registerCounter(METRIC_REWARD_COUNT, "Counts the number of reward injections")

		registerGauge(METRIC_TOTAL_PRINCIPAL, "Sum of the active principals in the pool")
		registerGauge(METRIC_CUSTODY, "Balance held in custody by the pool")
		registerGauge(METRIC_DUST, "Unattributed rounding remainder found by the latest audit")
		registerGauge(METRIC_ACCOUNTS, "Number of accounts with an active principal")
	})
}

func registerCounter(name string, help string) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ethpool",
		Subsystem: "pool",
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(counter)
	counters[name] = counter
}

func registerGauge(name string, help string) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ethpool",
		Subsystem: "pool",
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(gauge)
	gauges[name] = gauge
}

func GetCounter(name string) prometheus.Counter {
	return counters[name]
}

func GetGauge(name string) prometheus.Gauge {
	return gauges[name]
}

// IncCounter is a no-op until Init is called.
func IncCounter(name string) {
	if counter, ok := counters[name]; ok {
		counter.Inc()
	}
}

func IncErrorCount() {
	IncCounter(METRIC_ERROR_COUNT)
}

func SetGauge(name string, value float64) {
	if gauge, ok := gauges[name]; ok {
		gauge.Set(value)
	}
}

// SetAmountGauge sets an amount in wei; precision beyond float64 is dropped.
func SetAmountGauge(name string, value *uint256.Int) {
	f, _ := new(big.Float).SetInt(value.ToBig()).Float64()
	SetGauge(name, f)
}
