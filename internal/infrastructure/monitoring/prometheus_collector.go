package monitoring

import (
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports monitor activity. It implements
// ports.MetricsRecorder.
type PrometheusCollector struct {
	// Gauges
	healthScore    prometheus.Gauge
	bitrate        prometheus.Gauge
	fps            prometheus.Gauge
	cpuUsage       prometheus.Gauge
	memoryUsage    prometheus.Gauge
	networkLatency prometheus.Gauge
	dropPercentage prometheus.Gauge
	monitoring     prometheus.Gauge
	healthStatus   *prometheus.GaugeVec

	// Counters
	ticksTotal         prometheus.Counter
	alertsTotal        *prometheus.CounterVec
	bitrateAdjustments *prometheus.CounterVec

	// Histograms
	tickDuration prometheus.Histogram
}

// NewPrometheusCollector registers all collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		healthScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_health_score",
			Help: "Current stream health score (0-100)",
		}),

		bitrate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_bitrate_kbps",
			Help: "Current encoder bitrate in kbps",
		}),

		fps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_fps",
			Help: "Current frames per second",
		}),

		cpuUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_cpu_usage_percent",
			Help: "Simulated encoder CPU usage",
		}),

		memoryUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_memory_usage_mb",
			Help: "Simulated encoder memory usage in MB",
		}),

		networkLatency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_network_latency_ms",
			Help: "Simulated uplink latency in milliseconds",
		}),

		dropPercentage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_dropped_frames_percent",
			Help: "Cumulative dropped frame percentage",
		}),

		monitoring: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streampulse_monitoring_active",
			Help: "1 while the tick loop is running",
		}),

		healthStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streampulse_health_status",
			Help: "1 for the current health tier, 0 otherwise",
		}, []string{"status"}),

		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "streampulse_ticks_total",
			Help: "Total number of sampling ticks",
		}),

		alertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streampulse_alerts_raised_total",
			Help: "Total number of alerts raised",
		}, []string{"key", "severity"}),

		bitrateAdjustments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streampulse_bitrate_adjustments_total",
			Help: "Total number of bitrate changes",
		}, []string{"reason"}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "streampulse_tick_duration_seconds",
			Help:    "Time spent in one sampling tick",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
	}
}

var healthTiers = []domain.HealthStatus{
	domain.StatusExcellent,
	domain.StatusGood,
	domain.StatusFair,
	domain.StatusPoor,
	domain.StatusCritical,
}

func (p *PrometheusCollector) RecordTick(snapshot domain.HealthSnapshot, score int, dropPct float64, duration time.Duration) {
	p.ticksTotal.Inc()
	p.tickDuration.Observe(duration.Seconds())

	p.healthScore.Set(float64(score))
	p.bitrate.Set(snapshot.Bitrate)
	p.fps.Set(snapshot.FPS)
	p.cpuUsage.Set(snapshot.CPUUsage)
	p.memoryUsage.Set(snapshot.MemoryUsage)
	p.networkLatency.Set(snapshot.NetworkLatency)
	p.dropPercentage.Set(dropPct)

	for _, tier := range healthTiers {
		value := 0.0
		if tier == snapshot.Status {
			value = 1
		}
		p.healthStatus.WithLabelValues(string(tier)).Set(value)
	}
}

func (p *PrometheusCollector) RecordAlert(alert domain.Alert) {
	p.alertsTotal.WithLabelValues(string(alert.Key), string(alert.Severity)).Inc()
}

func (p *PrometheusCollector) RecordBitrateAdjustment(adj domain.BitrateAdjustment) {
	p.bitrateAdjustments.WithLabelValues(adj.Reason).Inc()
	p.bitrate.Set(adj.To)
}

func (p *PrometheusCollector) RecordMonitoring(active bool) {
	if active {
		p.monitoring.Set(1)
		return
	}
	p.monitoring.Set(0)
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)
