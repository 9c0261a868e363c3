package services

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/tracing"
	"streampulse/pkg/validation"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultHistorySize    = 60
	DefaultInitialBitrate = 6000.0

	// drift from the recommendation the auto-optimizer tolerates, in kbps
	optimizeThreshold = 500.0
	reasonManual      = "manual"
)

// MonitorConfig configures a HealthMonitorService
type MonitorConfig struct {
	TickInterval   time.Duration
	HistorySize    int
	InitialBitrate float64
	Optimization   domain.OptimizationSettings
}

// MonitorOption customizes a HealthMonitorService
type MonitorOption func(*HealthMonitorService)

// WithRandomSource replaces the time-seeded generator, e.g. for reproducible runs
func WithRandomSource(rnd RandomSource) MonitorOption {
	return func(m *HealthMonitorService) {
		m.sampler = NewHealthSampler(rnd)
	}
}

// WithMetricsRecorder reports tick and alert activity to recorder
func WithMetricsRecorder(recorder ports.MetricsRecorder) MonitorOption {
	return func(m *HealthMonitorService) {
		m.recorder = recorder
	}
}

// WithClock overrides time.Now for snapshot and alert timestamps
func WithClock(now func() time.Time) MonitorOption {
	return func(m *HealthMonitorService) {
		m.now = now
	}
}

// HealthMonitorService owns the simulated stream health state. A single
// ticker goroutine drives sampler, evaluator, detector and optimizer in that
// order; ticks never overlap. Readers receive copies.
type HealthMonitorService struct {
	sampler  *HealthSampler
	detector *AlertDetector
	recorder ports.MetricsRecorder
	logger   *zap.SugaredLogger
	now      func() time.Time

	interval       time.Duration
	historySize    int
	initialBitrate float64

	mu       sync.RWMutex
	current  domain.HealthSnapshot
	history  []domain.HealthSnapshot
	metrics  domain.AggregateMetrics
	settings domain.OptimizationSettings

	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	subMu       sync.Mutex
	subscribers map[int]chan domain.HealthEvent
	nextSubID   int
}

// NewHealthMonitorService creates a stopped monitor
func NewHealthMonitorService(cfg MonitorConfig, logger *zap.SugaredLogger, opts ...MonitorOption) (*HealthMonitorService, error) {
	if cfg.TickInterval <= 0 {
		return nil, apperrors.WrapError(domain.ErrInvalidInterval, apperrors.ErrCodeInvalidInput,
			"tick interval must be positive", http.StatusBadRequest).
			WithContext("tick_interval", cfg.TickInterval.String())
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.InitialBitrate <= 0 {
		cfg.InitialBitrate = DefaultInitialBitrate
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := &HealthMonitorService{
		sampler:        NewHealthSampler(rand.New(rand.NewSource(time.Now().UnixNano()))),
		detector:       NewAlertDetector(),
		recorder:       ports.NopMetricsRecorder{},
		logger:         logger,
		now:            time.Now,
		interval:       cfg.TickInterval,
		historySize:    cfg.HistorySize,
		initialBitrate: cfg.InitialBitrate,
		settings:       cfg.Optimization,
		subscribers:    make(map[int]chan domain.HealthEvent),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.current = domain.InitialSnapshot(m.initialBitrate, m.now())
	m.history = make([]domain.HealthSnapshot, 0, m.historySize)

	return m, nil
}

// StartMonitoring launches the tick loop. It returns false if the loop was
// already running. The loop also ends when ctx is cancelled.
func (m *HealthMonitorService) StartMonitoring(ctx context.Context) bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	event := m.eventLocked(domain.EventMonitorStarted)
	m.mu.Unlock()

	go m.run(loopCtx, done)

	m.logger.Infow("health monitoring started", "tick_interval", m.interval)
	m.recorder.RecordMonitoring(true)
	m.publish(event)
	return true
}

// StopMonitoring stops the tick loop and waits for an in-flight tick to
// finish. It returns false if monitoring was not running.
func (m *HealthMonitorService) StopMonitoring() bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.RLock()
	event := m.eventLocked(domain.EventMonitorStopped)
	m.mu.RUnlock()

	m.logger.Info("health monitoring stopped")
	m.recorder.RecordMonitoring(false)
	m.publish(event)
	return true
}

func (m *HealthMonitorService) IsMonitoring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *HealthMonitorService) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer func() {
		ticker.Stop()
		m.mu.Lock()
		// cancelled by the parent context rather than StopMonitoring
		if m.done == done {
			m.running = false
			m.cancel = nil
			m.done = nil
		}
		m.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick performs one synchronous sampling step. The loop calls it on every
// interval; hosts with their own scheduler may call it directly.
func (m *HealthMonitorService) Tick() {
	start := time.Now()
	_, span := tracing.TraceMonitorTick(context.Background())
	defer span.End()

	m.mu.Lock()
	now := m.now()

	next := m.sampler.Next(m.current, now)
	dropPct := next.DropPercentage()
	score, status := EvaluateHealth(next, dropPct)
	next.Status = status
	m.current = next

	m.history = append(m.history, next)
	if len(m.history) > m.historySize {
		m.history = append(m.history[:0], m.history[len(m.history)-m.historySize:]...)
	}
	m.updateMetricsLocked(dropPct)

	raised := m.detector.Evaluate(next, dropPct, now)

	var adjustment *domain.BitrateAdjustment
	if m.settings.Enabled() {
		adjustment = m.optimizeBitrateLocked()
	}

	events := make([]domain.HealthEvent, 0, len(raised)+2)
	for i := range raised {
		ev := m.eventLocked(domain.EventAlertRaised)
		ev.Alert = &raised[i]
		events = append(events, ev)
	}
	if adjustment != nil {
		ev := m.eventLocked(domain.EventBitrateAdjusted)
		ev.Adjustment = adjustment
		events = append(events, ev)
	}
	tickEvent := m.eventLocked(domain.EventHealthTick)
	events = append(events, tickEvent)
	snapshot := m.current
	m.mu.Unlock()

	span.SetAttributes(
		tracing.HealthScoreKey.Int(score),
		tracing.HealthTierKey.String(string(snapshot.Status)),
		tracing.BitrateKey.Float64(snapshot.Bitrate),
	)

	for _, alert := range raised {
		span.AddEvent("alert.raised", trace.WithAttributes(
			tracing.AlertKeyKey.String(string(alert.Key)),
		))
		m.logger.Warnw("health alert raised",
			"key", alert.Key,
			"severity", alert.Severity,
			"message", alert.Message,
		)
		m.recorder.RecordAlert(alert)
	}
	if adjustment != nil {
		m.logger.Infow("bitrate auto-adjusted",
			"from", adjustment.From,
			"to", adjustment.To,
			"reason", adjustment.Reason,
		)
		m.recorder.RecordBitrateAdjustment(*adjustment)
	}
	m.logger.Debugw("health tick",
		"score", score,
		"status", snapshot.Status,
		"bitrate", snapshot.Bitrate,
		"drop_pct", dropPct,
	)
	m.recorder.RecordTick(snapshot, score, dropPct, time.Since(start))

	for _, ev := range events {
		m.publish(ev)
	}
}

func (m *HealthMonitorService) updateMetricsLocked(dropPct float64) {
	seconds := m.interval.Seconds()

	m.metrics.Uptime += seconds
	// kbps * s = kilobits -> MB
	m.metrics.DataSent += m.current.Bitrate * seconds / 8 / 1024
	m.metrics.DropRate = dropPct

	m.metrics.CurrentViewers = m.sampler.NextViewers(m.metrics.CurrentViewers)
	if m.metrics.CurrentViewers > m.metrics.PeakViewers {
		m.metrics.PeakViewers = m.metrics.CurrentViewers
	}

	var bitrateSum, fpsSum float64
	for _, s := range m.history {
		bitrateSum += s.Bitrate
		fpsSum += s.FPS
	}
	if n := float64(len(m.history)); n > 0 {
		m.metrics.AverageBitrate = bitrateSum / n
		m.metrics.AverageFPS = fpsSum / n
	}
}

// optimizeBitrateLocked snaps the live bitrate to the advisor's
// recommendation when the drift exceeds optimizeThreshold.
func (m *HealthMonitorService) optimizeBitrateLocked() *domain.BitrateAdjustment {
	rec := RecommendBitrate(m.current, m.current.DropPercentage())
	if math.Abs(m.current.Bitrate-rec.Recommended) <= optimizeThreshold {
		return nil
	}
	adj := &domain.BitrateAdjustment{
		From:   m.current.Bitrate,
		To:     rec.Recommended,
		Reason: rec.Reason,
	}
	m.current.Bitrate = rec.Recommended
	return adj
}

func (m *HealthMonitorService) CurrentHealth() domain.HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *HealthMonitorService) Metrics() domain.AggregateMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

// Alerts returns active alerts in the order they were raised
func (m *HealthMonitorService) Alerts() []domain.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detector.Alerts()
}

// HealthHistory returns up to HistorySize snapshots, oldest first
func (m *HealthMonitorService) HealthHistory() []domain.HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HealthSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

func (m *HealthMonitorService) HealthScore() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return HealthScore(m.current, m.current.DropPercentage())
}

func (m *HealthMonitorService) DropPercentage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.DropPercentage()
}

func (m *HealthMonitorService) BitrateRecommendation() domain.BitrateRecommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return RecommendBitrate(m.current, m.current.DropPercentage())
}

// ResolveAlert marks the active alert for key resolved; a later tick may
// raise it again. Unknown keys are ignored.
func (m *HealthMonitorService) ResolveAlert(key domain.AlertKey) {
	m.mu.Lock()
	alert, ok := m.detector.Resolve(key)
	if !ok {
		m.mu.Unlock()
		return
	}
	event := m.eventLocked(domain.EventAlertResolved)
	event.Alert = &alert
	m.mu.Unlock()

	m.logger.Infow("health alert resolved", "key", key)
	m.publish(event)
}

func (m *HealthMonitorService) ClearResolvedAlerts() {
	m.mu.Lock()
	removed := m.detector.ClearResolved()
	event := m.eventLocked(domain.EventAlertsCleared)
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debugw("resolved alerts cleared", "count", removed)
		m.publish(event)
	}
}

// ManualBitrateAdjust overrides the live bitrate without consulting the advisor
func (m *HealthMonitorService) ManualBitrateAdjust(kbps float64) error {
	if err := validation.ValidateBitrate(kbps); err != nil {
		return apperrors.WrapError(domain.ErrInvalidBitrate, apperrors.ErrCodeInvalidInput,
			err.Error(), http.StatusBadRequest).
			WithContext("bitrate", kbps)
	}

	m.mu.Lock()
	adj := domain.BitrateAdjustment{From: m.current.Bitrate, To: kbps, Reason: reasonManual}
	m.current.Bitrate = kbps
	event := m.eventLocked(domain.EventBitrateAdjusted)
	event.Adjustment = &adj
	m.mu.Unlock()

	m.logger.Infow("bitrate manually adjusted", "from", adj.From, "to", adj.To)
	m.recorder.RecordBitrateAdjustment(adj)
	m.publish(event)
	return nil
}

// ResetMetrics zeroes frame counters and aggregates and clears history and
// alerts. A running tick loop keeps running.
func (m *HealthMonitorService) ResetMetrics() {
	m.mu.Lock()
	m.current.DroppedFrames = 0
	m.current.TotalFrames = 0
	m.current.Timestamp = m.now()
	m.history = m.history[:0]
	m.metrics = domain.AggregateMetrics{}
	m.detector.Reset()
	event := m.eventLocked(domain.EventMetricsReset)
	m.mu.Unlock()

	m.logger.Info("health metrics reset")
	m.publish(event)
}

func (m *HealthMonitorService) OptimizationSettings() domain.OptimizationSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

func (m *HealthMonitorService) SetOptimizationSettings(settings domain.OptimizationSettings) {
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()

	m.logger.Infow("optimization settings updated",
		"auto_optimize", settings.AutoOptimize,
		"auto_bitrate_adjustment", settings.AutoBitrateAdjustment,
	)
}

// Report captures a consistent view of the whole monitor state
func (m *HealthMonitorService) Report() domain.HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dropPct := m.current.DropPercentage()
	history := make([]domain.HealthSnapshot, len(m.history))
	copy(history, m.history)

	return domain.HealthReport{
		CurrentHealth:  m.current,
		Metrics:        m.metrics,
		HealthScore:    HealthScore(m.current, dropPct),
		DropPercentage: dropPct,
		Recommendation: RecommendBitrate(m.current, dropPct),
		Alerts:         m.detector.Alerts(),
		History:        history,
	}
}

// ExportHealthReport serializes Report as an indented JSON document
func (m *HealthMonitorService) ExportHealthReport() ([]byte, error) {
	data, err := json.MarshalIndent(m.Report(), "", "  ")
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to encode health report", http.StatusInternalServerError)
	}
	return data, nil
}

// Subscribe registers a listener for HealthEvents. Delivery never blocks the
// monitor: events are dropped for a subscriber whose buffer is full. The
// returned func unsubscribes and closes the channel.
func (m *HealthMonitorService) Subscribe(buffer int) (<-chan domain.HealthEvent, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.HealthEvent, buffer)

	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subscribers, id)
			m.subMu.Unlock()
			close(ch)
		})
	}
}

func (m *HealthMonitorService) publish(event domain.HealthEvent) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *HealthMonitorService) eventLocked(typ domain.HealthEventType) domain.HealthEvent {
	return domain.HealthEvent{
		Type:        typ,
		Timestamp:   m.now(),
		Snapshot:    m.current,
		Metrics:     m.metrics,
		HealthScore: HealthScore(m.current, m.current.DropPercentage()),
	}
}

var _ ports.HealthMonitor = (*HealthMonitorService)(nil)
