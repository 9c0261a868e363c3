package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event wraps a monitor event with the publishing instance
type Event struct {
	InstanceID string             `json:"instance_id"`
	Published  time.Time          `json:"published"`
	Health     domain.HealthEvent `json:"health"`
}

// EventBus fans monitor events out over a Redis pub/sub channel so that other
// instances and tools can follow a stream's health
type EventBus struct {
	client     *redis.Client
	instanceID string
	channel    string
	logger     *zap.SugaredLogger
	// health ticks are high volume; forward only every Nth one
	tickEvery int
	breaker   *circuitbreaker.CircuitBreaker
}

func NewEventBus(client *redis.Client, instanceID, channel string, logger *zap.SugaredLogger) *EventBus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	eb := &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		logger:     logger,
		tickEvery:  1,
	}
	eb.SetBreaker(circuitbreaker.DefaultConfig())
	return eb
}

// SetBreaker replaces the circuit breaker guarding Publish
func (eb *EventBus) SetBreaker(cfg circuitbreaker.Config) {
	cb := circuitbreaker.New(cfg)
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		eb.logger.Warnw("event bus circuit changed state",
			"channel", eb.channel,
			"from", from.String(),
			"to", to.String(),
		)
	})
	eb.breaker = cb
}

// BreakerState reports whether publishing is currently short-circuited
func (eb *EventBus) BreakerState() circuitbreaker.State {
	return eb.breaker.State()
}

// SetTickSampling forwards one health tick out of every n
func (eb *EventBus) SetTickSampling(n int) {
	if n < 1 {
		n = 1
	}
	eb.tickEvery = n
}

func (eb *EventBus) Publish(ctx context.Context, event domain.HealthEvent) error {
	data, err := json.Marshal(Event{
		InstanceID: eb.instanceID,
		Published:  time.Now(),
		Health:     event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = eb.breaker.Execute(ctx, func(ctx context.Context) error {
		return eb.client.Publish(ctx, eb.channel, data).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event", "type", event.Type, "channel", eb.channel)
	return nil
}

// Forward publishes monitor events until ctx is cancelled. Publish failures
// are logged and do not stop forwarding. Events are dropped while the
// circuit is open.
func (eb *EventBus) Forward(ctx context.Context, monitor ports.HealthMonitor, buffer int) {
	events, unsubscribe := monitor.Subscribe(buffer)
	defer unsubscribe()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == domain.EventHealthTick {
				ticks++
				if ticks%eb.tickEvery != 0 {
					continue
				}
			}
			err := eb.Publish(ctx, ev)
			switch {
			case err == nil:
			case errors.Is(err, circuitbreaker.ErrOpen):
				eb.logger.Debugw("dropped health event, circuit open", "type", ev.Type)
			default:
				eb.logger.Warnw("failed to forward health event", "type", ev.Type, "error", err)
			}
		}
	}
}

// Subscribe calls handler for every event published by other instances until
// ctx is cancelled
func (eb *EventBus) Subscribe(ctx context.Context, handler func(*Event) error) error {
	pubsub := eb.client.Subscribe(ctx, eb.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eb.channel, err)
	}
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal event", "error", err)
				continue
			}

			if event.InstanceID == eb.instanceID {
				continue
			}

			if err := handler(&event); err != nil {
				eb.logger.Warnw("error handling event",
					"type", event.Health.Type,
					"instance_id", event.InstanceID,
					"error", err,
				)
			}
		}
	}
}

// LogRemoteEvents returns a Subscribe handler that logs alert and bitrate
// events raised by other instances. Health ticks are ignored.
func LogRemoteEvents(logger *zap.SugaredLogger) func(*Event) error {
	return func(e *Event) error {
		h := e.Health
		switch h.Type {
		case domain.EventAlertRaised:
			if h.Alert == nil {
				return fmt.Errorf("alert event from %s without alert", e.InstanceID)
			}
			logger.Warnw("remote health alert",
				"instance_id", e.InstanceID,
				"key", h.Alert.Key,
				"severity", h.Alert.Severity,
				"message", h.Alert.Message,
				"health_score", h.HealthScore,
			)
		case domain.EventBitrateAdjusted:
			if h.Adjustment == nil {
				return fmt.Errorf("bitrate event from %s without adjustment", e.InstanceID)
			}
			logger.Infow("remote bitrate adjusted",
				"instance_id", e.InstanceID,
				"from", h.Adjustment.From,
				"to", h.Adjustment.To,
				"reason", h.Adjustment.Reason,
			)
		case domain.EventMonitorStarted, domain.EventMonitorStopped:
			logger.Infow("remote monitor state changed",
				"instance_id", e.InstanceID,
				"type", h.Type,
			)
		}
		return nil
	}
}
