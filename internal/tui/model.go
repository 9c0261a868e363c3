package tui

import (
	"context"
	"net/http"

	"streampulse/internal/core/domain"
	"streampulse/internal/infrastructure/signal"

	tea "github.com/charmbracelet/bubbletea"
)

const maxSparkPoints = 60

// Controller performs control actions against the server
type Controller interface {
	Control(method, path string) error
}

// Model is the pulsetop dashboard state
type Model struct {
	controller Controller
	msgs       <-chan signal.FeedMessage
	errs       <-chan error
	cancel     context.CancelFunc

	snapshot   domain.HealthSnapshot
	metrics    domain.AggregateMetrics
	score      int
	alerts     []domain.Alert
	monitoring bool
	bitrates   []float64

	connected bool
	message   string
	err       error
	width     int
}

type feedMsg struct {
	msg signal.FeedMessage
}

type feedClosedMsg struct {
	err error
}

type actionMsg struct {
	message string
	err     error
}

func NewModel(controller Controller, msgs <-chan signal.FeedMessage, errs <-chan error, cancel context.CancelFunc) Model {
	return Model{
		controller: controller,
		msgs:       msgs,
		errs:       errs,
		cancel:     cancel,
		connected:  true,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForFeed(m.msgs, m.errs)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "s":
			if m.monitoring {
				return m, control(m.controller, http.MethodPost, "/monitoring/stop", "Monitoring stopped")
			}
			return m, control(m.controller, http.MethodPost, "/monitoring/start", "Monitoring started")
		case "c":
			return m, control(m.controller, http.MethodDelete, "/alerts/resolved", "Resolved alerts cleared")
		case "x":
			return m, control(m.controller, http.MethodPost, "/metrics/reset", "Metrics reset")
		}
		return m, nil

	case feedMsg:
		m.apply(msg.msg)
		return m, waitForFeed(m.msgs, m.errs)

	case feedClosedMsg:
		m.connected = false
		m.err = msg.err
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.message = msg.message
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) apply(msg signal.FeedMessage) {
	switch msg.Type {
	case signal.MessageHello:
		if msg.Report == nil {
			return
		}
		r := msg.Report
		m.snapshot = r.CurrentHealth
		m.metrics = r.Metrics
		m.score = r.HealthScore
		m.alerts = r.Alerts
		m.bitrates = m.bitrates[:0]
		for _, s := range r.History {
			m.pushBitrate(s.Bitrate)
		}
	case signal.MessageEvent:
		if msg.Event == nil {
			return
		}
		ev := msg.Event
		m.snapshot = ev.Snapshot
		m.metrics = ev.Metrics
		m.score = ev.HealthScore

		switch ev.Type {
		case domain.EventHealthTick:
			m.monitoring = true
			m.pushBitrate(ev.Snapshot.Bitrate)
		case domain.EventMonitorStarted:
			m.monitoring = true
		case domain.EventMonitorStopped:
			m.monitoring = false
		case domain.EventAlertRaised:
			if ev.Alert != nil {
				m.alerts = append(m.alerts, *ev.Alert)
			}
		case domain.EventAlertResolved:
			if ev.Alert != nil {
				for i := range m.alerts {
					if m.alerts[i].ID == ev.Alert.ID {
						m.alerts[i].Resolved = true
					}
				}
			}
		case domain.EventAlertsCleared:
			active := m.alerts[:0]
			for _, a := range m.alerts {
				if !a.Resolved {
					active = append(active, a)
				}
			}
			m.alerts = active
		case domain.EventMetricsReset:
			m.alerts = nil
			m.bitrates = m.bitrates[:0]
		}
	}
}

func (m *Model) pushBitrate(v float64) {
	m.bitrates = append(m.bitrates, v)
	if len(m.bitrates) > maxSparkPoints {
		m.bitrates = m.bitrates[len(m.bitrates)-maxSparkPoints:]
	}
}
