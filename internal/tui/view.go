package tui

import (
	"fmt"
	"math"
	"strings"

	"streampulse/pkg/utils"

	"github.com/charmbracelet/lipgloss"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func (m Model) View() string {
	var b strings.Builder

	state := "stopped"
	if m.monitoring {
		state = "monitoring"
	}
	if !m.connected {
		state = "disconnected"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("pulsetop  [%s]", state)))
	b.WriteString("\n\n")

	s := m.snapshot
	rows := []string{
		row("Health", tierStyle(s.Status).Render(fmt.Sprintf("%d  %s", m.score, s.Status))),
		row("Bitrate", fmt.Sprintf("%.0f kbps", s.Bitrate)),
		row("FPS", fmt.Sprintf("%.0f", s.FPS)),
		row("Dropped", fmt.Sprintf("%d / %d (%.2f%%)", s.DroppedFrames, s.TotalFrames, s.DropPercentage())),
		row("CPU", fmt.Sprintf("%.1f%%", s.CPUUsage)),
		row("Memory", fmt.Sprintf("%.0f MB", s.MemoryUsage)),
		row("Latency", fmt.Sprintf("%.0f ms", s.NetworkLatency)),
		row("Upload", fmt.Sprintf("%.1f Mbps", s.UploadSpeed)),
		row("Viewers", fmt.Sprintf("%d (peak %d)", m.metrics.CurrentViewers, m.metrics.PeakViewers)),
		row("Uptime", utils.FormatUptime(m.metrics.Uptime)),
		row("Data sent", fmt.Sprintf("%.1f MB", m.metrics.DataSent)),
	}
	b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Bitrate trend"))
	b.WriteString(sparkline(m.bitrates))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Alerts"))
	b.WriteString("\n")
	if len(m.alerts) == 0 {
		b.WriteString("  none\n")
	}
	for _, a := range m.alerts {
		line := fmt.Sprintf("  [%s] %s", a.Severity, a.Message)
		if a.Resolved {
			line += " (resolved)"
		}
		b.WriteString(severityStyle(a.Severity).Render(line))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	} else if m.message != "" {
		b.WriteString("\n")
		b.WriteString(m.message)
	}

	b.WriteString(helpStyle.Render("s start/stop • c clear resolved • x reset metrics • q quit"))
	return b.String()
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// sparkline scales values between their min and max
func sparkline(values []float64) string {
	if len(values) == 0 {
		return "-"
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}
