package tui

import (
	"streampulse/internal/core/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B4BEFE"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8")).Width(16)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8")).Padding(1, 0)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#585B70")).
			Padding(0, 2)
)

var tierColors = map[domain.HealthStatus]lipgloss.Color{
	domain.StatusExcellent: lipgloss.Color("#A6E3A1"),
	domain.StatusGood:      lipgloss.Color("#94E2D5"),
	domain.StatusFair:      lipgloss.Color("#F9E2AF"),
	domain.StatusPoor:      lipgloss.Color("#FAB387"),
	domain.StatusCritical:  lipgloss.Color("#F38BA8"),
}

var severityColors = map[domain.AlertSeverity]lipgloss.Color{
	domain.SeverityInfo:     lipgloss.Color("#89B4FA"),
	domain.SeverityWarning:  lipgloss.Color("#F9E2AF"),
	domain.SeverityError:    lipgloss.Color("#FAB387"),
	domain.SeverityCritical: lipgloss.Color("#F38BA8"),
}

func tierStyle(status domain.HealthStatus) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(tierColors[status])
}

func severityStyle(sev domain.AlertSeverity) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(severityColors[sev])
}
