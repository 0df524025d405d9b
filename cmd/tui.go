// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for informational events
}

// TUI model
type model struct {
	connInfo      string
	protocol      vikingbio.Protocol
	showAll       bool
	stats         *vikingbio.Statistics
	eventLog      []logEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	closed        bool
	width         int
	height        int
	quitting      bool
	last          *vikingbio.Frame
	fanBar        progress.Model
}

type tickMsg time.Time

// fanFraction is the fan duty as the bridge reports it, clamped to 0-1
func fanFraction(d vikingbio.Data) float64 {
	return float64(d.Normalize().FanSpeed) / vikingbio.MaxFanSpeed
}

func initialModel(connInfo string, protocol vikingbio.Protocol, showAll bool) model {
	return model{
		connInfo:      connInfo,
		protocol:      protocol,
		showAll:       showAll,
		stats:         vikingbio.NewStatistics(),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		fanBar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case syncMsg:
		m.synchronized = true
		m.invalidBytes = msg.invalidBytes
		if msg.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", msg.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case frameMsg:
		m.stats.Update(msg.frame, msg.decodeErr, msg.validationErrors)
		if msg.decodeErr != nil {
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
			break
		}

		if m.last != nil && m.last.Data.FlameDetected != msg.frame.Data.FlameDetected {
			if msg.frame.Data.FlameDetected {
				m.addLogEntry("Flame ignited", false)
			} else {
				m.addLogEntry(fmt.Sprintf("Flame extinguished at %d°C", msg.frame.Data.Temperature), false)
			}
		}
		m.last = msg.frame

		for _, verr := range msg.validationErrors {
			m.addLogEntry(verr.Message, true)
		}
		if len(msg.validationErrors) == 0 && m.showAll {
			m.addLogEntry(vikingbio.FormatData(msg.frame.Data), false)
		}

	case connClosedMsg:
		m.closed = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection closed", false)
		}
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("VIKINGSIM - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Protocol: %s | Press 'q' to quit", m.connInfo, m.protocol)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.closed:
		s.WriteString(errorStyle.Render("✗ Disconnected"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	totalErrors := m.stats.DecodeErrors + m.stats.AnomalousFrames
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	var stats strings.Builder
	fmt.Fprintf(&stats, "%s %s   %s %s   %s %s\n",
		labelStyle.Render("Total:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	)

	if m.stats.AnomalousFrames > 0 {
		fmt.Fprintf(&stats, "%s %s (%s: %d, %s: %d, %s: %d)\n",
			labelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousFrames)),
			headerStyle.Render("fan range"), m.stats.FanRange,
			headerStyle.Render("error code"), m.stats.ErrorCodes,
			headerStyle.Render("low temp"), m.stats.LowTemp,
		)
	}

	fmt.Fprintf(&stats, "%s %s   %s %s\n",
		labelStyle.Render("Ignitions:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Ignitions)),
		labelStyle.Render("Extinguishes:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Extinguishes)),
	)

	errRate := valueStyle.Render(fmt.Sprintf("%.2f err/s", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errRate = errorStyle.Render(fmt.Sprintf("%.2f err/s", m.stats.ErrorRate))
	}
	fmt.Fprintf(&stats, "%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.2f frames/s", m.stats.FrameRate)),
		labelStyle.Render("Error Rate:"), errRate,
	)

	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Latest frame
	if m.last != nil {
		d := m.last.Data
		s.WriteString(labelStyle.Render("Latest Frame:"))
		s.WriteString("\n")

		flame := headerStyle.Render("OFF")
		if d.FlameDetected {
			flame = warningStyle.Render("ON")
		}

		var frame strings.Builder
		fmt.Fprintf(&frame, "%s %s   %s %s\n",
			labelStyle.Render("Flame:"), flame,
			labelStyle.Render("Temperature:"), valueStyle.Render(fmt.Sprintf("%d°C", d.Temperature)),
		)
		fmt.Fprintf(&frame, "%s %s %3d%%\n",
			labelStyle.Render("Fan:"), m.fanBar.ViewAs(fanFraction(d)), d.FanSpeed,
		)
		if d.ErrorCode != 0 {
			fmt.Fprintf(&frame, "%s %s\n", labelStyle.Render("Error:"), errorStyle.Render(fmt.Sprintf("0x%02X", d.ErrorCode)))
		}
		fmt.Fprintf(&frame, "%s %s",
			labelStyle.Render("Raw:"), headerStyle.Render(vikingbio.FormatRaw(m.last.Protocol, m.last.Raw)),
		)

		s.WriteString(boxStyle.Render(frame.String()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := max(m.height-18, 5)

	var events strings.Builder
	startIdx := max(len(m.eventLog)-logHeight, 0)

	if len(m.eventLog) == 0 {
		events.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				fmt.Fprintf(&events, "%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message))
			} else {
				fmt.Fprintf(&events, "%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(events.String()))

	return s.String()
}
