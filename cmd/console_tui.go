// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// nodeReadings is the latest telemetry seen from one radio.
type nodeReadings struct {
	updated  time.Time
	readings map[thermonet.SensorKind]float32
}

type consoleModel struct {
	addr      string
	eventsURL string
	send      func(request string) tea.Cmd

	input   textinput.Model
	history []string
	histIdx int
	pending int

	log           []logEntry
	maxLogEntries int

	nodes map[string]*nodeReadings

	streaming bool
	streamErr string

	width    int
	height   int
	quitting bool
}

// Messages
type responseMsg struct {
	request  string
	response string
	err      error
}
type streamStateMsg struct {
	connected bool
	err       error
}
type eventMsg gateway.Event

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(addr, eventsURL string, send func(string) tea.Cmd) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "ST"
	ti.Prompt = "> "
	ti.CharLimit = gateway.MaxRequestSize
	ti.Width = 40
	ti.Focus()

	return consoleModel{
		addr:          addr,
		eventsURL:     eventsURL,
		send:          send,
		input:         ti,
		maxLogEntries: 200,
		nodes:         make(map[string]*nodeReadings),
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case responseMsg:
		if m.pending > 0 {
			m.pending--
		}
		switch {
		case msg.err != nil:
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.request, msg.err), true)
		default:
			m.addLogEntry(msg.response, strings.HasSuffix(msg.response, ":NACK"))
		}
		return m, nil

	case streamStateMsg:
		if msg.connected && !m.streaming {
			m.addLogEntry("Event stream connected", false)
		}
		if !msg.connected && m.streaming {
			m.addLogEntry("Event stream lost - reconnecting...", true)
		}
		m.streaming = msg.connected
		m.streamErr = ""
		if msg.err != nil {
			m.streamErr = msg.err.Error()
		}
		return m, nil

	case eventMsg:
		m.processEvent(gateway.Event(msg))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		request := strings.TrimSpace(m.input.Value())
		if request == "" {
			return m, nil
		}
		m.history = append(m.history, request)
		m.histIdx = len(m.history)
		m.input.Reset()
		m.pending++
		m.addLogEntry("> "+request, false)
		return m, m.send(request)

	case "esc":
		m.input.Reset()
		m.histIdx = len(m.history)
		return m, nil

	case "up":
		if m.histIdx > 0 {
			m.histIdx--
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case "down":
		if m.histIdx < len(m.history)-1 {
			m.histIdx++
			m.input.SetValue(m.history[m.histIdx])
			m.input.CursorEnd()
		} else {
			m.histIdx = len(m.history)
			m.input.Reset()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *consoleModel) processEvent(ev gateway.Event) {
	switch ev.Kind {
	case gateway.EventTelemetry:
		recordReadings(m.nodes, ev.Source, ev.Time, ev.Readings)

	case gateway.EventExchangeResolved:
		failed := ev.Outcome != gateway.OutcomeReply
		msg := fmt.Sprintf("%s: %s", ev.Command, ev.Outcome)
		if ev.Text != "" {
			msg += " (" + ev.Text + ")"
		}
		m.addLogEntry(msg, failed)

	case gateway.EventDropped:
		msg := "Dropped frame: " + ev.Outcome
		if ev.Source != "" {
			msg += " from " + ev.Source
		}
		m.addLogEntry(msg, true)

	case gateway.EventModemStatus:
		m.addLogEntry("Modem: "+ev.Text, false)
	}
}

func (m *consoleModel) addLogEntry(message string, isError bool) {
	m.log = appendLog(m.log, m.maxLogEntries, message, isError)
}

// appendLog adds an entry and keeps only the last max entries.
func appendLog(log []logEntry, max int, message string, isError bool) []logEntry {
	log = append(log, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(log) > max {
		log = log[len(log)-max:]
	}
	return log
}

// recordReadings merges telemetry into the per-radio latest readings.
func recordReadings(nodes map[string]*nodeReadings, source string, at time.Time, readings []thermonet.SensorReading) {
	node, ok := nodes[source]
	if !ok {
		node = &nodeReadings{readings: make(map[thermonet.SensorKind]float32)}
		nodes[source] = node
	}
	node.updated = at
	for _, r := range readings {
		node.readings[r.Kind] = r.Value
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	var s strings.Builder
	s.WriteString(titleStyle.Render("THERMOGATE - CONSOLE"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Gateway: %s | Press Ctrl+C to quit", m.addr)))
	s.WriteString("\n")

	switch {
	case m.eventsURL == "":
		s.WriteString(headerStyle.Render("Event stream disabled"))
	case m.streaming:
		s.WriteString(valueStyle.Render("✓ Events: " + m.eventsURL))
	case m.streamErr != "":
		s.WriteString(warningStyle.Render("⏳ Events unavailable: " + m.streamErr))
	default:
		s.WriteString(warningStyle.Render("⏳ Connecting to " + m.eventsURL))
	}
	s.WriteString("\n\n")

	if len(m.nodes) > 0 {
		s.WriteString(labelStyle.Render("Sensors:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(renderNodes(m.nodes, labelStyle, valueStyle, headerStyle)))
		s.WriteString("\n\n")
	}

	s.WriteString(labelStyle.Render("Events:"))
	if m.pending > 0 {
		s.WriteString(headerStyle.Render(fmt.Sprintf(" (%d awaiting response)", m.pending)))
	}
	s.WriteString("\n")

	logHeight := m.height - 12 - 2*len(m.nodes)
	if logHeight < 5 {
		logHeight = 5
	}
	start := len(m.log) - logHeight
	if start < 0 {
		start = 0
	}

	var logContent strings.Builder
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.log[start:] {
		ts := headerStyle.Render(entry.timestamp.Format("15:04:05.000"))
		if entry.isError {
			logContent.WriteString(fmt.Sprintf("%s %s\n", ts, errorStyle.Render("✗ "+entry.message)))
		} else {
			logContent.WriteString(fmt.Sprintf("%s %s\n", ts, warningStyle.Render("ℹ "+entry.message)))
		}
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))
	s.WriteString("\n")
	s.WriteString(m.input.View())

	return s.String()
}

func renderNodes(nodes map[string]*nodeReadings, labelStyle, valueStyle, headerStyle lipgloss.Style) string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for i, id := range ids {
		node := nodes[id]
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render(id))
		b.WriteString(headerStyle.Render(" " + node.updated.Format("15:04:05")))
		for _, kind := range thermonet.AllSensorKinds() {
			if v, ok := node.readings[kind]; ok {
				b.WriteString(fmt.Sprintf("  %s=%s", kind.Key(), valueStyle.Render(fmt.Sprintf("%.2f", v))))
			}
		}
	}
	return b.String()
}
