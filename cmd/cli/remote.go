// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"roapctl/internal/device"
	"roapctl/internal/logger"
)

// remoteButton is a key on the on-screen remote and the action it sends.
type remoteButton struct {
	label      string
	actionType device.ActionType
	action     string
	parameters map[string]interface{}
}

func keyButton(label, key string) remoteButton {
	return remoteButton{label: label, actionType: device.ActionTypeRemote, action: key}
}

func controlButton(label string, action device.ControlAction, params map[string]interface{}) remoteButton {
	return remoteButton{label: label, actionType: device.ActionTypeControl, action: string(action), parameters: params}
}

func inputButton(label, source string) remoteButton {
	return controlButton(label, device.ControlActionChangeInput, map[string]interface{}{"source": source})
}

// Keyboard bindings
var remoteKeymap = map[string]remoteButton{
	"up":        keyButton("  ↑   ", "up"),
	"down":      keyButton("  ↓   ", "down"),
	"left":      keyButton("  ←   ", "left"),
	"right":     keyButton("  →   ", "right"),
	"enter":     keyButton(" OK   ", "ok"),
	"p":         keyButton(" PWR  ", "power"),
	"+":         keyButton("VOL + ", "volume_up"),
	"=":         keyButton("VOL + ", "volume_up"),
	"-":         keyButton("VOL - ", "volume_down"),
	"m":         keyButton("MUTE  ", "mute"),
	"pgup":      keyButton("CH +  ", "channel_up"),
	"pgdown":    keyButton("CH -  ", "channel_down"),
	"h":         keyButton("HOME  ", "home"),
	"n":         keyButton("MENU  ", "menu"),
	"backspace": keyButton("BACK  ", "back"),
	"i":         keyButton("INPUT ", "input"),
	"x":         keyButton("EXIT  ", "exit"),
	"f1":        inputButton("HDMI1 ", "HDMI_1"),
	"f2":        inputButton("HDMI2 ", "HDMI_2"),
	"f3":        inputButton("HDMI3 ", "HDMI_3"),
	"f4":        inputButton("HDMI4 ", "HDMI_4"),
	"r":         controlButton("SHOW KEY", device.ControlActionPairRequest, nil),
	"a":         controlButton("PAIR  ", device.ControlActionPair, nil),
	"c":         controlButton("SOURCE", device.ControlActionCurrentInput, nil),
}

func init() {
	for _, digit := range "0123456789" {
		d := string(digit)
		remoteKeymap[d] = keyButton("  "+d+"   ", d)
	}
}

// actionResultMsg carries the outcome of an action back to the model.
type actionResultMsg struct {
	key      string
	action   string
	response *device.ActionResponse
}

// LogEntry represents a log entry for display
type LogEntry struct {
	Timestamp time.Time
	Level     string // INF, ERR
	Message   string
}

// RemoteModel handles the remote control screen
type RemoteModel struct {
	device     device.Device
	deviceInfo device.DeviceInfo

	selectedKey     string
	lastButtonPress time.Time
	pending         int

	lastResponse  *device.ActionResponse
	actionHistory []actionHistoryEntry

	debugMode bool

	width  int
	height int

	logBuffer []LogEntry
}

// NewRemoteModel creates a new remote control screen model
func NewRemoteModel(dev device.Device, info device.DeviceInfo, debug bool) RemoteModel {
	return RemoteModel{
		device:     dev,
		deviceInfo: info,
		debugMode:  debug,
	}
}

// Update handles remote control screen messages
func (m RemoteModel) Update(msg tea.Msg) (RemoteModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case actionResultMsg:
		return m.handleResult(msg), nil

	case tea.KeyMsg:
		if button, ok := remoteKeymap[msg.String()]; ok {
			return m.handleRemoteButton(msg.String(), button)
		}
	}

	return m, nil
}

// handleRemoteButton sends the button's action without blocking the UI.
func (m RemoteModel) handleRemoteButton(key string, button remoteButton) (RemoteModel, tea.Cmd) {
	if m.device == nil {
		return m, nil
	}

	request := device.ActionRequest{
		Type:       button.actionType,
		Action:     button.action,
		Parameters: button.parameters,
	}
	actionJSON, err := json.Marshal(request)
	if err != nil {
		m.lastResponse = device.Failure("", "%v", err)
		return m, nil
	}

	m.selectedKey = key
	m.lastButtonPress = time.Now()
	m.pending++

	dev := m.device
	return m, func() tea.Msg {
		response, err := dev.Process(context.Background(), actionJSON)
		if err != nil {
			response = device.Failure("", "%v", err)
		}
		return actionResultMsg{key: key, action: string(actionJSON), response: response}
	}
}

func (m RemoteModel) handleResult(msg actionResultMsg) RemoteModel {
	if m.pending > 0 {
		m.pending--
	}
	m.lastResponse = msg.response

	entry := actionHistoryEntry{
		Timestamp: time.Now(),
		Action:    msg.action,
		Success:   msg.response.Success,
		Error:     msg.response.Error,
	}
	m.actionHistory = append([]actionHistoryEntry{entry}, m.actionHistory...)
	if len(m.actionHistory) > 50 {
		m.actionHistory = m.actionHistory[:50]
	}

	name := remoteKeymap[msg.key].action
	if msg.response.Success {
		m.addLogEntry("INF", fmt.Sprintf("%s completed", name))
	} else {
		m.addLogEntry("ERR", fmt.Sprintf("%s failed: %s", name, msg.response.Error))
	}

	log := logger.New()
	log.Info().
		Str("action", msg.action).
		Bool("success", msg.response.Success).
		Msg("Remote button pressed")

	return m
}

// addLogEntry adds a new log entry to the buffer
func (m *RemoteModel) addLogEntry(level, message string) {
	m.logBuffer = append(m.logBuffer, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})
	if len(m.logBuffer) > 20 {
		m.logBuffer = m.logBuffer[1:]
	}
}

// View renders the remote control screen
func (m RemoteModel) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("roapctl - TV Remote Control"))

	info := successStyle.Render("📺 " + m.deviceInfo.ID + " " + m.deviceInfo.Address)
	if m.pending > 0 {
		info += " " + lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Render("(sending...)")
	}
	sections = append(sections, info)

	sections = append(sections, m.renderRemoteLayout())

	if m.lastResponse != nil {
		sections = append(sections, m.renderStatusBar())
	}

	if m.debugMode {
		if logs := m.renderLogDisplay(); logs != "" {
			sections = append(sections, logs)
		}
	}

	sections = append(sections, m.renderHelpText())

	return strings.Join(sections, "\n\n")
}

func (m RemoteModel) button(key string) string {
	style := remoteButtonStyle
	if m.selectedKey == key && time.Since(m.lastButtonPress) < 200*time.Millisecond {
		style = remoteButtonActiveStyle
	}
	return style.Render(remoteKeymap[key].label)
}

// renderRemoteLayout creates a horizontal remote control layout
func (m RemoteModel) renderRemoteLayout() string {
	navColumn := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Render("Power & Navigation:"),
		m.button("p"),
		"",
		m.button("up"),
		lipgloss.JoinHorizontal(lipgloss.Center, m.button("left"), m.button("enter"), m.button("right")),
		m.button("down"),
	)

	volumeColumn := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")).Render("Volume & Channel:"),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("+"), "  ", m.button("pgup")),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("-"), "  ", m.button("pgdown")),
		m.button("m"),
	)

	functionColumn := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Render("Functions:"),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("h"), " ", m.button("n")),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("backspace"), " ", m.button("i")),
		"",
		lipgloss.NewStyle().Foreground(lipgloss.Color("#BD93F9")).Render("Inputs:"),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("f1"), " ", m.button("f2")),
		lipgloss.JoinHorizontal(lipgloss.Left, m.button("f3"), " ", m.button("f4")),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		navColumn,
		strings.Repeat(" ", 6),
		volumeColumn,
		strings.Repeat(" ", 6),
		functionColumn,
	)
}

// renderStatusBar creates the status bar with last action result
func (m RemoteModel) renderStatusBar() string {
	if m.lastResponse.Success {
		status := successStyle.Render("✓ Action successful")
		if m.lastResponse.Data != nil {
			if data, err := json.Marshal(m.lastResponse.Data); err == nil {
				status += ": " + string(data)
			}
		}
		return status
	}
	return errorStyle.Render("✗ " + m.lastResponse.Error)
}

// renderLogDisplay shows the last three log entries
func (m RemoteModel) renderLogDisplay() string {
	if len(m.logBuffer) == 0 {
		return ""
	}

	const maxLines = 3
	start := 0
	if len(m.logBuffer) > maxLines {
		start = len(m.logBuffer) - maxLines
	}

	lines := []string{lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Render("─── LOGS ───")}
	for _, entry := range m.logBuffer[start:] {
		levelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
		if entry.Level == "ERR" {
			levelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
		}

		line := fmt.Sprintf("%s [%s] %s", entry.Timestamp.Format("15:04:05"), levelStyle.Render(entry.Level), entry.Message)
		if len(line) > 70 {
			line = line[:67] + "..."
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// renderHelpText creates the help text at the bottom
func (m RemoteModel) renderHelpText() string {
	help := "Arrows: Navigate • Enter: OK • P: Power • +/-: Volume • M: Mute • 0-9: Numbers"
	if m.width > 100 {
		help += " • PgUp/PgDn: Channel • H: Home • N: Menu • I: Input • X: Exit • F1-F4: HDMI • R: Show key • A: Pair • C: Source • q: Disconnect"
	} else {
		help += " • q: Disconnect"
	}

	return "\n" + helpStyle.Render(help)
}
