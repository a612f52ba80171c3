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
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"roapctl/internal/config"
	"roapctl/internal/device"
	"roapctl/internal/logger"
	"roapctl/internal/roap"
)

// Setup screen input fields
type setupField int

const (
	setupFieldSavedDevice setupField = iota
	setupFieldHostAddress
	setupFieldPairingKey
	setupFieldConnect
)

var setupFields = []setupField{setupFieldSavedDevice, setupFieldHostAddress, setupFieldPairingKey, setupFieldConnect}

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)

const manualEntry = "Manual entry"

// SetupModel handles the device setup screen
type SetupModel struct {
	focusedField setupField

	// Saved devices from the config file; index 0 is manual entry
	saved         []config.DeviceConfig
	selectedSaved int

	hostAddress string
	pairingKey  string

	hostAddressCursor int
	pairingKeyCursor  int

	connectionError string

	device     device.Device
	deviceInfo device.DeviceInfo

	debugMode bool
	options   []roap.Option
}

// NewSetupModel creates a setup screen listing saved devices.
func NewSetupModel(saved []config.DeviceConfig, debug bool, opts ...roap.Option) SetupModel {
	return SetupModel{
		focusedField: setupFieldSavedDevice,
		saved:        saved,
		debugMode:    debug,
		options:      opts,
	}
}

// Update handles setup screen messages
func (m SetupModel) Update(msg tea.Msg) (SetupModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "tab", "shift+tab":
		return m.handleTabNavigation(keyMsg.String() == "shift+tab"), nil
	case "enter":
		switch m.focusedField {
		case setupFieldSavedDevice:
			m = m.applySelection()
			m.focusedField = setupFieldConnect
			return m, nil
		case setupFieldConnect:
			return m.handleConnect(), nil
		}
		return m, nil
	case "up":
		return m.moveSelection(-1), nil
	case "down":
		return m.moveSelection(1), nil
	case "left":
		return m.moveCursor(-1), nil
	case "right":
		return m.moveCursor(1), nil
	case "home":
		return m.moveCursor(-1 << 16), nil
	case "end":
		return m.moveCursor(1 << 16), nil
	case "backspace":
		return m.handleBackspace(), nil
	case "delete":
		return m.handleDelete(), nil
	}

	if keyMsg.Type == tea.KeyRunes {
		return m.handleTextInput(string(keyMsg.Runes)), nil
	}
	return m, nil
}

// View renders the setup screen
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("roapctl - Connect to TV"))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render("Saved Devices:"))
	b.WriteString("\n")
	for i, name := range m.choices() {
		cursor := "  "
		if i == m.selectedSaved {
			cursor = "> "
		}
		style := lipgloss.NewStyle()
		if m.focusedField == setupFieldSavedDevice && i == m.selectedSaved {
			style = style.Foreground(lipgloss.Color("#FF79C6"))
		}
		b.WriteString(style.Render(cursor + name))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(subtitleStyle.Render("Host Address (IP or IP:Port):"))
	b.WriteString("\n")
	b.WriteString(m.renderInput(setupFieldHostAddress, m.hostAddress, m.hostAddressCursor))
	b.WriteString("\n\n")

	b.WriteString(subtitleStyle.Render("Pairing Key (optional):"))
	b.WriteString("\n")
	b.WriteString(m.renderInput(setupFieldPairingKey, m.pairingKey, m.pairingKeyCursor))
	b.WriteString("\n\n")

	connectStyle := buttonStyle
	if m.focusedField == setupFieldConnect {
		connectStyle = buttonActiveStyle
	}
	b.WriteString(connectStyle.Render("Connect"))
	b.WriteString("\n\n")

	if m.connectionError != "" {
		b.WriteString(errorStyle.Render("Error: " + m.connectionError))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("Tab: Next field • ↑/↓: Choose device • Enter: Select/Connect • ←/→: Move cursor • q: Quit"))

	return b.String()
}

func (m SetupModel) renderInput(field setupField, text string, cursor int) string {
	style := inputStyle
	focused := m.focusedField == field
	if focused {
		style = inputFocusedStyle
	}
	return style.Render(renderTextWithCursor(text, cursor, focused))
}

func (m SetupModel) choices() []string {
	names := []string{manualEntry}
	for _, d := range m.saved {
		names = append(names, fmt.Sprintf("%s (%s)", d.ID, d.Host))
	}
	return names
}

// handleTabNavigation moves between input fields
func (m SetupModel) handleTabNavigation(reverse bool) SetupModel {
	current := 0
	for i, field := range setupFields {
		if field == m.focusedField {
			current = i
			break
		}
	}

	if reverse {
		current = (current - 1 + len(setupFields)) % len(setupFields)
	} else {
		current = (current + 1) % len(setupFields)
	}

	m.focusedField = setupFields[current]
	return m
}

func (m SetupModel) moveSelection(delta int) SetupModel {
	if m.focusedField != setupFieldSavedDevice {
		return m
	}
	next := m.selectedSaved + delta
	if next >= 0 && next <= len(m.saved) {
		m.selectedSaved = next
	}
	return m
}

// applySelection copies the chosen saved device into the input fields.
func (m SetupModel) applySelection() SetupModel {
	if m.selectedSaved == 0 {
		return m
	}
	d := m.saved[m.selectedSaved-1]
	m.hostAddress = d.Host
	if d.Port != 0 {
		m.hostAddress = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	}
	m.pairingKey = d.PairingKey
	m.hostAddressCursor = utf8.RuneCountInString(m.hostAddress)
	m.pairingKeyCursor = utf8.RuneCountInString(m.pairingKey)
	return m
}

// deviceConfig builds the device entry to connect with.
func (m SetupModel) deviceConfig() (config.DeviceConfig, error) {
	if m.hostAddress == "" {
		return config.DeviceConfig{}, fmt.Errorf("host address is required")
	}
	if !IsValidHostAddress(m.hostAddress) {
		return config.DeviceConfig{}, fmt.Errorf("invalid host address format")
	}

	d := config.DeviceConfig{ID: "tv", Host: m.hostAddress, PairingKey: m.pairingKey}
	if m.selectedSaved > 0 {
		saved := m.saved[m.selectedSaved-1]
		d.ID = saved.ID
		d.Timeout = saved.Timeout
		d.Endpoints = saved.Endpoints
	}

	if host, portStr, err := net.SplitHostPort(m.hostAddress); err == nil {
		port, _ := strconv.Atoi(portStr)
		d.Host = host
		d.Port = port
	}
	return d, nil
}

// handleConnect builds the TV client. ROAP has no handshake, so nothing is
// sent until the first action.
func (m SetupModel) handleConnect() SetupModel {
	d, err := m.deviceConfig()
	if err != nil {
		m.connectionError = err.Error()
		return m
	}

	client, err := d.NewClient(m.options...)
	if err != nil {
		m.connectionError = err.Error()
		return m
	}

	remote := roap.NewRemote(d.ID, client)
	m.device = remote
	m.deviceInfo = remote.GetDeviceInfo()
	m.connectionError = ""

	log := logger.New()
	log.Info().
		Str("device", d.ID).
		Str("address", m.deviceInfo.Address).
		Msg("Device selected")

	return m
}

func (m SetupModel) moveCursor(delta int) SetupModel {
	clamp := func(pos, limit int) int {
		if pos < 0 {
			return 0
		}
		if pos > limit {
			return limit
		}
		return pos
	}
	switch m.focusedField {
	case setupFieldHostAddress:
		m.hostAddressCursor = clamp(m.hostAddressCursor+delta, utf8.RuneCountInString(m.hostAddress))
	case setupFieldPairingKey:
		m.pairingKeyCursor = clamp(m.pairingKeyCursor+delta, utf8.RuneCountInString(m.pairingKey))
	}
	return m
}

// handleBackspace handles backspace key
func (m SetupModel) handleBackspace() SetupModel {
	switch m.focusedField {
	case setupFieldHostAddress:
		if m.hostAddressCursor > 0 {
			m.hostAddress = deleteCharAt(m.hostAddress, m.hostAddressCursor-1)
			m.hostAddressCursor--
		}
	case setupFieldPairingKey:
		if m.pairingKeyCursor > 0 {
			m.pairingKey = deleteCharAt(m.pairingKey, m.pairingKeyCursor-1)
			m.pairingKeyCursor--
		}
	}
	return m
}

// handleDelete handles delete key
func (m SetupModel) handleDelete() SetupModel {
	switch m.focusedField {
	case setupFieldHostAddress:
		m.hostAddress = deleteCharAt(m.hostAddress, m.hostAddressCursor)
	case setupFieldPairingKey:
		m.pairingKey = deleteCharAt(m.pairingKey, m.pairingKeyCursor)
	}
	return m
}

// handleTextInput handles character input
func (m SetupModel) handleTextInput(input string) SetupModel {
	text := printable(input)
	if text == "" {
		return m
	}

	switch m.focusedField {
	case setupFieldHostAddress:
		m.hostAddress = insertText(m.hostAddress, m.hostAddressCursor, text)
		m.hostAddressCursor += utf8.RuneCountInString(text)
	case setupFieldPairingKey:
		m.pairingKey = insertText(m.pairingKey, m.pairingKeyCursor, text)
		m.pairingKeyCursor += utf8.RuneCountInString(text)
	}
	return m
}

// IsValidHostAddress validates the host address format (with optional port)
func IsValidHostAddress(address string) bool {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		host = address
		portStr = ""
	}

	if net.ParseIP(host) == nil && !hostnamePattern.MatchString(host) {
		return false
	}

	if portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return false
		}
	}

	return true
}

// Editing reports whether a text field has focus.
func (m SetupModel) Editing() bool {
	return m.focusedField == setupFieldHostAddress || m.focusedField == setupFieldPairingKey
}

// IsConnected returns true once a device has been selected
func (m SetupModel) IsConnected() bool {
	return m.device != nil
}

// GetDevice returns the connected device
func (m SetupModel) GetDevice() device.Device {
	return m.device
}

// GetDeviceInfo returns the device info
func (m SetupModel) GetDeviceInfo() device.DeviceInfo {
	return m.deviceInfo
}

// GetDebugMode returns the debug mode flag
func (m SetupModel) GetDebugMode() bool {
	return m.debugMode
}
