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
	tea "github.com/charmbracelet/bubbletea"
	"roapctl/internal/config"
	"roapctl/internal/roap"
)

// Main TUI model that routes between screens
type model struct {
	currentScreen screen
	width         int
	height        int
	quitting      bool

	saved   []config.DeviceConfig
	debug   bool
	options []roap.Option

	// Screen models
	setupModel  SetupModel
	remoteModel RemoteModel
}

func newModel(saved []config.DeviceConfig, debug bool, opts ...roap.Option) model {
	return model{
		currentScreen: screenDeviceSetup,
		saved:         saved,
		debug:         debug,
		options:       opts,
		setupModel:    NewSetupModel(saved, debug, opts...),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.remoteModel, _ = m.remoteModel.Update(msg)
		return m, nil

	case actionResultMsg:
		if m.currentScreen == screenRemoteControl {
			m.remoteModel, _ = m.remoteModel.Update(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "q":
			if m.currentScreen == screenRemoteControl {
				m.currentScreen = screenDeviceSetup
				m.setupModel = NewSetupModel(m.saved, m.debug, m.options...)
				return m, nil
			}
			if !m.setupModel.Editing() {
				m.quitting = true
				return m, tea.Quit
			}
		}

		switch m.currentScreen {
		case screenDeviceSetup:
			var cmd tea.Cmd
			m.setupModel, cmd = m.setupModel.Update(msg)

			if m.setupModel.IsConnected() {
				m.remoteModel = NewRemoteModel(
					m.setupModel.GetDevice(),
					m.setupModel.GetDeviceInfo(),
					m.setupModel.GetDebugMode(),
				)
				m.remoteModel.width = m.width
				m.remoteModel.height = m.height
				m.currentScreen = screenRemoteControl
			}

			return m, cmd

		case screenRemoteControl:
			var cmd tea.Cmd
			m.remoteModel, cmd = m.remoteModel.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return successStyle.Render("Thanks for using roapctl!") + "\n"
	}

	switch m.currentScreen {
	case screenDeviceSetup:
		return m.setupModel.View()
	case screenRemoteControl:
		return m.remoteModel.View()
	default:
		return "Unknown screen"
	}
}

// StartTUI runs the interactive remote. saved devices are offered on the
// setup screen and opts apply to every client it creates.
func StartTUI(saved []config.DeviceConfig, debug bool, opts ...roap.Option) error {
	p := tea.NewProgram(
		newModel(saved, debug, opts...),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Ensure proper cleanup on panic or interrupt
	defer func() {
		if r := recover(); r != nil {
			p.Kill()
		}
	}()

	_, err := p.Run()
	return err
}
