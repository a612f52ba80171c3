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

package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Device represents a generic device that can process commands
type Device interface {
	// Process handles a JSON-encoded action and executes the corresponding operation
	Process(ctx context.Context, actionJSON []byte) (*ActionResponse, error)

	// GetDeviceInfo returns basic information about the device
	GetDeviceInfo() DeviceInfo
}

// DeviceInfo contains basic information about a device
type DeviceInfo struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Model        string   `json:"model"`
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities"`
}

// ActionType represents the type of action to perform
type ActionType string

const (
	ActionTypeRemote  ActionType = "remote"
	ActionTypeControl ActionType = "control"
)

// ActionRequest represents a JSON action request
type ActionRequest struct {
	ID         string                 `json:"id,omitempty"` // optional caller-chosen request id
	Type       ActionType             `json:"type"`         // "remote" or "control"
	Action     string                 `json:"action"`       // key name or control action
	Parameters map[string]interface{} `json:"parameters"`   // optional parameters
}

// ActionResponse represents the response from processing an action
type ActionResponse struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RemoteAction names a remote control key. Any key name understood by the
// device is accepted; these are the ones every TV has.
type RemoteAction string

const (
	RemoteActionPower       RemoteAction = "power"
	RemoteActionVolumeUp    RemoteAction = "volume_up"
	RemoteActionVolumeDown  RemoteAction = "volume_down"
	RemoteActionMute        RemoteAction = "mute"
	RemoteActionChannelUp   RemoteAction = "channel_up"
	RemoteActionChannelDown RemoteAction = "channel_down"
	RemoteActionUp          RemoteAction = "up"
	RemoteActionDown        RemoteAction = "down"
	RemoteActionLeft        RemoteAction = "left"
	RemoteActionRight       RemoteAction = "right"
	RemoteActionConfirm     RemoteAction = "ok"
	RemoteActionHome        RemoteAction = "home"
	RemoteActionMenu        RemoteAction = "menu"
	RemoteActionBack        RemoteAction = "back"
	RemoteActionInput       RemoteAction = "input"
	RemoteActionExit        RemoteAction = "exit"
)

// ControlAction represents available control actions
type ControlAction string

const (
	ControlActionPairRequest   ControlAction = "pair_request"
	ControlActionPairCancel    ControlAction = "pair_cancel"
	ControlActionPair          ControlAction = "pair"
	ControlActionChangeInput   ControlAction = "change_input"
	ControlActionAVMode        ControlAction = "av_mode"
	ControlActionChannelChange ControlAction = "channel_change"
	ControlActionAppExecute    ControlAction = "app_execute"
	ControlActionInputList     ControlAction = "input_list"
	ControlActionChannelList   ControlAction = "channel_list"
	ControlActionCurrentInput  ControlAction = "current_input"
	ControlActionCaps          ControlAction = "caps"
	ControlActionAppList       ControlAction = "app_list"
	ControlActionAppCount      ControlAction = "app_count"
)

// ParseActionRequest parses JSON input into ActionRequest
func ParseActionRequest(actionJSON []byte) (*ActionRequest, error) {
	var request ActionRequest
	if err := json.Unmarshal(actionJSON, &request); err != nil {
		return nil, fmt.Errorf("failed to parse action request: %w", err)
	}

	// Validate required fields
	if request.Type == "" {
		return nil, fmt.Errorf("action type is required")
	}

	if request.Action == "" {
		return nil, fmt.Errorf("action is required")
	}

	return &request, nil
}

// Failure builds an unsuccessful response.
func Failure(id string, format string, args ...interface{}) *ActionResponse {
	return &ActionResponse{
		ID:      id,
		Success: false,
		Error:   fmt.Sprintf(format, args...),
	}
}

// StringParam reads a string parameter. Numbers and booleans are converted.
func (r *ActionRequest) StringParam(name string) (string, bool) {
	value, exists := r.Parameters[name]
	if !exists || value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// IntParam reads an integer parameter. Numeric strings are accepted.
func (r *ActionRequest) IntParam(name string) (int, bool, error) {
	value, exists := r.Parameters[name]
	if !exists || value == nil {
		return 0, false, nil
	}

	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, true, fmt.Errorf("parameter %s must be an integer", name)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, true, fmt.Errorf("parameter %s must be an integer: %w", name, err)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("invalid %s parameter type %T", name, value)
	}
}
