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

package roap

import (
	"context"
	"fmt"

	"roapctl/internal/device"
)

// Remote implements device.Device on top of a Client.
type Remote struct {
	client *Client
	info   device.DeviceInfo
}

// NewRemote wraps client as a device named id.
func NewRemote(id string, client *Client) *Remote {
	return &Remote{
		client: client,
		info: device.DeviceInfo{
			ID:      id,
			Type:    "roap_tv",
			Model:   "ROAP TV",
			Address: client.BaseURL(),
			Capabilities: []string{
				"remote_control",
				"pairing",
				"input_control",
				"channel_control",
				"app_control",
				"state_query",
			},
		},
	}
}

// Client returns the underlying protocol client.
func (r *Remote) Client() *Client {
	return r.client
}

// GetDeviceInfo returns information about this TV
func (r *Remote) GetDeviceInfo() device.DeviceInfo {
	return r.info
}

// Process handles JSON action requests and routes them to appropriate methods
func (r *Remote) Process(ctx context.Context, actionJSON []byte) (*device.ActionResponse, error) {
	request, err := device.ParseActionRequest(actionJSON)
	if err != nil {
		return device.Failure("", "%v", err), nil
	}

	var future *Future[Document]
	switch request.Type {
	case device.ActionTypeRemote:
		future, err = r.remoteAction(ctx, request)
	case device.ActionTypeControl:
		future, err = r.controlAction(ctx, request)
	default:
		return device.Failure(request.ID, "unsupported action type: %s", request.Type), nil
	}
	if err != nil {
		return device.Failure(request.ID, "%v", err), nil
	}

	doc, err := future.Await(ctx)
	if err != nil {
		return device.Failure(request.ID, "%s failed: %v", request.Action, err), nil
	}

	return &device.ActionResponse{
		ID:      request.ID,
		Success: true,
		Data:    doc,
	}, nil
}

func (r *Remote) remoteAction(ctx context.Context, request *device.ActionRequest) (*Future[Document], error) {
	key, err := ParseKeyCode(request.Action)
	if err != nil {
		return nil, fmt.Errorf("unsupported remote action: %s", request.Action)
	}
	return r.client.Command.HandleKeyInput(ctx, key), nil
}

func (r *Remote) controlAction(ctx context.Context, request *device.ActionRequest) (*Future[Document], error) {
	c := r.client

	switch device.ControlAction(request.Action) {
	case device.ControlActionPairRequest:
		return c.Auth.AuthKeyReq(ctx), nil

	case device.ControlActionPairCancel:
		return c.Auth.CancelAuthKeyReq(ctx), nil

	case device.ControlActionPair:
		key, _ := request.StringParam("key")
		return c.Auth.AuthReq(ctx, key), nil

	case device.ControlActionChangeInput:
		source, err := inputSourceParam(request)
		if err != nil {
			return nil, err
		}
		return c.Command.ChangeInputSource(ctx, source), nil

	case device.ControlActionAVMode:
		source, ok := request.StringParam("source")
		if !ok {
			return nil, fmt.Errorf("source parameter is required for av_mode action")
		}
		var value AVValue
		switch v := request.Parameters["value"].(type) {
		case bool:
			value = OnOff(v)
		case string:
			value = AVValue(v)
		case nil:
			return nil, fmt.Errorf("value parameter is required for av_mode action")
		default:
			return nil, fmt.Errorf("invalid value parameter type %T", v)
		}
		return c.Command.AVMode(ctx, source, value), nil

	case device.ControlActionChannelChange:
		var ch ChannelChange
		fields := []struct {
			name string
			dst  *int
		}{
			{"major", &ch.Major},
			{"minor", &ch.Minor},
			{"source_index", &ch.SourceIndex},
			{"physical_num", &ch.PhysicalNum},
		}
		for _, f := range fields {
			n, _, err := request.IntParam(f.name)
			if err != nil {
				return nil, err
			}
			*f.dst = n
		}
		return c.Command.HandleChannelChange(ctx, ch), nil

	case device.ControlActionAppExecute:
		var app AppLaunch
		app.AUID, _ = request.StringParam("auid")
		app.AppName, _ = request.StringParam("name")
		app.ContentID, _ = request.StringParam("content_id")
		age, _, err := request.IntParam("content_age")
		if err != nil {
			return nil, err
		}
		app.ContentAge = age
		if app.AUID == "" && app.AppName == "" {
			return nil, fmt.Errorf("auid or name parameter is required for app_execute action")
		}
		return c.Command.AppExecute(ctx, app), nil

	case device.ControlActionInputList:
		return c.Data.InputSourceList(ctx), nil

	case device.ControlActionChannelList:
		return c.Data.ChannelList(ctx), nil

	case device.ControlActionCurrentInput:
		return c.Data.CurrentInputSource(ctx), nil

	case device.ControlActionCaps:
		return c.Data.Caps(ctx), nil

	case device.ControlActionAppList:
		appType, ok, err := request.IntParam("type")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("type parameter is required for app_list action")
		}
		opts := &AppListOptions{Index: DefaultAppListIndex, Number: DefaultAppListNumber}
		if n, ok, err := request.IntParam("index"); err != nil {
			return nil, err
		} else if ok {
			opts.Index = n
		}
		if n, ok, err := request.IntParam("number"); err != nil {
			return nil, err
		} else if ok {
			opts.Number = n
		}
		return c.Data.AppListGet(ctx, AppType(appType), opts), nil

	case device.ControlActionAppCount:
		appType, ok, err := request.IntParam("type")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("type parameter is required for app_count action")
		}
		return c.Data.AppNumGet(ctx, AppType(appType)), nil

	default:
		return nil, fmt.Errorf("unsupported control action: %s", request.Action)
	}
}

func inputSourceParam(request *device.ActionRequest) (InputSource, error) {
	if name, ok := request.StringParam("source"); ok && name != "" {
		return InputByName(name), nil
	}

	sourceType, hasType, err := request.IntParam("type")
	if err != nil {
		return nil, err
	}
	index, hasIndex, err := request.IntParam("index")
	if err != nil {
		return nil, err
	}
	if !hasType || !hasIndex {
		return nil, fmt.Errorf("source or type and index parameters are required for change_input action")
	}
	return InputByIndex{Type: sourceType, Index: index}, nil
}
