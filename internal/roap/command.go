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
	"errors"
)

// Command names
const (
	ChangeInputSource   = "ChangeInputSource"
	HandleKeyInput      = "HandleKeyInput"
	AVMode              = "AVMode"
	HandleChannelChange = "HandleChannelChange"
	AppExecute          = "AppExecute"
)

var errNilInput = errors.New("input source is nil")

// InputSource selects an input either by name or by type and index.
// Use InputByName or InputByIndex.
type InputSource interface {
	inputParams() Params
}

// InputByName selects an input by its identifier, e.g. "HDMI_1".
type InputByName string

func (n InputByName) inputParams() Params {
	return Params{
		{Key: "name", Value: ChangeInputSource},
		{Key: "inputSource", Value: string(n)},
	}
}

// InputByIndex selects an input by source type and index.
type InputByIndex struct {
	Type  int
	Index int
}

func (i InputByIndex) inputParams() Params {
	return Params{
		{Key: "name", Value: ChangeInputSource},
		{Key: "inputSourceType", Value: i.Type},
		{Key: "inputSourceIdx", Value: i.Index},
	}
}

// AVValue is the value sent with AVMode. Any string is passed through as is.
type AVValue string

const (
	AVOn  AVValue = "on"
	AVOff AVValue = "off"
)

// OnOff converts a boolean to AVOn or AVOff.
func OnOff(on bool) AVValue {
	if on {
		return AVOn
	}
	return AVOff
}

// ChannelChange identifies a broadcast channel.
type ChannelChange struct {
	Major       int
	Minor       int
	SourceIndex int
	PhysicalNum int
}

// AppLaunch identifies an application and optional content to open.
type AppLaunch struct {
	AUID       string
	AppName    string
	ContentID  string
	ContentAge int
}

// CommandService sends device commands. All calls post a "command" envelope.
type CommandService struct {
	client *Client
}

// ChangeInputSource switches the active input.
func (s *CommandService) ChangeInputSource(ctx context.Context, source InputSource) *Future[Document] {
	if source == nil {
		return Rejected[Document](encodingError("command "+ChangeInputSource, errNilInput))
	}
	return s.client.send(ctx, GroupCommand, source.inputParams())
}

// HandleKeyInput injects a remote control key press.
func (s *CommandService) HandleKeyInput(ctx context.Context, key KeyCode) *Future[Document] {
	return s.client.send(ctx, GroupCommand, Params{
		{Key: "name", Value: HandleKeyInput},
		{Key: "value", Value: int(key)},
	})
}

// AVMode turns an AV mode of source on or off.
func (s *CommandService) AVMode(ctx context.Context, source string, value AVValue) *Future[Document] {
	return s.client.send(ctx, GroupCommand, Params{
		{Key: "name", Value: AVMode},
		{Key: "source", Value: source},
		{Key: "value", Value: string(value)},
	})
}

// HandleChannelChange tunes to a channel.
func (s *CommandService) HandleChannelChange(ctx context.Context, ch ChannelChange) *Future[Document] {
	return s.client.send(ctx, GroupCommand, Params{
		{Key: "name", Value: HandleChannelChange},
		{Key: "major", Value: ch.Major},
		{Key: "minor", Value: ch.Minor},
		{Key: "sourceIndex", Value: ch.SourceIndex},
		{Key: "physicalNum", Value: ch.PhysicalNum},
	})
}

// AppExecute launches an application.
func (s *CommandService) AppExecute(ctx context.Context, app AppLaunch) *Future[Document] {
	return s.client.send(ctx, GroupCommand, Params{
		{Key: "name", Value: AppExecute},
		{Key: "auid", Value: app.AUID},
		{Key: "appname", Value: app.AppName},
		{Key: "contentid", Value: app.ContentID},
		{Key: "contentAge", Value: app.ContentAge},
	})
}
