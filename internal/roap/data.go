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

import "context"

// Data query targets
const (
	TargetInputSourceList    = "inputsrc_list"
	TargetChannelList        = "channel_list"
	TargetCurrentInputSource = "cur_inputsrc"
	TargetCaps               = "caps"
	TargetAppList            = "applist_get"
	TargetAppCount           = "appnum_get"
)

// Default paging for AppListGet.
const (
	DefaultAppListIndex  = 0
	DefaultAppListNumber = 100
)

// AppType selects the application list to query.
type AppType int

// AppListOptions pages through the application list. A nil *AppListOptions
// or a zero Number uses index 0 and 100 entries.
type AppListOptions struct {
	Index  int
	Number int
}

// DataService runs read-only queries as GET requests on the data endpoint.
type DataService struct {
	client *Client
}

// InputSourceList lists the TV's inputs.
func (s *DataService) InputSourceList(ctx context.Context) *Future[Document] {
	return s.Query(ctx, TargetInputSourceList, nil)
}

// ChannelList lists the tuned channels.
func (s *DataService) ChannelList(ctx context.Context) *Future[Document] {
	return s.Query(ctx, TargetChannelList, nil)
}

// CurrentInputSource reports the active input.
func (s *DataService) CurrentInputSource(ctx context.Context) *Future[Document] {
	return s.Query(ctx, TargetCurrentInputSource, nil)
}

// Caps reports device capabilities.
func (s *DataService) Caps(ctx context.Context) *Future[Document] {
	return s.Query(ctx, TargetCaps, nil)
}

// AppListGet lists applications of the given type.
func (s *DataService) AppListGet(ctx context.Context, appType AppType, opts *AppListOptions) *Future[Document] {
	index, number := DefaultAppListIndex, DefaultAppListNumber
	if opts != nil {
		index = opts.Index
		if opts.Number > 0 {
			number = opts.Number
		}
	}

	return s.Query(ctx, TargetAppList, Params{
		{Key: "type", Value: int(appType)},
		{Key: "index", Value: index},
		{Key: "number", Value: number},
	})
}

// AppNumGet counts applications of the given type.
func (s *DataService) AppNumGet(ctx context.Context, appType AppType) *Future[Document] {
	return s.Query(ctx, TargetAppCount, Params{{Key: "type", Value: int(appType)}})
}

// Query runs an arbitrary data target. target is always the first query
// parameter, followed by params in order.
func (s *DataService) Query(ctx context.Context, target string, params Params) *Future[Document] {
	return s.client.query(ctx, GroupData, targetParams(target, params))
}

// Raw runs a data target and returns the body undecoded, for capturing
// device responses verbatim.
func (s *DataService) Raw(ctx context.Context, target string, params Params) *Future[*RawResponse] {
	path, err := s.client.endpoints.Path(GroupData)
	if err != nil {
		return Rejected[*RawResponse](err)
	}
	return s.client.GetRaw(ctx, path, targetParams(target, params))
}

func targetParams(target string, params Params) Params {
	out := make(Params, 0, len(params)+1)
	out = append(out, Param{Key: "target", Value: target})
	return append(out, params...)
}
