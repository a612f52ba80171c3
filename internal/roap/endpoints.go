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
	"fmt"
	"sort"
)

// Group identifies a protocol operation group. For auth and command the group
// is also the root element of the request envelope.
type Group string

const (
	GroupAuth       Group = "auth"
	GroupCommand    Group = "command"
	GroupData       Group = "data"
	GroupEvent      Group = "event"
	GroupNavigation Group = "navigation"
)

// Default endpoint paths.
const (
	AuthEndpoint       = "/roap/api/auth"
	CommandEndpoint    = "/roap/api/command"
	DataEndpoint       = "/roap/api/data"
	EventEndpoint      = "/roap/api/event"
	NavigationEndpoint = "/navigation"
)

// Endpoints maps operation groups to URL paths. The zero value has no entries.
// An Endpoints value is never modified after construction.
type Endpoints struct {
	paths map[Group]string
}

// DefaultEndpoints returns the standard endpoint table.
func DefaultEndpoints() Endpoints {
	return NewEndpoints(map[Group]string{
		GroupAuth:       AuthEndpoint,
		GroupCommand:    CommandEndpoint,
		GroupData:       DataEndpoint,
		GroupEvent:      EventEndpoint,
		GroupNavigation: NavigationEndpoint,
	})
}

// NewEndpoints builds an endpoint table from paths. The map is copied.
func NewEndpoints(paths map[Group]string) Endpoints {
	copied := make(map[Group]string, len(paths))
	for g, p := range paths {
		copied[g] = p
	}
	return Endpoints{paths: copied}
}

// With returns a copy of e with group routed to path.
func (e Endpoints) With(group Group, path string) Endpoints {
	copied := make(map[Group]string, len(e.paths)+1)
	for g, p := range e.paths {
		copied[g] = p
	}
	copied[group] = path
	return Endpoints{paths: copied}
}

// Path returns the path for group, or a ConfigurationError if the table has
// no entry for it.
func (e Endpoints) Path(group Group) (string, error) {
	p, ok := e.paths[group]
	if !ok {
		return "", configurationError("route", fmt.Errorf("no endpoint for group %q", group))
	}
	return p, nil
}

// Groups returns the configured groups in sorted order.
func (e Endpoints) Groups() []Group {
	groups := make([]Group, 0, len(e.paths))
	for g := range e.paths {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}
