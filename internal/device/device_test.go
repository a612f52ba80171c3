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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionRequest(t *testing.T) {
	request, err := ParseActionRequest([]byte(`{"id":"42","type":"control","action":"change_input","parameters":{"source":"HDMI_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "42", request.ID)
	assert.Equal(t, ActionTypeControl, request.Type)
	assert.Equal(t, string(ControlActionChangeInput), request.Action)

	source, ok := request.StringParam("source")
	assert.True(t, ok)
	assert.Equal(t, "HDMI_1", source)

	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"invalid json", `{`, "failed to parse action request"},
		{"missing type", `{"action":"power"}`, "action type is required"},
		{"missing action", `{"type":"remote"}`, "action is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseActionRequest([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestStringParam(t *testing.T) {
	r := &ActionRequest{Parameters: map[string]interface{}{
		"s":    "text",
		"f":    float64(3),
		"i":    7,
		"b":    true,
		"null": nil,
	}}

	for name, want := range map[string]string{"s": "text", "f": "3", "i": "7", "b": "true"} {
		got, ok := r.StringParam(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := r.StringParam("null")
	assert.False(t, ok)
	_, ok = r.StringParam("missing")
	assert.False(t, ok)
}

func TestIntParam(t *testing.T) {
	r := &ActionRequest{Parameters: map[string]interface{}{
		"f":        float64(12),
		"i":        5,
		"s":        "9",
		"fraction": 1.5,
		"word":     "nine",
		"list":     []interface{}{1},
	}}

	for name, want := range map[string]int{"f": 12, "i": 5, "s": 9} {
		got, ok, err := r.IntParam(name)
		require.NoError(t, err, name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"fraction", "word", "list"} {
		_, ok, err := r.IntParam(name)
		assert.True(t, ok, name)
		assert.Error(t, err, name)
	}

	_, ok, err := r.IntParam("missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFailure(t *testing.T) {
	response := Failure("7", "power failed: %s", "timeout")
	assert.Equal(t, &ActionResponse{ID: "7", Error: "power failed: timeout"}, response)
}
