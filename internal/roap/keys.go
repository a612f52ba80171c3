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
	"strconv"
	"strings"
)

// KeyCode is a remote control key sent with HandleKeyInput.
type KeyCode int

// Remote control key codes
const (
	// Power
	KeyPower KeyCode = 1

	// Number Keys
	KeyNum0 KeyCode = 2
	KeyNum1 KeyCode = 3
	KeyNum2 KeyCode = 4
	KeyNum3 KeyCode = 5
	KeyNum4 KeyCode = 6
	KeyNum5 KeyCode = 7
	KeyNum6 KeyCode = 8
	KeyNum7 KeyCode = 9
	KeyNum8 KeyCode = 10
	KeyNum9 KeyCode = 11

	// Navigation
	KeyUp    KeyCode = 12
	KeyDown  KeyCode = 13
	KeyLeft  KeyCode = 14
	KeyRight KeyCode = 15
	KeyOK    KeyCode = 20
	KeyHome  KeyCode = 21
	KeyMenu  KeyCode = 22
	KeyBack  KeyCode = 23

	// Volume and Channel
	KeyVolumeUp    KeyCode = 24
	KeyVolumeDown  KeyCode = 25
	KeyMute        KeyCode = 26
	KeyChannelUp   KeyCode = 27
	KeyChannelDown KeyCode = 28

	// Colour Keys
	KeyBlue   KeyCode = 29
	KeyGreen  KeyCode = 30
	KeyRed    KeyCode = 31
	KeyYellow KeyCode = 32

	// Playback
	KeyPlay        KeyCode = 33
	KeyPause       KeyCode = 34
	KeyStop        KeyCode = 35
	KeyFastForward KeyCode = 36
	KeyRewind      KeyCode = 37
	KeySkipForward KeyCode = 38
	KeySkipBack    KeyCode = 39
	KeyRecord      KeyCode = 40

	// Functions
	KeyLiveTV          KeyCode = 43
	KeyGuide           KeyCode = 44
	KeyInfo            KeyCode = 45
	KeyAspectRatio     KeyCode = 46
	KeyInput           KeyCode = 47
	KeySubtitle        KeyCode = 49
	KeyPreviousChannel KeyCode = 403
	KeyFavorites       KeyCode = 404
	KeyQuickMenu       KeyCode = 405
	KeyAVMode          KeyCode = 410
	KeyExit            KeyCode = 412
	KeyApps            KeyCode = 417
)

var keyNames = map[string]KeyCode{
	"power":            KeyPower,
	"0":                KeyNum0,
	"1":                KeyNum1,
	"2":                KeyNum2,
	"3":                KeyNum3,
	"4":                KeyNum4,
	"5":                KeyNum5,
	"6":                KeyNum6,
	"7":                KeyNum7,
	"8":                KeyNum8,
	"9":                KeyNum9,
	"up":               KeyUp,
	"down":             KeyDown,
	"left":             KeyLeft,
	"right":            KeyRight,
	"ok":               KeyOK,
	"home":             KeyHome,
	"menu":             KeyMenu,
	"back":             KeyBack,
	"volume_up":        KeyVolumeUp,
	"volume_down":      KeyVolumeDown,
	"mute":             KeyMute,
	"channel_up":       KeyChannelUp,
	"channel_down":     KeyChannelDown,
	"blue":             KeyBlue,
	"green":            KeyGreen,
	"red":              KeyRed,
	"yellow":           KeyYellow,
	"play":             KeyPlay,
	"pause":            KeyPause,
	"stop":             KeyStop,
	"fast_forward":     KeyFastForward,
	"rewind":           KeyRewind,
	"skip_forward":     KeySkipForward,
	"skip_back":        KeySkipBack,
	"record":           KeyRecord,
	"live_tv":          KeyLiveTV,
	"guide":            KeyGuide,
	"info":             KeyInfo,
	"aspect_ratio":     KeyAspectRatio,
	"input":            KeyInput,
	"subtitle":         KeySubtitle,
	"previous_channel": KeyPreviousChannel,
	"favorites":        KeyFavorites,
	"quick_menu":       KeyQuickMenu,
	"av_mode":          KeyAVMode,
	"exit":             KeyExit,
	"apps":             KeyApps,
}

// aliases accepted by ParseKeyCode but not listed by KeyNames
var keyAliases = map[string]KeyCode{
	"confirm": KeyOK,
	"enter":   KeyOK,
	"epg":     KeyGuide,
}

// ParseKeyCode accepts a key name ("volume_up", "volume-up", "num_5") or a
// raw numeric code. Single digits always name the number keys, so "5" is
// KeyNum5 rather than code 5.
func ParseKeyCode(s string) (KeyCode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.TrimPrefix(name, "num_")

	if code, ok := keyNames[name]; ok {
		return code, nil
	}
	if code, ok := keyAliases[name]; ok {
		return code, nil
	}
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		return KeyCode(n), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}

// KeyNames returns the named keys in alphabetical order.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for name := range keyNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
