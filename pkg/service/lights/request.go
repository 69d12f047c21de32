// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//

package lights

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/binkynet/LightWorker/pkg/service/effects"
)

// Names of effects in an EffectRequest
const (
	EffectOn      = "on"
	EffectOff     = "off"
	EffectLevel   = "level"
	EffectBlink   = "blink"
	EffectFadeIn  = "fade-in"
	EffectFadeOut = "fade-out"
	EffectBreathe = "breathe"
)

// EffectRequest is the transport neutral description of an effect.
type EffectRequest struct {
	Effect string `json:"effect"`
	// Level for "level"
	Level uint8 `json:"level,omitempty"`
	// Full on/off cycle for "blink"
	IntervalMs uint32 `json:"interval_ms,omitempty"`
	// Number of cycles for "blink". Blinks until the next effect when omitted.
	Cycles *uint32 `json:"cycles,omitempty"`
	// Duration for "fade-in", "fade-out" and period for "breathe"
	DurationMs uint32 `json:"duration_ms,omitempty"`
	// Peak level. Defaults to full brightness.
	Peak *uint8 `json:"peak,omitempty"`
}

// ParseEffectRequest parses an EffectRequest from a JSON object.
// A plain switch value ("ON", "off", "1", "false") is accepted as well.
func ParseEffectRequest(data []byte) (EffectRequest, error) {
	trimmed := strings.TrimSpace(string(data))
	if on, err := parseBool(strings.Trim(trimmed, `"`)); err == nil {
		if on {
			return EffectRequest{Effect: EffectOn}, nil
		}
		return EffectRequest{Effect: EffectOff}, nil
	}
	var req EffectRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return EffectRequest{}, errors.Wrapf(effects.InvalidParameterError, "malformed effect request: %v", err)
	}
	return req, nil
}

// Apply the effect to the given light.
func (r EffectRequest) Apply(l *Light) error {
	peak := effects.MaxLevel
	if r.Peak != nil {
		peak = *r.Peak
	}
	switch strings.ToLower(r.Effect) {
	case EffectOn:
		return l.TurnOn()
	case EffectOff:
		return l.TurnOff()
	case EffectLevel:
		return l.SetLevel(r.Level)
	case EffectBlink:
		cycles := effects.InfiniteRepeat
		if r.Cycles != nil {
			cycles = *r.Cycles
		}
		return l.Blink(milliseconds(r.IntervalMs), cycles, peak)
	case EffectFadeIn:
		return l.FadeIn(milliseconds(r.DurationMs), peak)
	case EffectFadeOut:
		return l.FadeOut(milliseconds(r.DurationMs), peak)
	case EffectBreathe:
		return l.Breathe(milliseconds(r.DurationMs), peak)
	default:
		return errors.Wrapf(effects.InvalidParameterError, "unknown effect '%s'", r.Effect)
	}
}

func milliseconds(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Parse a string into a bool
func parseBool(str string) (bool, error) {
	str = strings.ToLower(str)
	switch str {
	case "1", "t", "true", "on", "yes":
		return true, nil
	case "0", "f", "false", "off", "no":
		return false, nil
	}
	return false, errors.Errorf("invalid bool value '%s'", str)
}
