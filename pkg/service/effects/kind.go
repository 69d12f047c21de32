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

package effects

import (
	"github.com/pkg/errors"
)

// Kind identifies the algorithm that drives the steps of an effect.
type Kind uint8

const (
	// KindIdle means no effect is active; the worker is parked.
	KindIdle Kind = iota
	// KindStatic holds a fixed level until the next command.
	KindStatic
	// KindBlink toggles between peak level and off.
	KindBlink
	// KindFadeIn climbs from 0 to the peak level.
	KindFadeIn
	// KindFadeOut descends from the peak level to 0.
	KindFadeOut
	// KindBreathing climbs and descends forever.
	KindBreathing
)

// String returns a human readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindStatic:
		return "static"
	case KindBlink:
		return "blink"
	case KindFadeIn:
		return "fade-in"
	case KindFadeOut:
		return "fade-out"
	case KindBreathing:
		return "breathing"
	default:
		return "unknown"
	}
}

// IsTransient returns true for kinds that end on their own
// and hand control back to the baseline.
func (k Kind) IsTransient() bool {
	return k == KindFadeIn || k == KindFadeOut
}

// MarshalText encodes the kind by its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *Kind) UnmarshalText(data []byte) error {
	for candidate := KindIdle; candidate <= KindBreathing; candidate++ {
		if candidate.String() == string(data) {
			*k = candidate
			return nil
		}
	}
	return errors.Wrapf(InvalidParameterError, "unknown kind '%s'", string(data))
}
