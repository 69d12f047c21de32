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

package devices

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/bridge"
)

// OutputType identifies the kind of hardware a light is wired to.
type OutputType string

const (
	// OutputTypePWM drives a light with a pulse width modulated channel.
	OutputTypePWM OutputType = "pwm"
	// OutputTypeBinary drives a light with a plain GPIO pin.
	OutputTypeBinary OutputType = "binary"
	// OutputTypePCA9685 drives a light with a channel of an I2C PCA9685 controller.
	OutputTypePCA9685 OutputType = "pca9685"
)

// OutputConfig describes the hardware of a single light.
type OutputConfig struct {
	// Name of the light
	Name string
	// Type of output
	Type OutputType
	// GPIO pin (binary outputs only)
	Pin int
	// If set, the light is on when the output is low
	ActiveLow bool
	// PWM frequency in Hz (PWM & PCA9685 outputs only)
	Frequency uint32
}

// Dependencies of the outputs.
type Dependencies struct {
	Log       zerolog.Logger
	Bridge    bridge.API
	Allocator *ChannelAllocator
	// Optional PCA9685 controller with its own allocator
	PCA9685          bridge.PWMSource
	PCA9685Allocator *ChannelAllocator
}

// NewOutput creates an output for the given config.
// PWM & PCA9685 outputs claim their channel immediately.
func NewOutput(conf OutputConfig, deps Dependencies) (Output, error) {
	log := deps.Log.With().
		Str("light", conf.Name).
		Str("output", string(conf.Type)).
		Logger()
	switch conf.Type {
	case OutputTypePWM:
		if deps.Allocator == nil {
			return nil, errors.Wrap(InvalidConfigError, "no channel allocator")
		}
		out, err := newPWMOutput(conf, deps.Bridge, deps.Allocator, log)
		if err != nil {
			return nil, err
		}
		return out, nil
	case OutputTypePCA9685:
		if deps.PCA9685 == nil || deps.PCA9685Allocator == nil {
			return nil, errors.Wrap(InvalidConfigError, "no PCA9685 configured")
		}
		out, err := newPWMOutput(conf, deps.PCA9685, deps.PCA9685Allocator, log)
		if err != nil {
			return nil, err
		}
		return out, nil
	case OutputTypeBinary:
		out, err := newBinaryOutput(conf, deps.Bridge, log)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errors.Wrapf(InvalidConfigError, "unsupported output type '%s'", conf.Type)
	}
}

// lastLevel holds the last written logical level of an output.
type lastLevel struct {
	mutex sync.Mutex
	name  string
	level uint8
}

func (l *lastLevel) set(level uint8) {
	l.mutex.Lock()
	l.level = level
	l.mutex.Unlock()
	lightBrightness.WithLabelValues(l.name).Set(float64(level))
}

// Last returns the last written (logical) level.
func (l *lastLevel) Last() uint8 {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.level
}
