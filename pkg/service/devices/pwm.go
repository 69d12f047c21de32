// Copyright 2020 Ewout Prangsma
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
	"context"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/effects"
)

const (
	// DefaultPWMFrequency is used when no frequency is configured.
	DefaultPWMFrequency = 5000
	// maxDuty is the duty resolution (8 bit)
	maxDuty = uint32(effects.MaxLevel)
)

type pwmOutput struct {
	lastLevel
	log       zerolog.Logger
	source    bridge.PWMSource
	allocator *ChannelAllocator
	channel   int
	frequency uint32
	activeLow bool

	mutex sync.Mutex
	out   bridge.PWMOutput
}

// newPWMOutput claims a channel of the given source and creates a PWM output on it.
func newPWMOutput(conf OutputConfig, source bridge.PWMSource, allocator *ChannelAllocator, log zerolog.Logger) (*pwmOutput, error) {
	ch, err := allocator.Allocate()
	if err != nil {
		return nil, errors.Wrapf(err, "light '%s'", conf.Name)
	}
	freq := conf.Frequency
	if freq == 0 {
		freq = DefaultPWMFrequency
	}
	return &pwmOutput{
		lastLevel: lastLevel{name: conf.Name},
		log:       log.With().Int("channel", ch).Logger(),
		source:    source,
		allocator: allocator,
		channel:   ch,
		frequency: freq,
		activeLow: conf.ActiveLow,
	}, nil
}

// Configure opens the channel and turns the light off.
func (d *pwmOutput) Configure(ctx context.Context) error {
	out, err := d.source.PWM(d.channel)
	if err != nil {
		return maskAny(err)
	}
	if err := out.Configure(d.frequency); err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.out = out
	d.mutex.Unlock()
	d.WriteBrightness(0)
	return nil
}

// Close turns the light off and releases the channel.
func (d *pwmOutput) Close(ctx context.Context) error {
	d.mutex.Lock()
	out := d.out
	d.out = nil
	d.mutex.Unlock()

	defer d.allocator.Release(d.channel)
	if out == nil {
		return nil
	}
	var ae aerr.AggregateError
	if err := out.SetDuty(d.duty(0), maxDuty); err != nil {
		sinkWriteErrorsTotal.WithLabelValues(d.name).Inc()
		d.log.Warn().Err(err).Msg("Failed to turn off channel")
		ae.Add(maskAny(err))
	}
	if err := out.Close(); err != nil {
		d.log.Warn().Err(err).Msg("Failed to close channel")
		ae.Add(maskAny(err))
	}
	return ae.AsError()
}

// WriteBrightness sets the duty cycle for the given level.
func (d *pwmOutput) WriteBrightness(level uint8) {
	d.set(level)
	d.mutex.Lock()
	out := d.out
	d.mutex.Unlock()
	if out == nil {
		return
	}
	if err := out.SetDuty(d.duty(level), maxDuty); err != nil {
		sinkWriteErrorsTotal.WithLabelValues(d.name).Inc()
		d.log.Warn().Err(err).Uint8("level", level).Msg("Failed to set duty cycle")
	}
}

// duty converts a logical level into a physical duty cycle.
func (d *pwmOutput) duty(level uint8) uint32 {
	if d.activeLow {
		level = effects.MaxLevel - level
	}
	return uint32(level) * maxDuty / uint32(effects.MaxLevel)
}
