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
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/bridge"
)

// binaryOutput drives a light using a single GPIO pin.
// Any level above 0 turns the light on.
type binaryOutput struct {
	lastLevel
	log       zerolog.Logger
	api       bridge.API
	pinNumber int
	activeLow bool

	mutex sync.Mutex
	pin   bridge.OutputPin
	on    bool
}

func newBinaryOutput(conf OutputConfig, api bridge.API, log zerolog.Logger) (*binaryOutput, error) {
	if conf.Pin < 0 || conf.Pin >= api.PinCount() {
		return nil, errors.Wrapf(InvalidConfigError, "pin %d out of range [0..%d)", conf.Pin, api.PinCount())
	}
	return &binaryOutput{
		lastLevel: lastLevel{name: conf.Name},
		log:       log.With().Int("pin", conf.Pin).Logger(),
		api:       api,
		pinNumber: conf.Pin,
		activeLow: conf.ActiveLow,
	}, nil
}

// Configure opens the pin with the light turned off.
func (d *binaryOutput) Configure(ctx context.Context) error {
	pin, err := d.api.Output(d.pinNumber, d.activeLow, false)
	if err != nil {
		return maskAny(err)
	}
	d.mutex.Lock()
	d.pin = pin
	d.on = false
	d.mutex.Unlock()
	d.set(0)
	return nil
}

// Close turns the light off.
func (d *binaryOutput) Close(ctx context.Context) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.pin == nil {
		return nil
	}
	pin := d.pin
	d.pin = nil
	if err := pin.Write(false); err != nil {
		return maskAny(err)
	}
	return nil
}

// WriteBrightness turns the pin on for any level > 0.
func (d *binaryOutput) WriteBrightness(level uint8) {
	d.set(level)
	on := level > 0

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.pin == nil || (on == d.on) {
		return
	}
	if err := d.pin.Write(on); err != nil {
		sinkWriteErrorsTotal.WithLabelValues(d.name).Inc()
		d.log.Warn().Err(err).Bool("on", on).Msg("Failed to write pin")
		return
	}
	d.on = on
}
