//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"sync"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	rpiPinCount    = 28
	rpiPWMChipPath = "/sys/class/pwm/pwmchip0"
	// GPIO12/GPIO13 (PWM0/PWM1) when the pwm-2chan overlay is loaded
	rpiPWMChannels = 2
)

type piBridge struct {
	mutex sync.Mutex
	chip  *pwmChip
	open  map[int]PWMOutput
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's
func NewRaspberryPiBridge() (API, error) {
	return &piBridge{
		chip: newPWMChip(rpiPWMChipPath, rpiPWMChannels),
		open: make(map[int]PWMOutput),
	}, nil
}

// Returns number of local pins
func (p *piBridge) PinCount() int {
	return rpiPinCount
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *piBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	if pinNumber < 0 || pinNumber >= rpiPinCount {
		return nil, errors.Errorf("invalid pin %d", pinNumber)
	}
	pin, err := gpio.Output(pinNumber, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrapf(err, "Output[%d] failed", pinNumber)
	}
	return pin, nil
}

// Returns number of PWM channels
func (p *piBridge) PWMChannelCount() int {
	return p.chip.channels
}

// PWM opens the PWM output with given channel (0...).
func (p *piBridge) PWM(channel int) (PWMOutput, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if out, found := p.open[channel]; found {
		return out, nil
	}
	out, err := p.chip.Open(channel)
	if err != nil {
		return nil, errors.Wrapf(err, "PWM[%d] failed", channel)
	}
	p.open[channel] = out
	return out, nil
}

func (p *piBridge) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var firstErr error
	for channel, out := range p.open {
		if err := out.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "Close[%d] failed", channel)
		}
	}
	p.open = make(map[int]PWMOutput)
	return firstErr
}
