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
	"fmt"
	"sync"
)

// VirtualBridge is an in-memory bridge that remembers the last
// value written to each pin and channel.
type VirtualBridge struct {
	mutex    sync.Mutex
	pinCount int
	pins     map[int]*virtualPin
	channels []*virtualPWM
}

// NewVirtualBridge implements the bridge for a virtual light worker.
func NewVirtualBridge(pinCount, pwmChannels int) (*VirtualBridge, error) {
	b := &VirtualBridge{
		pinCount: pinCount,
		pins:     make(map[int]*virtualPin),
		channels: make([]*virtualPWM, pwmChannels),
	}
	for i := range b.channels {
		b.channels[i] = &virtualPWM{}
	}
	return b, nil
}

// Returns number of local pins
func (p *VirtualBridge) PinCount() int {
	return p.pinCount
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *VirtualBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if pinNumber < 0 || pinNumber >= p.pinCount {
		return nil, fmt.Errorf("Invalid pin %d", pinNumber)
	}
	pin := &virtualPin{activeLow: activeLow}
	pin.Write(initialValue)
	p.pins[pinNumber] = pin
	return pin, nil
}

// Returns number of PWM channels
func (p *VirtualBridge) PWMChannelCount() int {
	return len(p.channels)
}

// PWM opens the PWM output with given channel (0...).
func (p *VirtualBridge) PWM(channel int) (PWMOutput, error) {
	if channel < 0 || channel >= len(p.channels) {
		return nil, fmt.Errorf("Invalid PWM channel %d", channel)
	}
	return p.channels[channel], nil
}

// PinLevel returns the physical level of the given pin.
// Returns false for pins that were never opened.
func (p *VirtualBridge) PinLevel(pinNumber int) (bool, bool) {
	p.mutex.Lock()
	pin, found := p.pins[pinNumber]
	p.mutex.Unlock()
	if !found {
		return false, false
	}
	return pin.Level(), true
}

// Duty returns the last duty cycle, the max value and the enabled state
// of the given PWM channel.
func (p *VirtualBridge) Duty(channel int) (uint32, uint32, bool) {
	c := p.channels[channel]
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.duty, c.max, c.enabled
}

func (p *VirtualBridge) Close() error {
	for _, c := range p.channels {
		c.Close()
	}
	return nil
}

type virtualPin struct {
	mutex     sync.Mutex
	activeLow bool
	level     bool
}

func (p *virtualPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.level = value != p.activeLow
	return nil
}

// Level returns the physical level (after applying polarity).
func (p *virtualPin) Level() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.level
}

type virtualPWM struct {
	mutex     sync.Mutex
	frequency uint32
	duty      uint32
	max       uint32
	enabled   bool
}

func (p *virtualPWM) Configure(frequency uint32) error {
	if frequency == 0 {
		return fmt.Errorf("frequency must be positive")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.frequency = frequency
	p.enabled = true
	return nil
}

func (p *virtualPWM) SetDuty(duty, max uint32) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.enabled {
		return fmt.Errorf("PWM channel not configured")
	}
	p.duty, p.max = duty, max
	return nil
}

func (p *virtualPWM) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.enabled = false
	return nil
}
