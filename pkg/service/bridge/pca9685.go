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

package bridge

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	pca9685MODE1Reg      = 0x00
	pca9685LEDBaseReg    = 0x06
	pca9685PRESCALEReg   = 0xFE
	pca9685OnLowRegOfs   = 0
	pca9685OnHighRegOfs  = 1
	pca9685OffLowRegOfs  = 2
	pca9685OffHighRegOfs = 3
	pca9685RegIncrement  = 4

	// MODE1: SLEEP=1, ALLCALL=1
	pca9685ModeSleep = 0x11
	// MODE1: SLEEP=0, ALLCALL=1
	pca9685ModeAwake = 0x01
	// Full on/off bit in the high ON/OFF registers
	pca9685FullBit = 0x10

	pca9685Channels   = 16
	pca9685MaxValue   = 4095
	pca9685OscFreq    = 25000000.0
	pca9685MinFreq    = 24
	pca9685MaxFreq    = 1526
	pca9685OpTimeout  = time.Second
	DefaultPCA9685Bus = "/dev/i2c-1"
)

// PCA9685 is a 16 channel, 12 bit I2C PWM controller.
// All channels share a single frequency; the first configured
// frequency wins.
type PCA9685 struct {
	mutex     sync.Mutex
	log       zerolog.Logger
	bus       I2CBus
	address   uint8
	frequency uint32
}

var _ PWMSource = &PCA9685{}

// NewPCA9685 creates a PCA9685 controller at given address on the given bus.
func NewPCA9685(bus I2CBus, address uint8, log zerolog.Logger) *PCA9685 {
	return &PCA9685{
		log:     log.With().Uint8("pca9685", address).Logger(),
		bus:     bus,
		address: address,
	}
}

// PWMChannelCount returns the number of PWM outputs of the device
func (d *PCA9685) PWMChannelCount() int {
	return pca9685Channels
}

// PWM returns the PWM output with given channel (0...15).
func (d *PCA9685) PWM(channel int) (PWMOutput, error) {
	if channel < 0 || channel >= pca9685Channels {
		return nil, errors.Errorf("channel must be in 0..%d range, got %d", pca9685Channels-1, channel)
	}
	return &pca9685Channel{chip: d, channel: channel}, nil
}

// Close puts the device to sleep.
func (d *PCA9685) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.frequency = 0
	return d.execute(func(dev I2CDevice) error {
		return dev.WriteByteReg(pca9685MODE1Reg, pca9685ModeSleep)
	})
}

// configure sets the frequency of all channels and wakes the device.
func (d *PCA9685) configure(frequency uint32) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.frequency != 0 {
		if d.frequency != frequency {
			d.log.Warn().
				Uint32("frequency", frequency).
				Uint32("active", d.frequency).
				Msg("PCA9685 frequency already set")
		}
		return nil
	}
	prescale := pca9685Prescale(frequency)
	if err := d.execute(func(dev I2CDevice) error {
		if err := dev.WriteByteReg(pca9685MODE1Reg, pca9685ModeSleep); err != nil {
			return err
		}
		if err := dev.WriteByteReg(pca9685PRESCALEReg, prescale); err != nil {
			return err
		}
		return dev.WriteByteReg(pca9685MODE1Reg, pca9685ModeAwake)
	}); err != nil {
		return err
	}
	d.frequency = frequency
	d.log.Debug().Uint32("frequency", frequency).Uint8("prescale", prescale).Msg("PCA9685 configured")
	return nil
}

// set writes the ON/OFF registers of the given channel.
func (d *PCA9685) set(channel int, onValue, offValue uint32, fullOn, fullOff bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	regBase := uint8(pca9685LEDBaseReg + channel*pca9685RegIncrement)
	onHigh := uint8((onValue >> 8) & 0x0F)
	if fullOn {
		onHigh |= pca9685FullBit
	}
	offHigh := uint8((offValue >> 8) & 0x0F)
	if fullOff {
		offHigh |= pca9685FullBit
	}
	return d.execute(func(dev I2CDevice) error {
		if err := dev.WriteByteReg(regBase+pca9685OnLowRegOfs, uint8(onValue&0xFF)); err != nil {
			return err
		}
		if err := dev.WriteByteReg(regBase+pca9685OnHighRegOfs, onHigh); err != nil {
			return err
		}
		if err := dev.WriteByteReg(regBase+pca9685OffLowRegOfs, uint8(offValue&0xFF)); err != nil {
			return err
		}
		return dev.WriteByteReg(regBase+pca9685OffHighRegOfs, offHigh)
	})
}

func (d *PCA9685) execute(op func(dev I2CDevice) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), pca9685OpTimeout)
	defer cancel()
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev I2CDevice) error {
		return op(dev)
	}); err != nil {
		return maskAny(err)
	}
	return nil
}

// pca9685Prescale returns the prescale register value for given frequency.
func pca9685Prescale(frequency uint32) uint8 {
	freq := float64(frequency)
	freq = math.Max(pca9685MinFreq, math.Min(pca9685MaxFreq, freq))
	freq *= 0.9 // Correct for overshoot in the frequency setting
	prescale := math.Floor(pca9685OscFreq/4096/freq - 1.0 + 0.5)
	return uint8(math.Max(3, math.Min(255, prescale)))
}

type pca9685Channel struct {
	chip    *PCA9685
	channel int
}

// Configure the frequency of the output and enable it.
func (c *pca9685Channel) Configure(frequency uint32) error {
	if err := c.chip.configure(frequency); err != nil {
		return err
	}
	return c.chip.set(c.channel, 0, 0, false, true)
}

// SetDuty sets the duty cycle to duty/max.
func (c *pca9685Channel) SetDuty(duty, max uint32) error {
	switch {
	case max == 0 || duty == 0:
		return c.chip.set(c.channel, 0, 0, false, true)
	case duty >= max:
		return c.chip.set(c.channel, 0, 0, true, false)
	default:
		off := uint32(uint64(duty) * pca9685MaxValue / uint64(max))
		return c.chip.set(c.channel, 0, off, false, false)
	}
}

// Close turns the output fully off.
func (c *pca9685Channel) Close() error {
	return c.chip.set(c.channel, 0, 0, false, true)
}
