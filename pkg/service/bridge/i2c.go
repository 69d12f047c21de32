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
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// I2CBus gives serialized access to devices on an I2C bus.
type I2CBus interface {
	// Execute an operation on the device with given address.
	Execute(ctx context.Context, address uint8, op func(ctx context.Context, dev I2CDevice) error) error
	// Close the bus and all devices on it
	Close() error
}

// I2CDevice communicates with a device on the I2C Bus that has a specific address.
type I2CDevice interface {
	// Read a byte from given register
	ReadByteReg(reg uint8) (uint8, error)
	// Write a byte to given register
	WriteByteReg(reg uint8, val uint8) error
}

const (
	i2cRecoverNumClocks  = 10
	i2cRecoverClockDelay = time.Microsecond * 10
)

type i2cBus struct {
	log      zerolog.Logger
	location string
	sclPin   int
	devices  map[uint8]*i2cDevice
	queue    chan func()
}

// NewI2CBus returns accessors to the I2C bus at the given location (e.g. /dev/i2c-1).
// When sclPin is not negative, a failed operation clocks that pin to
// release a slave that holds the bus.
func NewI2CBus(location string, sclPin int, log zerolog.Logger) (I2CBus, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, errors.Wrapf(err, "I2C bus '%s' not found", location)
	}
	b := &i2cBus{
		log:      log.With().Str("i2c", location).Logger(),
		location: location,
		sclPin:   sclPin,
		devices:  make(map[uint8]*i2cDevice),
		queue:    make(chan func()),
	}
	go b.queueProcessor()
	return b, nil
}

// Execute an operation on the bus.
func (b *i2cBus) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	result := make(chan error, 1)
	req := func() {
		result <- b.execute(ctx, address, op)
	}
	select {
	case b.queue <- req:
		// Request is on the queue
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

// Process bus requests until the queue is closed.
func (b *i2cBus) queueProcessor() {
	// Ensure we're always using the same OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for req := range b.queue {
		req()
	}
}

// execute an operation on the bus, retrying once after a failure.
func (b *i2cBus) execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	addrLabel := strconv.Itoa(int(address))
	i2cExecuteTotal.WithLabelValues(addrLabel).Inc()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var dev *i2cDevice
		dev, err = b.openDevice(address)
		if err != nil {
			i2cExecuteErrorsTotal.WithLabelValues(addrLabel).Inc()
			return errors.Wrapf(err, "openDevice(0x%02x) failed", address)
		}
		if err = op(ctx, dev); err == nil {
			return nil
		}

		// Device call failed, close all devices
		for addr, d := range b.devices {
			d.closeFile()
			delete(b.devices, addr)
		}
		if b.sclPin >= 0 {
			if rerr := b.recoverFromLockup(); rerr != nil {
				i2cRecoveriesTotal.WithLabelValues("failed").Inc()
				b.log.Warn().Err(rerr).Msg("I2C recovery failed")
			} else {
				i2cRecoveriesTotal.WithLabelValues("succeeded").Inc()
			}
		}
	}
	i2cExecuteErrorsTotal.WithLabelValues(addrLabel).Inc()
	return errors.Wrapf(err, "I2C operation on 0x%02x failed", address)
}

// openDevice returns the device with given address, opening it when needed.
func (b *i2cBus) openDevice(address uint8) (*i2cDevice, error) {
	if d, found := b.devices[address]; found {
		return d, nil
	}
	d, err := newI2CDevice(b.location, address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = d
	return d, nil
}

// Close the bus and all devices on it
func (b *i2cBus) Close() error {
	result := make(chan error, 1)
	b.queue <- func() {
		var ae aerr.AggregateError
		for addr, d := range b.devices {
			if err := d.closeFile(); err != nil {
				ae.Add(err)
			}
			delete(b.devices, addr)
		}
		result <- ae.AsError()
	}
	err := <-result
	close(b.queue)
	return err
}

// recoverFromLockup clocks SCL so a slave that holds SDA low can finish
// its transfer.
func (b *i2cBus) recoverFromLockup() error {
	b.log.Info().Int("scl", b.sclPin).Msg("Performing I2C recovery")
	const activeLow = true
	scl, err := gpio.Output(b.sclPin, activeLow, true)
	if err != nil {
		return errors.Wrap(err, "failed to set scl pin to output")
	}
	for i := 0; i < i2cRecoverNumClocks; i++ {
		time.Sleep(i2cRecoverClockDelay)
		if err := scl.Write(false); err != nil {
			return errors.Wrap(err, "failed to lower scl")
		}
		time.Sleep(i2cRecoverClockDelay)
		if err := scl.Write(true); err != nil {
			return errors.Wrap(err, "failed to raise scl")
		}
	}
	if _, err := gpio.Input(b.sclPin, activeLow); err != nil {
		return errors.Wrap(err, "failed to reset scl pin to input")
	}
	if err := os.WriteFile("/sys/class/gpio/unexport", []byte(strconv.Itoa(b.sclPin)), 0644); err != nil {
		return errors.Wrap(err, "failed to unexport scl pin")
	}
	return nil
}
