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
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// registerBus is an I2CBus that keeps the registers of all devices in memory.
type registerBus struct {
	mutex  sync.Mutex
	regs   map[uint8]*[256]uint8
	writes int
	fail   bool
}

func newRegisterBus() *registerBus {
	return &registerBus{regs: make(map[uint8]*[256]uint8)}
}

func (b *registerBus) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.fail {
		return errors.New("bus locked up")
	}
	regs, found := b.regs[address]
	if !found {
		regs = &[256]uint8{}
		b.regs[address] = regs
	}
	return op(ctx, registerDevice{bus: b, regs: regs})
}

func (b *registerBus) Close() error { return nil }

func (b *registerBus) reg(address, reg uint8) uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if regs, found := b.regs[address]; found {
		return regs[reg]
	}
	return 0
}

type registerDevice struct {
	bus  *registerBus
	regs *[256]uint8
}

func (d registerDevice) ReadByteReg(reg uint8) (uint8, error) { return d.regs[reg], nil }
func (d registerDevice) WriteByteReg(reg uint8, val uint8) error {
	d.regs[reg] = val
	d.bus.writes++
	return nil
}

func TestPCA9685Prescale(t *testing.T) {
	for freq, expected := range map[uint32]uint8{
		60:   112,
		1000: 6,
		5000: 3,
		10:   255,
	} {
		if v := pca9685Prescale(freq); v != expected {
			t.Errorf("Prescale(%d): expected %d, got %d", freq, expected, v)
		}
	}
}

func TestPCA9685Channels(t *testing.T) {
	const addr = 0x40
	bus := newRegisterBus()
	chip := NewPCA9685(bus, addr, zerolog.Nop())
	if chip.PWMChannelCount() != 16 {
		t.Errorf("Expected 16 channels, got %d", chip.PWMChannelCount())
	}
	if _, err := chip.PWM(16); err == nil {
		t.Error("Expected error for channel out of range")
	}
	out, err := chip.PWM(2)
	if err != nil {
		t.Fatalf("PWM failed: %v", err)
	}
	if err := out.Configure(1000); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if v := bus.reg(addr, pca9685PRESCALEReg); v != 6 {
		t.Errorf("Expected prescale 6, got %d", v)
	}
	if v := bus.reg(addr, pca9685MODE1Reg); v != pca9685ModeAwake {
		t.Errorf("Expected device awake, got MODE1 0x%02x", v)
	}
	// Channel 2 starts at register 6 + 2*4
	const base = 14
	if v := bus.reg(addr, base+3); v != pca9685FullBit {
		t.Errorf("Expected channel fully off after configure, got 0x%02x", v)
	}

	if err := out.SetDuty(128, 255); err != nil {
		t.Fatalf("SetDuty failed: %v", err)
	}
	// 128 * 4095 / 255 = 2055 = 0x807
	if lo, hi := bus.reg(addr, base+2), bus.reg(addr, base+3); lo != 0x07 || hi != 0x08 {
		t.Errorf("Expected OFF 0x807, got 0x%02x%02x", hi, lo)
	}
	if err := out.SetDuty(255, 255); err != nil {
		t.Fatalf("SetDuty failed: %v", err)
	}
	if on, off := bus.reg(addr, base+1), bus.reg(addr, base+3); on != pca9685FullBit || off != 0 {
		t.Errorf("Expected full on, got ON_H 0x%02x OFF_H 0x%02x", on, off)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v := bus.reg(addr, base+3); v != pca9685FullBit {
		t.Errorf("Expected channel fully off after close, got 0x%02x", v)
	}

	// The frequency is shared; other channels keep the first one
	other, _ := chip.PWM(3)
	if err := other.Configure(60); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if v := bus.reg(addr, pca9685PRESCALEReg); v != 6 {
		t.Errorf("Expected prescale to stay 6, got %d", v)
	}

	if err := chip.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v := bus.reg(addr, pca9685MODE1Reg); v != pca9685ModeSleep {
		t.Errorf("Expected device asleep, got MODE1 0x%02x", v)
	}
}

func TestPCA9685BusFailure(t *testing.T) {
	bus := newRegisterBus()
	bus.fail = true
	chip := NewPCA9685(bus, 0x41, zerolog.Nop())
	out, _ := chip.PWM(0)
	if err := out.Configure(1000); err == nil {
		t.Error("Expected configure to fail")
	}
	if err := out.SetDuty(1, 2); err == nil {
		t.Error("Expected SetDuty to fail")
	}
}
