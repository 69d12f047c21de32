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
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// pwmChip gives access to the channels of a Linux sysfs PWM chip.
type pwmChip struct {
	path     string
	channels int
}

func newPWMChip(path string, channels int) *pwmChip {
	return &pwmChip{
		path:     path,
		channels: channels,
	}
}

// Open exports the given channel (when needed) and returns it.
func (c *pwmChip) Open(channel int) (*sysfsPWM, error) {
	if channel < 0 || channel >= c.channels {
		return nil, errors.Errorf("invalid PWM channel %d", channel)
	}
	dir := filepath.Join(c.path, "pwm"+strconv.Itoa(channel))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeFile(filepath.Join(c.path, "export"), strconv.Itoa(channel)); err != nil {
			return nil, errors.Wrap(err, "export failed")
		}
		// Wait for udev to hand out permissions
		deadline := time.Now().Add(time.Second)
		for {
			if _, err := os.Stat(dir); err == nil {
				break
			} else if time.Now().After(deadline) {
				return nil, errors.Wrapf(err, "channel %d not exported in time", channel)
			}
			time.Sleep(time.Millisecond * 10)
		}
	}
	return &sysfsPWM{
		chip:    c,
		channel: channel,
		dir:     dir,
	}, nil
}

// sysfsPWM is a single exported PWM channel.
type sysfsPWM struct {
	mutex    sync.Mutex
	chip     *pwmChip
	channel  int
	dir      string
	periodNs uint64
	dutyNs   uint64
	dutySet  bool
}

// Configure the frequency of the output and enable it.
func (p *sysfsPWM) Configure(frequency uint32) error {
	if frequency == 0 {
		return errors.New("frequency must be positive")
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	period := uint64(time.Second) / uint64(frequency)
	// Duty cycle may never exceed the period, so clear it first
	if err := p.write("duty_cycle", 0); err != nil {
		return err
	}
	if err := p.write("period", period); err != nil {
		return err
	}
	if err := p.write("enable", 1); err != nil {
		return err
	}
	p.periodNs = period
	p.dutyNs = 0
	p.dutySet = true
	return nil
}

// SetDuty sets the duty cycle to duty/max.
func (p *sysfsPWM) SetDuty(duty, max uint32) error {
	if max == 0 {
		return errors.New("max must be positive")
	}
	if duty > max {
		duty = max
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.periodNs == 0 {
		return errors.Errorf("PWM channel %d not configured", p.channel)
	}
	dutyNs := p.periodNs * uint64(duty) / uint64(max)
	if p.dutySet && dutyNs == p.dutyNs {
		return nil
	}
	if err := p.write("duty_cycle", dutyNs); err != nil {
		return err
	}
	p.dutyNs = dutyNs
	p.dutySet = true
	return nil
}

// Close disables the output.
func (p *sysfsPWM) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.periodNs == 0 {
		return nil
	}
	p.periodNs = 0
	if err := p.write("enable", 0); err != nil {
		return err
	}
	return nil
}

func (p *sysfsPWM) write(attr string, value uint64) error {
	if err := writeFile(filepath.Join(p.dir, attr), strconv.FormatUint(value, 10)); err != nil {
		return errors.Wrapf(err, "failed to set %s of PWM channel %d", attr, p.channel)
	}
	pwmWritesTotal.WithLabelValues(strconv.Itoa(p.channel)).Inc()
	return nil
}

func writeFile(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		pwmWriteErrorsTotal.Inc()
		return maskAny(err)
	}
	return nil
}
