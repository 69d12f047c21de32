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
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	// InfiniteRepeat is the repeat count of a blink that never ends.
	// It is never doubled and never decremented.
	InfiniteRepeat uint32 = math.MaxUint32 / 2
	// MinEffectDuration is the shortest total duration of a fade or
	// breathing effect. Shorter durations are raised to this value.
	MinEffectDuration = 255 * time.Millisecond
	// Forever is the step interval of a worker that waits for the next command.
	Forever time.Duration = -1
	// MaxLevel is the brightest level.
	MaxLevel uint8 = 255
)

// Command describes a single requested effect.
// A Command is immutable once created; create one using
// Static, Blink, FadeIn, FadeOut or Breathe.
type Command struct {
	kind          Kind
	targetLevel   uint8
	stepInterval  time.Duration
	totalDuration time.Duration
	repeatCount   uint32
}

// Kind returns the kind of effect requested.
func (c Command) Kind() Kind { return c.kind }

// TargetLevel returns the goal (or peak) level of the effect.
func (c Command) TargetLevel() uint8 { return c.targetLevel }

// StepInterval returns the time between two steps of the effect.
func (c Command) StepInterval() time.Duration { return c.stepInterval }

// TotalDuration returns the nominal duration of a fade or breathing effect.
// Returns 0 for other kinds.
func (c Command) TotalDuration() time.Duration { return c.totalDuration }

// RepeatCount returns the number of toggles of a blink effect.
func (c Command) RepeatCount() uint32 { return c.repeatCount }

// IsInfinite returns true for a blink that never ends on its own.
func (c Command) IsInfinite() bool {
	return c.kind == KindBlink && c.repeatCount == InfiniteRepeat
}

// Static creates a command that holds given level until the next command.
func Static(level uint8) Command {
	return Command{
		kind:        KindStatic,
		targetLevel: level,
	}
}

// Blink creates a command that toggles between peak and off.
// Interval is the duration of a single on+off cycle; the output
// toggles every half interval.
// Cycles is the number of on+off cycles, use InfiniteRepeat to blink
// until the next command.
func Blink(interval time.Duration, cycles uint32, peak uint8) (Command, error) {
	if interval <= 0 {
		return Command{}, errors.Wrapf(InvalidParameterError, "blink interval must be positive, got %s", interval)
	}
	if cycles == 0 {
		return Command{}, errors.Wrap(InvalidParameterError, "blink cycles must be at least 1")
	}
	repeat := InfiniteRepeat
	if cycles < InfiniteRepeat {
		repeat = cycles * 2
	}
	stepMs := interval.Milliseconds() / 2
	if stepMs < 1 {
		stepMs = 1
	}
	return Command{
		kind:         KindBlink,
		targetLevel:  peak,
		stepInterval: time.Duration(stepMs) * time.Millisecond,
		repeatCount:  repeat,
	}, nil
}

// FadeIn creates a command that climbs from 0 to peak in given duration.
func FadeIn(duration time.Duration, peak uint8) (Command, error) {
	return newRamp(KindFadeIn, duration, peak)
}

// FadeOut creates a command that descends from peak to 0 in given duration.
func FadeOut(duration time.Duration, peak uint8) (Command, error) {
	return newRamp(KindFadeOut, duration, peak)
}

// Breathe creates a command that climbs from 0 to peak and back
// until the next command. Period is the duration of a single climb.
func Breathe(period time.Duration, peak uint8) (Command, error) {
	return newRamp(KindBreathing, period, peak)
}

// newRamp creates a command for an effect with a derived step interval.
func newRamp(kind Kind, duration time.Duration, peak uint8) (Command, error) {
	interval, err := StepIntervalFor(duration, peak)
	if err != nil {
		return Command{}, errors.Wrapf(err, "%s", kind)
	}
	if duration < MinEffectDuration {
		duration = MinEffectDuration
	}
	return Command{
		kind:          kind,
		targetLevel:   peak,
		stepInterval:  interval,
		totalDuration: duration,
	}, nil
}

// StepIntervalFor returns the time between two steps of an effect that
// moves through target levels in given total duration.
// The duration is first raised to MinEffectDuration, then divided
// (in whole milliseconds) by target.
func StepIntervalFor(total time.Duration, target uint8) (time.Duration, error) {
	if target == 0 {
		return 0, errors.Wrap(InvalidParameterError, "peak level must be at least 1")
	}
	if total < 0 {
		return 0, errors.Wrapf(InvalidParameterError, "duration must not be negative, got %s", total)
	}
	ms := total.Milliseconds()
	if floor := MinEffectDuration.Milliseconds(); ms < floor {
		ms = floor
	}
	return time.Duration(ms/int64(target)) * time.Millisecond, nil
}
