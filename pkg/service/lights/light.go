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

package lights

import (
	"context"
	"time"

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/service/devices"
	"github.com/binkynet/LightWorker/pkg/service/effects"
)

// Light is a single dimmable (or switchable) light.
// All effect methods return immediately; the effect is
// rendered by the worker of the light.
type Light struct {
	name         string
	initialLevel uint8
	log          zerolog.Logger
	output       devices.Output
	worker       *effects.Worker
	events       *pubsub.PubSub
}

// Status of a light.
type Status struct {
	Name string `json:"name"`
	// Last level written to the output
	Level  uint8            `json:"level"`
	Effect effects.Snapshot `json:"effect"`
}

func newLight(name string, initialLevel uint8, output devices.Output, events *pubsub.PubSub, log zerolog.Logger) *Light {
	worker := effects.NewWorker(name, output, log)
	worker.SetInitial(effects.Static(initialLevel))
	return &Light{
		name:         name,
		initialLevel: initialLevel,
		log:          log,
		output:       output,
		worker:       worker,
		events:       events,
	}
}

// Name of the light
func (l *Light) Name() string {
	return l.name
}

// Status returns the current status of the light.
func (l *Light) Status() Status {
	return Status{
		Name:   l.name,
		Level:  l.output.Last(),
		Effect: l.worker.Snapshot(),
	}
}

// TurnOn sets the light to full brightness.
func (l *Light) TurnOn() error {
	return l.post(effects.Static(effects.MaxLevel))
}

// TurnOff turns the light off.
func (l *Light) TurnOff() error {
	return l.post(effects.Static(0))
}

// SetLevel holds the light at the given level.
func (l *Light) SetLevel(level uint8) error {
	return l.post(effects.Static(level))
}

// Blink the light between peak and off.
// Interval is the duration of a single on/off cycle.
func (l *Light) Blink(interval time.Duration, cycles uint32, peak uint8) error {
	return l.build(effects.KindBlink)(effects.Blink(interval, cycles, peak))
}

// FadeIn climbs from off to peak in the given duration.
func (l *Light) FadeIn(duration time.Duration, peak uint8) error {
	return l.build(effects.KindFadeIn)(effects.FadeIn(duration, peak))
}

// FadeOut descends from peak to off in the given duration.
func (l *Light) FadeOut(duration time.Duration, peak uint8) error {
	return l.build(effects.KindFadeOut)(effects.FadeOut(duration, peak))
}

// Breathe climbs from off to peak and back, until the next effect.
func (l *Light) Breathe(period time.Duration, peak uint8) error {
	return l.build(effects.KindBreathing)(effects.Breathe(period, peak))
}

// build returns a func that posts a successfully created command.
func (l *Light) build(kind effects.Kind) func(effects.Command, error) error {
	return func(cmd effects.Command, err error) error {
		if err != nil {
			effectRejectedTotal.WithLabelValues(l.name, reasonInvalid).Inc()
			l.log.Debug().Err(err).Str("kind", kind.String()).Msg("Rejected effect")
			return err
		}
		return l.post(cmd)
	}
}

// post hands the command to the worker and announces it.
func (l *Light) post(cmd effects.Command) error {
	if err := l.worker.Post(cmd); err != nil {
		effectRejectedTotal.WithLabelValues(l.name, reasonUndeliverable).Inc()
		return err
	}
	l.announce(cmd)
	return nil
}

// announce publishes an event for an accepted command.
func (l *Light) announce(cmd effects.Command) {
	effectRequestsTotal.WithLabelValues(l.name, cmd.Kind().String()).Inc()
	l.events.Pub(Event{
		Light: l.name,
		Kind:  cmd.Kind(),
		Level: cmd.TargetLevel(),
		Time:  time.Now(),
	})
}

// run the worker until the given context is canceled.
// The worker starts with the initial level of the light.
func (l *Light) run(ctx context.Context) error {
	go func() {
		select {
		case <-l.worker.Ready():
			l.announce(effects.Static(l.initialLevel))
		case <-ctx.Done():
			// Context canceled
		}
	}()
	return l.worker.Run(ctx)
}
