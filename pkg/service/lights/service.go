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
	"sort"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/devices"
	"github.com/binkynet/LightWorker/pkg/service/effects"
)

// Service contains the API that is exposed by the lights service.
type Service interface {
	// Configure is called once to put all lights in their safe (off) state.
	Configure(ctx context.Context) error
	// Run all configured lights until the given context is canceled.
	Run(ctx context.Context) error
	// Close brings all lights back to a safe state.
	Close(ctx context.Context) error
	// LightByName returns the configured light with given name.
	// Returns false if not found.
	LightByName(name string) (*Light, bool)
	// Lights returns all configured lights, sorted by name.
	Lights() []*Light
	// Subscribe calls the given callback for every accepted effect
	// until the returned function is called.
	Subscribe(cb func(Event)) context.CancelFunc
}

// Event is published for every effect accepted by a light.
type Event struct {
	Light string       `json:"light"`
	Kind  effects.Kind `json:"kind"`
	Level uint8        `json:"level"`
	Time  time.Time    `json:"time"`
}

type Config struct {
	Lights []config.LightConfig
}

type Dependencies struct {
	Log       zerolog.Logger
	Bridge    bridge.API
	Allocator *devices.ChannelAllocator
	// Optional PCA9685 controller for lights with output "pca9685"
	PCA9685 bridge.PWMSource
}

type service struct {
	Config
	log    zerolog.Logger
	events *pubsub.PubSub

	mutex            sync.Mutex
	lights           map[string]*Light
	configuredLights map[string]*Light
}

// NewService creates a light for every configured light.
// Lights whose output cannot be created are reported in the
// returned error; the others are kept.
func NewService(conf Config, deps Dependencies) (Service, error) {
	s := &service{
		Config:           conf,
		log:              deps.Log.With().Str("component", "lights-service").Logger(),
		events:           pubsub.New(),
		lights:           make(map[string]*Light),
		configuredLights: make(map[string]*Light),
	}
	allocator := deps.Allocator
	if allocator == nil {
		allocator = devices.NewChannelAllocator(deps.Bridge.PWMChannelCount())
	}
	var pcaAllocator *devices.ChannelAllocator
	if deps.PCA9685 != nil {
		pcaAllocator = devices.NewChannelAllocator(deps.PCA9685.PWMChannelCount())
	}
	var ae aerr.AggregateError
	for _, c := range conf.Lights {
		log := s.log.With().Str("light", c.Name).Logger()
		out, err := devices.NewOutput(c.OutputConfig(), devices.Dependencies{
			Log:       log,
			Bridge:    deps.Bridge,
			Allocator: allocator,

			PCA9685:          deps.PCA9685,
			PCA9685Allocator: pcaAllocator,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to create light")
			ae.Add(err)
			continue
		}
		s.lights[c.Name] = newLight(c.Name, c.InitialLevel, out, s.events, log)
	}
	s.log.Debug().Msgf("created %d lights", len(s.lights))
	lightsCreatedTotal.Set(float64(len(s.lights)))
	return s, ae.AsError()
}

// Configure is called once to put all lights in their safe (off) state.
func (s *service) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	configured := make(map[string]*Light)
	for name, l := range s.lights {
		log := s.log.With().Str("light", name).Logger()
		if err := l.output.Configure(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to configure light")
			ae.Add(err)
		} else {
			configured[name] = l
			log.Debug().Msg("configured light")
		}
	}
	s.mutex.Lock()
	s.configuredLights = configured
	s.mutex.Unlock()
	lightsConfiguredTotal.Set(float64(len(configured)))
	return ae.AsError()
}

// Run all configured lights until the given context is canceled.
func (s *service) Run(ctx context.Context) error {
	defer func() {
		s.log.Debug().Msg("Run Lights ended")
	}()
	lights := s.Lights()
	if len(lights) == 0 {
		s.log.Warn().Msg("no configured lights, just waiting for context to be cancelled")
		<-ctx.Done()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range lights {
		l := l
		g.Go(func() error { return l.run(ctx) })
	}
	s.log.Info().Int("lights", len(lights)).Msg("Running lights")
	return g.Wait()
}

// Close brings all lights back to a safe state.
func (s *service) Close(ctx context.Context) error {
	var ae aerr.AggregateError
	for name, l := range s.lights {
		if err := l.output.Close(ctx); err != nil {
			s.log.Warn().Err(err).Str("light", name).Msg("Failed to close light")
			ae.Add(err)
		}
	}
	return ae.AsError()
}

// LightByName returns the configured light with given name.
func (s *service) LightByName(name string) (*Light, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l, found := s.configuredLights[name]
	return l, found
}

// Lights returns all configured lights, sorted by name.
func (s *service) Lights() []*Light {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	result := make([]*Light, 0, len(s.configuredLights))
	for _, l := range s.configuredLights {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// Subscribe calls the given callback for every accepted effect.
func (s *service) Subscribe(cb func(Event)) context.CancelFunc {
	wcb := func(evt Event) {
		cb(evt)
	}
	s.events.Sub(wcb)
	return func() {
		s.events.Leave(wcb)
	}
}
