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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/devices"
	"github.com/binkynet/LightWorker/pkg/service/effects"
)

func newTestService(t *testing.T, channels int, lights ...config.LightConfig) (Service, *bridge.VirtualBridge, error) {
	br, err := bridge.NewVirtualBridge(8, channels)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(Config{Lights: lights}, Dependencies{
		Log:    zerolog.Nop(),
		Bridge: br,
	})
	return svc, br, err
}

// runService configures and runs the service until the test ends.
func runService(t *testing.T, svc Service) {
	if err := svc.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		svc.Close(context.Background())
	})
}

func waitFor(t *testing.T, description string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timeout waiting for %s", description)
}

func pwmLight(name string, initial uint8) config.LightConfig {
	return config.LightConfig{Name: name, Output: "pwm", InitialLevel: initial, Frequency: 5000}
}

func TestServiceChannelExhaustion(t *testing.T) {
	svc, _, err := newTestService(t, 1, pwmLight("a", 0), pwmLight("b", 0))
	if !devices.IsNoChannelAvailable(err) {
		t.Fatalf("Expected no channel available, got %v", err)
	}
	if err := svc.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if n := len(svc.Lights()); n != 1 {
		t.Errorf("Expected 1 light, got %d", n)
	}
}

func TestServicePostsInitialLevel(t *testing.T) {
	svc, br, err := newTestService(t, 2, pwmLight("b", 20), pwmLight("a", 0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	runService(t, svc)

	lights := svc.Lights()
	if len(lights) != 2 || lights[0].Name() != "a" || lights[1].Name() != "b" {
		t.Fatalf("Expected lights sorted by name, got %v", lights)
	}
	b, found := svc.LightByName("b")
	if !found {
		t.Fatal("Expected light b")
	}
	waitFor(t, "initial level", func() bool {
		st := b.Status()
		return st.Level == 20 && st.Effect.Live.Kind == effects.KindStatic
	})
	// Channels are handed out in configuration order
	if duty, _, _ := br.Duty(0); duty != 20 {
		t.Errorf("Expected channel 0 at 20, got %d", duty)
	}
	if _, found := svc.LightByName("c"); found {
		t.Error("Expected light c not to be found")
	}
}

func TestLightEffects(t *testing.T) {
	svc, _, err := newTestService(t, 1, pwmLight("desk", 0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	events := make(chan Event, 16)
	cancelSub := svc.Subscribe(func(e Event) { events <- e })
	defer cancelSub()
	runService(t, svc)
	desk, _ := svc.LightByName("desk")
	select {
	case <-desk.worker.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for worker")
	}
	select {
	case e := <-events:
		if e.Kind != effects.KindStatic || e.Level != 0 {
			t.Errorf("Expected initial level event, got %+v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for initial level")
	}

	if err := desk.TurnOn(); err != nil {
		t.Fatalf("TurnOn failed: %v", err)
	}
	waitFor(t, "full brightness", func() bool { return desk.Status().Level == 255 })

	steps := desk.Status().Effect.Steps
	if err := desk.FadeOut(255*time.Millisecond, 255); err != nil {
		t.Fatalf("FadeOut failed: %v", err)
	}
	// 256 fade steps, after which the light holds the end level
	waitFor(t, "fade out to complete", func() bool {
		st := desk.Status()
		return st.Effect.Parked && st.Effect.Steps >= steps+256
	})
	if st := desk.Status(); st.Level != 0 || st.Effect.Live.Kind != effects.KindStatic || st.Effect.Live.TargetLevel != 0 {
		t.Errorf("Expected light to hold 0 after fade out, got %+v", st)
	}

	// Fade in over the static level ends at the peak
	steps = desk.Status().Effect.Steps
	if err := desk.FadeIn(255*time.Millisecond, 200); err != nil {
		t.Fatalf("FadeIn failed: %v", err)
	}
	waitFor(t, "fade in to complete", func() bool {
		st := desk.Status()
		return st.Effect.Parked && st.Effect.Steps >= steps+201
	})
	if st := desk.Status(); st.Level != 200 || st.Effect.Live.TargetLevel != 200 {
		t.Errorf("Expected light to hold 200 after fade in, got %+v", st)
	}

	if err := desk.FadeIn(time.Second, 0); !effects.IsInvalidParameter(err) {
		t.Errorf("Expected invalid parameter, got %v", err)
	}
	if err := desk.Blink(0, 1, 255); !effects.IsInvalidParameter(err) {
		t.Errorf("Expected invalid parameter, got %v", err)
	}

	// On, fade-out, fade-in
	seen := map[effects.Kind]int{}
	timeout := time.After(5 * time.Second)
	for received := 0; received < 3; received++ {
		select {
		case e := <-events:
			if e.Light != "desk" {
				t.Errorf("Unexpected light %s", e.Light)
			}
			seen[e.Kind]++
		case <-timeout:
			t.Fatalf("Timeout waiting for events, got %v", seen)
		}
	}
	if seen[effects.KindStatic] != 1 || seen[effects.KindFadeOut] != 1 || seen[effects.KindFadeIn] != 1 {
		t.Errorf("Unexpected events %v", seen)
	}
}

func TestLightNotRunning(t *testing.T) {
	svc, _, err := newTestService(t, 1, pwmLight("desk", 0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.Configure(context.Background())
	desk, _ := svc.LightByName("desk")
	if err := desk.TurnOn(); !effects.IsDeliveryFailed(err) {
		t.Errorf("Expected delivery failure, got %v", err)
	}
}

func TestServiceCloseReleasesChannels(t *testing.T) {
	br, _ := bridge.NewVirtualBridge(8, 1)
	allocator := devices.NewChannelAllocator(1)
	deps := Dependencies{Log: zerolog.Nop(), Bridge: br, Allocator: allocator}
	svc, err := NewService(Config{Lights: []config.LightConfig{pwmLight("a", 0)}}, deps)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	svc.Configure(context.Background())
	if allocator.Available() != 0 {
		t.Fatal("Expected channel in use")
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if allocator.Available() != 1 {
		t.Error("Expected channel to be released")
	}
}

func TestServicePCA9685Lights(t *testing.T) {
	br, _ := bridge.NewVirtualBridge(8, 1)
	pca, _ := bridge.NewVirtualBridge(0, 16)
	svc, err := NewService(Config{Lights: []config.LightConfig{
		pwmLight("a", 0),
		{Name: "signal", Output: "pca9685", InitialLevel: 90, Frequency: 1000},
	}}, Dependencies{Log: zerolog.Nop(), Bridge: br, PCA9685: pca})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	runService(t, svc)

	signal, _ := svc.LightByName("signal")
	waitFor(t, "initial level", func() bool { return signal.Status().Level == 90 })
	if duty, _, enabled := pca.Duty(0); duty != 90 || !enabled {
		t.Errorf("Expected controller channel 0 at 90, got %d (%v)", duty, enabled)
	}

	// Without a controller the light cannot be created
	_, _, err = newTestService(t, 1, config.LightConfig{Name: "signal", Output: "pca9685"})
	if !devices.IsInvalidConfig(err) {
		t.Errorf("Expected invalid config, got %v", err)
	}
}
