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

package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/effects"
	"github.com/binkynet/LightWorker/pkg/service/lights"
)

func newTestService(t *testing.T) (*service, lights.Service) {
	br, err := bridge.NewVirtualBridge(8, 2)
	if err != nil {
		t.Fatal(err)
	}
	lsvc, err := lights.NewService(lights.Config{Lights: []config.LightConfig{
		{Name: "porch", Output: "pwm", Frequency: 5000},
	}}, lights.Dependencies{Log: zerolog.Nop(), Bridge: br})
	if err != nil {
		t.Fatalf("lights.NewService failed: %v", err)
	}
	if err := lsvc.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	svc, err := NewService(Config{
		Broker: "tcp://127.0.0.1:1883",
		Prefix: "binkynet/lights/",
	}, Dependencies{Log: zerolog.Nop(), Lights: lsvc})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc.(*service), lsvc
}

func TestNewServiceRequiresBroker(t *testing.T) {
	if _, err := NewService(Config{}, Dependencies{}); err == nil {
		t.Error("Expected error for empty broker")
	}
}

func TestLightFromTopic(t *testing.T) {
	s, _ := newTestService(t)
	tests := []struct {
		topic string
		name  string
		ok    bool
	}{
		{"binkynet/lights/porch/effect", "porch", true},
		{"binkynet/lights/porch/state", "", false},
		{"binkynet/lights//effect", "", false},
		{"binkynet/lights/a/b/effect", "", false},
		{"other/porch/effect", "", false},
	}
	for _, tc := range tests {
		name, ok := s.lightFromTopic(tc.topic)
		if name != tc.name || ok != tc.ok {
			t.Errorf("%s: expected (%s, %v), got (%s, %v)", tc.topic, tc.name, tc.ok, name, ok)
		}
	}
	if topic := s.stateTopic("porch"); topic != "binkynet/lights/porch/state" {
		t.Errorf("Unexpected state topic %s", topic)
	}
}

func TestHandleEffect(t *testing.T) {
	s, lsvc := newTestService(t)
	if err := s.handleEffect("binkynet/lights/garage/effect", []byte("ON")); err == nil {
		t.Error("Expected error for unknown light")
	}
	if err := s.handleEffect("binkynet/lights/porch", []byte("ON")); err == nil {
		t.Error("Expected error for unexpected topic")
	}
	if err := s.handleEffect("binkynet/lights/porch/effect", []byte("bright")); !effects.IsInvalidParameter(err) {
		t.Errorf("Expected invalid parameter, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		lsvc.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	porch, _ := lsvc.LightByName("porch")
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := s.handleEffect("binkynet/lights/porch/effect", []byte(`{"effect":"level","level":90}`))
		if err == nil {
			break
		}
		if !effects.IsDeliveryFailed(err) || time.Now().After(deadline) {
			t.Fatalf("handleEffect failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	for porch.Status().Level != 90 {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for level 90, got %d", porch.Status().Level)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublishNotConnected(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.Publish(context.Background(), "hello", "binkynet/lights/log", QosDefault, false); !IsNotConnected(err) {
		t.Errorf("Expected not connected, got %v", err)
	}
}
