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

package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/effects"
	"github.com/binkynet/LightWorker/pkg/service/lights"
)

func newTestRoot(t *testing.T) Root {
	br, err := bridge.NewVirtualBridge(8, 2)
	if err != nil {
		t.Fatal(err)
	}
	lsvc, err := lights.NewService(lights.Config{Lights: []config.LightConfig{
		{Name: "porch", Output: "pwm", Frequency: 5000},
		{Name: "shed", Output: "pwm", Frequency: 5000},
	}}, lights.Dependencies{Log: zerolog.Nop(), Bridge: br})
	if err != nil {
		t.Fatalf("lights.NewService failed: %v", err)
	}
	if err := lsvc.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return NewRoot(lsvc)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(r Root, msg tea.Msg) (Root, tea.Cmd) {
	m, cmd := r.Update(msg)
	return m.(Root), cmd
}

func TestRootSelection(t *testing.T) {
	r := newTestRoot(t)
	if len(r.statuses) != 2 {
		t.Fatalf("Expected 2 lights, got %d", len(r.statuses))
	}
	r, _ = update(r, key("down"))
	if r.selected != 1 {
		t.Errorf("Expected selection 1, got %d", r.selected)
	}
	r, _ = update(r, key("down"))
	if r.selected != 1 {
		t.Errorf("Expected selection to stay at 1, got %d", r.selected)
	}
	r, _ = update(r, key("up"))
	r, _ = update(r, key("up"))
	if r.selected != 0 {
		t.Errorf("Expected selection 0, got %d", r.selected)
	}

	// Fewer lights
	r.selected = 1
	r, cmd := update(r, statusMsg(r.statuses[:1]))
	if r.selected != 0 || cmd == nil {
		t.Errorf("Expected selection 0 and a reload, got %d", r.selected)
	}
}

func TestRootView(t *testing.T) {
	r := newTestRoot(t)
	view := r.View()
	for _, expected := range []string{"Light worker", "porch", "shed", "idle", "q - Disconnect"} {
		if !strings.Contains(view, expected) {
			t.Errorf("Expected view to contain %q", expected)
		}
	}
}

func TestRootEffectNotRunning(t *testing.T) {
	r := newTestRoot(t)
	r, _ = update(r, key("o"))
	if !effects.IsDeliveryFailed(r.lastErr) {
		t.Errorf("Expected delivery failure, got %v", r.lastErr)
	}
	if !strings.Contains(r.View(), r.lastErr.Error()) {
		t.Error("Expected error in view")
	}
}

func TestRootQuit(t *testing.T) {
	r := newTestRoot(t)
	_, cmd := update(r, key("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected quit message")
	}
}
