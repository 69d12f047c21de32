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
	"testing"
	"time"

	"github.com/binkynet/LightWorker/pkg/service/effects"
)

func TestParseEffectRequest(t *testing.T) {
	tests := []struct {
		payload string
		effect  string
	}{
		{"ON", EffectOn},
		{"off", EffectOff},
		{`"true"`, EffectOn},
		{"0", EffectOff},
		{`{"effect":"blink","interval_ms":300,"cycles":2}`, EffectBlink},
		{` {"effect":"level","level":12} `, EffectLevel},
	}
	for _, tc := range tests {
		req, err := ParseEffectRequest([]byte(tc.payload))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.payload, err)
		} else if req.Effect != tc.effect {
			t.Errorf("%s: expected effect %s, got %s", tc.payload, tc.effect, req.Effect)
		}
	}

	req, _ := ParseEffectRequest([]byte(`{"effect":"blink","interval_ms":300,"cycles":2,"peak":100}`))
	if req.Cycles == nil || *req.Cycles != 2 || req.Peak == nil || *req.Peak != 100 || req.IntervalMs != 300 {
		t.Errorf("Unexpected request %+v", req)
	}

	for _, payload := range []string{"maybe", `{"effect":`, `{"effect":"level","level":300}`} {
		if _, err := ParseEffectRequest([]byte(payload)); !effects.IsInvalidParameter(err) {
			t.Errorf("%s: expected invalid parameter, got %v", payload, err)
		}
	}
}

func TestEffectRequestApply(t *testing.T) {
	svc, _, err := newTestService(t, 1, pwmLight("desk", 0))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	runService(t, svc)
	desk, _ := svc.LightByName("desk")
	select {
	case <-desk.worker.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for worker")
	}

	if err := (EffectRequest{Effect: "LEVEL", Level: 77}).Apply(desk); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	waitFor(t, "level 77", func() bool {
		st := desk.Status()
		return st.Effect.Live.Kind == effects.KindStatic && st.Effect.Live.TargetLevel == 77
	})

	if err := (EffectRequest{Effect: EffectBlink, IntervalMs: 100}).Apply(desk); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	waitFor(t, "infinite blink", func() bool {
		live := desk.Status().Effect.Live
		return live.Kind == effects.KindBlink && live.RepeatCounter == effects.InfiniteRepeat && live.TargetLevel == 255
	})

	peak := uint8(40)
	if err := (EffectRequest{Effect: EffectBreathe, DurationMs: 400, Peak: &peak}).Apply(desk); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	waitFor(t, "breathing", func() bool {
		live := desk.Status().Effect.Live
		return live.Kind == effects.KindBreathing && live.StepInterval == 10*time.Millisecond
	})

	zero := uint32(0)
	invalid := []EffectRequest{
		{Effect: "strobe"},
		{Effect: EffectBlink, IntervalMs: 0},
		{Effect: EffectBlink, IntervalMs: 100, Cycles: &zero},
		{Effect: EffectFadeIn, DurationMs: 100, Peak: new(uint8)},
	}
	for _, req := range invalid {
		if err := req.Apply(desk); !effects.IsInvalidParameter(err) {
			t.Errorf("%+v: expected invalid parameter, got %v", req, err)
		}
	}
}
