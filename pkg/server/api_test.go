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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/binkynet/LightWorker/pkg/config"
	"github.com/binkynet/LightWorker/pkg/service/bridge"
	"github.com/binkynet/LightWorker/pkg/service/lights"
)

func newTestServer(t *testing.T, run bool) (*echo.Echo, lights.Service) {
	br, err := bridge.NewVirtualBridge(8, 2)
	if err != nil {
		t.Fatal(err)
	}
	lsvc, err := lights.NewService(lights.Config{Lights: []config.LightConfig{
		{Name: "porch", Output: "pwm", Frequency: 5000, InitialLevel: 10},
		{Name: "shed", Output: "binary", Pin: 3},
	}}, lights.Dependencies{Log: zerolog.Nop(), Bridge: br})
	if err != nil {
		t.Fatalf("lights.NewService failed: %v", err)
	}
	if err := lsvc.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			lsvc.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	srv, err := New(Config{}, zerolog.Nop(), nil, lsvc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv.newRouter(), lsvc
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, false)
	rec := do(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK\n" {
		t.Errorf("Unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestListLights(t *testing.T) {
	e, _ := newTestServer(t, false)
	rec := do(e, http.MethodGet, "/api/v1/lights", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var result []lights.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(result) != 2 || result[0].Name != "porch" || result[1].Name != "shed" {
		t.Errorf("Unexpected lights %+v", result)
	}
}

func TestGetLight(t *testing.T) {
	e, _ := newTestServer(t, false)
	if rec := do(e, http.MethodGet, "/api/v1/lights/porch", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/lights/garage", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestPostEffect(t *testing.T) {
	e, lsvc := newTestServer(t, true)
	porch, _ := lsvc.LightByName("porch")

	if rec := do(e, http.MethodPost, "/api/v1/lights/garage/effect", "ON"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/lights/porch/effect", `{"effect":"strobe"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/lights/porch/effect", `{"effect":"fade-in","duration_ms":100,"peak":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := do(e, http.MethodPost, "/api/v1/lights/porch/effect", `{"effect":"level","level":60}`)
		if rec.Code == http.StatusAccepted {
			break
		}
		if rec.Code != http.StatusServiceUnavailable || time.Now().After(deadline) {
			t.Fatalf("Unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		time.Sleep(time.Millisecond)
	}
	for porch.Status().Level != 60 {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for level 60, got %d", porch.Status().Level)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPostEffectNotRunning(t *testing.T) {
	e, _ := newTestServer(t, false)
	if rec := do(e, http.MethodPost, "/api/v1/lights/shed/effect", "ON"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
