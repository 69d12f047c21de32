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

package devices

import (
	"sync"
	"testing"
)

func TestChannelAllocatorRoundRobin(t *testing.T) {
	a := NewChannelAllocator(3)
	for expected := 0; expected < 3; expected++ {
		ch, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if ch != expected {
			t.Errorf("Expected channel %d, got %d", expected, ch)
		}
	}
	if _, err := a.Allocate(); !IsNoChannelAvailable(err) {
		t.Errorf("Expected no channel available, got %v", err)
	}

	a.Release(1)
	a.Release(0)
	// Continues after the last handed out channel (2), wrapping around
	if ch, _ := a.Allocate(); ch != 0 {
		t.Errorf("Expected channel 0, got %d", ch)
	}
	if ch, _ := a.Allocate(); ch != 1 {
		t.Errorf("Expected channel 1, got %d", ch)
	}
	if a.Available() != 0 {
		t.Errorf("Expected no available channels, got %d", a.Available())
	}
}

func TestChannelAllocatorSkipsInUse(t *testing.T) {
	a := NewChannelAllocator(4)
	for i := 0; i < 4; i++ {
		a.Allocate()
	}
	a.Release(2)
	if ch, err := a.Allocate(); err != nil || ch != 2 {
		t.Errorf("Expected channel 2, got %d (%v)", ch, err)
	}
	// Releasing an unknown channel is a no-op
	a.Release(17)
	a.Release(-1)
	if a.Available() != 0 {
		t.Errorf("Expected no available channels, got %d", a.Available())
	}
}

func TestChannelAllocatorEmpty(t *testing.T) {
	a := NewChannelAllocator(0)
	if _, err := a.Allocate(); !IsNoChannelAvailable(err) {
		t.Errorf("Expected no channel available, got %v", err)
	}
}

func TestChannelAllocatorConcurrent(t *testing.T) {
	const count = 16
	a := NewChannelAllocator(count)
	var wg sync.WaitGroup
	var mutex sync.Mutex
	seen := make(map[int]bool)
	for i := 0; i < count*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ch, err := a.Allocate(); err == nil {
				mutex.Lock()
				defer mutex.Unlock()
				if seen[ch] {
					t.Errorf("Channel %d handed out twice", ch)
				}
				seen[ch] = true
			}
		}()
	}
	wg.Wait()
	if len(seen) != count {
		t.Errorf("Expected %d channels handed out, got %d", count, len(seen))
	}
}
