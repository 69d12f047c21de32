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

	"github.com/pkg/errors"
)

// ChannelAllocator hands out PWM channels to outputs.
// It is safe for concurrent use.
type ChannelAllocator struct {
	mutex sync.Mutex
	inUse []bool
	next  int
}

// NewChannelAllocator creates an allocator for channels 0...count-1.
func NewChannelAllocator(count int) *ChannelAllocator {
	if count < 0 {
		count = 0
	}
	return &ChannelAllocator{
		inUse: make([]bool, count),
	}
}

// Allocate returns a free channel.
// Channels are handed out round-robin, starting after the channel
// that was handed out last.
func (a *ChannelAllocator) Allocate() (int, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	count := len(a.inUse)
	for i := 0; i < count; i++ {
		ch := (a.next + i) % count
		if !a.inUse[ch] {
			a.inUse[ch] = true
			a.next = (ch + 1) % count
			channelsInUse.Inc()
			return ch, nil
		}
	}
	return -1, errors.Wrapf(NoChannelAvailableError, "all %d channels in use", count)
}

// Release makes the given channel available again.
func (a *ChannelAllocator) Release(ch int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if ch >= 0 && ch < len(a.inUse) && a.inUse[ch] {
		a.inUse[ch] = false
		channelsInUse.Dec()
	}
}

// Available returns the number of free channels.
func (a *ChannelAllocator) Available() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	result := 0
	for _, used := range a.inUse {
		if !used {
			result++
		}
	}
	return result
}
