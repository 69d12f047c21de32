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

import "sync"

// mailbox is a single slot channel between callers and a worker.
// A post replaces a command that has not been received yet.
type mailbox struct {
	mutex sync.Mutex
	slot  chan Command
	open  bool
}

func newMailbox() *mailbox {
	return &mailbox{
		slot: make(chan Command, 1),
	}
}

// post puts the given command in the slot, dropping any unreceived
// command, which wakes the receiving worker.
// Returns false if no worker is receiving.
func (m *mailbox) post(cmd Command) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.open {
		return false
	}
	select {
	case <-m.slot:
		// Dropped unreceived command
	default:
		// Slot was empty
	}
	select {
	case m.slot <- cmd:
		return true
	default:
		return false
	}
}

// setOpen marks the receiving side active or inactive.
// Closing drops any unreceived command.
func (m *mailbox) setOpen(open bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.open = open
	if !open {
		select {
		case <-m.slot:
		default:
		}
	}
}

// receive returns the channel the worker waits on.
func (m *mailbox) receive() <-chan Command {
	return m.slot
}
