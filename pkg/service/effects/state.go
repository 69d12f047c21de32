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

import "time"

// State is the working record of the live effect of a single device.
type State struct {
	Kind          Kind          `json:"kind"`
	TargetLevel   uint8         `json:"target_level"`
	CurrentLevel  uint8         `json:"current_level"`
	StepInterval  time.Duration `json:"step_interval"`
	TotalDuration time.Duration `json:"total_duration,omitempty"`
	RepeatCounter uint32        `json:"repeat_counter,omitempty"`
	Rising        bool          `json:"rising,omitempty"`
}

// newState creates the live state for the given command.
func newState(cmd Command) State {
	s := State{
		Kind:          cmd.kind,
		TargetLevel:   cmd.targetLevel,
		StepInterval:  cmd.stepInterval,
		TotalDuration: cmd.totalDuration,
		RepeatCounter: cmd.repeatCount,
	}
	switch cmd.kind {
	case KindStatic:
		s.CurrentLevel = cmd.targetLevel
	case KindFadeOut:
		s.CurrentLevel = cmd.targetLevel
	case KindBreathing:
		s.Rising = true
	}
	return s
}

// baseline holds the state to return to once a transient or
// interrupting effect is done. It holds at most one state.
type baseline struct {
	state State
	valid bool
}

// capture stores a copy of the given state, replacing any previous one.
func (b *baseline) capture(s State) {
	b.state = s
	b.valid = true
}

// restore returns a copy of the stored state.
// The stored state is kept.
// Returns false if nothing was ever captured.
func (b *baseline) restore() (State, bool) {
	return b.state, b.valid
}
