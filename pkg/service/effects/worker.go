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

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Sink receives the levels produced by a worker.
// WriteBrightness must be fast and must not block.
type Sink interface {
	WriteBrightness(level uint8)
}

// Snapshot is a copy of the state of a worker, taken after its last step.
type Snapshot struct {
	Live        State  `json:"live"`
	Baseline    State  `json:"baseline"`
	HasBaseline bool   `json:"has_baseline"`
	Parked      bool   `json:"parked"`
	Steps       uint64 `json:"steps"`
}

// Worker drives the effects of a single device.
// Commands are posted through Post and picked up by Run,
// which owns all effect state.
type Worker struct {
	name    string
	log     zerolog.Logger
	sink    Sink
	mailbox *mailbox
	running int32
	ready   chan struct{}
	once    sync.Once
	initial *Command

	// Only accessed by Run
	live     State
	baseline baseline
	blinkOff bool
	steps    uint64

	snapshotMutex sync.Mutex
	snapshot      Snapshot
}

// NewWorker creates a worker for the device with given name
// that writes its levels to the given sink.
// The worker does not accept commands until Run is called.
func NewWorker(name string, sink Sink, log zerolog.Logger) *Worker {
	return &Worker{
		name:     name,
		log:      log.With().Str("light", name).Logger(),
		sink:     sink,
		mailbox:  newMailbox(),
		ready:    make(chan struct{}),
		live:     State{Kind: KindIdle, StepInterval: Forever},
		snapshot: Snapshot{Live: State{Kind: KindIdle, StepInterval: Forever}, Parked: true},
	}
}

// Name returns the name of the device driven by this worker.
func (w *Worker) Name() string {
	return w.name
}

// Post hands the given command to the worker and returns immediately.
// A command that has not been picked up yet is replaced.
func (w *Worker) Post(cmd Command) error {
	if !w.mailbox.post(cmd) {
		postFailuresTotal.WithLabelValues(w.name).Inc()
		return errors.Wrapf(DeliveryFailedError, "worker for '%s' is not running", w.name)
	}
	return nil
}

// SetInitial sets the command that is adopted when Run starts,
// before any posted command. Must be called before Run.
func (w *Worker) SetInitial(cmd Command) {
	w.initial = &cmd
}

// Ready returns a channel that is closed once the worker
// accepts commands for the first time.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Snapshot returns a copy of the state after the last step.
func (w *Worker) Snapshot() Snapshot {
	w.snapshotMutex.Lock()
	defer w.snapshotMutex.Unlock()
	return w.snapshot
}

// Run the worker until the given context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return maskAny(errors.Errorf("worker for '%s' is already running", w.name))
	}
	defer atomic.StoreInt32(&w.running, 0)

	w.mailbox.setOpen(true)
	defer w.mailbox.setOpen(false)

	wait := Forever
	if w.initial != nil {
		w.adopt(*w.initial)
		wait = w.step()
		w.publish(wait)
	}
	w.once.Do(func() { close(w.ready) })

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		var timeout <-chan time.Time
		if wait >= 0 {
			resetTimer(timer, wait)
			timeout = timer.C
		}
		select {
		case <-ctx.Done():
			// Context canceled
			return nil
		case cmd := <-w.mailbox.receive():
			w.adopt(cmd)
		case <-timeout:
			// Time for the next step
		}
		wait = w.step()
		w.publish(wait)
	}
}

// adopt makes the given command the live effect.
func (w *Worker) adopt(cmd Command) {
	next := newState(cmd)
	switch cmd.kind {
	case KindBlink:
		if w.live.Kind != KindBlink {
			w.baseline.capture(w.live)
		}
		w.blinkOff = false
	case KindBreathing:
		w.baseline.capture(next)
	}
	w.live = next
	adoptionsTotal.WithLabelValues(w.name, cmd.kind.String()).Inc()
	w.log.Debug().
		Str("kind", cmd.kind.String()).
		Uint8("target", cmd.targetLevel).
		Dur("interval", cmd.stepInterval).
		Msg("adopted effect")
}

// step executes a single step of the live effect and returns
// the time to wait before the next step.
func (w *Worker) step() time.Duration {
	w.steps++
	stepsTotal.WithLabelValues(w.name).Inc()
	s := &w.live
	switch s.Kind {
	case KindStatic:
		w.sink.WriteBrightness(s.TargetLevel)
		s.CurrentLevel = s.TargetLevel
		w.baseline.capture(*s)
		return Forever
	case KindBlink:
		if s.RepeatCounter == 0 {
			return w.restoreBaseline()
		}
		if s.RepeatCounter != InfiniteRepeat {
			s.RepeatCounter--
		}
		// First toggle is off, last toggle is on
		w.blinkOff = !w.blinkOff
		if w.blinkOff {
			s.CurrentLevel = 0
		} else {
			s.CurrentLevel = s.TargetLevel
		}
		w.sink.WriteBrightness(s.CurrentLevel)
		return s.StepInterval
	case KindFadeIn:
		if s.CurrentLevel >= s.TargetLevel {
			w.sink.WriteBrightness(s.TargetLevel)
			s.CurrentLevel = s.TargetLevel
			s.Kind = KindIdle
			return w.completeTransient()
		}
		w.sink.WriteBrightness(s.CurrentLevel)
		s.CurrentLevel++
		return s.StepInterval
	case KindFadeOut:
		w.sink.WriteBrightness(s.CurrentLevel)
		if s.CurrentLevel < 1 {
			s.Kind = KindIdle
			return w.completeTransient()
		}
		s.CurrentLevel--
		return s.StepInterval
	case KindBreathing:
		if s.Rising {
			if s.CurrentLevel < s.TargetLevel {
				s.CurrentLevel++
			}
			if s.CurrentLevel >= s.TargetLevel {
				s.Rising = false
			}
		} else {
			if s.CurrentLevel > 0 {
				s.CurrentLevel--
			}
			if s.CurrentLevel == 0 {
				s.Rising = true
			}
		}
		w.sink.WriteBrightness(s.CurrentLevel)
		return s.StepInterval
	default:
		return Forever
	}
}

// completeTransient is called when a fade has ended.
// A static baseline takes over the end level of the fade without
// writing it again. Breathing resumes. Otherwise the worker parks
// at the end level.
func (w *Worker) completeTransient() time.Duration {
	st, ok := w.baseline.restore()
	switch {
	case ok && st.Kind == KindStatic:
		end := w.live.CurrentLevel
		w.live = State{
			Kind:         KindStatic,
			TargetLevel:  end,
			CurrentLevel: end,
		}
		w.baseline.capture(w.live)
		w.log.Debug().Uint8("level", end).Msg("holding fade end level")
		return Forever
	case ok && st.Kind == KindBreathing:
		return w.resume(st)
	}
	w.live.StepInterval = Forever
	w.log.Debug().Uint8("level", w.live.CurrentLevel).Msg("parked after fade")
	return Forever
}

// restoreBaseline is called when a blink has ended.
func (w *Worker) restoreBaseline() time.Duration {
	st, ok := w.baseline.restore()
	if !ok {
		w.live.Kind = KindIdle
		w.live.StepInterval = Forever
		return Forever
	}
	return w.resume(st)
}

// resume makes the given state live again, without deriving
// its step interval again.
func (w *Worker) resume(st State) time.Duration {
	w.live = st
	baselineRestoresTotal.WithLabelValues(w.name).Inc()
	w.log.Debug().
		Str("kind", st.Kind.String()).
		Uint8("level", st.CurrentLevel).
		Msg("restored baseline")
	if st.Kind == KindIdle {
		w.sink.WriteBrightness(st.CurrentLevel)
		return Forever
	}
	return st.StepInterval
}

// publish updates the snapshot.
func (w *Worker) publish(wait time.Duration) {
	st, ok := w.baseline.restore()
	w.snapshotMutex.Lock()
	defer w.snapshotMutex.Unlock()
	w.snapshot = Snapshot{
		Live:        w.live,
		Baseline:    st,
		HasBaseline: ok,
		Parked:      wait < 0,
		Steps:       w.steps,
	}
}

// resetTimer stops, drains and resets the given timer.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
