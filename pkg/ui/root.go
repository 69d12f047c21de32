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
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/binkynet/LightWorker/pkg/service/effects"
	"github.com/binkynet/LightWorker/pkg/service/lights"
)

const (
	reloadInterval = time.Millisecond * 250

	blinkInterval  = time.Millisecond * 500
	fadeDuration   = time.Second
	breathePeriod  = time.Second * 2
	levelBarWidth  = 30
	nameColumnSize = 16
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// UI serves the terminal UI over SSH.
type UI struct {
	lights lights.Service
}

// New creates a UI for the given lights.
func New(lights lights.Service) *UI {
	return &UI{lights: lights}
}

// Handler creates a model for the incoming ssh.Session.
func (u *UI) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	root := NewRoot(u.lights)
	root.term = pty.Term
	root.width = pty.Window.Width
	root.height = pty.Window.Height
	return root, []tea.ProgramOption{tea.WithAltScreen()}
}

type Root struct {
	term   string
	width  int
	height int

	lights   lights.Service
	statuses []lights.Status
	selected int
	lastErr  error
	bar      progress.Model
}

var _ tea.Model = Root{}

// NewRoot creates the root model showing all given lights.
func NewRoot(lights lights.Service) Root {
	r := Root{
		lights: lights,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(levelBarWidth), progress.WithoutPercentage()),
	}
	r.statuses = r.loadStatuses()
	return r
}

// Init is the first function that will be called.
func (r Root) Init() tea.Cmd {
	return r.doReload()
}

// Update is called when a message is received.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		r.statuses = msg
		if r.selected >= len(r.statuses) {
			r.selected = max(len(r.statuses)-1, 0)
		}
		return r, r.doReload()
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "up", "k":
			if r.selected > 0 {
				r.selected--
			}
		case "down", "j":
			if r.selected < len(r.statuses)-1 {
				r.selected++
			}
		case "o":
			r.lastErr = r.apply(func(l *lights.Light) error { return l.TurnOn() })
		case "f":
			r.lastErr = r.apply(func(l *lights.Light) error { return l.TurnOff() })
		case "b":
			r.lastErr = r.apply(func(l *lights.Light) error {
				return l.Blink(blinkInterval, effects.InfiniteRepeat, effects.MaxLevel)
			})
		case "i":
			r.lastErr = r.apply(func(l *lights.Light) error { return l.FadeIn(fadeDuration, effects.MaxLevel) })
		case "d":
			r.lastErr = r.apply(func(l *lights.Light) error { return l.FadeOut(fadeDuration, effects.MaxLevel) })
		case "r":
			r.lastErr = r.apply(func(l *lights.Light) error { return l.Breathe(breathePeriod, effects.MaxLevel) })
		}
	}
	return r, nil
}

// View renders the list of lights.
func (r Root) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Welcome to BinkyNet Light worker!"))
	sb.WriteString("\n\n")
	if len(r.statuses) == 0 {
		sb.WriteString("No lights configured\n")
	}
	for i, st := range r.statuses {
		sb.WriteString(r.lightView(i == r.selected, st))
		sb.WriteString("\n")
	}
	if r.lastErr != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(r.lastErr.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(`up/down - Select light
o - On        f - Off
b - Blink     r - Breathe
i - Fade in   d - Fade out
q - Disconnect`))
	sb.WriteString("\n")
	return sb.String()
}

// lightView renders a single line for the given light.
func (r Root) lightView(selected bool, st lights.Status) string {
	name := fmt.Sprintf("%-*s", nameColumnSize, st.Name)
	if selected {
		name = selectedStyle.Render("> " + name)
	} else {
		name = "  " + name
	}
	effect := st.Effect.Live.Kind.String()
	if st.Effect.HasBaseline {
		effect += " (" + st.Effect.Baseline.Kind.String() + ")"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		name,
		r.bar.ViewAs(float64(st.Level)/float64(effects.MaxLevel)),
		fmt.Sprintf(" %3d  %-20s %s steps", st.Level, effect, humanize.Comma(int64(st.Effect.Steps))),
	)
}

// apply calls the given function on the selected light.
func (r Root) apply(cb func(*lights.Light) error) error {
	if r.selected >= len(r.statuses) {
		return nil
	}
	l, found := r.lights.LightByName(r.statuses[r.selected].Name)
	if !found {
		return errors.Errorf("light '%s' not found", r.statuses[r.selected].Name)
	}
	return cb(l)
}

func (r Root) loadStatuses() []lights.Status {
	all := r.lights.Lights()
	result := make([]lights.Status, 0, len(all))
	for _, l := range all {
		result = append(result, l.Status())
	}
	return result
}

type statusMsg []lights.Status

func (r Root) doReload() tea.Cmd {
	return tea.Tick(reloadInterval, func(t time.Time) tea.Msg {
		return statusMsg(r.loadStatuses())
	})
}
