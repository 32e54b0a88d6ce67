// Package attempts tracks the retry budget of a decode context.
//
// The budget is a tagged state: Active while attempts remain, LastChance once
// they are used up, and Corrupted after the remote service reports the file
// as irrecoverable. Only the service can move the state to Corrupted; running
// out of attempts is a warning, not a verdict. The fields are unexported so
// combinations such as "corrupted with three attempts left" cannot be built.
package attempts

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/stegkeeper/internal/client/models"
	"github.com/dmitrijs2005/stegkeeper/internal/common"
)

type Phase int

const (
	PhaseActive Phase = iota
	PhaseLastChance
	PhaseCorrupted
)

func (p Phase) String() string {
	switch p {
	case PhaseLastChance:
		return "last_chance"
	case PhaseCorrupted:
		return "corrupted"
	}
	return "active"
}

// State is an immutable attempt state. The zero value is not valid; use Fresh.
type State struct {
	phase     Phase
	remaining int
}

// Fresh is the state of a new decode context.
func Fresh() State {
	return State{phase: PhaseActive, remaining: common.MaxDecodeAttempts}
}

func (s State) Phase() Phase    { return s.phase }
func (s State) Remaining() int  { return s.remaining }
func (s State) Corrupted() bool { return s.phase == PhaseCorrupted }

func (s State) String() string {
	if s.phase == PhaseCorrupted {
		return "corrupted"
	}
	return fmt.Sprintf("%s(%d)", s.phase, s.remaining)
}

// AfterAuthFailure spends one attempt, never going below zero.
func (s State) AfterAuthFailure() State {
	if s.phase == PhaseCorrupted {
		return s
	}
	n := s.remaining - 1
	if n <= 0 {
		return State{phase: PhaseLastChance, remaining: 0}
	}
	return State{phase: PhaseActive, remaining: n}
}

// AfterDestroyed is terminal regardless of the remaining budget.
func (s State) AfterDestroyed() State {
	return State{phase: PhaseCorrupted, remaining: 0}
}

// AfterSuccess restores the full budget. A corrupted state stays corrupted.
func (s State) AfterSuccess() State {
	if s.phase == PhaseCorrupted {
		return s
	}
	return Fresh()
}

// Warning is the operator hint for the state, empty when there is nothing
// to warn about.
func (s State) Warning() string {
	switch {
	case s.phase == PhaseCorrupted:
		return models.MsgFileDestroyed
	case s.phase == PhaseLastChance:
		return "No attempts remaining. Another failure may destroy the file."
	case s.remaining < common.MaxDecodeAttempts:
		return fmt.Sprintf("%d attempts remaining.", s.remaining)
	}
	return ""
}

// Governor guards a State for one session.
type Governor struct {
	mu    sync.Mutex
	state State
}

func NewGovernor() *Governor {
	return &Governor{state: Fresh()}
}

func (g *Governor) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Allow reports whether a new submission may be dispatched.
func (g *Governor) Allow() bool {
	return !g.State().Corrupted()
}

// Apply feeds an outcome into the governor and returns the new state.
// Authentication failures only count against decode submissions; a
// destruction verdict counts in either direction.
func (g *Governor) Apply(direction models.Direction, kind models.OutcomeKind) State {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch kind {
	case models.OutcomeDestroyed:
		g.state = g.state.AfterDestroyed()
	case models.OutcomeAuthFailure:
		if direction == models.DirectionDecode {
			g.state = g.state.AfterAuthFailure()
		}
	case models.OutcomeSuccess:
		if direction == models.DirectionDecode {
			g.state = g.state.AfterSuccess()
		}
	}
	return g.state
}

// Reset starts a fresh decode context.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Fresh()
}
