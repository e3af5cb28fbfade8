// Package onboarding implements the multi-step user onboarding wizard and the
// time-boxed Redis backup of in-progress form drafts.
package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Wizard steps, in order.
const (
	StepProfile       = "profile"
	StepPreferences   = "preferences"
	StepNotifications = "notifications"
	StepConfirmation  = "confirmation"
)

// StepOrder is the canonical step sequence.
var StepOrder = []string{StepProfile, StepPreferences, StepNotifications, StepConfirmation}

var (
	ErrUnknownStep      = errors.New("onboarding: unknown step")
	ErrStepOutOfOrder   = errors.New("onboarding: step completed out of order")
	ErrAlreadyCompleted = errors.New("onboarding: already completed")
	ErrStepsRemaining   = errors.New("onboarding: steps remaining")
)

// Progress is one user's wizard state.
type Progress struct {
	UserID         string    `json:"userId"`
	CompletedSteps []string  `json:"completedSteps"`
	Completed      bool      `json:"completed"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NextStep returns the first step not yet completed, or "" when all are done.
func (p *Progress) NextStep() string {
	done := make(map[string]bool, len(p.CompletedSteps))
	for _, s := range p.CompletedSteps {
		done[s] = true
	}
	for _, s := range StepOrder {
		if !done[s] {
			return s
		}
	}
	return ""
}

// Wizard tracks per-user onboarding progress. Steps must be completed in
// order; Complete requires every step.
type Wizard struct {
	mu       sync.Mutex
	progress map[string]*Progress
}

// NewWizard creates an empty wizard tracker.
func NewWizard() *Wizard {
	return &Wizard{progress: make(map[string]*Progress)}
}

// Get returns the user's progress, starting the wizard on first use.
func (w *Wizard) Get(_ context.Context, userID string) *Progress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cloneLocked(w.getLocked(userID))
}

// Advance marks one step completed. The step must be the next one in order;
// re-completing the current step is a no-op.
func (w *Wizard) Advance(_ context.Context, userID, step string) (*Progress, error) {
	if !knownStep(step) {
		return nil, ErrUnknownStep
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.getLocked(userID)
	if p.Completed {
		return nil, ErrAlreadyCompleted
	}

	for _, s := range p.CompletedSteps {
		if s == step {
			return w.cloneLocked(p), nil
		}
	}
	if p.NextStep() != step {
		return nil, ErrStepOutOfOrder
	}

	p.CompletedSteps = append(p.CompletedSteps, step)
	p.UpdatedAt = time.Now().UTC()
	return w.cloneLocked(p), nil
}

// Complete finishes the wizard. Every step must be done.
func (w *Wizard) Complete(_ context.Context, userID string) (*Progress, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.getLocked(userID)
	if p.Completed {
		return nil, ErrAlreadyCompleted
	}
	if p.NextStep() != "" {
		return nil, ErrStepsRemaining
	}

	p.Completed = true
	p.UpdatedAt = time.Now().UTC()
	return w.cloneLocked(p), nil
}

func (w *Wizard) getLocked(userID string) *Progress {
	p, ok := w.progress[userID]
	if !ok {
		now := time.Now().UTC()
		p = &Progress{
			UserID:         userID,
			CompletedSteps: []string{},
			StartedAt:      now,
			UpdatedAt:      now,
		}
		w.progress[userID] = p
	}
	return p
}

func (w *Wizard) cloneLocked(p *Progress) *Progress {
	clone := *p
	clone.CompletedSteps = append([]string{}, p.CompletedSteps...)
	return &clone
}

func knownStep(step string) bool {
	for _, s := range StepOrder {
		if s == step {
			return true
		}
	}
	return false
}
