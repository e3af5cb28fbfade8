package onboarding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizard_HappyPath(t *testing.T) {
	w := NewWizard()
	ctx := context.Background()

	p := w.Get(ctx, "u1")
	assert.Equal(t, StepProfile, p.NextStep())
	assert.False(t, p.Completed)

	for _, step := range StepOrder {
		p, err := w.Advance(ctx, "u1", step)
		require.NoError(t, err)
		assert.Contains(t, p.CompletedSteps, step)
	}

	p, err := w.Complete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Empty(t, p.NextStep())
}

func TestWizard_OutOfOrderRejected(t *testing.T) {
	w := NewWizard()

	_, err := w.Advance(context.Background(), "u1", StepNotifications)
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
}

func TestWizard_RepeatStepIsNoop(t *testing.T) {
	w := NewWizard()
	ctx := context.Background()

	_, err := w.Advance(ctx, "u1", StepProfile)
	require.NoError(t, err)
	p, err := w.Advance(ctx, "u1", StepProfile)
	require.NoError(t, err)
	assert.Equal(t, []string{StepProfile}, p.CompletedSteps)
	assert.Equal(t, StepPreferences, p.NextStep())
}

func TestWizard_UnknownStep(t *testing.T) {
	w := NewWizard()

	_, err := w.Advance(context.Background(), "u1", "billing")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestWizard_CompleteRequiresAllSteps(t *testing.T) {
	w := NewWizard()
	ctx := context.Background()

	_, err := w.Advance(ctx, "u1", StepProfile)
	require.NoError(t, err)

	_, err = w.Complete(ctx, "u1")
	assert.ErrorIs(t, err, ErrStepsRemaining)
}

func TestWizard_CompleteTwice(t *testing.T) {
	w := NewWizard()
	ctx := context.Background()

	for _, step := range StepOrder {
		_, err := w.Advance(ctx, "u1", step)
		require.NoError(t, err)
	}
	_, err := w.Complete(ctx, "u1")
	require.NoError(t, err)

	_, err = w.Complete(ctx, "u1")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = w.Advance(ctx, "u1", StepProfile)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestWizard_ProgressIsPerUser(t *testing.T) {
	w := NewWizard()
	ctx := context.Background()

	_, err := w.Advance(ctx, "u1", StepProfile)
	require.NoError(t, err)

	p := w.Get(ctx, "u2")
	assert.Empty(t, p.CompletedSteps)
}
