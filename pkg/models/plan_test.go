package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		got := ComputeProgress(tt.completed, tt.total)
		assert.Equal(t, tt.want, got.Percentage, "%d/%d", tt.completed, tt.total)
		assert.Equal(t, tt.total, got.TotalTasks)
	}
}

func TestPlan_RecomputeProgress(t *testing.T) {
	p := &Plan{Tasks: []PlanTask{
		{Status: TaskStatusCompleted},
		{Status: TaskStatusSkipped},
		{Status: TaskStatusPending},
		{Status: TaskStatusCompleted},
	}}
	p.RecomputeProgress()

	assert.Equal(t, PlanProgress{CompletedTasks: 2, TotalTasks: 4, Percentage: 50}, p.Progress)
	assert.False(t, p.AllTasksDone())

	p.Tasks[2].Status = TaskStatusSkipped
	assert.True(t, p.AllTasksDone())
}

func TestPlan_TransitionTo(t *testing.T) {
	p := &Plan{Status: PlanStatusProcessing}
	assert.False(t, p.IsReady())

	assert.NoError(t, p.TransitionTo(PlanStatusActive))
	assert.True(t, p.IsReady())

	err := p.TransitionTo(PlanStatusProcessing)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, PlanStatusActive, p.Status)

	assert.NoError(t, p.TransitionTo(PlanStatusCompleted))
	assert.False(t, p.CanTransition(PlanStatusActive))
}

func TestPlan_AppendNote(t *testing.T) {
	p := &Plan{}
	p.AppendNote("first")
	p.AppendNote("second")
	assert.Equal(t, "first\n\nsecond", p.Notes)
}
