package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
)

type fakeStepper struct {
	mu        sync.Mutex
	state     *models.SimulationState
	statusErr error
	steps     []int
}

func (f *fakeStepper) SimulationStatus(context.Context) (*models.SimulationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := *f.state
	return &s, nil
}

func (f *fakeStepper) Step(_ context.Context, minutes int) (*models.SimulationState, *simulation.StepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, minutes)
	return f.state, &simulation.StepReport{Minutes: minutes}, nil
}

func (f *fakeStepper) stepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}

func TestTickOnlyStepsWhileRunning(t *testing.T) {
	f := &fakeStepper{state: &models.SimulationState{}}
	d := New(f, time.Second, 5, nil)

	if d.Tick(context.Background()) {
		t.Fatalf("paused simulation was stepped")
	}
	f.state.IsRunning = true
	if !d.Tick(context.Background()) {
		t.Fatalf("running simulation was not stepped")
	}
	if len(f.steps) != 1 || f.steps[0] != 5 {
		t.Fatalf("steps = %v, want [5]", f.steps)
	}
}

func TestTickSkipsUninitialized(t *testing.T) {
	f := &fakeStepper{statusErr: models.ErrNotInitialized}
	d := New(f, time.Second, 0, nil)
	if d.Tick(context.Background()) {
		t.Fatalf("uninitialized simulation was stepped")
	}
	f.statusErr = errors.New("disk on fire")
	if d.Tick(context.Background()) {
		t.Fatalf("stepped despite status failure")
	}
	if len(f.steps) != 0 {
		t.Fatalf("steps = %v, want none", f.steps)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	f := &fakeStepper{state: &models.SimulationState{IsRunning: true}}
	d := New(f, 5*time.Millisecond, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.stepCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if f.stepCount() < 2 {
		t.Fatalf("steps = %d, want at least 2", f.stepCount())
	}
}

func TestRunDisabledWithoutInterval(t *testing.T) {
	d := New(&fakeStepper{state: &models.SimulationState{}}, 0, 1, nil)
	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run with zero interval should return immediately")
	}
}
