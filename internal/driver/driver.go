// Package driver advances the simulation on a wall-clock cadence while the
// simulation is running.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
)

// Stepper is the part of the simulation engine the driver needs.
type Stepper interface {
	SimulationStatus(ctx context.Context) (*models.SimulationState, error)
	Step(ctx context.Context, minutes int) (*models.SimulationState, *simulation.StepReport, error)
}

// Driver calls Step(Minutes) every Interval, but only while is_running is set.
type Driver struct {
	stepper  Stepper
	interval time.Duration
	minutes  int
	log      logging.Logger
}

// New creates a driver. minutes below 1 is treated as 1.
func New(stepper Stepper, interval time.Duration, minutes int, log logging.Logger) *Driver {
	if minutes < 1 {
		minutes = 1
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Driver{stepper: stepper, interval: interval, minutes: minutes, log: log.With(logging.String("component", "driver"))}
}

// Run ticks until ctx is done. A non-positive interval returns immediately.
func (d *Driver) Run(ctx context.Context) {
	if d.interval <= 0 {
		return
	}
	d.log.Info(ctx, "auto-advance started",
		logging.Duration("interval", d.interval),
		logging.Int("minutes", d.minutes),
	)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info(context.Background(), "auto-advance stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick performs one driver iteration and reports whether a step ran.
func (d *Driver) Tick(ctx context.Context) bool {
	state, err := d.stepper.SimulationStatus(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNotInitialized) {
			d.log.Error(ctx, "auto-advance status check failed", logging.Err(err))
		}
		return false
	}
	if !state.IsRunning {
		return false
	}
	if _, _, err := d.stepper.Step(ctx, d.minutes); err != nil {
		d.log.Error(ctx, "auto-advance step failed", logging.Err(err))
		return false
	}
	return true
}
