package simulation

import (
	"fmt"

	"github.com/jengzang/railsim-backend-go/internal/models"
)

// exchangePassengers deboards passengers bound for station, then boards
// waiting passengers in id order while seats remain.
func (r *stepRun) exchangePassengers(t *models.Train, station int64) error {
	off, err := r.passengers.Deboard(r.ctx, t.ID, station, r.now)
	if err != nil {
		return &models.StorageFailure{Op: fmt.Sprintf("deboard train %d", t.ID), Err: err}
	}
	t.CurrentPassengerCount -= off
	if t.CurrentPassengerCount < 0 {
		t.CurrentPassengerCount = 0
	}

	on, err := r.passengers.Board(r.ctx, t.ID, station, t.AvailableSeats(), r.now)
	if err != nil {
		return &models.StorageFailure{Op: fmt.Sprintf("board train %d", t.ID), Err: err}
	}
	t.CurrentPassengerCount += on

	left, err := r.passengers.CountWaitingAt(r.ctx, station)
	if err != nil {
		return &models.StorageFailure{Op: "count waiting passengers", Err: err}
	}

	if off > 0 || on > 0 || left > 0 {
		r.report.Exchanges = append(r.report.Exchanges, Exchange{
			TrainID:   t.ID,
			StationID: station,
			Deboarded: off,
			Boarded:   on,
			Left:      left,
		})
	}
	return nil
}
