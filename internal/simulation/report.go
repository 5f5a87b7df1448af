package simulation

import "time"

// Transition is one train state change applied during a step.
type Transition struct {
	TrainID   int64  `json:"train_id"`
	Kind      string `json:"kind"` // departed, arrived, completed
	From      string `json:"from_status"`
	To        string `json:"to_status"`
	StationID int64  `json:"station_id"`
	Delay     int    `json:"delay_minutes"`
}

// Exchange is the passenger movement at one station visit.
type Exchange struct {
	TrainID   int64 `json:"train_id"`
	StationID int64 `json:"station_id"`
	Deboarded int   `json:"deboarded"`
	Boarded   int   `json:"boarded"`
	Left      int   `json:"left_waiting"` // waiting passengers that did not fit
}

// Issue is a train update skipped because of malformed data.
type Issue struct {
	TrainID int64  `json:"train_id"`
	Reason  string `json:"reason"`
}

// StepReport summarizes what one step did.
type StepReport struct {
	Minutes         int          `json:"minutes"`
	SimulatedFrom   time.Time    `json:"simulated_from"`
	SimulatedTo     time.Time    `json:"simulated_to"`
	TrainsEvaluated int          `json:"trains_evaluated"`
	Transitions     []Transition `json:"transitions"`
	Exchanges       []Exchange   `json:"exchanges"`
	Issues          []Issue      `json:"issues"`
}

func newStepReport(minutes int) *StepReport {
	return &StepReport{
		Minutes:     minutes,
		Transitions: []Transition{},
		Exchanges:   []Exchange{},
		Issues:      []Issue{},
	}
}

type reportMark struct{ transitions, exchanges int }

func (r *StepReport) mark() reportMark {
	return reportMark{transitions: len(r.Transitions), exchanges: len(r.Exchanges)}
}

// truncate drops entries recorded after m, for a train update that was
// rolled back.
func (r *StepReport) truncate(m reportMark) {
	r.Transitions = r.Transitions[:m.transitions]
	r.Exchanges = r.Exchanges[:m.exchanges]
}

// Count returns how many transitions of kind the step applied.
func (r *StepReport) Count(kind string) int {
	n := 0
	for _, t := range r.Transitions {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// PassengerMoves sums boarded and deboarded passengers over all exchanges.
func (r *StepReport) PassengerMoves() (boarded, deboarded int) {
	for _, e := range r.Exchanges {
		boarded += e.Boarded
		deboarded += e.Deboarded
	}
	return boarded, deboarded
}
