package service

import (
	"go.uber.org/zap"
)

// Sweeper defines what the worker needs from the relation service.
type Sweeper interface {
	SweepEmpty(owner string) (int, error)
}

// Worker drains cleanup jobs (owner ids) from a channel and sweeps empty
// relation rows for each one.
type Worker struct {
	Sweeper Sweeper
	JobChan <-chan string
	Log     *zap.Logger
}

// Constructor
func NewWorker(sweeper Sweeper, jobChan <-chan string, log *zap.Logger) *Worker {
	return &Worker{
		Sweeper: sweeper,
		JobChan: jobChan,
		Log:     log,
	}
}

// Start begins processing jobs. Returns when JobChan closes.
func (w *Worker) Start() {
	for owner := range w.JobChan {
		if _, err := w.Sweeper.SweepEmpty(owner); err != nil {
			w.Log.Warn("cleanup sweep failed", zap.String("owner", owner), zap.Error(err))
		}
	}
}
