package syncer

import (
	"context"
	"log"
	"sync"
	"time"

	"polymarket-relations/config"
	"polymarket-relations/service"
)

// AnalysisWorker periodically recomputes the relationship report from the
// full trade snapshot. Every run is wholesale; there is no incremental
// update of pair scores or roles.
type AnalysisWorker struct {
	svc *service.Service
	cfg *config.Config

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewAnalysisWorker creates a new background analysis worker.
func NewAnalysisWorker(svc *service.Service, cfg *config.Config) *AnalysisWorker {
	return &AnalysisWorker{
		svc:  svc,
		cfg:  cfg,
		stop: make(chan struct{}),
	}
}

// Start launches the recompute loop. The first run happens immediately so
// the report endpoints have data as soon as possible.
func (w *AnalysisWorker) Start() {
	interval := time.Duration(w.cfg.Analysis.RefreshMinutes) * time.Minute
	log.Printf("[analysis] starting with %v interval", interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.runOnce()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.runOnce()
			}
		}
	}()
}

// Stop gracefully shuts down the worker.
func (w *AnalysisWorker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *AnalysisWorker) runOnce() {
	timeout := time.Duration(w.cfg.Analysis.RunTimeoutMins) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := w.svc.RunAnalysis(ctx)
	if err != nil {
		log.Printf("[analysis] run failed: %v", err)
		return
	}
	log.Printf("[analysis] run complete: %d edges, %d opportunities, %d traders",
		report.Summary.EdgesQualified, report.Summary.Opportunities, report.Summary.Traders)
}
