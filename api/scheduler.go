/*
scheduler.go - Automated kollel payroll recalculation

PURPOSE:
  Kollel attendance submissions do not recompute payroll. The scheduler
  closes that gap by rerunning RecalculateMonth for every kollel program on
  a cron schedule, for the current month and the previous one (late
  corrections to last month are picked up until the next month ends).

CONFIGURATION:
  - Spec:    cron expression with a seconds field (default "0 0 2 * * *")
  - Enabled: Off by default; explicit calls remain the primary path

USAGE:
  scheduler, err := NewPayrollScheduler(kollelEngine, "0 0 2 * * *", log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RecalculateKollelMonth endpoint (manual run)
  - kollel/engine.go: RecalculateMonth
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/stipend-engine/generic"
	"github.com/warp/stipend-engine/kollel"
)

// PayrollScheduler periodically recalculates kollel payroll.
type PayrollScheduler struct {
	Kollel *kollel.Engine
	Spec   string

	cron    *cron.Cron
	log     logrus.FieldLogger
	now     func() time.Time
	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewPayrollScheduler creates a scheduler. The cron expression is validated here.
func NewPayrollScheduler(engine *kollel.Engine, spec string, log logrus.FieldLogger) (*PayrollScheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ps := &PayrollScheduler{
		Kollel: engine,
		Spec:   spec,
		cron:   cron.New(cron.WithSeconds()),
		log:    log.WithField("component", "scheduler"),
		now:    time.Now,
	}
	if _, err := ps.cron.AddFunc(spec, func() { ps.RunNow(context.Background()) }); err != nil {
		return nil, errors.Wrapf(err, "invalid cron spec %q", spec)
	}
	return ps, nil
}

// Start begins the scheduler.
func (ps *PayrollScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.running {
		return
	}
	ps.cron.Start()
	ps.running = true
	ps.log.WithField("spec", ps.Spec).Info("payroll scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish. The lock
// is released while waiting: the job takes it to record its run.
func (ps *PayrollScheduler) Stop() {
	ps.mu.Lock()
	running := ps.running
	ps.mu.Unlock()
	if !running {
		return
	}

	<-ps.cron.Stop().Done()

	ps.mu.Lock()
	ps.running = false
	ps.mu.Unlock()
	ps.log.Info("payroll scheduler stopped")
}

// RunNow recalculates the current and previous month of every program.
// It returns the number of monthly entries written.
func (ps *PayrollScheduler) RunNow(ctx context.Context) int {
	current := generic.MonthOf(generic.DateOf(ps.now()))
	months := []generic.Period{current.PreviousMonth(), current}

	written := 0
	for _, p := range ps.Kollel.Programs() {
		for _, m := range months {
			entries, err := ps.Kollel.RecalculateMonth(ctx, p.ID, m.Start.Year(), m.Start.Month())
			if err != nil {
				ps.log.WithFields(logrus.Fields{
					"program_id": p.ID,
					"month":      m.Start.String(),
				}).WithError(err).Error("payroll recalculation failed")
				continue
			}
			written += len(entries)
		}
	}

	ps.mu.Lock()
	ps.lastRun = ps.now()
	ps.mu.Unlock()

	ps.log.WithField("entries", written).Info("payroll recalculation completed")
	return written
}

// NextRun returns when the job fires next, zero when stopped.
func (ps *PayrollScheduler) NextRun() time.Time {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.running {
		return time.Time{}
	}
	entries := ps.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// LastRun returns when RunNow last completed.
func (ps *PayrollScheduler) LastRun() time.Time {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.lastRun
}
