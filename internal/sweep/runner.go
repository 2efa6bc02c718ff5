package sweep

import (
	"context"
	"fmt"
	"time"

	"senha-engine/internal/notify"
	"senha-engine/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner drives the proactive sweep on a fixed interval. The sweep itself is
// idempotent, so an overlapping or repeated run is harmless; cron's
// SkipIfStillRunning keeps overlap from piling up anyway.
type Runner struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewRunner(engine *notify.Engine, interval time.Duration) (*Runner, error) {
	log := logger.WithComponent("sweep")
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	spec := fmt.Sprintf("@every %s", interval)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if err := engine.ProactiveSweep(ctx); err != nil {
			log.Error("proactive sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}

	return &Runner{cron: c, log: log}, nil
}

func (r *Runner) Start() {
	r.log.Info("starting proactive sweep")
	r.cron.Start()
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("proactive sweep stopped")
}
