/**
 * @description
 * Cron-driven expiry sweep. Missions carry an optional valid_until timestamp;
 * the sweep transitions any mission past it to COMPLETED so expiry does not
 * depend on someone happening to read the mission.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the mission expiry job on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewSweeper creates the sweeper. The schedule is a standard cron expression.
func NewSweeper(service *Service, schedule string) *Sweeper {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Sweeper{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the expiry job and starts the cron scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runExpirySweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("level=info component=sweeper msg=\"expiry sweep scheduled\" schedule=%q", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler; the returned context is done when any
// in-flight sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) runExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	completed, err := s.service.CompleteExpiredMissions(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("level=error component=sweeper msg=\"expiry sweep failed\" err=%v", err)
		return
	}
	if completed > 0 {
		log.Printf("level=info component=sweeper msg=\"expired missions completed\" count=%d", completed)
	}
}
