// Package scheduler enforces the end-of-day cutoff. It owns the single
// source of truth for the trading window, shared by the webhook gate and the
// auto-flatten loop so the two can never disagree.
package scheduler

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalbridge/src/executor"
	"signalbridge/src/model"
)

// Venue cutoff: no entries at or after 15:55 Eastern, and everything still
// open gets flattened.
const (
	CutoffHour   = 15
	CutoffMinute = 55
)

const (
	defaultCheckInterval = time.Minute
	// After a flatten the loop goes quiet so one cutoff window does not
	// produce repeated flatten storms.
	defaultQuietPeriod = 8 * time.Hour
)

var venue = loadVenue()

func loadVenue() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// fallback. still deterministic, times will be interpreted as UTC
		return time.UTC
	}
	return loc
}

// VenueTime converts t to the trading venue's local time.
func VenueTime(t time.Time) time.Time {
	return t.In(venue)
}

// TradingAllowed reports whether t is before the venue cutoff. The webhook
// boundary uses this to reject late entries; the scheduler uses its negation
// to trigger the flatten.
func TradingAllowed(t time.Time) bool {
	local := VenueTime(t)
	if local.Hour() != CutoffHour {
		return local.Hour() < CutoffHour
	}
	return local.Minute() < CutoffMinute
}

// PositionCloser issues a close order for one instrument.
type PositionCloser interface {
	ClosePosition(ctx context.Context, instrumentID int64) executor.Result
}

// PositionLister enumerates the currently cached positions.
type PositionLister interface {
	Positions() []model.PositionView
}

// Scheduler checks the wall clock every minute and force-flattens all
// positions once the cutoff has passed.
type Scheduler struct {
	closer    PositionCloser
	positions PositionLister
	log       *logger.Entry

	now           func() time.Time
	checkInterval time.Duration
	quietPeriod   time.Duration
}

func New(closer PositionCloser, positions PositionLister) *Scheduler {
	return &Scheduler{
		closer:        closer,
		positions:     positions,
		log:           logger.WithField("component", "Scheduler"),
		now:           time.Now,
		checkInterval: defaultCheckInterval,
		quietPeriod:   defaultQuietPeriod,
	}
}

// WithClock overrides the clock and intervals, for tests.
func (s *Scheduler) WithClock(now func() time.Time, checkInterval, quietPeriod time.Duration) *Scheduler {
	clone := *s
	clone.now = now
	clone.checkInterval = checkInterval
	clone.quietPeriod = quietPeriod
	return &clone
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithFields(map[string]interface{}{
		"cutoff":         time.Date(0, 1, 1, CutoffHour, CutoffMinute, 0, 0, venue).Format("15:04"),
		"check_interval": s.checkInterval.String(),
	}).Info("Auto square-off scheduler started")

	for {
		wait := s.checkInterval

		if !TradingAllowed(s.now()) {
			closed := s.flatten(ctx)
			s.log.WithField("closed", closed).Info("Past cutoff, flattened open positions")
			wait = s.quietPeriod
		}

		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-time.After(wait):
		}
	}
}

func (s *Scheduler) flatten(ctx context.Context) int {
	closed := 0
	for _, pos := range s.positions.Positions() {
		result := s.closer.ClosePosition(ctx, pos.InstrumentID)
		if result.Status != executor.StatusSuccess {
			s.log.WithFields(map[string]interface{}{
				"con_id":  pos.InstrumentID,
				"message": result.Message,
			}).Error("Auto square-off close failed")
			continue
		}
		closed++
	}
	return closed
}
