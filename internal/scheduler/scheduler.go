// Package scheduler emits the discrete price ticks the engines consume.
// A tick is one synchronous unit: advance the feed, re-mark every open
// position on each pair and run its liquidation check, then publish quotes.
// No command is processed between a price update and its liquidation check.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"numa-sim/internal/clock"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/metrics"
	"numa-sim/internal/positions"
)

type Scheduler struct {
	feed      *marketdata.Feed
	positions *positions.Service
	bus       *marketdata.Bus
	clock     clock.Clock
	interval  time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
}

func New(feed *marketdata.Feed, posSvc *positions.Service, bus *marketdata.Bus, clk clock.Clock, interval time.Duration) *Scheduler {
	if clk == nil {
		clk = clock.System()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		feed:      feed,
		positions: posSvc,
		bus:       bus,
		clock:     clk,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go func() {
			defer close(s.done)
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			for {
				select {
				case <-s.stop:
					return
				case <-ticker.C:
					s.Tick()
				}
			}
		}()
	})
}

// Stop stops scheduling new ticks; a tick already running completes. Safe to
// call without a prior Start and safe to call twice.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// Tick runs one complete price tick. Exported so tests can drive ticks with
// a manual clock instead of real timers.
func (s *Scheduler) Tick() {
	started := time.Now()
	now := s.clock.Now()
	s.feed.Step(now)
	for _, spec := range marketdata.Specs() {
		price, err := s.feed.Current(spec.Symbol)
		if err != nil {
			continue
		}
		s.positions.MarkPair(spec.Symbol, price)
		if s.bus != nil {
			s.bus.Publish(marketdata.Event{Type: "quote", Data: marketdata.Tick{
				Symbol: spec.Symbol,
				Price:  price,
				Time:   now.Unix(),
			}})
		}
	}
	metrics.TickDuration.Observe(time.Since(started).Seconds())
}
