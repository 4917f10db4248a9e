package keeper

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tempokv/store"
)

// SweeperConfig tunes the background reclamation pass. The zero value gets
// sensible defaults from NewSweeper.
type SweeperConfig struct {
	// Interval between sweeps. Default 60s.
	Interval time.Duration
	// YieldEvery is how many processed items pass between cooperative
	// yields, in both the collection and deletion passes. Default 100.
	YieldEvery int
	// FullScan disables the early stop at the first live record. The
	// early stop assumes creation order implies expiry order, which a
	// newer record with a shorter ttl violates; see SweepOnce.
	FullScan bool
	// Clock defaults to SystemClock.
	Clock Clock
	// Yield defaults to runtime.Gosched.
	Yield func()
	// Logger receives one info event per sweep that reclaimed records.
	// Defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Sweeper periodically walks the expiry-ordered index, collects expired
// records and deletes them in a second pass. It alternates between sleeping
// and sweeping until its context is cancelled.
type Sweeper struct {
	store store.Store
	cfg   SweeperConfig
}

func NewSweeper(s store.Store, cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.YieldEvery <= 0 {
		cfg.YieldEvery = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Yield == nil {
		cfg.Yield = runtime.Gosched
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.Logger
	}
	return &Sweeper{store: s, cfg: cfg}
}

// Run blocks, sweeping every Interval until ctx is cancelled. A failed
// sweep is logged and retried on the next tick.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.SweepOnce(ctx); err != nil {
				sw.cfg.Logger.Debug().Err(err).Msg("sweep failed")
			}
		}
	}
}

// candidate is an identity collected in pass one. created pins the version
// seen during collection so conditional deletes skip refreshed records.
type candidate struct {
	group   string
	key     string
	created time.Time
}

// SweepOnce runs a single collect-then-delete pass and returns the number
// of records reclaimed.
//
// Collection walks the store in ascending (created, ttl) order and, unless
// FullScan is set, stops at the first record that is still live: everything
// after it was created later, so it is assumed to expire later too. That
// assumption does not hold when ttls vary, so a newer short-lived record
// past the stop point can stay unswept until a later pass reaches it. Reads
// still treat it as absent in the meantime.
func (sw *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := sw.cfg.Clock.Now()

	var expired []candidate
	processed := 0
	err := sw.store.ScanOrdered(func(rec store.Record) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		processed++
		if processed%sw.cfg.YieldEvery == 0 {
			sw.cfg.Yield()
		}
		if rec.Expired(now) {
			expired = append(expired, candidate{rec.Group, rec.Key, rec.Created})
			return true, nil
		}
		return sw.cfg.FullScan, nil
	})
	if err != nil {
		return 0, err
	}

	cd, _ := sw.store.(store.ConditionalDeleter)
	reclaimed := 0
	for i, c := range expired {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}
		var ok bool
		var err error
		if cd != nil {
			ok, err = cd.DeleteIfCreated(c.group, c.key, c.created)
		} else {
			ok, err = sw.store.Delete(c.group, c.key)
		}
		if err != nil {
			return reclaimed, err
		}
		if ok {
			reclaimed++
		}
		if (i+1)%sw.cfg.YieldEvery == 0 {
			sw.cfg.Yield()
		}
	}

	if reclaimed > 0 {
		sw.cfg.Logger.Info().Int("reclaimed", reclaimed).Msg("sweep reclaimed expired records")
	}
	return reclaimed, nil
}
