package keeper

import "tempokv/store"

// GroupStats is the per-group slice of Stats.
type GroupStats struct {
	Total   int
	Active  int
	Expired int
}

// Stats is a point-in-time census of the store: every record counts toward
// Total and exactly one of Active or Expired, globally and per group.
type Stats struct {
	Total   int
	Active  int
	Expired int
	ByGroup map[string]GroupStats
}

// Stats scans every record. Unlike the sweeper there is no early stop;
// correctness here needs the full table. A Keeper without a store reports
// all zeroes.
func (k *Keeper) Stats() (Stats, error) {
	out := Stats{ByGroup: make(map[string]GroupStats)}
	if k == nil || k.store == nil {
		return out, nil
	}

	now := k.clock.Now()
	err := k.store.ScanAll(func(rec store.Record) error {
		out.Total++
		g := out.ByGroup[rec.Group]
		g.Total++
		if rec.Expired(now) {
			out.Expired++
			g.Expired++
		} else {
			out.Active++
			g.Active++
		}
		out.ByGroup[rec.Group] = g
		return nil
	})
	return out, err
}
